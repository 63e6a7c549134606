package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ettore-crm/internal/models"
	"github.com/google/uuid"
)

// ActivityRepository appends and reads lead activity entries
type ActivityRepository struct {
	db *PostgresDB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *PostgresDB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an activity entry
func (r *ActivityRepository) Create(ctx context.Context, a *models.LeadActivity) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now().UTC()
	if a.Metadata == nil {
		a.Metadata = map[string]interface{}{}
	}

	query := `
		INSERT INTO lead_activities (id, lead_id, user_id, activity_type, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		a.ID,
		a.LeadID,
		a.UserID,
		a.ActivityType,
		a.Description,
		a.Metadata,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", translateError(err))
	}

	return nil
}

// ListByLead returns the activities of a lead, newest first
func (r *ActivityRepository) ListByLead(ctx context.Context, ownerID, leadID string) ([]*models.LeadActivity, error) {
	query := `
		SELECT id, lead_id, user_id, activity_type, description, metadata, created_at
		FROM lead_activities
		WHERE lead_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, leadID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]*models.LeadActivity, 0)
	for rows.Next() {
		var a models.LeadActivity
		if err := rows.Scan(
			&a.ID,
			&a.LeadID,
			&a.UserID,
			&a.ActivityType,
			&a.Description,
			&a.Metadata,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}
