package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ettore-crm/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DraftRepository handles email draft persistence
type DraftRepository struct {
	db *PostgresDB
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(db *PostgresDB) *DraftRepository {
	return &DraftRepository{db: db}
}

const draftColumns = `
	id, user_id, lead_id, subject, content, template_type, status, created_at, updated_at`

func scanDraft(row pgx.Row, extra ...any) (*models.EmailDraft, error) {
	var d models.EmailDraft
	dest := []any{
		&d.ID,
		&d.UserID,
		&d.LeadID,
		&d.Subject,
		&d.Content,
		&d.TemplateType,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a draft
func (r *DraftRepository) Create(ctx context.Context, d *models.EmailDraft) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
		INSERT INTO email_drafts (` + draftColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		d.ID,
		d.UserID,
		d.LeadID,
		d.Subject,
		d.Content,
		d.TemplateType,
		d.Status,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", translateError(err))
	}

	return nil
}

// List returns the owner's drafts newest first, joined with the lead's
// name, email and event type. A nil leadID lists all drafts.
func (r *DraftRepository) List(ctx context.Context, ownerID string, leadID *string) ([]*models.EmailDraft, error) {
	query := `
		SELECT ` + prefixColumns("d", draftColumns) + `, l.name, l.email, l.event_type
		FROM email_drafts d
		JOIN leads l ON l.id = d.lead_id AND l.user_id = d.user_id
		WHERE d.user_id = $1 AND ($2::uuid IS NULL OR d.lead_id = $2::uuid)
		ORDER BY d.created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, ownerID, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", translateError(err))
	}
	defer rows.Close()

	drafts := make([]*models.EmailDraft, 0)
	for rows.Next() {
		var (
			name, email string
			eventType   *string
		)
		d, err := scanDraft(rows, &name, &email, &eventType)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		d.LeadName, d.LeadEmail, d.LeadEventType = name, email, eventType
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", translateError(err))
	}

	return drafts, nil
}

// Update applies a partial edit to a draft owned by ownerID
func (r *DraftRepository) Update(ctx context.Context, ownerID, id string, u models.DraftUpdate) (*models.EmailDraft, error) {
	var status *string
	if u.Status != nil {
		s := string(*u.Status)
		status = &s
	}

	query := `
		UPDATE email_drafts SET
			subject = COALESCE($3, subject),
			content = COALESCE($4, content),
			status = COALESCE($5, status),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + draftColumns

	d, err := scanDraft(r.db.Pool().QueryRow(ctx, query, id, ownerID, u.Subject, u.Content, status))
	if err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", translateError(err))
	}
	return d, nil
}

// Delete removes a draft owned by ownerID
func (r *DraftRepository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM email_drafts WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete draft: %w", ErrNotFound)
	}
	return nil
}

// Count returns the number of drafts of an owner
func (r *DraftRepository) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM email_drafts WHERE user_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count drafts: %w", err)
	}
	return n, nil
}
