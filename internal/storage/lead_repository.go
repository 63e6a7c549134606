package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LeadRepository handles lead persistence. Every query is filtered by owner.
type LeadRepository struct {
	db *PostgresDB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *PostgresDB) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `
	id, user_id, name, email, phone, event_type, event_date, budget_range,
	message, status, priority, source, notes, created_at, updated_at`

func scanLead(row pgx.Row, extra ...any) (*models.Lead, error) {
	var l models.Lead
	dest := []any{
		&l.ID,
		&l.UserID,
		&l.Name,
		&l.Email,
		&l.Phone,
		&l.EventType,
		&l.EventDate,
		&l.BudgetRange,
		&l.Message,
		&l.Status,
		&l.Priority,
		&l.Source,
		&l.Notes,
		&l.CreatedAt,
		&l.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a lead with status "new" and priority "medium"
func (r *LeadRepository) Create(ctx context.Context, ownerID string, f models.LeadFields) (*models.Lead, error) {
	source := f.Source
	if source == "" {
		source = types.SourceWebhook
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO leads (
			id, user_id, name, email, phone, event_type, event_date, budget_range,
			message, status, priority, source, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING ` + leadColumns

	row := r.db.Pool().QueryRow(ctx, query,
		uuid.New().String(),
		ownerID,
		f.Name,
		f.Email,
		f.Phone,
		f.EventType,
		f.EventDate,
		f.BudgetRange,
		f.Message,
		types.StatusNew,
		types.PriorityMedium,
		source,
		f.Notes,
		now,
	)

	lead, err := scanLead(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", translateError(err))
	}
	return lead, nil
}

// Get returns a lead if it exists and belongs to ownerID
func (r *LeadRepository) Get(ctx context.Context, ownerID, leadID string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND user_id = $2`

	lead, err := scanLead(r.db.Pool().QueryRow(ctx, query, leadID, ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", translateError(err))
	}
	return lead, nil
}

// Update applies a partial update and returns the new row together with the
// status the lead had before the update. The old status is read under a row
// lock in the same statement.
func (r *LeadRepository) Update(ctx context.Context, ownerID, leadID string, u models.LeadUpdate) (*models.Lead, types.LeadStatus, error) {
	var status, priority *string
	if u.Status != nil {
		s := string(*u.Status)
		status = &s
	}
	if u.Priority != nil {
		p := string(*u.Priority)
		priority = &p
	}

	query := `
		WITH prev AS (
			SELECT id, status FROM leads
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		)
		UPDATE leads AS l SET
			status = COALESCE($3, l.status),
			priority = COALESCE($4, l.priority),
			notes = COALESCE($5, l.notes),
			updated_at = NOW()
		FROM prev
		WHERE l.id = prev.id
		RETURNING ` + prefixColumns("l", leadColumns) + `, prev.status`

	var previous types.LeadStatus
	lead, err := scanLead(r.db.Pool().QueryRow(ctx, query, leadID, ownerID, status, priority, u.Notes), &previous)
	if err != nil {
		return nil, "", fmt.Errorf("failed to update lead: %w", translateError(err))
	}
	return lead, previous, nil
}

// List returns the owner's leads newest first
func (r *LeadRepository) List(ctx context.Context, ownerID string, filter models.LeadFilter) ([]*models.Lead, error) {
	var (
		clauses = []string{"user_id = $1"}
		args    = []any{ownerID}
	)

	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(name ILIKE $%d OR email ILIKE $%d OR COALESCE(event_type, '') ILIKE $%d)", n, n, n))
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*models.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leads: %w", err)
	}

	return leads, nil
}

// Count returns the number of leads of an owner, optionally with one status
func (r *LeadRepository) Count(ctx context.Context, ownerID string, status types.LeadStatus) (int, error) {
	query := `SELECT COUNT(*) FROM leads WHERE user_id = $1 AND ($2 = '' OR status = $2)`

	var n int
	if err := r.db.Pool().QueryRow(ctx, query, ownerID, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

// escapeLike escapes LIKE wildcards so user search text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
