package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ettore-crm/internal/models"
	"github.com/google/uuid"
)

// NotificationRepository handles in-app notifications and the email log
type NotificationRepository struct {
	db *PostgresDB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *PostgresDB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts an unread notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now().UTC()
	n.IsRead = false

	query := `
		INSERT INTO notifications (id, user_id, lead_id, type, title, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		n.ID,
		n.UserID,
		n.LeadID,
		n.Type,
		n.Title,
		n.Message,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", translateError(err))
	}

	return nil
}

// List returns the owner's notifications newest first
func (r *NotificationRepository) List(ctx context.Context, ownerID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, lead_id, type, title, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR is_read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Pool().Query(ctx, query, ownerID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.LeadID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead flags a notification as read. It is the only mutation allowed.
func (r *NotificationRepository) MarkRead(ctx context.Context, ownerID, id string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to mark notification read: %w", ErrNotFound)
	}
	return nil
}

// LogEmail writes one email log row
func (r *NotificationRepository) LogEmail(ctx context.Context, entry *models.EmailLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.SentAt = time.Now().UTC()

	query := `
		INSERT INTO email_logs (id, user_id, lead_id, email_type, recipient, subject, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.LeadID,
		entry.EmailType,
		entry.Recipient,
		entry.Subject,
		entry.Status,
		entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log email: %w", translateError(err))
	}

	return nil
}
