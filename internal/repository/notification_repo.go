package repository

import (
	"context"

	"boundless/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	query := `
        INSERT INTO notifications (user_id, title, description, is_read)
        VALUES ($1, $2, $3, false)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, n.UserID, n.Title, n.Description).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert notification", zap.Error(err))
		return err
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	query := `
        SELECT id, user_id, title, description, is_read, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Description, &n.IsRead, &n.CreatedAt); err != nil {
			r.logger.Error("Failed to scan notification", zap.Error(err))
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
