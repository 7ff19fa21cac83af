package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/store"
)

type notificationRepository struct {
	q querier
}

func (r *notificationRepository) Add(ctx context.Context, n *domain.Notification) error {
	payload := []byte("{}")
	if len(n.Payload) > 0 {
		var err error
		if payload, err = json.Marshal(n.Payload); err != nil {
			return fmt.Errorf("Notifications.Add: encoding payload: %w", err)
		}
	}

	_, err := r.q.ExecContext(ctx, `INSERT INTO notifications
		(id, type, severity, title, message, payload, created_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Type, n.Severity, n.Title, n.Message, string(payload), formatTime(n.CreatedAt), boolInt(n.Read),
	)
	if err != nil {
		return fmt.Errorf("Notifications.Add: %w", err)
	}
	return nil
}

// ListRecent returns up to limit notifications, newest first.
func (r *notificationRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Notification, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, type, severity, title, message, payload, created_at, is_read
		FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("Notifications.ListRecent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Notification
	for rows.Next() {
		var (
			n         domain.Notification
			payload   string
			createdAt string
			read      int
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Severity, &n.Title, &n.Message, &payload, &createdAt, &read); err != nil {
			return nil, fmt.Errorf("Notifications.ListRecent: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
			return nil, fmt.Errorf("Notifications.ListRecent: decoding payload: %w", err)
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("Notifications.ListRecent: %w", err)
		}
		n.Read = read != 0
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("Notifications.MarkRead: %w", err)
	}
	if err := checkAffected(res, store.ErrNotFound); err != nil {
		return fmt.Errorf("Notifications.MarkRead: %s: %w", id, err)
	}
	return nil
}
