package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// expiryWarningDays is how far ahead the expiry sweep looks.
const expiryWarningDays = 30

// NotificationService maintains the dashboard alert feed. It is a derived,
// read-only view over core data: the sweeps consult the query facade and
// write only to the notifications table, never to stock or transactions.
type NotificationService interface {
	// CheckLowStock raises a warning for every item at or below its
	// minimum-stock threshold. Alerts already pending (unread, same
	// message) are not duplicated.
	CheckLowStock(ctx context.Context) (int, error)
	// CheckExpiry raises an error for expired medication batches and a
	// warning for batches expiring within the next 30 days.
	CheckExpiry(ctx context.Context) (int, error)

	Add(ctx context.Context, typ NotificationType, title, message string) (*Notification, error)
	List(ctx context.Context) ([]Notification, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Clear(ctx context.Context) error
}

type notificationService struct {
	conn    *sqlx.DB
	queries QueryService
}

func NewNotificationService(conn *sqlx.DB, queries QueryService) NotificationService {
	return &notificationService{conn: conn, queries: queries}
}

func (s *notificationService) Add(ctx context.Context, typ NotificationType, title, message string) (*Notification, error) {
	n := &Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: nowStamp(),
	}
	_, err := s.conn.ExecContext(ctx, s.conn.Rebind(`
		INSERT INTO notifications (id, type, title, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), n.ID, n.Type, n.Title, n.Message, n.Read, n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	return n, nil
}

// addUnlessPending inserts the alert unless an identical unread one exists,
// so repeated sweeps do not flood the feed.
func (s *notificationService) addUnlessPending(ctx context.Context, typ NotificationType, title, message string) (bool, error) {
	var count int64
	err := s.conn.GetContext(ctx, &count, s.conn.Rebind(`
		SELECT COUNT(*) FROM notifications
		WHERE read = ? AND title = ? AND message = ?
	`), false, title, message)
	if err != nil {
		return false, fmt.Errorf("failed to check pending notifications: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if _, err := s.Add(ctx, typ, title, message); err != nil {
		return false, err
	}
	return true, nil
}

func (s *notificationService) CheckLowStock(ctx context.Context) (int, error) {
	low, err := s.queries.LowStockItems(ctx)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, it := range low {
		msg := fmt.Sprintf("%s is low on stock (%d units). Recommended minimum: %d.",
			it.Name, it.TotalQuantity, it.MinimumStock)
		added, err := s.addUnlessPending(ctx, NotifyWarning, "Low stock", msg)
		if err != nil {
			return raised, err
		}
		if added {
			raised++
		}
	}
	return raised, nil
}

func (s *notificationService) CheckExpiry(ctx context.Context) (int, error) {
	items, err := s.queries.ExpiringWithin(ctx, expiryWarningDays)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	raised := 0
	for _, it := range items {
		expiry, err := time.Parse(timeLayout, *it.ExpiryDate)
		if err != nil {
			return raised, fmt.Errorf("item %s has malformed expiry date %q: %w", it.ID, *it.ExpiryDate, err)
		}

		var (
			typ     NotificationType
			title   string
			message string
		)
		if expiry.Before(now) {
			typ = NotifyError
			title = "Expired medication"
			message = fmt.Sprintf("%s (batch %s) expired on %s.",
				it.Name, it.Batch, expiry.Format("2006-01-02"))
		} else {
			days := int(expiry.Sub(now).Hours() / 24)
			typ = NotifyWarning
			title = "Medication near expiry"
			message = fmt.Sprintf("%s (batch %s) expires in %d days.",
				it.Name, it.Batch, days)
		}

		added, err := s.addUnlessPending(ctx, typ, title, message)
		if err != nil {
			return raised, err
		}
		if added {
			raised++
		}
	}
	return raised, nil
}

func (s *notificationService) List(ctx context.Context) ([]Notification, error) {
	var ns []Notification
	err := s.conn.SelectContext(ctx, &ns,
		"SELECT * FROM notifications ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return ns, nil
}

func (s *notificationService) UnreadCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.conn.GetContext(ctx, &count,
		s.conn.Rebind("SELECT COUNT(*) FROM notifications WHERE read = ?"), false)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx,
		s.conn.Rebind("UPDATE notifications SET read = ? WHERE id = ?"), true, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{Kind: "notification", ID: id}
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx,
		s.conn.Rebind("UPDATE notifications SET read = ? WHERE read = ?"), true, false)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (s *notificationService) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}
