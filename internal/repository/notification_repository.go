package repository

import (
	"context"
	"database/sql"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/repository/builder"
)

var notificationColumns = []string{
	"id", "recipient_user_id", "title", "message", "type", "tag", "is_read", "related_id", "created_at",
}

type pgNotifications struct{ q querier }

func scanNotification(s scanner) (domain.Notification, error) {
	var n domain.Notification
	var tag, related sql.NullString
	err := s.Scan(&n.ID, &n.RecipientUserID, &n.Title, &n.Message, &n.Type, &tag, &n.IsRead, &related, &n.CreatedAt)
	n.Tag, n.RelatedID = tag.String, related.String
	return n, err
}

func (r pgNotifications) Create(ctx context.Context, n *domain.Notification) error {
	query, args := builder.NewSQLBuilder().
		Insert("notifications", notificationColumns...).
		Values(n.ID, n.RecipientUserID, n.Title, n.Message, n.Type, nullString(n.Tag), n.IsRead, nullString(n.RelatedID), n.CreatedAt).
		Build()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "failed to create notification for "+n.RecipientUserID)
	}
	return nil
}

func (r pgNotifications) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query, args := builder.NewSQLBuilder().
		Select(notificationColumns...).
		From("notifications").
		Where("id = ?", id).
		Build()

	n, err := scanNotification(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "notification "+id+" not found")
	}
	return &n, nil
}

func (r pgNotifications) List(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, int, error) {
	b := builder.NewSQLBuilder().
		Select(notificationColumns...).
		From("notifications").
		WhereIf(f.RecipientUserID != "", "recipient_user_id = ?", f.RecipientUserID).
		WhereIf(f.Type != "", "type = ?", f.Type).
		OrderBy("created_at DESC", "id")
	if f.IsRead != nil {
		b.Where("is_read = ?", *f.IsRead)
	}
	return listPage(ctx, r.q, b, f.Pagination, "failed to list notifications", scanNotification)
}

func (r pgNotifications) CountUnread(ctx context.Context, recipientID string) (int, error) {
	b := builder.NewSQLBuilder().
		From("notifications").
		Where("recipient_user_id = ?", recipientID).
		Where("NOT is_read")
	return count(ctx, r.q, b, "failed to count unread notifications")
}

func (r pgNotifications) MarkRead(ctx context.Context, id string) error {
	b := builder.NewSQLBuilder().Update("notifications").Set("is_read", true).Where("id = ?", id)
	return execAffected(ctx, r.q, b, "notification "+id+" not found")
}

func (r pgNotifications) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	b := builder.NewSQLBuilder().
		Update("notifications").
		Set("is_read", true).
		Where("recipient_user_id = ?", recipientID).
		Where("NOT is_read")
	return execCount(ctx, r.q, b, "failed to mark notifications read")
}

func (r pgNotifications) Delete(ctx context.Context, id string) error {
	b := builder.NewSQLBuilder().Delete("notifications").Where("id = ?", id)
	return execAffected(ctx, r.q, b, "notification "+id+" not found")
}

func (r pgNotifications) DeleteRead(ctx context.Context, recipientID string) (int, error) {
	b := builder.NewSQLBuilder().
		Delete("notifications").
		Where("recipient_user_id = ?", recipientID).
		Where("is_read")
	return execCount(ctx, r.q, b, "failed to clear read notifications")
}
