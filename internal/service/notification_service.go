package service

import (
	"context"
	"fmt"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/logger"
)

// NotificationQuery filters a user's inbox.
type NotificationQuery struct {
	IsRead *bool  `query:"is_read"`
	Type   string `query:"type" validate:"omitempty,oneof=timecard timeoff system"`
	PageQuery
}

// Inbox is one page of notifications plus the recipient's unread count.
type Inbox struct {
	domain.Page[domain.Notification]
	Unread int `json:"unread"`
}

// BroadcastInput is a system message from an administrator. An empty
// UserIDs list targets every active user.
type BroadcastInput struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Message string   `json:"message" validate:"required,max=2000"`
	UserIDs []string `json:"user_ids" validate:"omitempty,dive,required"`
}

// AdminNotificationQuery filters the district-wide notification list.
type AdminNotificationQuery struct {
	UserID string `query:"user_id"`
	IsRead *bool  `query:"is_read"`
	Type   string `query:"type" validate:"omitempty,oneof=timecard timeoff system"`
	PageQuery
}

// AdminNotification is a notification with its recipient's directory details.
type AdminNotification struct {
	domain.Notification
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
	Department     string `json:"department"`
}

// NotificationStats summarises every inbox in the district.
type NotificationStats struct {
	Total  int            `json:"total_notifications"`
	Unread int            `json:"unread_notifications"`
	Read   int            `json:"read_notifications"`
	ByType map[string]int `json:"by_type"`
}

// NotificationService serves the per-user notification inbox.
type NotificationService struct {
	store domain.Store
	opts  Options
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(store domain.Store, opts Options) *NotificationService {
	return &NotificationService{store: store, opts: opts.withDefaults()}
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor domain.Principal, q NotificationQuery) (*Inbox, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}
	inbox := &Inbox{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		items, total, err := r.Notifications().List(ctx, domain.NotificationFilter{
			RecipientUserID: actor.ID,
			IsRead:          q.IsRead,
			Type:            q.Type,
			Pagination:      q.pagination(),
		})
		if err != nil {
			return err
		}
		inbox.Page = newPage(items, total, q.PageQuery)
		inbox.Unread, err = r.Notifications().CountUnread(ctx, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inbox, nil
}

// UnreadCount returns how many of the actor's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, actor domain.Principal) (int, error) {
	var count int
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		count, err = r.Notifications().CountUnread(ctx, actor.ID)
		return err
	})
	return count, err
}

// MarkRead marks one of the actor's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, actor domain.Principal, id string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		if err := s.owned(ctx, r, actor, id); err != nil {
			return err
		}
		return r.Notifications().MarkRead(ctx, id)
	})
}

// MarkAllRead marks every unread notification of the actor read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor domain.Principal) (int, error) {
	var n int
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		n, err = r.Notifications().MarkAllRead(ctx, actor.ID)
		return err
	})
	return n, err
}

// Delete removes one of the actor's notifications.
func (s *NotificationService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		if err := s.owned(ctx, r, actor, id); err != nil {
			return err
		}
		return r.Notifications().Delete(ctx, id)
	})
}

// ClearRead deletes every read notification of the actor.
func (s *NotificationService) ClearRead(ctx context.Context, actor domain.Principal) (int, error) {
	var n int
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		n, err = r.Notifications().DeleteRead(ctx, actor.ID)
		return err
	})
	return n, err
}

// owned hides other users' notifications behind NotFound.
func (s *NotificationService) owned(ctx context.Context, r domain.Repos, actor domain.Principal, id string) error {
	n, err := r.Notifications().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientUserID != actor.ID {
		return domain.NotFoundf("notification %s not found", id)
	}
	return nil
}

// Broadcast writes a system notification to the selected users.
func (s *NotificationService) Broadcast(ctx context.Context, actor domain.Principal, in BroadcastInput) ([]domain.Notification, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("broadcast requires DISTRICT_ADMIN")
	}
	if err := Validate(in); err != nil {
		return nil, err
	}
	var events []domain.Notification
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		recipients := in.UserIDs
		if len(recipients) == 0 {
			active := true
			users, _, err := r.Users().List(ctx, domain.UserFilter{Active: &active})
			if err != nil {
				return fmt.Errorf("failed to list recipients: %w", err)
			}
			for _, u := range users {
				recipients = append(recipients, u.ID)
			}
		} else {
			for _, id := range recipients {
				if _, err := r.Users().GetByID(ctx, id); err != nil {
					return err
				}
			}
		}
		out := newOutbox(r, s.opts.Now())
		if err := out.emitAll(ctx, recipients, domain.Notification{
			Title:   in.Title,
			Message: in.Message,
			Type:    domain.NotificationSystem,
		}); err != nil {
			return err
		}
		events = out.events
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.InfoLog(ctx, "broadcast %q sent to %d users by %s", in.Title, len(events), actor.ID)
	return events, nil
}

// ==================== Administration ====================

// AdminStats counts notifications across all recipients. Administrators only.
func (s *NotificationService) AdminStats(ctx context.Context, actor domain.Principal) (*NotificationStats, error) {
	if !actor.CanAdminister() {
		return nil, domain.Forbiddenf("notification statistics require DISTRICT_ADMIN")
	}
	stats := &NotificationStats{}
	one := domain.Pagination{Limit: 1}
	unread := false
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		var err error
		if _, stats.Total, err = r.Notifications().List(ctx, domain.NotificationFilter{Pagination: one}); err != nil {
			return err
		}
		if _, stats.Unread, err = r.Notifications().List(ctx, domain.NotificationFilter{IsRead: &unread, Pagination: one}); err != nil {
			return err
		}
		stats.ByType = map[string]int{}
		for _, t := range []string{domain.NotificationTimeCard, domain.NotificationTimeOff, domain.NotificationSystem} {
			_, n, err := r.Notifications().List(ctx, domain.NotificationFilter{Type: t, Pagination: one})
			if err != nil {
				return err
			}
			if n > 0 {
				stats.ByType[t] = n
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.Read = stats.Total - stats.Unread
	return stats, nil
}

// AdminList pages through every notification, newest first. Administrators only.
func (s *NotificationService) AdminList(ctx context.Context, actor domain.Principal, q AdminNotificationQuery) (domain.Page[AdminNotification], error) {
	if !actor.CanAdminister() {
		return domain.Page[AdminNotification]{}, domain.Forbiddenf("listing all notifications requires DISTRICT_ADMIN")
	}
	if err := Validate(q); err != nil {
		return domain.Page[AdminNotification]{}, err
	}
	var page domain.Page[AdminNotification]
	err := s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		items, total, err := r.Notifications().List(ctx, domain.NotificationFilter{
			RecipientUserID: q.UserID,
			IsRead:          q.IsRead,
			Type:            q.Type,
			Pagination:      q.pagination(),
		})
		if err != nil {
			return err
		}
		users := map[string]*domain.User{}
		out := make([]AdminNotification, 0, len(items))
		for _, n := range items {
			u, ok := users[n.RecipientUserID]
			if !ok {
				if u, err = r.Users().GetByID(ctx, n.RecipientUserID); err != nil {
					return err
				}
				users[n.RecipientUserID] = u
			}
			out = append(out, AdminNotification{
				Notification:   n,
				RecipientName:  u.FullName(),
				RecipientEmail: u.Email,
				Department:     u.Department,
			})
		}
		page = newPage(out, total, q.PageQuery)
		return nil
	})
	return page, err
}
