package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/locvowork/staffportal/internal/domain"
)

const dateLayout = "01/02/2006"

// outbox collects the notifications written inside one transaction. They are
// returned to the caller only after the transaction commits.
type outbox struct {
	repo   domain.NotificationRepository
	now    time.Time
	events []domain.Notification
}

func newOutbox(r domain.Repos, now time.Time) *outbox {
	return &outbox{repo: r.Notifications(), now: now}
}

func (o *outbox) emit(ctx context.Context, n domain.Notification) error {
	n.ID = uuid.NewString()
	n.CreatedAt = o.now
	if err := o.repo.Create(ctx, &n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	o.events = append(o.events, n)
	return nil
}

// emitAll sends the same notification to every recipient.
func (o *outbox) emitAll(ctx context.Context, recipients []string, n domain.Notification) error {
	for _, id := range recipients {
		n.RecipientUserID = id
		if err := o.emit(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func actionWord(approved bool, rejected string) string {
	if approved {
		return "Approved"
	}
	return rejected
}

func withComments(msg, sep, comments string) string {
	if comments == "" {
		return msg
	}
	return msg + sep + comments
}

func timeCardSubmitted(owner domain.User, card *domain.TimeCard) domain.Notification {
	return domain.Notification{
		Title:     "Time Card Submitted",
		Message:   fmt.Sprintf("%s has submitted their time card for review", owner.FullName()),
		Type:      domain.NotificationTimeCard,
		RelatedID: card.ID,
	}
}

func timeCardReviewed(card *domain.TimeCard, comments string) domain.Notification {
	approved := card.Status == domain.TimeCardApproved
	last := card.PeriodEnd.AddDate(0, 0, -1)
	msg := fmt.Sprintf("Your time card for %s - %s has been %s",
		card.PeriodStart.Format("01/02"), last.Format("01/02"), strings.ToLower(string(card.Status)))
	return domain.Notification{
		RecipientUserID: card.EmployeeID,
		Title:           "Time Card " + actionWord(approved, "Rejected"),
		Message:         withComments(msg, ": ", comments),
		Type:            domain.NotificationTimeCard,
		RelatedID:       card.ID,
	}
}

func timeCardOverridden(card *domain.TimeCard, comments string) domain.Notification {
	n := timeCardReviewed(card, "")
	n.Title += " (Admin Override)"
	n.Message = withComments(n.Message+" by district administration.", " Note: ", comments)
	n.Tag = domain.TagAdminOverride
	return n
}

func timeOffRequested(owner domain.User, req *domain.TimeOffRequest) domain.Notification {
	return domain.Notification{
		Title: "Time Off Request",
		Message: fmt.Sprintf("%s has requested %s time off from %s to %s", owner.FullName(),
			strings.ToLower(string(req.Type)), req.StartDate.Format(dateLayout), req.EndDate.Format(dateLayout)),
		Type:      domain.NotificationTimeOff,
		RelatedID: req.ID,
	}
}

func timeOffCancelled(owner domain.User, req *domain.TimeOffRequest) domain.Notification {
	return domain.Notification{
		Title: "Time Off Request Cancelled",
		Message: fmt.Sprintf("%s has cancelled their time off request for %s",
			owner.FullName(), req.StartDate.Format(dateLayout)),
		Type:      domain.NotificationTimeOff,
		RelatedID: req.ID,
	}
}

func timeOffReviewed(req *domain.TimeOffRequest, comments string) domain.Notification {
	approved := req.Status == domain.TimeOffApproved
	msg := fmt.Sprintf("Your %s request for %s - %s has been %s", strings.ToLower(string(req.Type)),
		req.StartDate.Format(dateLayout), req.EndDate.Format(dateLayout), strings.ToLower(string(req.Status)))
	return domain.Notification{
		RecipientUserID: req.EmployeeID,
		Title:           "Time Off Request " + actionWord(approved, "Denied"),
		Message:         withComments(msg, ": ", comments),
		Type:            domain.NotificationTimeOff,
		RelatedID:       req.ID,
	}
}

func timeOffOverridden(req *domain.TimeOffRequest, comments string) domain.Notification {
	span := req.StartDate.Format(dateLayout)
	if !req.EndDate.Equal(req.StartDate) {
		span += " - " + req.EndDate.Format(dateLayout)
	}
	msg := fmt.Sprintf("Your time off request for %s has been %s by district administration.",
		span, strings.ToLower(string(req.Status)))
	return domain.Notification{
		RecipientUserID: req.EmployeeID,
		Title:           fmt.Sprintf("Time Off %s (Admin Override)", actionWord(req.Status == domain.TimeOffApproved, "Rejected")),
		Message:         withComments(msg, " Note: ", comments),
		Type:            domain.NotificationTimeOff,
		Tag:             domain.TagAdminOverride,
		RelatedID:       req.ID,
	}
}
