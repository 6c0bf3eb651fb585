package service

import (
	"time"

	"github.com/locvowork/staffportal/internal/domain"
)

// Options configures the workflow services. Zero values take defaults.
type Options struct {
	Now         domain.Clock
	Location    *time.Location
	HoursPerDay float64
	// Holidays is optional; without it only weekends are non-work days.
	Holidays domain.HolidayCalendar
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.HoursPerDay <= 0 {
		o.HoursPerDay = domain.DefaultHoursPerDay
	}
	return o
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PageQuery is the page/limit pair accepted by list operations; page is 1-based.
type PageQuery struct {
	Page  int `json:"page" query:"page" validate:"gte=0"`
	Limit int `json:"limit" query:"limit" validate:"gte=0,lte=100"`
}

func (q PageQuery) normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	return q
}

func (q PageQuery) pagination() domain.Pagination {
	q = q.normalize()
	return domain.Pagination{Limit: q.Limit, Offset: (q.Page - 1) * q.Limit}
}

func newPage[T any](items []T, total int, q PageQuery) domain.Page[T] {
	q = q.normalize()
	if items == nil {
		items = []T{}
	}
	return domain.Page[T]{Items: items, Total: total, Page: q.Page, Limit: q.Limit}
}
