package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/hierarchy"
	"github.com/locvowork/staffportal/internal/repository"
	"github.com/locvowork/staffportal/internal/service"
	"github.com/locvowork/staffportal/internal/service/serviceutils"
)

const testSecret = "test-secret"

type captureSink struct {
	mu     sync.Mutex
	events []domain.Notification
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Publish(_ context.Context, events []domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

type testAPI struct {
	e     *echo.Echo
	sink  *captureSink
	users *service.UserService

	admin, mgr, emp, other domain.Principal
}

// newTestAPI wires a district of admin, mgr <- emp and other over the memory store.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	opts := service.Options{Now: func() time.Time { return now }}

	users := []domain.User{
		{ID: "admin", EmployeeNumber: "E000", Email: "admin@example.org", FirstName: "Ada", LastName: "Admin", Role: domain.RoleDistrictAdmin, Active: true},
		{ID: "mgr", EmployeeNumber: "E001", Email: "mgr@example.org", FirstName: "Max", LastName: "Manager", Role: domain.RoleManager, Building: "North", Active: true},
		{ID: "emp", EmployeeNumber: "E002", Email: "emp@example.org", FirstName: "Eve", LastName: "Employee", Role: domain.RoleStaff, Building: "North", Active: true},
		{ID: "other", EmployeeNumber: "E003", Email: "other@example.org", FirstName: "Oscar", LastName: "Other", Role: domain.RoleStaff, Building: "South", Active: true},
	}
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, r domain.Repos) error {
		for i := range users {
			if err := r.Users().Create(ctx, &users[i]); err != nil {
				return err
			}
		}
		return nil
	}))
	checker := hierarchy.NewChecker(store, opts.Now)
	require.NoError(t, checker.AddManagerEdge(ctx, "emp", "mgr"))

	sink := &captureSink{}
	dispatcher := service.NewDispatcher(sink)
	userSvc := service.NewUserService(store, checker, nil, opts)
	timeCards := service.NewTimeCardService(store, opts)
	calendar := service.NewCalendarService(store, opts)
	timeOff := service.NewTimeOffService(store, service.Options{Now: opts.Now, Holidays: calendar})
	notifications := service.NewNotificationService(store, opts)

	e := echo.New()
	RegisterRoutes(e.Group("/api", AuthJWT(testSecret, userSvc)), Handlers{
		TimeCards:     NewTimeCardHandler(timeCards, dispatcher, time.UTC),
		TimeOff:       NewTimeOffHandler(timeOff, dispatcher, time.UTC),
		Notifications: NewNotificationHandler(notifications),
		Users:         NewUserHandler(userSvc, time.UTC),
		Admin:         NewAdminHandler(userSvc, timeCards, timeOff, notifications, dispatcher, time.UTC),
		Calendar:      NewCalendarHandler(calendar, time.UTC),
	})

	return &testAPI{
		e:     e,
		sink:  sink,
		users: userSvc,
		admin: domain.PrincipalOf(users[0]),
		mgr:   domain.PrincipalOf(users[1]),
		emp:   domain.PrincipalOf(users[2]),
		other: domain.PrincipalOf(users[3]),
	}
}

func (a *testAPI) do(t *testing.T, as domain.Principal, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := IssueToken(testSecret, as, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// envelope decodes the response and re-decodes its data into out when given.
func envelope(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) serviceutils.Response {
	t.Helper()
	var raw struct {
		serviceutils.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return raw.Response
}

func TestAuthJWT(t *testing.T) {
	api := newTestAPI(t)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		api.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/timecards", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := IssueToken("another-secret", api.emp, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/timecards", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		api.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := IssueToken(testSecret, api.emp, -time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/timecards", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		api.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		rec := api.do(t, domain.Principal{ID: "emp", Role: "JANITOR"}, http.MethodGet, "/api/timecards", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		rec := api.do(t, api.emp, http.MethodGet, "/api/timecards", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("padded secret signs and verifies alike", func(t *testing.T) {
		token, err := IssueToken("  "+testSecret+"\n", api.emp, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/timecards", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		api.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("role claim cannot raise privileges", func(t *testing.T) {
		claimed := api.emp
		claimed.Role = domain.RoleDistrictAdmin
		rec := api.do(t, claimed, http.MethodGet, "/api/admin/stats", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := api.do(t, domain.Principal{ID: "ghost", Role: domain.RoleStaff}, http.MethodGet, "/api/timecards", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deactivated user", func(t *testing.T) {
		_, err := api.users.Deactivate(context.Background(), api.admin, "other")
		require.NoError(t, err)
		rec := api.do(t, api.other, http.MethodGet, "/api/timecards", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTimeCardWorkflowOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	var card domain.TimeCard
	rec := api.do(t, api.emp, http.MethodPost, "/api/timecards", `{"period_start":"2026-02-09","period_end":"2026-02-23"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	envelope(t, rec, &card)
	assert.Equal(t, domain.TimeCardDraft, card.Status)
	assert.Equal(t, "emp", card.EmployeeID)

	rec = api.do(t, api.emp, http.MethodPost, "/api/timecards/"+card.ID+"/entries",
		`{"date":"2026-02-10","time_in":"08:00","time_out":"16:30","break_time":30,"notes":"front office"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	envelope(t, rec, &card)
	assert.Equal(t, 8.0, card.TotalHours)

	rec = api.do(t, api.emp, http.MethodPost, "/api/timecards/"+card.ID+"/submit", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, api.sink.events, 1)
	assert.Equal(t, "mgr", api.sink.events[0].RecipientUserID)

	rec = api.do(t, api.other, http.MethodPost, "/api/timecards/"+card.ID+"/review", `{"action":"APPROVED"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, api.mgr, http.MethodPost, "/api/timecards/"+card.ID+"/review", `{"action":"APPROVED","comments":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope(t, rec, &card)
	assert.Equal(t, domain.TimeCardApproved, card.Status)
	assert.Equal(t, "mgr", card.ApprovedBy)
	require.Len(t, api.sink.events, 2)
	assert.Equal(t, "emp", api.sink.events[1].RecipientUserID)

	rec = api.do(t, api.mgr, http.MethodPost, "/api/timecards/"+card.ID+"/review", `{"action":"REJECTED"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := envelope(t, rec, nil)
	assert.Equal(t, string(domain.KindInvalidState), resp.Error.Kind)

	var count map[string]int
	rec = api.do(t, api.emp, http.MethodGet, "/api/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &count)
	assert.Equal(t, 1, count["count"])
}

func TestRequestValidationOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, api.emp, http.MethodPost, "/api/timecards", `{"period_start":"09/02/2026","period_end":"2026-02-23"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := envelope(t, rec, nil)
	assert.Equal(t, string(domain.KindValidation), resp.Error.Kind)
	assert.Equal(t, "date", resp.Error.Fields["period_start"])

	rec = api.do(t, api.emp, http.MethodPost, "/api/timecards", `{"period_start":"2026-02-23","period_end":"2026-02-09"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(domain.KindInvalidRange), envelope(t, rec, nil).Error.Kind)

	rec = api.do(t, api.emp, http.MethodPost, "/api/timecards", `{"period_start":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, api.emp, http.MethodGet, "/api/timecards?page=two", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, api.emp, http.MethodGet, "/api/timecards/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimeOffOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	var req domain.TimeOffRequest
	rec := api.do(t, api.emp, http.MethodPost, "/api/timeoff",
		`{"type":"vacation","start_date":"2026-03-18","end_date":"2026-03-20","reason":"family"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	envelope(t, rec, &req)
	assert.Equal(t, 24.0, req.Hours)
	assert.Equal(t, domain.TimeOffPending, req.Status)

	var pending []domain.TimeOffRequest
	rec = api.do(t, api.mgr, http.MethodGet, "/api/timeoff/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &pending)
	require.Len(t, pending, 1)

	rec = api.do(t, api.mgr, http.MethodPost, "/api/timeoff/"+req.ID+"/review", `{"action":"DENIED","comments":"coverage"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope(t, rec, &req)
	assert.Equal(t, domain.TimeOffRejected, req.Status)

	rec = api.do(t, api.admin, http.MethodPost, "/api/admin/timeoff/"+req.ID+"/override", `{"action":"APPROVED"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope(t, rec, &req)
	assert.Equal(t, domain.TimeOffApproved, req.Status)

	var calendar []domain.TimeOffRequest
	rec = api.do(t, api.mgr, http.MethodGet, "/api/timeoff/calendar?from=2026-03-01&to=2026-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope(t, rec, &calendar)
	assert.Len(t, calendar, 1)

	rec = api.do(t, api.emp, http.MethodPost, "/api/timeoff/"+req.ID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "approved requests cannot be cancelled")
}

func TestHierarchyOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, api.admin, http.MethodPost, "/api/users/emp/managers", `{"manager_id":"emp"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(domain.KindSelfReference), envelope(t, rec, nil).Error.Kind)

	rec = api.do(t, api.admin, http.MethodPut, "/api/users/mgr/managers", `{"manager_ids":["emp"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(domain.KindCycleDetected), envelope(t, rec, nil).Error.Kind)

	rec = api.do(t, api.emp, http.MethodPost, "/api/users/other/managers", `{"manager_id":"mgr"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var reports []domain.User
	rec = api.do(t, api.mgr, http.MethodGet, "/api/users/mgr/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &reports)
	require.Len(t, reports, 1)
	assert.Equal(t, "emp", reports[0].ID)

	var visible []domain.User
	rec = api.do(t, api.mgr, http.MethodGet, "/api/users/visible", "")
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &visible)
	ids := make([]string, 0, len(visible))
	for _, u := range visible {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"mgr"}, ids, "managers see only themselves in the directory")
}

func TestTimeCardExportOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	var card domain.TimeCard
	rec := api.do(t, api.emp, http.MethodPost, "/api/timecards", `{"period_start":"2026-02-09","period_end":"2026-02-23"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	envelope(t, rec, &card)

	rec = api.do(t, api.other, http.MethodGet, "/api/timecards/export", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, api.admin, http.MethodGet, "/api/timecards/export", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "time_cards_")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Time Cards")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "E002", rows[1][0])
	assert.Equal(t, "Eve Employee", rows[1][1])
}

func TestCalendarOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, api.mgr, http.MethodPost, "/api/calendar", `{"title":"Snow","date":"2026-03-17","day_type":"snow_day"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var created []domain.CalendarEvent
	rec = api.do(t, api.admin, http.MethodPost, "/api/calendar", `{"title":"Snow","date":"2026-03-17","day_type":"snow_day"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	envelope(t, rec, &created)
	require.Len(t, created, 1)
	assert.Equal(t, domain.DaySnowDay, created[0].DayType)

	rec = api.do(t, api.admin, http.MethodPost, "/api/calendar", `{"title":"Again","date":"2026-03-17","day_type":"HOLIDAY"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var bulk map[string]int
	rec = api.do(t, api.admin, http.MethodPost, "/api/calendar/bulk",
		`{"events":[{"title":"Holiday","date":"2026-03-19","day_type":"HOLIDAY"},{"title":"PD","date":"2026-03-18","day_type":"PROFESSIONAL_DEVELOPMENT"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	envelope(t, rec, &bulk)
	assert.Equal(t, 2, bulk["count"])

	var days service.WorkDays
	rec = api.do(t, api.emp, http.MethodGet, "/api/calendar/workdays?start=2026-03-16&end=2026-03-22", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope(t, rec, &days)
	assert.Equal(t, 3, days.TotalWorkDays)

	rec = api.do(t, api.emp, http.MethodGet, "/api/calendar/workdays?start=2026-03-16", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var events []domain.CalendarEvent
	rec = api.do(t, api.emp, http.MethodGet, "/api/calendar?start=2026-03-01&end=2026-03-31&type=HOLIDAY", "")
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "Holiday", events[0].Title)

	// Closed days no longer count toward requested hours.
	var req domain.TimeOffRequest
	rec = api.do(t, api.emp, http.MethodPost, "/api/timeoff", `{"type":"VACATION","start_date":"2026-03-16","end_date":"2026-03-20"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	envelope(t, rec, &req)
	assert.Equal(t, 24.0, req.Hours)

	var updated domain.CalendarEvent
	rec = api.do(t, api.admin, http.MethodPut, "/api/calendar/"+created[0].ID, `{"title":"Ice storm"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope(t, rec, &updated)
	assert.Equal(t, "Ice storm", updated.Title)

	rec = api.do(t, api.admin, http.MethodDelete, "/api/calendar/"+created[0].ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, api.emp, http.MethodGet, "/api/calendar/"+created[0].ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var tpl service.SchoolYearTemplate
	rec = api.do(t, api.admin, http.MethodPost, "/api/calendar/school-year-template", `{"year":2026,"start_month":8,"end_month":6}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope(t, rec, &tpl)
	assert.Equal(t, 8, tpl.TotalEvents)
}

func TestNotificationAdminOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, api.emp, http.MethodPost, "/api/timecards", `{"period_start":"2026-02-09","period_end":"2026-02-23"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var card domain.TimeCard
	envelope(t, rec, &card)
	rec = api.do(t, api.emp, http.MethodPost, "/api/timecards/"+card.ID+"/submit", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(t, api.admin, http.MethodPost, "/api/admin/notifications/broadcast", `{"title":"Heads up","message":"Payroll closes Friday"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, api.mgr, http.MethodGet, "/api/notifications/admin/stats", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var stats service.NotificationStats
	rec = api.do(t, api.admin, http.MethodGet, "/api/notifications/admin/stats", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope(t, rec, &stats)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 5, stats.Unread)
	assert.Equal(t, 0, stats.Read)
	assert.Equal(t, map[string]int{"timecard": 1, "system": 4}, stats.ByType)

	var page domain.Page[service.AdminNotification]
	rec = api.do(t, api.admin, http.MethodGet, "/api/notifications/admin/all?user_id=mgr", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envelope(t, rec, &page)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "mgr@example.org", page.Items[0].RecipientEmail)

	rec = api.do(t, api.admin, http.MethodGet, "/api/notifications/admin/all?type=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
