package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/service"
	"github.com/locvowork/staffportal/internal/service/serviceutils"
)

type TimeOffHandler struct {
	svc        *service.TimeOffService
	dispatcher *service.Dispatcher
	dates      dateParser
}

func NewTimeOffHandler(svc *service.TimeOffService, dispatcher *service.Dispatcher, loc *time.Location) *TimeOffHandler {
	return &TimeOffHandler{svc: svc, dispatcher: dispatcher, dates: newDateParser(loc)}
}

func (h *TimeOffHandler) ListHandler(c echo.Context) error {
	pq, err := pageQuery(c)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	q := service.TimeOffQuery{
		Status:    domain.TimeOffStatus(upper(c.QueryParam("status"))),
		Type:      domain.TimeOffType(upper(c.QueryParam("type"))),
		PageQuery: pq,
	}
	page, err := h.svc.List(c.Request().Context(), PrincipalFrom(c), q)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list time off requests", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time off requests retrieved successfully", page)
}

func (h *TimeOffHandler) CreateHandler(c echo.Context) error {
	var req TimeOffRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	in, err := h.dates.timeOff(req)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid request body", err)
	}
	ctx := c.Request().Context()
	created, events, err := h.svc.Create(ctx, PrincipalFrom(c), in)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to create time off request", err)
	}
	h.dispatcher.Dispatch(ctx, events)
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Time off request created successfully", created)
}

func (h *TimeOffHandler) PendingHandler(c echo.Context) error {
	items, err := h.svc.PendingReview(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list pending time off requests", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Pending time off requests retrieved successfully", items)
}

func (h *TimeOffHandler) CalendarHandler(c echo.Context) error {
	from, err := h.dates.date("from", c.QueryParam("from"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	to, err := h.dates.date("to", c.QueryParam("to"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	items, err := h.svc.TeamCalendar(c.Request().Context(), PrincipalFrom(c), from, to)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to load team calendar", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Team calendar retrieved successfully", items)
}

func (h *TimeOffHandler) GetHandler(c echo.Context) error {
	req, err := h.svc.Get(c.Request().Context(), PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to get time off request", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time off request retrieved successfully", req)
}

func (h *TimeOffHandler) ReviewHandler(c echo.Context) error {
	var body ReviewRequest
	if err := c.Bind(&body); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	ctx := c.Request().Context()
	req, events, err := h.svc.Review(ctx, PrincipalFrom(c), c.Param("id"), body.Action, body.Comments)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to review time off request", err)
	}
	h.dispatcher.Dispatch(ctx, events)
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time off request reviewed successfully", req)
}

func (h *TimeOffHandler) CancelHandler(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.svc.Cancel(ctx, PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to cancel time off request", err)
	}
	h.dispatcher.Dispatch(ctx, events)
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time off request cancelled successfully", nil)
}
