package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/service"
	"github.com/locvowork/staffportal/internal/service/serviceutils"
)

type CalendarHandler struct {
	svc   *service.CalendarService
	dates dateParser
}

func NewCalendarHandler(svc *service.CalendarService, loc *time.Location) *CalendarHandler {
	return &CalendarHandler{svc: svc, dates: newDateParser(loc)}
}

func (h *CalendarHandler) ListHandler(c echo.Context) error {
	var q service.CalendarQuery
	var err error
	if q.From, err = h.dates.optionalDate("start", c.QueryParam("start")); err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	if q.To, err = h.dates.optionalDate("end", c.QueryParam("end")); err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	q.DayType = domain.DayType(upper(c.QueryParam("type")))

	events, err := h.svc.List(c.Request().Context(), q)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list calendar events", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Calendar events retrieved successfully", events)
}

func (h *CalendarHandler) GetHandler(c echo.Context) error {
	event, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to get calendar event", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Calendar event retrieved successfully", event)
}

func (h *CalendarHandler) WorkDaysHandler(c echo.Context) error {
	from, err := h.dates.date("start", c.QueryParam("start"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	to, err := h.dates.date("end", c.QueryParam("end"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	res, err := h.svc.WorkDays(c.Request().Context(), from, to)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to count work days", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Work days retrieved successfully", res)
}

func (h *CalendarHandler) CreateHandler(c echo.Context) error {
	var req CalendarEventRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	in, err := h.dates.calendarEvent(req)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid request body", err)
	}
	events, err := h.svc.Create(c.Request().Context(), PrincipalFrom(c), in)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to create calendar event", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Calendar event created successfully", events)
}

func (h *CalendarHandler) BulkCreateHandler(c echo.Context) error {
	var req BulkCalendarRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	in := make([]service.NewCalendarEvent, 0, len(req.Events))
	for _, e := range req.Events {
		one, err := h.dates.calendarEvent(e)
		if err != nil {
			return serviceutils.ResponseServiceError(c, "Invalid request body", err)
		}
		in = append(in, one)
	}
	n, err := h.svc.BulkCreate(c.Request().Context(), PrincipalFrom(c), in)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to create calendar events", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Calendar events created successfully", map[string]int{"count": n})
}

func (h *CalendarHandler) UpdateHandler(c echo.Context) error {
	var req CalendarPatchRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	patch, err := h.dates.calendarPatch(req)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid request body", err)
	}
	event, err := h.svc.Update(c.Request().Context(), PrincipalFrom(c), c.Param("id"), patch)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to update calendar event", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Calendar event updated successfully", event)
}

func (h *CalendarHandler) DeleteHandler(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), PrincipalFrom(c), c.Param("id")); err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to delete calendar event", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Calendar event deleted successfully", nil)
}

func (h *CalendarHandler) SchoolYearTemplateHandler(c echo.Context) error {
	var in service.SchoolYearInput
	if err := c.Bind(&in); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	tpl, err := h.svc.SchoolYearTemplate(PrincipalFrom(c), in)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to build school year template", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "School year template generated successfully", tpl)
}
