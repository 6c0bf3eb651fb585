package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/logger"
	"github.com/locvowork/staffportal/internal/report"
	"github.com/locvowork/staffportal/internal/service"
	"github.com/locvowork/staffportal/internal/service/serviceutils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler serves the district administration endpoints.
type AdminHandler struct {
	users         *service.UserService
	timeCards     *service.TimeCardService
	timeOff       *service.TimeOffService
	notifications *service.NotificationService
	dispatcher    *service.Dispatcher
	dates         dateParser
	now           func() time.Time
}

func NewAdminHandler(users *service.UserService, timeCards *service.TimeCardService, timeOff *service.TimeOffService,
	notifications *service.NotificationService, dispatcher *service.Dispatcher, loc *time.Location) *AdminHandler {
	return &AdminHandler{
		users:         users,
		timeCards:     timeCards,
		timeOff:       timeOff,
		notifications: notifications,
		dispatcher:    dispatcher,
		dates:         newDateParser(loc),
		now:           time.Now,
	}
}

func (h *AdminHandler) StatsHandler(c echo.Context) error {
	stats, err := h.users.Stats(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to load statistics", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Statistics retrieved successfully", stats)
}

func (h *AdminHandler) adminTimeOffQuery(c echo.Context) (service.AdminTimeOffQuery, error) {
	q := service.AdminTimeOffQuery{
		Status:   domain.TimeOffStatus(upper(c.QueryParam("status"))),
		Building: c.QueryParam("building"),
	}
	var err error
	if q.PageQuery, err = pageQuery(c); err != nil {
		return q, err
	}
	if q.From, err = h.dates.optionalDate("from", c.QueryParam("from")); err != nil {
		return q, err
	}
	q.To, err = h.dates.optionalDate("to", c.QueryParam("to"))
	return q, err
}

func (h *AdminHandler) ListTimeOffHandler(c echo.Context) error {
	q, err := h.adminTimeOffQuery(c)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	page, err := h.timeOff.AdminList(c.Request().Context(), PrincipalFrom(c), q)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list time off requests", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time off requests retrieved successfully", page)
}

func (h *AdminHandler) ExportTimeOffHandler(c echo.Context) error {
	ctx := c.Request().Context()
	q, err := h.adminTimeOffQuery(c)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	rows, err := h.timeOff.AdminExport(ctx, PrincipalFrom(c), q)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to export time off requests", err)
	}

	h.attachment(c, "time_off")
	if err := report.WriteTimeOff(c.Response().Writer, rows); err != nil {
		logger.ErrorLog(ctx, "time off export failed: %v", err)
		return err
	}
	logger.InfoLog(ctx, "exported %d time off requests", len(rows))
	return nil
}

// ExportTimeCardsHandler streams the payroll workbook of every card the
// caller supervises.
func (h *AdminHandler) ExportTimeCardsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	rows, err := h.timeCards.Export(ctx, PrincipalFrom(c), domain.TimeCardStatus(upper(c.QueryParam("status"))))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to export time cards", err)
	}

	h.attachment(c, "time_cards")
	if err := report.WriteTimeCards(c.Response().Writer, rows); err != nil {
		logger.ErrorLog(ctx, "time card export failed: %v", err)
		return err
	}
	logger.InfoLog(ctx, "exported %d time cards", len(rows))
	return nil
}

func (h *AdminHandler) attachment(c echo.Context, name string) {
	filename := fmt.Sprintf("%s_%s.xlsx", name, h.now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().WriteHeader(http.StatusOK)
}

func (h *AdminHandler) OverrideTimeCardHandler(c echo.Context) error {
	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	ctx := c.Request().Context()
	card, events, err := h.timeCards.AdminOverride(ctx, PrincipalFrom(c), c.Param("id"), req.Action, req.Comments)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to override time card", err)
	}
	h.dispatcher.Dispatch(ctx, events)
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time card overridden successfully", card)
}

func (h *AdminHandler) DeleteTimeCardHandler(c echo.Context) error {
	if err := h.timeCards.Delete(c.Request().Context(), PrincipalFrom(c), c.Param("id")); err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to delete time card", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time card deleted successfully", nil)
}

func (h *AdminHandler) OverrideTimeOffHandler(c echo.Context) error {
	var body ReviewRequest
	if err := c.Bind(&body); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	ctx := c.Request().Context()
	req, events, err := h.timeOff.AdminOverride(ctx, PrincipalFrom(c), c.Param("id"), body.Action, body.Comments)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to override time off request", err)
	}
	h.dispatcher.Dispatch(ctx, events)
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time off request overridden successfully", req)
}

func (h *AdminHandler) BroadcastHandler(c echo.Context) error {
	var req service.BroadcastInput
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	ctx := c.Request().Context()
	events, err := h.notifications.Broadcast(ctx, PrincipalFrom(c), req)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to broadcast notification", err)
	}
	h.dispatcher.Dispatch(ctx, events)
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Notification broadcast successfully", map[string]int{"recipients": len(events)})
}
