package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/staffportal/internal/service"
	"github.com/locvowork/staffportal/internal/service/serviceutils"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) ListHandler(c echo.Context) error {
	pq, err := pageQuery(c)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	isRead, err := queryBool(c, "is_read")
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	q := service.NotificationQuery{IsRead: isRead, Type: c.QueryParam("type"), PageQuery: pq}
	inbox, err := h.svc.List(c.Request().Context(), PrincipalFrom(c), q)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list notifications", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Notifications retrieved successfully", inbox)
}

func (h *NotificationHandler) UnreadCountHandler(c echo.Context) error {
	n, err := h.svc.UnreadCount(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to count notifications", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Unread count retrieved successfully", map[string]int{"count": n})
}

func (h *NotificationHandler) MarkReadHandler(c echo.Context) error {
	if err := h.svc.MarkRead(c.Request().Context(), PrincipalFrom(c), c.Param("id")); err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to mark notification read", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Notification marked read", nil)
}

func (h *NotificationHandler) MarkAllReadHandler(c echo.Context) error {
	n, err := h.svc.MarkAllRead(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to mark notifications read", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Notifications marked read", map[string]int{"updated": n})
}

func (h *NotificationHandler) DeleteHandler(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), PrincipalFrom(c), c.Param("id")); err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to delete notification", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Notification deleted successfully", nil)
}

func (h *NotificationHandler) ClearReadHandler(c echo.Context) error {
	n, err := h.svc.ClearRead(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to clear notifications", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Read notifications cleared", map[string]int{"deleted": n})
}

func (h *NotificationHandler) AdminStatsHandler(c echo.Context) error {
	stats, err := h.svc.AdminStats(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to get notification statistics", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Notification statistics retrieved successfully", stats)
}

func (h *NotificationHandler) AdminListHandler(c echo.Context) error {
	pq, err := pageQuery(c)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	isRead, err := queryBool(c, "is_read")
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	q := service.AdminNotificationQuery{UserID: c.QueryParam("user_id"), IsRead: isRead, Type: c.QueryParam("type"), PageQuery: pq}
	page, err := h.svc.AdminList(c.Request().Context(), PrincipalFrom(c), q)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list notifications", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Notifications retrieved successfully", page)
}
