package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/staffportal/internal/service"
	"github.com/locvowork/staffportal/internal/service/serviceutils"
)

// UserHandler serves the staff directory and the manager edges between users.
type UserHandler struct {
	svc   *service.UserService
	dates dateParser
}

func NewUserHandler(svc *service.UserService, loc *time.Location) *UserHandler {
	return &UserHandler{svc: svc, dates: newDateParser(loc)}
}

func (h *UserHandler) ListHandler(c echo.Context) error {
	pq, err := pageQuery(c)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	q := service.UserQuery{
		Role:       c.QueryParam("role"),
		Building:   c.QueryParam("building"),
		Department: c.QueryParam("department"),
		Active:     active,
		Search:     c.QueryParam("search"),
		PageQuery:  pq,
	}
	page, err := h.svc.List(c.Request().Context(), PrincipalFrom(c), q)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list users", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Users retrieved successfully", page)
}

func (h *UserHandler) CreateHandler(c echo.Context) error {
	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	in, err := h.dates.user(req)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid request body", err)
	}
	u, err := h.svc.Create(c.Request().Context(), PrincipalFrom(c), in)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to create user", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "User created successfully", u)
}

func (h *UserHandler) VisibleHandler(c echo.Context) error {
	users, err := h.svc.Visible(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list visible users", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) ManagersHandler(c echo.Context) error {
	users, err := h.svc.Managers(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list managers", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Managers retrieved successfully", users)
}

func (h *UserHandler) HierarchyHandler(c echo.Context) error {
	forest, err := h.svc.Hierarchy(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to load hierarchy", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Hierarchy retrieved successfully", forest)
}

func (h *UserHandler) SearchHandler(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	users, err := h.svc.Search(c.Request().Context(), PrincipalFrom(c), c.QueryParam("q"), limit)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to search users", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) GetHandler(c echo.Context) error {
	u, err := h.svc.Get(c.Request().Context(), PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to get user", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "User retrieved successfully", u)
}

func (h *UserHandler) UpdateHandler(c echo.Context) error {
	var req UserPatchRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	patch, err := h.dates.userPatch(req)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid request body", err)
	}
	u, err := h.svc.Update(c.Request().Context(), PrincipalFrom(c), c.Param("id"), patch)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to update user", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "User updated successfully", u)
}

func (h *UserHandler) DeactivateHandler(c echo.Context) error {
	u, err := h.svc.Deactivate(c.Request().Context(), PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to deactivate user", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "User deactivated successfully", u)
}

func (h *UserHandler) ReportsHandler(c echo.Context) error {
	users, err := h.svc.DirectReports(c.Request().Context(), PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list direct reports", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Direct reports retrieved successfully", users)
}

// ==================== Manager edges ====================

func (h *UserHandler) AddManagerHandler(c echo.Context) error {
	var req ManagerRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	if err := h.svc.AddManager(c.Request().Context(), PrincipalFrom(c), c.Param("id"), req.ManagerID); err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to add manager", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Manager added successfully", nil)
}

func (h *UserHandler) RemoveManagerHandler(c echo.Context) error {
	if err := h.svc.RemoveManager(c.Request().Context(), PrincipalFrom(c), c.Param("id"), c.Param("managerId")); err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to remove manager", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Manager removed successfully", nil)
}

func (h *UserHandler) SetManagersHandler(c echo.Context) error {
	var req ManagersRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	if err := h.svc.SetManagers(c.Request().Context(), PrincipalFrom(c), c.Param("id"), req.ManagerIDs); err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to set managers", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Managers updated successfully", nil)
}

func (h *UserHandler) SetPrincipalHandler(c echo.Context) error {
	var req PrincipalRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	if err := h.svc.SetPrincipal(c.Request().Context(), PrincipalFrom(c), c.Param("id"), req.PrincipalID); err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to set principal", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Principal updated successfully", nil)
}
