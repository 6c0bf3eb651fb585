package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/service"
	"github.com/locvowork/staffportal/internal/service/serviceutils"
)

type TimeCardHandler struct {
	svc        *service.TimeCardService
	dispatcher *service.Dispatcher
	dates      dateParser
}

func NewTimeCardHandler(svc *service.TimeCardService, dispatcher *service.Dispatcher, loc *time.Location) *TimeCardHandler {
	return &TimeCardHandler{svc: svc, dispatcher: dispatcher, dates: newDateParser(loc)}
}

func (h *TimeCardHandler) ListHandler(c echo.Context) error {
	q, err := timeCardQuery(c)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	page, err := h.svc.List(c.Request().Context(), PrincipalFrom(c), q)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list time cards", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time cards retrieved successfully", page)
}

func (h *TimeCardHandler) ListForEmployeeHandler(c echo.Context) error {
	q, err := timeCardQuery(c)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid query", err)
	}
	page, err := h.svc.ListForEmployee(c.Request().Context(), PrincipalFrom(c), c.Param("id"), q)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list time cards", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time cards retrieved successfully", page)
}

func timeCardQuery(c echo.Context) (service.TimeCardQuery, error) {
	pq, err := pageQuery(c)
	if err != nil {
		return service.TimeCardQuery{}, err
	}
	return service.TimeCardQuery{Status: domain.TimeCardStatus(upper(c.QueryParam("status"))), PageQuery: pq}, nil
}

func (h *TimeCardHandler) CurrentHandler(c echo.Context) error {
	card, err := h.svc.Current(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to get current time card", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time card retrieved successfully", card)
}

func (h *TimeCardHandler) CreateHandler(c echo.Context) error {
	var req TimeCardRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	actor := PrincipalFrom(c)
	in, err := h.dates.timeCard(req, actor)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid request body", err)
	}
	card, err := h.svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to create time card", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Time card created successfully", card)
}

func (h *TimeCardHandler) PendingHandler(c echo.Context) error {
	cards, err := h.svc.PendingReview(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to list pending time cards", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Pending time cards retrieved successfully", cards)
}

func (h *TimeCardHandler) GetHandler(c echo.Context) error {
	card, err := h.svc.Get(c.Request().Context(), PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to get time card", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time card retrieved successfully", card)
}

func (h *TimeCardHandler) SubmitHandler(c echo.Context) error {
	ctx := c.Request().Context()
	card, events, err := h.svc.Submit(ctx, PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to submit time card", err)
	}
	h.dispatcher.Dispatch(ctx, events)
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time card submitted successfully", card)
}

func (h *TimeCardHandler) ReviewHandler(c echo.Context) error {
	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	ctx := c.Request().Context()
	card, events, err := h.svc.Review(ctx, PrincipalFrom(c), c.Param("id"), req.Action, req.Comments)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to review time card", err)
	}
	h.dispatcher.Dispatch(ctx, events)
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time card reviewed successfully", card)
}

func (h *TimeCardHandler) AddEntryHandler(c echo.Context) error {
	var req EntryRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	in, err := h.dates.entry(req)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid request body", err)
	}
	card, err := h.svc.AddEntry(c.Request().Context(), PrincipalFrom(c), c.Param("id"), in)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to add time entry", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Time entry added successfully", card)
}

func (h *TimeCardHandler) UpdateEntryHandler(c echo.Context) error {
	var req EntryPatchRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	patch, err := h.dates.entryPatch(req)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Invalid request body", err)
	}
	card, err := h.svc.UpdateEntry(c.Request().Context(), PrincipalFrom(c), c.Param("entryId"), patch)
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to update time entry", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time entry updated successfully", card)
}

func (h *TimeCardHandler) DeleteEntryHandler(c echo.Context) error {
	card, err := h.svc.DeleteEntry(c.Request().Context(), PrincipalFrom(c), c.Param("entryId"))
	if err != nil {
		return serviceutils.ResponseServiceError(c, "Failed to delete time entry", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Time entry deleted successfully", card)
}
