package controllers

import (
	"log/slog"
	"net/http"

	"eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/domain"
)

// ReportController serves the per-event registration queries.
type ReportController struct {
	Logger  *slog.Logger
	Service domain.ReportService
}

func NewReportController(logger *slog.Logger, svc domain.ReportService) *ReportController {
	return &ReportController{
		Logger:  logger,
		Service: svc,
	}
}

// RegistrationInfoSuccessResponse is the success envelope for GET /events/{id}/registration-info.
type RegistrationInfoSuccessResponse struct {
	Data  *domain.RegistrationInfo `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// ListEventRegistrations godoc
// @Summary List registrations of an event
// @Description Registrations of one event, oldest first, with registrant details.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} controllers.RegistrationListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{id}/registrations [get]
func (c *ReportController) ListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := requireAccount(w, r); !ok {
		return
	}
	page, err := c.Service.ListEventRegistrations(r.Context(), id, helpers.ParsePagination(r))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, page)
}

// RegistrationInfo godoc
// @Summary Capacity and deadline summary of an event
// @Description Live participant count, remaining slots and whether registration is currently possible.
// @Tags reports
// @Produce json
// @Param id path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RegistrationInfoSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{id}/registration-info [get]
func (c *ReportController) RegistrationInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	info, err := c.Service.GetEventRegistrationInfo(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, info)
}

// EventRegistrationStats godoc
// @Summary Registration totals of an event
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains total and available"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{id}/registration-stats [get]
func (c *ReportController) EventRegistrationStats(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := requireAccount(w, r); !ok {
		return
	}
	stats, err := c.Service.GetEventRegistrationStats(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ExportRegistrations godoc
// @Summary Export all registrations of an event
// @Description Returns the event with its full registration list. Only the event owner may export.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains event, registrations and generated_at"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{id}/registrations/export [get]
func (c *ReportController) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	export, err := c.Service.ExportEventRegistrations(r.Context(), id, accountID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, export)
}

// EmailExportRequest is the request body for POST /events/{id}/registrations/export/email.
type EmailExportRequest struct {
	To string `json:"to" validate:"required,email"`
}

// EmailExport godoc
// @Summary Email the registration export of an event
// @Description Renders the registration list and sends it to the given address. Only the event owner may request it.
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID (UUID)"
// @Param body body controllers.EmailExportRequest true "Recipient"
// @Success 202 {object} helpers.APIResponse "data contains sent=true"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{id}/registrations/export/email [post]
func (c *ReportController) EmailExport(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	var req EmailExportRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	if err := c.Service.EmailEventRegistrationExport(r.Context(), id, accountID, req.To); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, map[string]any{"sent": true})
}
