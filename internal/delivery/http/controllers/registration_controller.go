package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/domain"
)

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
	Reports domain.ReportService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService, reports domain.ReportService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
		Reports: reports,
	}
}

// RegisterRequest is the request body for POST /events/{id}/registrations.
type RegisterRequest struct {
	ParticipantName string  `json:"participant_name" validate:"required"`
	Remark          *string `json:"remark"`
}

// RegistrationSuccessResponse is the success response envelope for a single registration.
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// Register godoc
// @Summary Register a participant for an event
// @Description Registers participant_name for the event on behalf of the authenticated account. Rejected when the deadline has passed, the event is full, or the same account already registered that name.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID (UUID)"
// @Param body body controllers.RegisterRequest true "Participant"
// @Success 201 {object} controllers.RegistrationSuccessResponse "data contains the new registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (closed, full or duplicate)"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{id}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	reg, err := c.Service.Register(r.Context(), domain.RegisterInput{
		EventID:         eventID,
		AccountID:       accountID,
		ParticipantName: req.ParticipantName,
		Remark:          req.Remark,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// CancelRegistrationResponse is the data payload for DELETE /registrations/{id}.
type CancelRegistrationResponse struct {
	ID        string `json:"id"`
	Cancelled bool   `json:"cancelled"`
}

// Cancel godoc
// @Summary Cancel a registration
// @Description Deletes a registration made by the authenticated account and releases its slot.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains id and cancelled=true"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (event already started)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{id} [delete]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	if err := c.Service.Cancel(r.Context(), id, accountID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, CancelRegistrationResponse{ID: id, Cancelled: true})
}

// GetRegistration godoc
// @Summary Get a registration
// @Description Returns a registration with its event and registrant details. Only the registering account may read it.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the registration view"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /registrations/{id} [get]
func (c *RegistrationController) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	view, err := c.Service.GetRegistration(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if view.AccountID != accountID {
		helpers.WriteServiceError(w, r, c.Logger, domain.ErrForbidden)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

// ListMyRegistrations godoc
// @Summary List my registrations
// @Description Registrations made by the authenticated account, newest first.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} controllers.RegistrationListSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /me/registrations [get]
func (c *RegistrationController) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	page, err := c.Reports.ListAccountRegistrations(r.Context(), accountID, helpers.ParsePagination(r))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, page)
}

// SearchRegistrations godoc
// @Summary Search registrations by participant name
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param q query string true "Participant name fragment"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} controllers.RegistrationListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /registrations/search [get]
func (c *RegistrationController) SearchRegistrations(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAccount(w, r); !ok {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := c.Reports.SearchRegistrations(r.Context(), q, helpers.ParsePagination(r))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, page)
}

// RegistrationStats godoc
// @Summary Registration totals
// @Description Total registrations and registrations since local midnight.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains total and today"
// @Router /registrations/stats [get]
func (c *RegistrationController) RegistrationStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAccount(w, r); !ok {
		return
	}
	stats, err := c.Reports.GetRegistrationStats(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}
