package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/domain"
)

// CreateEventRequest is the request body for POST /events. The authenticated account becomes the owner.
type CreateEventRequest struct {
	Title                string    `json:"title" validate:"required"`
	Description          *string   `json:"description"`
	StartTime            time.Time `json:"start_time" validate:"required"`
	EndTime              time.Time `json:"end_time" validate:"required"`
	RegistrationDeadline time.Time `json:"registration_deadline" validate:"required"`
	Location             *string   `json:"location"`
	IsCapacityLimited    bool      `json:"is_capacity_limited"`
	MaxParticipants      *int      `json:"max_participants"`
}

// EventSuccessResponse is the success response envelope for a single event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success response envelope for event listings.
type EventListSuccessResponse struct {
	Data  domain.Page[*domain.Event] `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event owned by the authenticated account. The registration deadline must not be after the start time; max_participants is required when is_capacity_limited is true and ignored otherwise.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body controllers.CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	event := domain.NewEvent(req.Title, req.Description, req.StartTime, req.EndTime, req.RegistrationDeadline,
		req.Location, req.IsCapacityLimited, req.MaxParticipants, accountID, time.Time{}, time.Time{})
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEventByID godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Param id path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{id} [get]
func (c *EventController) GetEventByID(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	event, err := c.Service.GetEventByID(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEvents godoc
// @Summary List events
// @Description Events ordered by start time. registration_open=true keeps events whose deadline has not passed, false keeps the closed ones.
// @Tags events
// @Produce json
// @Param registration_open query bool false "Filter by registration state"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	open, ok := helpers.ParseOptionalBool(r, "registration_open")
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid registration_open")
		return
	}
	page, err := c.Service.ListEvents(r.Context(), open, helpers.ParsePagination(r))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, page)
}

// SearchEvents godoc
// @Summary Search events by title, description or location
// @Tags events
// @Produce json
// @Param q query string true "Search term"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /events/search [get]
func (c *EventController) SearchEvents(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := c.Service.SearchEvents(r.Context(), q, helpers.ParsePagination(r))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, page)
}

// UpdateEventRequest is the request body for PATCH /events/{id}. All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Title                *string    `json:"title"`
	Description          *string    `json:"description"`
	ClearDescription     bool       `json:"clear_description"`
	StartTime            *time.Time `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	Location             *string    `json:"location"`
	ClearLocation        bool       `json:"clear_location"`
	IsCapacityLimited    *bool      `json:"is_capacity_limited"`
	MaxParticipants      *int       `json:"max_participants"`
}

func (u UpdateEventRequest) toDomain() domain.EventUpdate {
	return domain.EventUpdate{
		Title:                u.Title,
		Description:          u.Description,
		ClearDescription:     u.ClearDescription,
		StartTime:            u.StartTime,
		EndTime:              u.EndTime,
		RegistrationDeadline: u.RegistrationDeadline,
		Location:             u.Location,
		ClearLocation:        u.ClearLocation,
		IsCapacityLimited:    u.IsCapacityLimited,
		MaxParticipants:      u.MaxParticipants,
	}
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Partially updates an event. Only the owner may update it. max_participants cannot drop below the number of registrations already made.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID (UUID)"
// @Param body body controllers.UpdateEventRequest true "Fields to update"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{id} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), id, accountID, req.toDomain())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes an event and all of its registrations. Only the owner may delete it.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains id and deleted=true"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{id} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), id, accountID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// EventStats godoc
// @Summary Global event counters
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains total, upcoming, ongoing and open_registration"
// @Router /events/stats [get]
func (c *EventController) EventStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAccount(w, r); !ok {
		return
	}
	stats, err := c.Service.GetEventStats(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// MyEventStats godoc
// @Summary Event counters for the authenticated owner
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains total and upcoming"
// @Router /me/events/stats [get]
func (c *EventController) MyEventStats(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	stats, err := c.Service.GetOwnerEventStats(r.Context(), accountID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}
