package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/domain"
)

// AnnouncementRequest is the request body for POST /announcements.
type AnnouncementRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// UpdateAnnouncementRequest is the request body for PATCH /announcements/{id}.
type UpdateAnnouncementRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// AnnouncementSuccessResponse is the success response envelope for a single announcement.
type AnnouncementSuccessResponse struct {
	Data  *domain.Announcement `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type AnnouncementController struct {
	Logger  *slog.Logger
	Service domain.AnnouncementService
}

func NewAnnouncementController(logger *slog.Logger, svc domain.AnnouncementService) *AnnouncementController {
	return &AnnouncementController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateAnnouncement godoc
// @Summary Publish an announcement
// @Tags announcements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.AnnouncementRequest true "Announcement"
// @Success 201 {object} controllers.AnnouncementSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /announcements [post]
func (c *AnnouncementController) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req AnnouncementRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	a := &domain.Announcement{
		Title:   req.Title,
		Content: req.Content,
		OwnerID: accountID,
	}
	if err := c.Service.Create(r.Context(), a); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, a)
}

// GetAnnouncement godoc
// @Summary Get an announcement
// @Tags announcements
// @Produce json
// @Param id path string true "Announcement ID (UUID)"
// @Success 200 {object} controllers.AnnouncementSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /announcements/{id} [get]
func (c *AnnouncementController) GetAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	a, err := c.Service.GetByID(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, a)
}

// ListAnnouncements godoc
// @Summary List announcements
// @Description Newest first. owner_id narrows the list to one publisher.
// @Tags announcements
// @Produce json
// @Param owner_id query string false "Owner account ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains a page of announcements"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /announcements [get]
func (c *AnnouncementController) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if owner != "" {
		if _, err := uuid.Parse(owner); err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid owner_id")
			return
		}
	}
	page, err := c.Service.List(r.Context(), owner, helpers.ParsePagination(r))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, page)
}

// SearchAnnouncements godoc
// @Summary Search announcements by title or content
// @Tags announcements
// @Produce json
// @Param q query string true "Search term"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains a page of announcements"
// @Router /announcements/search [get]
func (c *AnnouncementController) SearchAnnouncements(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := c.Service.Search(r.Context(), q, helpers.ParsePagination(r))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, page)
}

// UpdateAnnouncement godoc
// @Summary Update an announcement
// @Description Only the publisher may update it.
// @Tags announcements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Announcement ID (UUID)"
// @Param body body controllers.UpdateAnnouncementRequest true "Fields to update"
// @Success 200 {object} controllers.AnnouncementSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /announcements/{id} [patch]
func (c *AnnouncementController) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateAnnouncementRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	a, err := c.Service.Update(r.Context(), id, accountID, domain.AnnouncementUpdate{Title: req.Title, Content: req.Content})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, a)
}

// DeleteAnnouncement godoc
// @Summary Delete an announcement
// @Description Only the publisher may delete it.
// @Tags announcements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Announcement ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains id and deleted=true"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /announcements/{id} [delete]
func (c *AnnouncementController) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	if err := c.Service.Delete(r.Context(), id, accountID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
