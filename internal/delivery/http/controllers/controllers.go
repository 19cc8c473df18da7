// Package controllers holds the HTTP handlers. Each handler decodes the request, calls one service
// method with the acting account from the request context, and writes the response envelope.
package controllers

import (
	"net/http"

	"eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/delivery/http/middleware"
	"eventsignup/internal/domain"
)

// requireAccount returns the acting account ID or writes 401.
func requireAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	return id, true
}

// RegistrationViewPage is the data payload of registration list endpoints.
type RegistrationViewPage = domain.Page[*domain.RegistrationView]

// RegistrationListSuccessResponse is the success envelope of registration list endpoints (200).
type RegistrationListSuccessResponse struct {
	Data  RegistrationViewPage `json:"data"`
	Error *helpers.APIError    `json:"error"`
}
