package helpers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"eventsignup/internal/domain"
	"eventsignup/internal/validation"
)

// maxBodyBytes bounds request bodies read by DecodeAndValidate.
const maxBodyBytes = 1 << 20

// DecodeAndValidate decodes the request body into dest (with DisallowUnknownFields)
// and runs the struct's validate tags. On decode or validation failure
// it writes a 400 JSON error and returns false; otherwise returns true.
// Callers should return immediately when DecodeAndValidate returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return false
	}
	if err := validation.Struct(r.Context(), dest); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeAPIError(w, http.StatusBadRequest, &APIError{Code: ErrCodeBadRequest, Message: verr.Error(), Fields: verr.FieldErrors})
			return false
		}
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return false
	}
	return true
}

// PathID reads a UUID path value. It writes a 400 and returns false when the value is missing or malformed.
func PathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := strings.TrimSpace(r.PathValue(name))
	if raw == "" {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid "+name)
		return "", false
	}
	return id.String(), true
}

// ParseOptionalBool reads a boolean query parameter. Missing means nil.
func ParseOptionalBool(r *http.Request, name string) (*bool, bool) {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name))) {
	case "":
		return nil, true
	case "true", "1":
		v := true
		return &v, true
	case "false", "0":
		v := false
		return &v, true
	default:
		return nil, false
	}
}
