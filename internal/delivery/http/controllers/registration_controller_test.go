package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/domain"
)

func TestRegistrationController_Register(t *testing.T) {
	tests := []struct {
		name       string
		pathID     string
		body       any
		accountID  string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "created", pathID: testEventID, body: RegisterRequest{ParticipantName: "Alice"}, accountID: testAccountID, wantStatus: http.StatusCreated},
		{name: "invalid event id", pathID: "nope", body: RegisterRequest{ParticipantName: "Alice"}, accountID: testAccountID, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "missing name", pathID: testEventID, body: map[string]any{"remark": "x"}, accountID: testAccountID, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "unknown field", pathID: testEventID, body: map[string]any{"participant_name": "A", "seat": 3}, accountID: testAccountID, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "unauthenticated", pathID: testEventID, body: RegisterRequest{ParticipantName: "Alice"}, wantStatus: http.StatusUnauthorized, wantCode: helpers.ErrCodeUnauthorized},
		{name: "closed", pathID: testEventID, body: RegisterRequest{ParticipantName: "Alice"}, accountID: testAccountID, svcErr: domain.ErrRegistrationClosed, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeConflict},
		{name: "full", pathID: testEventID, body: RegisterRequest{ParticipantName: "Alice"}, accountID: testAccountID, svcErr: domain.ErrEventFull, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeConflict},
		{name: "duplicate", pathID: testEventID, body: RegisterRequest{ParticipantName: "Alice"}, accountID: testAccountID, svcErr: domain.ErrDuplicateRegistration, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeConflict},
		{name: "event missing", pathID: testEventID, body: RegisterRequest{ParticipantName: "Alice"}, accountID: testAccountID, svcErr: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: helpers.ErrCodeNotFound},
		{name: "service validation", pathID: testEventID, body: RegisterRequest{ParticipantName: "   "}, accountID: testAccountID, svcErr: domain.NewValidationError("participant_name", "is required"), wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRegistrationService{
				registerErr: tt.svcErr,
				reg:         &domain.Registration{ID: testRegID, EventID: testEventID, AccountID: testAccountID, ParticipantName: "Alice"},
			}
			c := NewRegistrationController(testLogger(), svc, &fakeReportService{})
			req := newRequest(t, http.MethodPost, "/api/v1/events/"+tt.pathID+"/registrations", tt.body, tt.pathID, tt.accountID)
			rec := httptest.NewRecorder()

			c.Register(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decode(t, rec)
			if tt.wantCode != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantCode, env.Error.Code)
				return
			}
			assert.Nil(t, env.Error)
			var reg domain.Registration
			decodeData(t, env, &reg)
			assert.Equal(t, testRegID, reg.ID)
			assert.Equal(t, domain.RegisterInput{EventID: testEventID, AccountID: testAccountID, ParticipantName: "Alice"}, svc.lastInput)
		})
	}
}

func TestRegistrationController_Register_FieldErrors(t *testing.T) {
	svc := &fakeRegistrationService{registerErr: domain.NewValidationError("participant_name", "must be at most 100 characters")}
	c := NewRegistrationController(testLogger(), svc, &fakeReportService{})
	req := newRequest(t, http.MethodPost, "/", RegisterRequest{ParticipantName: "x"}, testEventID, testAccountID)
	rec := httptest.NewRecorder()

	c.Register(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "must be at most 100 characters", env.Error.Fields["participant_name"])
}

func TestRegistrationController_Cancel(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		svc := &fakeRegistrationService{}
		c := NewRegistrationController(testLogger(), svc, &fakeReportService{})
		rec := httptest.NewRecorder()
		c.Cancel(rec, newRequest(t, http.MethodDelete, "/api/v1/registrations/"+testRegID, nil, testRegID, testAccountID))

		assert.Equal(t, http.StatusOK, rec.Code)
		var out CancelRegistrationResponse
		decodeData(t, decode(t, rec), &out)
		assert.Equal(t, CancelRegistrationResponse{ID: testRegID, Cancelled: true}, out)
		assert.Equal(t, testRegID, svc.lastCancelID)
		assert.Equal(t, testAccountID, svc.lastCancelAccount)
	})
	t.Run("not the registrant", func(t *testing.T) {
		svc := &fakeRegistrationService{cancelErr: domain.ErrForbidden}
		c := NewRegistrationController(testLogger(), svc, &fakeReportService{})
		rec := httptest.NewRecorder()
		c.Cancel(rec, newRequest(t, http.MethodDelete, "/", nil, testRegID, testAccountID))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
	t.Run("storage failure hides detail", func(t *testing.T) {
		svc := &fakeRegistrationService{cancelErr: assert.AnError}
		c := NewRegistrationController(testLogger(), svc, &fakeReportService{})
		rec := httptest.NewRecorder()
		c.Cancel(rec, newRequest(t, http.MethodDelete, "/", nil, testRegID, testAccountID))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decode(t, rec)
		require.NotNil(t, env.Error)
		assert.Equal(t, helpers.ErrCodeInternalError, env.Error.Code)
		assert.NotContains(t, env.Error.Message, assert.AnError.Error())
	})
}

func TestRegistrationController_GetRegistration(t *testing.T) {
	view := &domain.RegistrationView{
		Registration: domain.Registration{ID: testRegID, AccountID: testAccountID, ParticipantName: "Alice", RegisteredAt: time.Now()},
		EventTitle:   "Camp",
	}
	tests := []struct {
		name       string
		accountID  string
		viewErr    error
		wantStatus int
	}{
		{name: "own registration", accountID: testAccountID, wantStatus: http.StatusOK},
		{name: "someone else", accountID: "99999999-9999-9999-9999-999999999999", wantStatus: http.StatusForbidden},
		{name: "missing", accountID: testAccountID, viewErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "unauthenticated", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRegistrationService{view: view, viewErr: tt.viewErr}
			if tt.viewErr != nil {
				svc.view = nil
			}
			c := NewRegistrationController(testLogger(), svc, &fakeReportService{})
			rec := httptest.NewRecorder()
			c.GetRegistration(rec, newRequest(t, http.MethodGet, "/", nil, testRegID, tt.accountID))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRegistrationController_Lists(t *testing.T) {
	page := domain.NewPage([]*domain.RegistrationView{{Registration: domain.Registration{ID: testRegID}}}, domain.PaginationParams{Page: 2, PageSize: 5}, 6)

	t.Run("mine uses acting account and pagination", func(t *testing.T) {
		reports := &fakeReportService{page: page}
		c := NewRegistrationController(testLogger(), &fakeRegistrationService{}, reports)
		rec := httptest.NewRecorder()
		c.ListMyRegistrations(rec, newRequest(t, http.MethodGet, "/api/v1/me/registrations?page=2&page_size=5", nil, "", testAccountID))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testAccountID, reports.lastID)
		assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 5}, reports.lastPage)
		var got domain.Page[*domain.RegistrationView]
		decodeData(t, decode(t, rec), &got)
		assert.Equal(t, 6, got.Total)
		assert.Equal(t, 2, got.TotalPages)
	})
	t.Run("search trims the term", func(t *testing.T) {
		reports := &fakeReportService{page: page}
		c := NewRegistrationController(testLogger(), &fakeRegistrationService{}, reports)
		rec := httptest.NewRecorder()
		c.SearchRegistrations(rec, newRequest(t, http.MethodGet, "/api/v1/registrations/search?q=%20ali%20", nil, "", testAccountID))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ali", reports.lastTerm)
	})
	t.Run("stats", func(t *testing.T) {
		reports := &fakeReportService{stats: &domain.RegistrationStats{Total: 9, Today: 2}}
		c := NewRegistrationController(testLogger(), &fakeRegistrationService{}, reports)
		rec := httptest.NewRecorder()
		c.RegistrationStats(rec, newRequest(t, http.MethodGet, "/api/v1/registrations/stats", nil, "", testAccountID))

		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.RegistrationStats
		decodeData(t, decode(t, rec), &got)
		assert.Equal(t, domain.RegistrationStats{Total: 9, Today: 2}, got)
	})
}
