package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/delivery/http/middleware"
	"eventsignup/internal/domain"
)

const (
	testAccountID = "11111111-1111-1111-1111-111111111111"
	testEventID   = "22222222-2222-2222-2222-222222222222"
	testRegID     = "33333333-3333-3333-3333-333333333333"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// envelope mirrors helpers.APIResponse with a raw data payload.
type envelope struct {
	Data  json.RawMessage   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// newRequest builds a request with an optional JSON body, path id and authenticated account.
func newRequest(t *testing.T, method, target string, body any, pathID, accountID string) *http.Request {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rdr = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if pathID != "" {
		req.SetPathValue("id", pathID)
	}
	if accountID != "" {
		req = req.WithContext(middleware.SetAccountID(req.Context(), accountID))
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func decodeData(t *testing.T, env envelope, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

// fakeRegistrationService implements domain.RegistrationService.
type fakeRegistrationService struct {
	lastInput   domain.RegisterInput
	reg         *domain.Registration
	registerErr error

	lastCancelID      string
	lastCancelAccount string
	cancelErr         error

	view    *domain.RegistrationView
	viewErr error
}

func (f *fakeRegistrationService) Register(_ context.Context, in domain.RegisterInput) (*domain.Registration, error) {
	f.lastInput = in
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) Cancel(_ context.Context, registrationID, accountID string) error {
	f.lastCancelID = registrationID
	f.lastCancelAccount = accountID
	return f.cancelErr
}

func (f *fakeRegistrationService) GetRegistration(_ context.Context, _ string) (*domain.RegistrationView, error) {
	return f.view, f.viewErr
}

// fakeReportService implements domain.ReportService.
type fakeReportService struct {
	page      domain.Page[*domain.RegistrationView]
	lastID    string
	lastTerm  string
	lastPage  domain.PaginationParams
	info      *domain.RegistrationInfo
	stats     *domain.RegistrationStats
	evStats   *domain.EventRegistrationStats
	export    *domain.RegistrationExport
	lastActor string
	lastTo    string
	err       error
}

func (f *fakeReportService) ListEventRegistrations(_ context.Context, eventID string, p domain.PaginationParams) (domain.Page[*domain.RegistrationView], error) {
	f.lastID, f.lastPage = eventID, p
	return f.page, f.err
}

func (f *fakeReportService) GetEventRegistrationInfo(_ context.Context, eventID string) (*domain.RegistrationInfo, error) {
	f.lastID = eventID
	return f.info, f.err
}

func (f *fakeReportService) ListAccountRegistrations(_ context.Context, accountID string, p domain.PaginationParams) (domain.Page[*domain.RegistrationView], error) {
	f.lastID, f.lastPage = accountID, p
	return f.page, f.err
}

func (f *fakeReportService) SearchRegistrations(_ context.Context, term string, p domain.PaginationParams) (domain.Page[*domain.RegistrationView], error) {
	f.lastTerm, f.lastPage = term, p
	return f.page, f.err
}

func (f *fakeReportService) GetRegistrationStats(context.Context) (*domain.RegistrationStats, error) {
	return f.stats, f.err
}

func (f *fakeReportService) GetEventRegistrationStats(_ context.Context, eventID string) (*domain.EventRegistrationStats, error) {
	f.lastID = eventID
	return f.evStats, f.err
}

func (f *fakeReportService) ExportEventRegistrations(_ context.Context, eventID, acting string) (*domain.RegistrationExport, error) {
	f.lastID, f.lastActor = eventID, acting
	return f.export, f.err
}

func (f *fakeReportService) EmailEventRegistrationExport(_ context.Context, eventID, acting, to string) error {
	f.lastID, f.lastActor, f.lastTo = eventID, acting, to
	return f.err
}

// fakeEventService implements domain.EventService.
type fakeEventService struct {
	created    *domain.Event
	createErr  error
	event      *domain.Event
	getErr     error
	page       domain.Page[*domain.Event]
	lastOpen   *bool
	lastTerm   string
	lastUpdate domain.EventUpdate
	lastActor  string
	updateErr  error
	deleteErr  error
	stats      *domain.EventStats
	ownerStats *domain.OwnerEventStats
	lastOwner  string
}

func (f *fakeEventService) CreateEvent(_ context.Context, e *domain.Event) error {
	f.created = e
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = testEventID
	return nil
}

func (f *fakeEventService) GetEventByID(context.Context, string) (*domain.Event, error) {
	return f.event, f.getErr
}

func (f *fakeEventService) ListEvents(_ context.Context, open *bool, _ domain.PaginationParams) (domain.Page[*domain.Event], error) {
	f.lastOpen = open
	return f.page, nil
}

func (f *fakeEventService) SearchEvents(_ context.Context, term string, _ domain.PaginationParams) (domain.Page[*domain.Event], error) {
	f.lastTerm = term
	return f.page, nil
}

func (f *fakeEventService) UpdateEvent(_ context.Context, _, acting string, upd domain.EventUpdate) (*domain.Event, error) {
	f.lastUpdate, f.lastActor = upd, acting
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.event, nil
}

func (f *fakeEventService) DeleteEvent(_ context.Context, _, acting string) error {
	f.lastActor = acting
	return f.deleteErr
}

func (f *fakeEventService) GetEventStats(context.Context) (*domain.EventStats, error) {
	return f.stats, nil
}

func (f *fakeEventService) GetOwnerEventStats(_ context.Context, ownerID string) (*domain.OwnerEventStats, error) {
	f.lastOwner = ownerID
	return f.ownerStats, nil
}

// fakeAccountService implements domain.AccountService.
type fakeAccountService struct {
	lastSignUp   domain.SignUpInput
	signUpErr    error
	lastKey      string
	token        string
	account      *domain.Account
	err          error
	lastUpdate   domain.AccountProfileUpdate
	lastActor    string
	lastDeleteID string
	page         domain.Page[*domain.Account]
}

func (f *fakeAccountService) SignUp(_ context.Context, in domain.SignUpInput) (*domain.Account, error) {
	f.lastSignUp = in
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &domain.Account{ID: testAccountID, IdentityKey: in.IdentityKey, DisplayName: in.DisplayName}, nil
}

func (f *fakeAccountService) ExchangeIdentity(_ context.Context, key string) (string, *domain.Account, error) {
	f.lastKey = key
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.account, nil
}

func (f *fakeAccountService) ResolveIdentity(_ context.Context, key string) (string, error) {
	f.lastKey = key
	return testAccountID, f.err
}

func (f *fakeAccountService) GetByID(context.Context, string) (*domain.Account, error) {
	return f.account, f.err
}

func (f *fakeAccountService) UpdateProfile(_ context.Context, _ string, upd domain.AccountProfileUpdate) (*domain.Account, error) {
	f.lastUpdate = upd
	return f.account, f.err
}

func (f *fakeAccountService) List(_ context.Context, acting string, _ domain.PaginationParams) (domain.Page[*domain.Account], error) {
	f.lastActor = acting
	return f.page, f.err
}

func (f *fakeAccountService) Delete(_ context.Context, acting, id string) error {
	f.lastActor, f.lastDeleteID = acting, id
	return f.err
}

// fakeAnnouncementService implements domain.AnnouncementService.
type fakeAnnouncementService struct {
	created    *domain.Announcement
	item       *domain.Announcement
	page       domain.Page[*domain.Announcement]
	lastOwner  string
	lastTerm   string
	lastUpdate domain.AnnouncementUpdate
	lastActor  string
	err        error
}

func (f *fakeAnnouncementService) Create(_ context.Context, a *domain.Announcement) error {
	f.created = a
	if f.err != nil {
		return f.err
	}
	a.ID = "44444444-4444-4444-4444-444444444444"
	return nil
}

func (f *fakeAnnouncementService) GetByID(context.Context, string) (*domain.Announcement, error) {
	return f.item, f.err
}

func (f *fakeAnnouncementService) List(_ context.Context, ownerID string, _ domain.PaginationParams) (domain.Page[*domain.Announcement], error) {
	f.lastOwner = ownerID
	return f.page, f.err
}

func (f *fakeAnnouncementService) Search(_ context.Context, term string, _ domain.PaginationParams) (domain.Page[*domain.Announcement], error) {
	f.lastTerm = term
	return f.page, f.err
}

func (f *fakeAnnouncementService) Update(_ context.Context, _, acting string, upd domain.AnnouncementUpdate) (*domain.Announcement, error) {
	f.lastUpdate, f.lastActor = upd, acting
	return f.item, f.err
}

func (f *fakeAnnouncementService) Delete(_ context.Context, _, acting string) error {
	f.lastActor = acting
	return f.err
}
