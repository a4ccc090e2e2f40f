package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/MarcoPoloResearchLab/momentos/internal/listsync"
	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
	"github.com/MarcoPoloResearchLab/momentos/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	pngSample  = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52}
	jpegSample = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 0x4a, 0x46, 0x49, 0x46, 0x00, 0x01}
	fixedNow   = time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)
)

const testSessionSecret = "test-session-secret"

type stubMomentAPI struct {
	mu          sync.Mutex
	moment      moments.Moment
	getErr      error
	submitErr   error
	created     []moments.Payload
	updated     []moments.Payload
	updatedIDs  []moments.MomentID
	requestIDs  []string
	total       int64
	summaries   []moments.Summary
	listErr     error
	listQueries []moments.ListQuery
}

func (s *stubMomentAPI) GetMoment(ctx context.Context, id moments.MomentID) (moments.Moment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestIDs = append(s.requestIDs, apiclient.RequestIDFromContext(ctx))
	if s.getErr != nil {
		return moments.Moment{}, s.getErr
	}
	moment := s.moment
	moment.ID = id
	return moment, nil
}

func (s *stubMomentAPI) CreateMoment(_ context.Context, payload moments.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, payload)
	return s.submitErr
}

func (s *stubMomentAPI) UpdateMoment(_ context.Context, id moments.MomentID, payload moments.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedIDs = append(s.updatedIDs, id)
	s.updated = append(s.updated, payload)
	return s.submitErr
}

func (s *stubMomentAPI) TotalMoments(context.Context) (int64, error) {
	return s.total, nil
}

func (s *stubMomentAPI) ListMoments(_ context.Context, query moments.ListQuery) ([]moments.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listQueries = append(s.listQueries, query)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.summaries, nil
}

type stubAccountAPI struct {
	result     apiclient.LoginResult
	loginErr   error
	accountErr error
	accounts   []apiclient.Account
	profile    apiclient.Profile
	profileErr error
	updateErr  error
	updates    []apiclient.Profile
}

func (s *stubAccountAPI) Login(_ context.Context, _, _ string) (apiclient.LoginResult, error) {
	return s.result, s.loginErr
}

func (s *stubAccountAPI) CreateAccount(_ context.Context, account apiclient.Account) error {
	s.accounts = append(s.accounts, account)
	return s.accountErr
}

func (s *stubAccountAPI) Profile(context.Context) (apiclient.Profile, error) {
	return s.profile, s.profileErr
}

func (s *stubAccountAPI) UpdateProfile(_ context.Context, profile apiclient.Profile) error {
	s.updates = append(s.updates, profile)
	return s.updateErr
}

type memorySessions struct {
	mu      sync.Mutex
	current *session.Session
}

func (m *memorySessions) Current(context.Context) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return session.Session{}, session.ErrNoSession
	}
	return *m.current, nil
}

func (m *memorySessions) Save(_ context.Context, current session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &current
	return nil
}

func (m *memorySessions) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

type staticIDs struct {
	value string
}

func (s staticIDs) NewID() (string, error) {
	return s.value, nil
}

type testHarness struct {
	handler      http.Handler
	api          *stubMomentAPI
	accounts     *stubAccountAPI
	sessions     *memorySessions
	lists        *listsync.Controller
	clientCookie *http.Cookie
}

func newTestHarness(t *testing.T, api *stubMomentAPI, signedIn bool) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if api == nil {
		api = &stubMomentAPI{}
	}
	sessions := &memorySessions{}
	var clientCookie *http.Cookie
	if signedIn {
		current := session.Session{Username: "ana", AccessToken: "token-ana", ExpiresAt: fixedNow.Add(time.Hour)}
		sessions.current = &current
		clientCookie = issueClientCookie(t, current)
	}
	lists, err := listsync.NewController(listsync.Config{Source: api})
	if err != nil {
		t.Fatalf("failed to build list controller: %v", err)
	}
	accounts := &stubAccountAPI{}
	handler, err := NewHTTPHandler(Dependencies{
		Moments:       api,
		Accounts:      accounts,
		Sessions:      sessions,
		Lists:         lists,
		RequestIDs:    staticIDs{value: "req-fixed"},
		SessionSecret: []byte(testSessionSecret),
		DismissAfter:  10 * time.Second,
		Clock:         func() time.Time { return fixedNow },
		Logger:        zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return &testHarness{handler: handler, api: api, accounts: accounts, sessions: sessions, lists: lists, clientCookie: clientCookie}
}

// issueClientCookie signs the browser credential the handler expects for current.
func issueClientCookie(t *testing.T, current session.Session) *http.Cookie {
	t.Helper()
	credentials, err := newClientCredentials([]byte(testSessionSecret), false, func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("failed to build client credentials: %v", err)
	}
	token, err := credentials.issue(current)
	if err != nil {
		t.Fatalf("failed to issue client credential: %v", err)
	}
	return &http.Cookie{Name: clientCookieName, Value: token}
}

// serve attaches the harness credential unless the request carries its own.
func (h *testHarness) serve(request *http.Request) *httptest.ResponseRecorder {
	if h.clientCookie != nil {
		if _, err := request.Cookie(clientCookieName); err != nil {
			request.AddCookie(h.clientCookie)
		}
	}
	recorder := httptest.NewRecorder()
	h.handler.ServeHTTP(recorder, request)
	return recorder
}

type multipartFile struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string][]string, file *multipartFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, values := range fields {
		for _, value := range values {
			if err := writer.WriteField(name, value); err != nil {
				t.Fatalf("failed to write field %s: %v", name, err)
			}
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(file.field, file.filename)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := part.Write(file.content); err != nil {
			t.Fatalf("failed to write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	request := httptest.NewRequest(method, target, body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return request
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}
