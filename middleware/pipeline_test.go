package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokenpair"
	"github.com/MrEthical07/tokenpair/identity"
	"github.com/MrEthical07/tokenpair/ledger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	srv    *httptest.Server
	engine *tokenpair.Engine
	logs   *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	active := func(subject string, roles ...tokenpair.Role) identity.Identity {
		return identity.Identity{
			Subject:               subject,
			PasswordHash:          string(hash),
			Roles:                 roles,
			Enabled:               true,
			AccountNonExpired:     true,
			AccountNonLocked:      true,
			CredentialsNonExpired: true,
		}
	}

	cfg := tokenpair.DefaultConfig()
	cfg.Tokens.SigningKey = bytes.Repeat([]byte("s"), 32)
	cfg.Tokens.EncryptionKey = bytes.Repeat([]byte("e"), 16)

	engine, err := tokenpair.New().
		WithConfig(cfg).
		WithLedger(ledger.NewMemoryLedger()).
		WithIdentityProvider(identity.NewMemoryDirectory(
			active("i.ivanov@test.com", tokenpair.RoleUser),
			active("v.sergeev@test.com", tokenpair.RoleAdmin),
		)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	core, logs := observer.New(zapcore.DebugLevel)

	mux := http.NewServeMux()
	whoami := func(w http.ResponseWriter, r *http.Request) {
		p, _ := tokenpair.PrincipalFromContext(r.Context())
		fmt.Fprint(w, p.Subject)
	}
	mux.HandleFunc("/api/user/whoami", whoami)
	mux.HandleFunc("/api/admin/whoami", whoami)
	mux.HandleFunc("/api/other", whoami)

	pipeline := NewPipeline(engine, mux,
		WithLogger(zap.New(core)),
		WithPublic(http.MethodGet, "/error", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, r, http.StatusInternalServerError)
		})),
	)

	srv := httptest.NewServer(pipeline)
	t.Cleanup(func() {
		srv.Close()
		engine.Close()
	})
	return &testServer{srv: srv, engine: engine, logs: logs}
}

func (s *testServer) do(t *testing.T, method, path string, auth func(*http.Request)) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, s.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if auth != nil {
		auth(req)
	}
	resp, err := s.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func basic(user, pass string) func(*http.Request) {
	return func(r *http.Request) { r.SetBasicAuth(user, pass) }
}

func bearer(raw string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+raw) }
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode)
	}
}

func (s *testServer) login(t *testing.T, user string) tokenpair.LoginResult {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/auth/login", basic(user, "password"))
	expectStatus(t, resp, http.StatusOK)
	return decodeBody[tokenpair.LoginResult](t, resp)
}

func TestPipelineLoginRefreshLogoutScenario(t *testing.T) {
	s := newTestServer(t)

	pair := s.login(t, "i.ivanov@test.com")
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("missing tokens in %+v", pair)
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Fatal("refresh token should outlive access token")
	}

	resp := s.do(t, http.MethodPost, "/auth/refresh", bearer(pair.RefreshToken))
	expectStatus(t, resp, http.StatusOK)
	fresh := decodeBody[tokenpair.AccessResult](t, resp)
	if fresh.AccessToken == "" || !fresh.AccessExpiresAt.After(time.Now().Add(-time.Second)) {
		t.Fatalf("unexpected refresh body %+v", fresh)
	}

	resp = s.do(t, http.MethodGet, "/api/user/whoami", bearer(fresh.AccessToken))
	expectStatus(t, resp, http.StatusOK)

	expectStatus(t, s.do(t, http.MethodPost, "/auth/logout", bearer(pair.RefreshToken)), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPost, "/auth/refresh", bearer(pair.RefreshToken)), http.StatusUnauthorized)
	expectStatus(t, s.do(t, http.MethodPost, "/auth/logout", bearer(pair.RefreshToken)), http.StatusUnauthorized)
}

func TestPipelineAccessTokenOnLogoutIsForbidden(t *testing.T) {
	s := newTestServer(t)
	pair := s.login(t, "i.ivanov@test.com")

	resp := s.do(t, http.MethodPost, "/auth/logout", bearer(pair.AccessToken))
	expectStatus(t, resp, http.StatusForbidden)

	body := decodeBody[errorBody](t, resp)
	if body.Status != http.StatusForbidden || body.Error != "Forbidden" || body.Path != "/auth/logout" {
		t.Fatalf("unexpected error body %+v", body)
	}

	expectStatus(t, s.do(t, http.MethodPost, "/auth/refresh", bearer(pair.AccessToken)), http.StatusForbidden)
}

func TestPipelineResourceAccess(t *testing.T) {
	s := newTestServer(t)
	user := s.login(t, "i.ivanov@test.com")
	admin := s.login(t, "v.sergeev@test.com")

	cases := []struct {
		name string
		path string
		auth func(*http.Request)
		want int
	}{
		{"no header", "/api/user/whoami", nil, http.StatusUnauthorized},
		{"basic instead of bearer", "/api/user/whoami", basic("i.ivanov@test.com", "password"), http.StatusUnauthorized},
		{"garbage bearer", "/api/user/whoami", bearer("garbage"), http.StatusUnauthorized},
		{"user on user route", "/api/user/whoami", bearer(user.AccessToken), http.StatusOK},
		{"user on admin route", "/api/admin/whoami", bearer(user.AccessToken), http.StatusForbidden},
		{"admin on admin route", "/api/admin/whoami", bearer(admin.AccessToken), http.StatusOK},
		{"refresh token as bearer", "/api/user/whoami", bearer(user.RefreshToken), http.StatusForbidden},
		{"unlisted route", "/api/other", bearer(admin.AccessToken), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := s.do(t, http.MethodGet, tc.path, tc.auth)
			expectStatus(t, resp, tc.want)
			if tc.want == http.StatusUnauthorized && resp.Header.Get("WWW-Authenticate") == "" {
				t.Fatal("401 should carry a challenge")
			}
		})
	}
}

func TestPipelineLoginFailures(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodPost, "/auth/login", nil), http.StatusUnauthorized)
	expectStatus(t, s.do(t, http.MethodPost, "/auth/login", basic("i.ivanov@test.com", "wrong")), http.StatusUnauthorized)
	expectStatus(t, s.do(t, http.MethodPost, "/auth/login", basic("ghost@test.com", "password")), http.StatusUnauthorized)

	// Wrong method is not the login stage.
	expectStatus(t, s.do(t, http.MethodGet, "/auth/login", basic("i.ivanov@test.com", "password")), http.StatusUnauthorized)
}

func TestPipelinePublicStage(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/error", nil)
	expectStatus(t, resp, http.StatusInternalServerError)
	body := decodeBody[errorBody](t, resp)
	if body.Path != "/error" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestPipelineStageOrder(t *testing.T) {
	p := NewPipeline(nil, nil, WithPublic(http.MethodGet, "/error", http.NotFoundHandler()))
	want := []string{StagePublic, StageLogin, StageRefresh, StageLogout, StageResourceAccess}
	got := p.Stages()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPipelineLogsCauseNotBody(t *testing.T) {
	s := newTestServer(t)
	pair := s.login(t, "i.ivanov@test.com")

	resp := s.do(t, http.MethodPost, "/auth/logout", bearer(pair.AccessToken))
	expectStatus(t, resp, http.StatusForbidden)

	rejected := s.logs.FilterMessage("request rejected").All()
	if len(rejected) != 1 {
		t.Fatalf("expected one rejection log, got %d", len(rejected))
	}
	ctx := rejected[0].ContextMap()
	if ctx["stage"] != StageLogout {
		t.Fatalf("unexpected stage %v", ctx["stage"])
	}
	errText, _ := ctx["error"].(string)
	if !strings.Contains(errText, "missing capability") {
		t.Fatalf("expected classified cause in log, got %v", ctx)
	}
	if s.logs.FilterMessage("stage complete").Len() < 2 {
		t.Fatal("expected per-stage debug entries")
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		nil:                              http.StatusOK,
		tokenpair.ErrExpired:             http.StatusUnauthorized,
		tokenpair.ErrRevoked:             http.StatusUnauthorized,
		tokenpair.ErrMissingRole:         http.StatusForbidden,
		tokenpair.ErrLedgerUnavailable:   http.StatusInternalServerError,
		tokenpair.ErrIdentityUnavailable: http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := StatusFor(err); got != want {
			t.Fatalf("StatusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("bearerToken(%q) = %q, %v", tc.in, got, ok)
		}
	}
}
