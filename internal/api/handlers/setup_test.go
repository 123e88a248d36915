package handlers_test

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/leadboard/internal/api"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/events"
	"github.com/hugh/leadboard/internal/hierarchy"
	"github.com/hugh/leadboard/internal/kanban"
	"github.com/hugh/leadboard/internal/settings"
	"github.com/hugh/leadboard/internal/storage"
	"github.com/hugh/leadboard/internal/tenancy"
	"github.com/hugh/leadboard/internal/testutil"
	"github.com/hugh/leadboard/internal/visibility"
	"github.com/hugh/leadboard/pkg/config"
	"github.com/hugh/leadboard/pkg/crypto"
	"github.com/prometheus/client_golang/prometheus"
)

// testServer is the full API router over an in-memory database. Requests
// to example.com, the httptest default host, resolve to the fixture tenant.
type testServer struct {
	*testutil.TestSetup
	router *api.Router
	store  *storage.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tc := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	enc, err := crypto.NewEncryptor("")
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}

	graph := hierarchy.NewGraph(tc.DB)
	scopes := visibility.NewResolver(graph)
	tenants := tenancy.NewResolver(tc.DB, config.TenancyConfig{
		DefaultTenantSlug: tc.Tenant.Slug,
		LocalHosts:        []string{"example.com", "localhost"},
	})
	store := storage.NewMemory("https://cdn.example.com")

	router := api.NewRouter(api.RouterConfig{
		DB:             tc.DB,
		Logger:         logger,
		JWTService:     tc.JWTService,
		AuthService:    auth.NewService(tc.DB, tc.JWTService),
		ResetService:   auth.NewResetService(tc.DB, nil, logger, time.Hour, "http://localhost:3000/reset-password"),
		Tenancy:        tenants,
		Graph:          graph,
		Scopes:         scopes,
		Kanban:         kanban.NewService(tc.DB, graph, scopes, events.Noop{}, logger),
		Settings:       settings.New(tc.DB, enc, time.Minute, nil, logger),
		Storage:        storage.NewService(store, 1<<20, logger),
		Registry:       prometheus.NewRegistry(),
		MaxImportBytes: 1 << 20,
	})
	t.Cleanup(router.Close)

	return &testServer{TestSetup: tc, router: router, store: store}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

// multipartRequest builds an authenticated upload with one file part and
// optional plain fields.
func multipartRequest(t *testing.T, path, filename string, content []byte, fields map[string]string, token string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
