package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"photographer-backend/internal/cache"
	"photographer-backend/internal/domain"
	"photographer-backend/internal/invalidation"
	"photographer-backend/internal/middleware"
	"photographer-backend/internal/repository/memory"
	"photographer-backend/internal/repository/storetest"
	"photographer-backend/internal/resilience"
	"photographer-backend/internal/service/photographer"
	"photographer-backend/pkg/api"
	"photographer-backend/pkg/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *api.ErrorInfo `json:"error"`
	Meta    *api.MetaInfo  `json:"meta"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

type testServer struct {
	handler http.Handler
	store   *memory.Store
	manager *cache.Manager
}

func newTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.SaveAll(context.Background(), storetest.Fixtures()))

	manager := cache.NewManager(nil, nil)
	svc, err := photographer.New(store, manager, invalidation.NewCoordinator(manager, nil, time.Second, nil), photographer.Config{
		Clock: func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) },
	}, nil)
	require.NoError(t, err)

	router := NewRouter(Dependencies{
		Photographers: svc,
		Store:         store,
		Caches:        manager,
		Breaker:       svc.BreakerState,
		Metrics:       http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	}, opts, nil)
	return &testServer{handler: router.Setup(), store: store, manager: manager}
}

func (s *testServer) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func summaryIDs(summaries []domain.Summary) []int64 {
	out := make([]int64, len(summaries))
	for i, s := range summaries {
		out[i] = s.ID
	}
	return out
}

func TestProbes(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	rec := srv.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	ready := decode[map[string]string](t, rec)
	assert.Equal(t, "closed", ready.Data["breaker"])

	rec = srv.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, "# metrics", rec.Body.String())
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyReportsUnreachableStore(t *testing.T) {
	handler := NewRouter(Dependencies{Store: downStore{}}, RouterOptions{}, nil).Setup()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreachable")
}

func TestListPhotographers(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	t.Run("Should return a page with totals", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/photographers?page=1&size=2", "")
		require.Equal(t, http.StatusOK, rec.Code)

		env := decode[api.Page[domain.Summary]](t, rec)
		assert.True(t, env.Success)
		assert.Equal(t, []int64{3, 4}, summaryIDs(env.Data.Content))
		assert.Equal(t, 3, env.Data.TotalPages)
		assert.Equal(t, int64(5), env.Data.TotalElements)
		require.NotNil(t, env.Meta.CacheHit)
		assert.False(t, *env.Meta.CacheHit)
	})

	t.Run("Should default to the first ten", func(t *testing.T) {
		env := decode[api.Page[domain.Summary]](t, srv.do(http.MethodGet, "/api/photographers", ""))
		assert.Equal(t, 0, env.Data.Page)
		assert.Equal(t, 10, env.Data.Size)
		assert.Len(t, env.Data.Content, 5)
	})

	t.Run("Should reject malformed paging", func(t *testing.T) {
		for _, q := range []string{"page=x", "size=0", "size=101", "page=-1"} {
			rec := srv.do(http.MethodGet, "/api/photographers?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
			assert.Equal(t, api.Codes.Validation, decode[any](t, rec).Error.Code, q)
		}
	})
}

func TestGetPhotographer(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	rec := srv.do(http.MethodGet, "/api/photographers/2", "", middleware.HeaderRequestID, "req-42")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[domain.Photographer](t, rec)
	assert.Equal(t, "Grace", first.Data.FirstName)
	assert.Equal(t, "req-42", first.Meta.RequestID)
	assert.False(t, *first.Meta.CacheHit)

	second := decode[domain.Photographer](t, srv.do(http.MethodGet, "/api/photographers/2", ""))
	assert.True(t, *second.Meta.CacheHit)

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/photographers/abc", http.StatusBadRequest, api.Codes.Validation},
		{"/api/photographers/0", http.StatusBadRequest, api.Codes.Validation},
		{"/api/photographers/99", http.StatusNotFound, api.Codes.NotFound},
	}
	for _, tt := range tests {
		rec := srv.do(http.MethodGet, tt.path, "")
		assert.Equal(t, tt.status, rec.Code, tt.path)
		assert.Equal(t, tt.code, decode[any](t, rec).Error.Code, tt.path)
	}
}

func TestQueryViews(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	t.Run("Should match event types case-sensitively", func(t *testing.T) {
		env := decode[[]domain.Summary](t, srv.do(http.MethodGet, "/api/photographers/event/Wedding", ""))
		assert.Equal(t, []int64{1, 3}, summaryIDs(env.Data))
	})

	t.Run("Should reject non-alphabetic event types", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/photographers/event/Wed1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Should list the youngest first", func(t *testing.T) {
		env := decode[[]domain.Summary](t, srv.do(http.MethodGet, "/api/photographers/youngest?size=2", ""))
		assert.Equal(t, []int64{4, 2}, summaryIDs(env.Data))
		assert.Equal(t, 24, env.Data[0].Age)
	})

	t.Run("Should search by proximity", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/api/photographers/proximity?lat=52.52&lng=13.405&radius=10", "")
		require.Equal(t, http.StatusOK, rec.Code)
		env := decode[[]domain.Summary](t, rec)
		assert.ElementsMatch(t, []int64{1, 2, 3}, summaryIDs(env.Data))
		assert.Empty(t, rec.Header().Get(middleware.HeaderDegraded))
	})

	t.Run("Should require every proximity parameter", func(t *testing.T) {
		for _, q := range []string{"lat=52&lng=13", "lat=91&lng=13&radius=5", "lat=a&lng=13&radius=5", "lat=52&lng=13&radius=0.5"} {
			rec := srv.do(http.MethodGet, "/api/photographers/proximity?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})
}

func TestWriteRoutes(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	body := `{"first_name":"Katherine","last_name":"Johnson","email":"kj@example.com","date_of_birth":"2000-08-26","latitude":52.5,"longitude":13.4,"eventType":["Wedding"]}`

	// warm the event view so the write has something to invalidate
	srv.do(http.MethodGet, "/api/photographers/event/Wedding", "")

	rec := srv.do(http.MethodPost, "/api/photographers", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Photographer](t, rec)
	assert.Equal(t, int64(6), created.Data.ID)
	assert.Equal(t, "/api/photographers/6", rec.Header().Get("Location"))

	env := decode[[]domain.Summary](t, srv.do(http.MethodGet, "/api/photographers/event/Wedding", ""))
	assert.Equal(t, []int64{1, 3, 6}, summaryIDs(env.Data))
	assert.False(t, *env.Meta.CacheHit)

	rec = srv.do(http.MethodPut, "/api/photographers/6", strings.Replace(body, "Katherine", "Kate", 1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Kate", decode[domain.Photographer](t, rec).Data.FirstName)

	rec = srv.do(http.MethodDelete, "/api/photographers/6", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(http.MethodDelete, "/api/photographers/6", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("Should reject unknown and invalid fields", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/photographers", `{"nickname":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = srv.do(http.MethodPost, "/api/photographers", `{"first_name":"A","last_name":"B","email":"nope","date_of_birth":"2000-01-01"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[any](t, rec).Error.Details, "email")
	})
}

func TestCacheStats(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	srv.do(http.MethodGet, "/api/photographers/1", "")
	srv.do(http.MethodGet, "/api/photographers/1", "")

	env := decode[cacheStatsResponse](t, srv.do(http.MethodGet, "/api/cache/stats", ""))
	require.Contains(t, env.Data.Namespaces, photographer.NamespaceByID)
	assert.Equal(t, int64(1), env.Data.Namespaces[photographer.NamespaceByID].Hits)
	assert.Equal(t, int64(1), env.Data.Namespaces[photographer.NamespaceByID].Misses)
	assert.Equal(t, resilience.StateClosed, env.Data.Breaker)
}

type degradedService struct {
	PhotographerService
}

func (degradedService) NearBy(context.Context, float64, float64, float64) (photographer.Result[[]domain.Summary], error) {
	return photographer.Result[[]domain.Summary]{Value: []domain.Summary{}, Degraded: true}, nil
}

func TestDegradedResponse(t *testing.T) {
	handler := NewRouter(Dependencies{Photographers: degradedService{}}, RouterOptions{}, nil).Setup()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/photographers/proximity?lat=1&lng=1&radius=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(middleware.HeaderDegraded))
	env := decode[[]domain.Summary](t, rec)
	assert.True(t, env.Meta.Degraded)
	assert.Empty(t, env.Data)
}

func TestAuthentication(t *testing.T) {
	jwtSvc, err := auth.NewJWTService(auth.Config{SecretKey: "test-secret-test-secret-test-sec", Issuer: "photographer-backend"})
	require.NoError(t, err)
	srv := newTestServer(t, RouterOptions{Validator: jwtSvc, WriteRole: "editor"})

	viewer, err := jwtSvc.GenerateToken("viewer-1", nil)
	require.NoError(t, err)
	editor, err := jwtSvc.GenerateToken("editor-1", []string{"editor"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodGet, "/api/photographers/1", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/photographers/1", "", "Authorization", "Bearer "+viewer).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodDelete, "/api/photographers/1", "", "Authorization", "Bearer "+viewer).Code)
	assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, "/api/photographers/1", "", "Authorization", "Bearer "+editor).Code)
}
