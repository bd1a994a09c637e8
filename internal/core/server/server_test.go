package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/favplaces/internal/auth"
	"github.com/mohammed-shakir/favplaces/internal/cache"
	"github.com/mohammed-shakir/favplaces/internal/cache/memstore"
	"github.com/mohammed-shakir/favplaces/internal/core/config"
	"github.com/mohammed-shakir/favplaces/internal/core/health"
	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/core/observability"
	"github.com/mohammed-shakir/favplaces/internal/events"
	"github.com/mohammed-shakir/favplaces/internal/favorites"
	"github.com/mohammed-shakir/favplaces/internal/logger"
	"github.com/mohammed-shakir/favplaces/internal/mapper/h3"
	"github.com/mohammed-shakir/favplaces/internal/places"
	"github.com/mohammed-shakir/favplaces/internal/search"
	"github.com/mohammed-shakir/favplaces/internal/store"
)

const placeJSON = `{"place_id":"p1","name":"Cafe","rating":4.5,"types":["cafe"],"geometry":{"location":{"lat":19.41,"lng":-99.17}}}`

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/nearbysearch/json":
			_, _ = w.Write([]byte(`{"status":"OK","results":[` + placeJSON + `]}`))
		case "/details/json":
			_, _ = w.Write([]byte(`{"status":"OK","result":` + placeJSON + `}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	l := logger.Discard()
	up := upstream(t)

	db, err := store.Open("", l)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	client, err := places.New(config.PlacesCfg{BaseURL: up.URL, Radius: 5000, DetailsCache: 8}, l, up.Client())
	if err != nil {
		t.Fatalf("places.New: %v", err)
	}
	cells, err := h3mapper.New(7)
	if err != nil {
		t.Fatalf("h3.New: %v", err)
	}

	provider := observability.NewProvider()
	cfg := config.Config{RateLimitRPM: 1000}
	return NewRouter(cfg, l, Deps{
		Search:    search.New(cache.NewPages(memstore.New(time.Minute)), client, l, search.WithPageDelay(0)),
		Favorites: favorites.New(db, client, cells, 5000, events.Nop{}, l),
		Auth: auth.NewService(db,
			auth.NewSessions(memstore.New(time.Hour)),
			auth.NewTokens("secret", time.Hour),
			l),
		Ready:   map[string]health.Pinger{"db": db},
		Metrics: provider.Handler(),
	})
}

func call(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_EndToEnd(t *testing.T) {
	h := newTestRouter(t)

	if rr := call(t, h, http.MethodGet, "/search?lat=19.41&lon=-99.17", "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous search code=%d", rr.Code)
	}

	rr := call(t, h, http.MethodPost, "/auth/register", "",
		`{"email":"ana@example.com","username":"ana","password":"abc123","passwordConfirm":"abc123"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register code=%d body=%s", rr.Code, rr.Body.String())
	}
	var tok struct {
		JWT string `json:"jwt"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &tok); err != nil || tok.JWT == "" {
		t.Fatalf("jwt missing: %v %s", err, rr.Body.String())
	}

	rr = call(t, h, http.MethodGet, "/search?lat=19.41&lon=-99.17", tok.JWT, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"id":"p1"`) {
		t.Fatalf("search code=%d body=%s", rr.Code, rr.Body.String())
	}

	if rr := call(t, h, http.MethodPost, "/favorites/p1", tok.JWT, ""); rr.Code != http.StatusCreated {
		t.Fatalf("add favorite code=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := call(t, h, http.MethodPost, "/favorites/p1", tok.JWT, ""); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate favorite code=%d", rr.Code)
	}

	rr = call(t, h, http.MethodGet, "/favorites?sortby=distance&lat=19.41&lon=-99.17", tok.JWT, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"totalCount":1`) {
		t.Fatalf("list code=%d body=%s", rr.Code, rr.Body.String())
	}

	if rr := call(t, h, http.MethodDelete, "/favorites/p1", tok.JWT, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("remove code=%d", rr.Code)
	}

	if rr := call(t, h, http.MethodPost, "/auth/logout", tok.JWT, ""); rr.Code != http.StatusOK {
		t.Fatalf("logout code=%d", rr.Code)
	}
	if rr := call(t, h, http.MethodGet, "/favorites", tok.JWT, ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("token must be dead after logout, code=%d", rr.Code)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	h := newTestRouter(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rr := call(t, h, http.MethodGet, path, "", ""); rr.Code != http.StatusOK {
			t.Fatalf("%s code=%d", path, rr.Code)
		}
	}
}

type panicSearch struct{}

func (panicSearch) Search(context.Context, model.Query) (model.SearchResult, error) {
	panic("boom")
}

type allowAll struct{}

func (allowAll) Register(context.Context, auth.RegisterInput) (string, error) { return "", nil }
func (allowAll) Login(context.Context, auth.LoginInput) (string, error)       { return "", nil }
func (allowAll) Logout(context.Context, auth.Session) error                   { return nil }
func (allowAll) Authenticate(context.Context, string) (auth.Session, error) {
	return auth.Session{ID: "s1", UserID: "u1", Valid: true}, nil
}

func TestRouter_PanicIsLoggedAndCounted(t *testing.T) {
	provider := observability.NewProvider()
	observability.Init(provider.Registerer(), true)

	var logs strings.Builder
	zl := logger.Build(logger.Config{Level: "debug"}, &logs)
	h := NewRouter(config.Config{}, logger.NewSlog(&zl), Deps{
		Search:  panicSearch{},
		Auth:    allowAll{},
		Metrics: provider.Handler(),
	})

	rr := call(t, h, http.MethodGet, "/search?lat=1&lon=2", "tok", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("panicking request lost its request id")
	}
	if !strings.Contains(logs.String(), `"msg":"http request"`) || !strings.Contains(logs.String(), `"status":500`) {
		t.Fatalf("no access log line for the 500:\n%s", logs.String())
	}

	body := call(t, h, http.MethodGet, "/metrics", "", "").Body.String()
	if !strings.Contains(body, `http_requests_total{method="GET",route="/search",status="500"}`) {
		t.Fatalf("panicking request not counted:\n%s", body)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, config.Config{Addr: "127.0.0.1:0"}, logger.Discard(), http.NotFoundHandler())
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
