package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/favplaces/internal/auth"
	"github.com/mohammed-shakir/favplaces/internal/core/middleware"
	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/favorites"
	"github.com/mohammed-shakir/favplaces/internal/logger"
	"github.com/mohammed-shakir/favplaces/internal/places"
)

type fakeSearch struct {
	got model.Query
	res model.SearchResult
	err error
}

func (f *fakeSearch) Search(_ context.Context, q model.Query) (model.SearchResult, error) {
	f.got = q
	return f.res, f.err
}

type fakeFavorites struct {
	user   string
	place  string
	listQ  favorites.ListQuery
	addErr error
	rmErr  error
	list   favorites.ListResult
	lstErr error
}

func (f *fakeFavorites) Add(_ context.Context, userID, placeID string) (model.Place, error) {
	f.user, f.place = userID, placeID
	return model.Place{ID: placeID, Name: "Cafe"}, f.addErr
}

func (f *fakeFavorites) Remove(_ context.Context, userID, placeID string) error {
	f.user, f.place = userID, placeID
	return f.rmErr
}

func (f *fakeFavorites) List(_ context.Context, userID string, q favorites.ListQuery) (favorites.ListResult, error) {
	f.user, f.listQ = userID, q
	return f.list, f.lstErr
}

type fakeAuth struct {
	regErr, loginErr error
	ended            auth.Session
}

func (f *fakeAuth) Register(context.Context, auth.RegisterInput) (string, error) {
	return "tok-r", f.regErr
}

func (f *fakeAuth) Login(context.Context, auth.LoginInput) (string, error) {
	return "tok-l", f.loginErr
}

func (f *fakeAuth) Logout(_ context.Context, s auth.Session) error {
	f.ended = s
	return nil
}

func withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.WithSession(r.Context(), auth.Session{ID: "s1", UserID: "u1", Valid: true})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func mux(s Searcher, f Favorites, a Auth) http.Handler {
	l := logger.Discard()
	r := chi.NewRouter()
	r.Post("/auth/register", Register(l, a))
	r.Post("/auth/login", Login(l, a))
	r.Group(func(r chi.Router) {
		r.Use(withUser)
		r.Post("/auth/logout", Logout(l, a))
		r.Get("/search", Search(l, s))
		r.Get("/favorites", ListFavorites(l, f))
		r.Post("/favorites/{placeId}", AddFavorite(l, f))
		r.Delete("/favorites/{placeId}", RemoveFavorite(l, f))
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return m
}

func TestSearch_OK(t *testing.T) {
	s := &fakeSearch{res: model.SearchResult{
		Results:     []model.Place{{ID: "p1"}},
		HasNext:     true,
		HasPrevious: true,
	}}
	h := mux(s, &fakeFavorites{}, &fakeAuth{})

	rr := do(t, h, http.MethodGet, "/search?lat=19.41&lon=-99.17&text=tacos&sortby=rating&page=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rr.Code, rr.Body.String())
	}
	if s.got.Page != 2 || s.got.Text != "tacos" || s.got.Sort != model.SortRating || s.got.Origin.Latitude != 19.41 {
		t.Fatalf("query=%+v", s.got)
	}
	body := decode(t, rr)
	if body["hasNext"] != true || body["hasPrevious"] != true || body["hasLimit"] != false {
		t.Fatalf("flags: %v", body)
	}
	meta := body["meta"].(map[string]any)
	if !strings.Contains(meta["next"].(string), "page=3") || !strings.Contains(meta["previous"].(string), "page=1") {
		t.Fatalf("meta=%v", meta)
	}
}

func TestSearch_DefaultsToFirstPage(t *testing.T) {
	s := &fakeSearch{res: model.SearchResult{Results: []model.Place{}}}
	rr := do(t, mux(s, nil, nil), http.MethodGet, "/search?lat=1&lon=2", "")
	if rr.Code != http.StatusOK || s.got.Page != 1 {
		t.Fatalf("code=%d page=%d", rr.Code, s.got.Page)
	}
	meta := decode(t, rr)["meta"].(map[string]any)
	if _, ok := meta["next"]; ok {
		t.Fatalf("no next link expected: %v", meta)
	}
}

func TestSearch_BadParams(t *testing.T) {
	cases := []string{
		"/search?lon=2",
		"/search?lat=1",
		"/search?lat=abc&lon=2",
		"/search?lat=91&lon=2",
		"/search?lat=1&lon=2&sortby=added",
		"/search?lat=1&lon=2&page=0",
		"/search?lat=1&lon=2&limit=10",
	}
	for _, target := range cases {
		s := &fakeSearch{}
		rr := do(t, mux(s, nil, nil), http.MethodGet, target, "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: code=%d body=%s", target, rr.Code, rr.Body.String())
		}
		if body := decode(t, rr); body["statusCode"] != float64(400) || body["error"] != "Bad Request" {
			t.Fatalf("%s: envelope=%v", target, body)
		}
	}
}

func TestSearch_UpstreamErrorIs502(t *testing.T) {
	s := &fakeSearch{err: fmt.Errorf("fetch: %w", places.ErrStaleToken)}
	rr := do(t, mux(s, nil, nil), http.MethodGet, "/search?lat=1&lon=2", "")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("code=%d", rr.Code)
	}

	s = &fakeSearch{err: errors.New("boom")}
	rr = do(t, mux(s, nil, nil), http.MethodGet, "/search?lat=1&lon=2", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d", rr.Code)
	}
}

func TestFavorites_Add(t *testing.T) {
	f := &fakeFavorites{}
	rr := do(t, mux(nil, f, nil), http.MethodPost, "/favorites/abc", "")
	if rr.Code != http.StatusCreated || f.user != "u1" || f.place != "abc" {
		t.Fatalf("code=%d user=%q place=%q", rr.Code, f.user, f.place)
	}
	if decode(t, rr)["id"] != "abc" {
		t.Fatalf("body=%s", rr.Body.String())
	}

	f.addErr = favorites.ErrAlreadyFavorite
	if rr := do(t, mux(nil, f, nil), http.MethodPost, "/favorites/abc", ""); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate code=%d", rr.Code)
	}
	f.addErr = fmt.Errorf("details: %w", places.ErrNotFound)
	if rr := do(t, mux(nil, f, nil), http.MethodPost, "/favorites/abc", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown place code=%d", rr.Code)
	}
}

func TestFavorites_Remove(t *testing.T) {
	f := &fakeFavorites{}
	if rr := do(t, mux(nil, f, nil), http.MethodDelete, "/favorites/abc", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("code=%d", rr.Code)
	}
	f.rmErr = favorites.ErrNotFound
	if rr := do(t, mux(nil, f, nil), http.MethodDelete, "/favorites/abc", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing code=%d", rr.Code)
	}
}

func TestFavorites_List(t *testing.T) {
	f := &fakeFavorites{list: favorites.ListResult{Results: []model.Place{{ID: "a"}, {ID: "b"}}, TotalCount: 5}}
	rr := do(t, mux(nil, f, nil), http.MethodGet, "/favorites?sortby=distance&lat=1&lon=2&limit=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rr.Code, rr.Body.String())
	}
	if f.listQ.Sort != model.SortDistance || f.listQ.Origin == nil || f.listQ.Limit != 2 || f.listQ.Page != 1 {
		t.Fatalf("list query=%+v", f.listQ)
	}
	body := decode(t, rr)
	if body["totalCount"] != float64(5) {
		t.Fatalf("body=%v", body)
	}
	if meta := body["meta"].(map[string]any); !strings.Contains(meta["next"].(string), "page=2") {
		t.Fatalf("meta=%v", meta)
	}
}

func TestFavorites_ListValidation(t *testing.T) {
	f := &fakeFavorites{}
	for _, target := range []string{
		"/favorites?sortby=distance",
		"/favorites?sortby=name",
		"/favorites?limit=101",
		"/favorites?page=0",
	} {
		if rr := do(t, mux(nil, f, nil), http.MethodGet, target, ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: code=%d", target, rr.Code)
		}
	}
	if rr := do(t, mux(nil, f, nil), http.MethodGet, "/favorites", ""); rr.Code != http.StatusOK || f.listQ.Sort != model.SortAdded {
		t.Fatalf("default list: code=%d sort=%v", rr.Code, f.listQ.Sort)
	}
}

func TestAuth_Handlers(t *testing.T) {
	a := &fakeAuth{}
	h := mux(nil, nil, a)

	rr := do(t, h, http.MethodPost, "/auth/register", `{"email":"a@b.co"}`)
	if rr.Code != http.StatusCreated || decode(t, rr)["jwt"] != "tok-r" {
		t.Fatalf("register code=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/auth/login", `{"username":"ana","password":"abc"}`)
	if rr.Code != http.StatusOK || decode(t, rr)["jwt"] != "tok-l" {
		t.Fatalf("login code=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/auth/logout", "")
	if rr.Code != http.StatusOK || a.ended.ID != "s1" {
		t.Fatalf("logout code=%d ended=%+v", rr.Code, a.ended)
	}
	if rr := do(t, h, http.MethodPost, "/auth/login", "not json"); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad body code=%d", rr.Code)
	}
}

func TestAuth_ErrorMapping(t *testing.T) {
	a := &fakeAuth{regErr: auth.ErrUserExists, loginErr: auth.ErrUnauthorized}
	h := mux(nil, nil, a)
	if rr := do(t, h, http.MethodPost, "/auth/register", `{}`); rr.Code != http.StatusConflict {
		t.Fatalf("register code=%d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/auth/login", `{}`); rr.Code != http.StatusUnauthorized {
		t.Fatalf("login code=%d", rr.Code)
	}
}
