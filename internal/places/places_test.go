package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/mohammed-shakir/favplaces/internal/core/config"
	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/logger"
)

type recorder struct {
	mu      sync.Mutex
	paths   []string
	queries []url.Values
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, req.URL.Path)
	r.queries = append(r.queries, req.URL.Query())
}

func (r *recorder) last(t *testing.T) url.Values {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queries) == 0 {
		t.Fatalf("no upstream calls recorded")
	}
	return r.queries[len(r.queries)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.PlacesCfg{
		BaseURL:      srv.URL + "/maps/api/place",
		APIKey:       "k",
		Radius:       5000,
		DetailsCache: 8,
	}, logger.Discard(), srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, rec
}

func okBody(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestFetchPage_FreshUnrankedQuery(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		okBody(w, `{"status":"OK","results":[{"place_id":"p1","name":"Taqueria","types":["restaurant"],"geometry":{"location":{"lat":19.42,"lng":-99.17}}}]}`)
	})

	page, err := c.FetchPage(context.Background(), Params{
		Origin: &model.LatLng{Latitude: 19.41, Longitude: -99.17},
		Text:   "tacos",
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Results) != 1 || page.NextPageToken != "" {
		t.Fatalf("unexpected page: %+v", page)
	}

	q := rec.last(t)
	if rec.paths[0] != "/maps/api/place/nearbysearch/json" {
		t.Fatalf("path=%s", rec.paths[0])
	}
	if q.Get("location") != "19.41,-99.17" || q.Get("name") != "tacos" || q.Get("radius") != "5000" || q.Get("key") != "k" {
		t.Fatalf("unexpected query: %v", q)
	}
	if q.Has("rankby") || q.Has("pagetoken") {
		t.Fatalf("fresh unranked query must not carry rankby/pagetoken: %v", q)
	}
}

func TestFetchPage_RankedOmitsRadius(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		okBody(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})

	_, err := c.FetchPage(context.Background(), Params{
		Origin: &model.LatLng{Latitude: 1, Longitude: 2},
		Sort:   model.SortDistance,
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	q := rec.last(t)
	if q.Has("radius") {
		t.Fatalf("ranked query must omit radius: %v", q)
	}
	if q.Get("rankby") != "distance" || q.Get("location") != "1,2" {
		t.Fatalf("unexpected query: %v", q)
	}
}

func TestFetchPage_ResumptionSendsOnlyToken(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		okBody(w, `{"status":"OK","results":[],"next_page_token":"t3"}`)
	})

	page, err := c.FetchPage(context.Background(), Params{
		Origin:    &model.LatLng{Latitude: 1, Longitude: 2},
		Text:      "ignored",
		Sort:      model.SortRating,
		PageToken: "t2",
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.NextPageToken != "t3" {
		t.Fatalf("next token=%q", page.NextPageToken)
	}
	q := rec.last(t)
	if len(q) != 2 || q.Get("pagetoken") != "t2" || q.Get("key") != "k" {
		t.Fatalf("resumption must send only {pagetoken,key}: %v", q)
	}
}

func TestFetchPage_RejectedTokenIsStale(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		okBody(w, `{"status":"INVALID_REQUEST","results":[]}`)
	})

	_, err := c.FetchPage(context.Background(), Params{PageToken: "expired"})
	if !errors.Is(err, ErrStaleToken) || !errors.Is(err, ErrUpstream) {
		t.Fatalf("err=%v want ErrStaleToken wrapping ErrUpstream", err)
	}

	_, err = c.FetchPage(context.Background(), Params{Text: "x"})
	if errors.Is(err, ErrStaleToken) || !errors.Is(err, ErrUpstream) {
		t.Fatalf("fresh invalid request: err=%v", err)
	}
}

func TestFetchPage_TransportFailures(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	if _, err := c.FetchPage(context.Background(), Params{Text: "x"}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("non-2xx: err=%v", err)
	}

	c2, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		okBody(w, `{not json`)
	})
	if _, err := c2.FetchPage(context.Background(), Params{Text: "x"}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("malformed body: err=%v", err)
	}

	c3, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		okBody(w, `{"status":"OVER_QUERY_LIMIT"}`)
	})
	if _, err := c3.FetchPage(context.Background(), Params{Text: "x"}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("provider status: err=%v", err)
	}
}

func TestFetchPage_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	for range 10 {
		_, _ = c.FetchPage(context.Background(), Params{Text: "x"})
	}
	before := rec.count()
	_, err := c.FetchPage(context.Background(), Params{Text: "x"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err=%v want ErrUpstream", err)
	}
	if rec.count() != before {
		t.Fatalf("open breaker must not reach upstream")
	}
}

func TestFetchPage_CallerCancellationKeepsBreakerClosed(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		okBody(w, `{"status":"OK","results":[]}`)
	})
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for range 10 {
		if _, err := c.FetchPage(canceled, Params{Text: "x"}); !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v want context.Canceled", err)
		}
	}

	before := rec.count()
	if _, err := c.FetchPage(context.Background(), Params{Text: "x"}); err != nil {
		t.Fatalf("healthy upstream rejected after caller cancellations: %v", err)
	}
	if rec.count() != before+1 {
		t.Fatalf("request did not reach upstream")
	}
}

func TestDetails_CachedInLRU(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		okBody(w, `{"status":"OK","result":{"place_id":"p9","name":"Cafe","rating":4.5,"types":["cafe"],"geometry":{"location":{"lat":1,"lng":2}}}}`)
	})

	for range 2 {
		p, err := c.Details(context.Background(), "p9")
		if err != nil {
			t.Fatalf("Details: %v", err)
		}
		if p.ID != "p9" || p.Rating != 4.5 || p.Distance != nil {
			t.Fatalf("unexpected place: %+v", p)
		}
	}
	if rec.count() != 1 {
		t.Fatalf("upstream calls=%d want 1", rec.count())
	}
	q := rec.last(t)
	if rec.paths[0] != "/maps/api/place/details/json" || q.Get("place_id") != "p9" {
		t.Fatalf("unexpected details call %s %v", rec.paths[0], q)
	}
}

func TestDetails_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		okBody(w, `{"status":"NOT_FOUND"}`)
	})
	if _, err := c.Details(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	if _, err := New(config.PlacesCfg{BaseURL: "not a url"}, logger.Discard(), nil); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}
