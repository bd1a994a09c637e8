// Command prewarm fills the page cache for one query by walking its pages
// through the search service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/favplaces/internal/cache"
	_ "github.com/mohammed-shakir/favplaces/internal/cache/memstore"
	_ "github.com/mohammed-shakir/favplaces/internal/cache/rediscache"
	"github.com/mohammed-shakir/favplaces/internal/core/config"
	"github.com/mohammed-shakir/favplaces/internal/core/httpclient"
	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/core/validation"
	"github.com/mohammed-shakir/favplaces/internal/logger"
	"github.com/mohammed-shakir/favplaces/internal/places"
	"github.com/mohammed-shakir/favplaces/internal/search"
)

func main() {
	os.Exit(run())
}

type params struct {
	Lat    *float64 `json:"lat" validate:"required,latitude"`
	Lon    *float64 `json:"lon" validate:"required,longitude"`
	Text   string   `json:"text" validate:"max=256"`
	SortBy string   `json:"sortby" validate:"omitempty,oneof=rating distance"`
	Pages  int      `json:"pages" validate:"min=1"`
}

// parseArgs reads the flags into a validated query and page budget.
func parseArgs(args []string, defPages int) (model.Query, int, error) {
	fs := flag.NewFlagSet("prewarm", flag.ContinueOnError)
	lat := fs.Float64("lat", 0, "origin latitude (required)")
	lon := fs.Float64("lon", 0, "origin longitude (required)")
	text := fs.String("text", "", "free-text filter")
	sortBy := fs.String("sortby", "", "rating or distance")
	pages := fs.Int("pages", defPages, "max pages to fetch")
	if err := fs.Parse(args); err != nil {
		return model.Query{}, 0, err
	}

	p := params{Text: *text, SortBy: strings.TrimSpace(*sortBy), Pages: *pages}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			p.Lat = lat
		case "lon":
			p.Lon = lon
		}
	})
	if err := validation.Struct(&p); err != nil {
		return model.Query{}, 0, err
	}
	return model.Query{
		Origin: &model.LatLng{Latitude: *p.Lat, Longitude: *p.Lon},
		Text:   p.Text,
		Sort:   model.ParseSortMode(p.SortBy),
	}, p.Pages, nil
}

func run() int {
	cfg := config.FromEnv()

	q, pages, err := parseArgs(os.Args[1:], cfg.Places.MaxPages)
	if err != nil {
		fmt.Fprintln(os.Stderr, "prewarm:", err)
		return 2
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   true,
		Service:   "favplaces",
		Component: "prewarm",
	}, os.Stderr)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := cache.New(ctx, cfg.CacheDriver, cfg, appLog)
	if err != nil {
		appLog.Error("page cache setup failed", "err", err)
		return 1
	}
	client, err := places.New(cfg.Places, appLog, httpclient.NewOutbound(cfg.Places.Timeout, cfg.Places.RPS))
	if err != nil {
		appLog.Error("places client setup failed", "err", err)
		return 1
	}
	svc := search.New(cache.NewPages(st), client, appLog, search.WithPageDelay(cfg.Places.PageDelay))

	res, err := svc.Prefetch(ctx, q, pages)
	if err != nil {
		appLog.Error("prefetch failed", "err", err, "pages", res.Pages)
		return 1
	}
	fmt.Printf("pages=%d places=%d has_more=%t\n", res.Pages, res.Places, res.HasMore)
	return 0
}
