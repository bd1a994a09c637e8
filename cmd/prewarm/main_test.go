package main

import (
	"errors"
	"testing"

	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/core/validation"
)

func TestParseArgs_Valid(t *testing.T) {
	q, pages, err := parseArgs([]string{"-lat", "0", "-lon", "-99.17", "-text", "tacos", "-sortby", "distance"}, 3)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if pages != 3 || q.Sort != model.SortDistance || q.Text != "tacos" {
		t.Fatalf("q=%+v pages=%d", q, pages)
	}
	if q.Origin == nil || q.Origin.Latitude != 0 || q.Origin.Longitude != -99.17 {
		t.Fatalf("origin=%+v", q.Origin)
	}
}

func TestParseArgs_Rejects(t *testing.T) {
	cases := map[string][]string{
		"missing origin":   {"-text", "tacos"},
		"missing lon":      {"-lat", "19.4"},
		"bad latitude":     {"-lat", "91", "-lon", "2"},
		"bad longitude":    {"-lat", "1", "-lon", "181"},
		"unsupported sort": {"-lat", "1", "-lon", "2", "-sortby", "added"},
		"no pages":         {"-lat", "1", "-lon", "2", "-pages", "0"},
	}
	for name, args := range cases {
		var ve *validation.Error
		if _, _, err := parseArgs(args, 3); !errors.As(err, &ve) {
			t.Fatalf("%s: err=%v want validation error", name, err)
		}
	}
}
