package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Email    string   `json:"email" validate:"required,email"`
	Username string   `json:"username" validate:"required,alphanum,min=3,max=30"`
	Confirm  string   `json:"passwordConfirm" validate:"eqfield=Username"`
	Lat      *float64 `query:"lat" validate:"omitempty,latitude"`
}

func TestStruct_OK(t *testing.T) {
	lat := 19.4
	if err := Struct(&sample{Email: "a@b.co", Username: "abc", Confirm: "abc", Lat: &lat}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_ReportsWireNames(t *testing.T) {
	lat := 91.0
	err := Struct(&sample{Email: "nope", Username: "a!", Confirm: "x", Lat: &lat})
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("err=%T want *Error", err)
	}
	want := []string{"email", "username", "passwordConfirm", "lat"}
	if len(ve.Fields) != len(want) {
		t.Fatalf("fields=%v want %v", ve.Fields, want)
	}
	for i, f := range want {
		if ve.Fields[i] != f {
			t.Fatalf("fields=%v want %v", ve.Fields, want)
		}
	}
	if !strings.Contains(ve.Message, `"email" must be a valid email`) {
		t.Fatalf("message=%q", ve.Message)
	}
}
