package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperifyio/goferret/internal/fetch"
)

func TestNormalize_StatusText(t *testing.T) {
	err := fmt.Errorf("search github: %w", &fetch.StatusError{Status: 404, StatusText: "Not Found"})
	got := Normalize(err)
	if got.Code != 404 || got.Message != "Not Found" {
		t.Fatalf("got %+v, want {404 Not Found}", got)
	}
}

func TestNormalize_JSONBodyWins(t *testing.T) {
	err := &fetch.StatusError{Status: 404, StatusText: "Not Found", Body: []byte(`{"message":"bad provider"}`)}
	if got := Normalize(err); got.Code != 404 || got.Message != "bad provider" {
		t.Fatalf("got %+v, want {404 bad provider}", got)
	}

	err = &fetch.StatusError{Status: 500, StatusText: "Internal Server Error", Body: []byte(`cb({"error":"backend down"})`)}
	if got := Normalize(err); got.Message != "backend down" {
		t.Fatalf("error field should override status text, got %+v", got)
	}

	// message takes precedence over error
	err = &fetch.StatusError{Status: 400, Body: []byte(`{"message":"m","error":"e"}`)}
	if got := Normalize(err); got.Message != "m" {
		t.Fatalf("message should win over error, got %+v", got)
	}
}

func TestNormalize_NonStringAndGarbageBodies(t *testing.T) {
	err := &fetch.StatusError{Status: 502, StatusText: "Bad Gateway", Body: []byte(`{"error":{"code":1}}`)}
	if got := Normalize(err); got.Message != "Bad Gateway" {
		t.Fatalf("non-string error field should be ignored, got %+v", got)
	}
	err = &fetch.StatusError{Status: 502, Body: []byte(`<html>oops</html>`)}
	if got := Normalize(err); got.Code != 502 || got.Message != "unexpected status: 502" {
		t.Fatalf("expected generic transport message, got %+v", got)
	}
}

func TestNormalize_TransportAndNil(t *testing.T) {
	if got := Normalize(nil); got.Code != 0 || got.Message != "unknown error" {
		t.Fatalf("nil: got %+v", got)
	}
	if got := Normalize(context.DeadlineExceeded); got.Code != 0 || got.Message != "context deadline exceeded" {
		t.Fatalf("deadline: got %+v", got)
	}
	if got := Normalize(errors.New("   ")); got.Message != "unknown error" {
		t.Fatalf("blank error text: got %+v", got)
	}
}

func TestErrorInfo_String(t *testing.T) {
	if s := (ErrorInfo{Code: 404, Message: "Not Found"}).String(); s != "Not Found (404)" {
		t.Fatalf("unexpected %q", s)
	}
}
