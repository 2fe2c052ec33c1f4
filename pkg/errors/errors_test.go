package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", Invalidf("bad interval %s", "1:5-2"), http.StatusBadRequest},
		{"wrapped app error", fmt.Errorf("loading: %w", NotFoundf("no variant")), http.StatusNotFound},
		{"missing samples sentinel", fmt.Errorf("resolve: %w", ErrMissingSamples), http.StatusBadRequest},
		{"timeout sentinel", fmt.Errorf("query: %w", ErrTimeout), http.StatusGatewayTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Newf(ErrMissingSamples, http.StatusBadRequest, "missing: %s", "S1, S2"))
	if got := Message(err); got != "missing: S1, S2" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(fmt.Errorf("x")); got != "internal error" {
		t.Errorf("Message() = %q, want internal error", got)
	}
}
