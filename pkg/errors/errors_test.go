package errors

import (
	"errors"
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
		{"app error wins", New(ErrInvalidScore, http.StatusTeapot, "x"), http.StatusTeapot},
		{"wrapped invalid input", fmt.Errorf("%w: q is empty", ErrInvalidInput), http.StatusBadRequest},
		{"nan score", fmt.Errorf("%w: NaN", ErrInvalidScore), http.StatusBadRequest},
		{"index not built", ErrIndexNotBuilt, http.StatusServiceUnavailable},
		{"collaborator", fmt.Errorf("judge: %w", ErrCollaborator), http.StatusBadGateway},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrIDMismatch, http.StatusBadRequest, "line %d: %q != %q", 3, "a", "b")
	if !errors.Is(err, ErrIDMismatch) {
		t.Error("AppError should unwrap to its sentinel")
	}
	if got, want := err.Error(), `record id mismatch: line 3: "a" != "b"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
