package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/simedi/gateway/internal/platform/ledger"
)

func TestHTTPError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("%w: id is required", ErrInvalidInput), http.StatusBadRequest},
		{"invalid query", ErrInvalidQuery, http.StatusBadRequest},
		{"not found", fmt.Errorf("read x: %w", ErrNotFound), http.StatusNotFound},
		{"unsupported", ErrUnsupported, http.StatusMethodNotAllowed},
		{"malformed", ErrMalformedRecord, http.StatusBadGateway},
		{"endorse", &ledger.Error{Stage: ledger.StageEndorse}, http.StatusConflict},
		{"ordering", &ledger.Error{Stage: ledger.StageSubmit}, http.StatusServiceUnavailable},
		{"commit status", &ledger.Error{Stage: ledger.StageCommitStatus}, http.StatusBadGateway},
		{"communication", &ledger.Error{Stage: ledger.StageEvaluate}, http.StatusBadGateway},
		{"timeout", &ledger.Error{Stage: ledger.StageEndorse, Timeout: true}, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			he := HTTPError(tc.err)
			if he.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, he.Code)
			}
		})
	}
}
