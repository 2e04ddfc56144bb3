package gateway

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/simedi/gateway/internal/platform/ledger"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrNotFound        = errors.New("record not found")
	ErrMalformedRecord = errors.New("malformed record")
	ErrUnsupported     = errors.New("operation not supported for this record kind")
)

// HTTPError maps a gateway or ledger error onto an HTTP error for handlers.
func HTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnsupported):
		return echo.NewHTTPError(http.StatusMethodNotAllowed, err.Error())
	case errors.Is(err, ledger.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "ledger did not answer in time")
	case errors.Is(err, ledger.ErrEndorsement):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrOrdering):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrMalformedRecord),
		errors.Is(err, ledger.ErrCommitStatus),
		errors.Is(err, ledger.ErrCommunication):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
