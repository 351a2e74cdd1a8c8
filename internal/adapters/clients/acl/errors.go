package acl

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/library-catalog/internal/adapters/clients"
	"github.com/jsamuelsen/library-catalog/internal/domain"
)

// maxErrorBody caps how much of an error response is read for logging.
const maxErrorBody = 4 << 10

// MapClientError translates a failure from clients.Client into a domain error.
func MapClientError(err error, service, operation string) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(service, fmt.Sprintf("circuit breaker open during %s", operation))
	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return domain.NewUnavailableError(service, fmt.Sprintf("max retries exceeded during %s", operation))
	default:
		return domain.NewUnavailableError(service, fmt.Sprintf("%s failed: %v", operation, err))
	}
}

// MapStatus translates a non-2xx response into a domain error. entity and
// id name what was being looked up for not-found results.
func MapStatus(resp *http.Response, service, entity, id string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError(entity, id)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewUnavailableError(service, "rate limit exceeded")
	case resp.StatusCode >= http.StatusInternalServerError:
		return domain.NewUnavailableError(service, fmt.Sprintf("HTTP %d", resp.StatusCode))
	default:
		return domain.NewUnavailableError(service, fmt.Sprintf("unexpected HTTP %d", resp.StatusCode))
	}
}

// readErrorBody returns a bounded prefix of the body for diagnostics.
func readErrorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))

	return string(b)
}
