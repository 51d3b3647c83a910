// Package clients provides one HTTP adapter per downstream service: the
// graph builder, the motif miner, and the annotation service. Each adapter
// builds its outbound request, enforces its configured timeout, validates the
// response shape, and normalizes every transport or parsing failure into a
// stage outcome. Adapters never retry; retry policy lives with the caller.
package clients

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/daniel/graph-integrator/internal/outcome"
)

// maxErrorBody caps how much of a remote error body is carried for
// diagnostics.
const maxErrorBody = 4 << 10

// transportFailure maps a failed HTTP round trip to a stage error. Timeouts
// are distinguished from every other transport fault.
func transportFailure(service string, err error) *outcome.Error {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return &outcome.Error{
			Kind:    outcome.KindTimeout,
			Message: service + " request timed out",
		}
	}
	return &outcome.Error{
		Kind:    outcome.KindRemote,
		Message: service + " request failed: " + err.Error(),
	}
}

// remoteFailure records a non-success status together with the remote body.
func remoteFailure(service string, status int, body []byte) *outcome.Error {
	return &outcome.Error{
		Kind:    outcome.KindRemote,
		Message: service + " returned a non-success status",
		Status:  status,
		Body:    string(body),
	}
}

// invalidResponse records a success status whose payload failed shape
// validation.
func invalidResponse(service, detail string, body []byte) *outcome.Error {
	return &outcome.Error{
		Kind:    outcome.KindInvalidResponse,
		Message: service + ": " + detail,
		Body:    string(body),
	}
}

// readLimitedBody drains up to maxErrorBody bytes of a response body.
func readLimitedBody(r io.Reader) []byte {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return body
}

// success reports whether an HTTP status is in the 2xx range.
func success(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
