package server

import (
	"net/http"

	"github.com/daniel/graph-integrator/internal/outcome"
)

// HTTPStatus maps a stage error to the status code the transport layer
// reports when the error is surfaced directly (the job-status proxy). The
// pipeline endpoints never use this: their results are structured payloads
// returned with 200.
func HTTPStatus(err *outcome.Error) int {
	switch err.Kind {
	case outcome.KindValidation:
		return http.StatusBadRequest
	case outcome.KindTimeout:
		return http.StatusGatewayTimeout
	case outcome.KindNotReady:
		return http.StatusConflict
	case outcome.KindRemote, outcome.KindInvalidResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
