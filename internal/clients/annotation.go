package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/daniel/graph-integrator/internal/outcome"
)

// annotationType is the only annotation mode the pipeline requests: the
// service resolves the motif against the graph database by generated Cypher.
const annotationType = "cypher"

// AnnotationClient talks to the annotation service.
type AnnotationClient struct {
	endpoint string
	http     *http.Client
}

// NewAnnotationClient creates an annotation adapter. endpoint is the full
// URL to post selections to.
func NewAnnotationClient(endpoint string, timeout time.Duration) *AnnotationClient {
	return &AnnotationClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// annotateRequest is the annotation service's wire format. The correlation
// ID is the secondary (graph-database) job the motif was mined against.
type annotateRequest struct {
	CorrelationID string          `json:"correlation_id"`
	Type          string          `json:"type"`
	Motif         json.RawMessage `json:"motif"`
}

// Annotate sends the selected motif for enrichment and passes the service's
// JSON payload through unchanged.
func (c *AnnotationClient) Annotate(ctx context.Context, correlationID string, motif json.RawMessage) outcome.Outcome[json.RawMessage] {
	payload, err := json.Marshal(annotateRequest{
		CorrelationID: correlationID,
		Type:          annotationType,
		Motif:         motif,
	})
	if err != nil {
		return outcome.Failure[json.RawMessage](outcome.KindValidation, "annotation: failed to encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return outcome.Failure[json.RawMessage](outcome.KindValidation, "annotation: failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outcome.FailureErr[json.RawMessage](transportFailure("annotation", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if !success(resp.StatusCode) {
		return outcome.FailureErr[json.RawMessage](remoteFailure("annotation", resp.StatusCode, readLimitedBody(resp.Body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcome.FailureErr[json.RawMessage](transportFailure("annotation", err))
	}
	if !json.Valid(raw) {
		return outcome.FailureErr[json.RawMessage](invalidResponse("annotation", "response is not valid JSON", raw))
	}
	return outcome.Success(json.RawMessage(raw))
}
