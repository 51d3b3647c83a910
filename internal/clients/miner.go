package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/daniel/graph-integrator/internal/outcome"
	"github.com/daniel/graph-integrator/internal/types"
)

// MinerClient talks to the motif mining service.
type MinerClient struct {
	baseURL string
	http    *http.Client
}

// NewMinerClient creates a miner adapter with the given per-call timeout.
func NewMinerClient(baseURL string, timeout time.Duration) *MinerClient {
	return &MinerClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// MineResult is the validated mining output: motifs is always a sequence and
// statistics is always present.
type MineResult struct {
	Motifs     []json.RawMessage `json:"motifs"`
	Statistics json.RawMessage   `json:"statistics"`
}

// Mine uploads the primary graph artifact together with the mining
// parameters and returns the discovered motifs. The response must contain a
// motifs sequence and a statistics object; anything else is an invalid
// response.
func (c *MinerClient) Mine(ctx context.Context, artifactPath string, cfg types.MiningConfig) outcome.Outcome[MineResult] {
	f, err := os.Open(artifactPath)
	if err != nil {
		return outcome.Failure[MineResult](outcome.KindValidation, "miner: primary artifact not found: %s", artifactPath)
	}
	defer func() { _ = f.Close() }()

	body, contentType, err := buildMineBody(f, filepath.Base(artifactPath), cfg)
	if err != nil {
		return outcome.Failure[MineResult](outcome.KindValidation, "miner: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mine", body)
	if err != nil {
		return outcome.Failure[MineResult](outcome.KindValidation, "miner: failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return outcome.FailureErr[MineResult](transportFailure("miner", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if !success(resp.StatusCode) {
		return outcome.FailureErr[MineResult](remoteFailure("miner", resp.StatusCode, readLimitedBody(resp.Body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcome.FailureErr[MineResult](transportFailure("miner", err))
	}
	return validateMineOutput(raw)
}

// validateMineOutput enforces the miner's response shape: a motifs field that
// is a JSON array and a statistics field that is present.
func validateMineOutput(raw []byte) outcome.Outcome[MineResult] {
	var probe struct {
		Motifs     json.RawMessage `json:"motifs"`
		Statistics json.RawMessage `json:"statistics"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return outcome.FailureErr[MineResult](invalidResponse("miner", "response is not valid JSON", raw))
	}
	if probe.Motifs == nil {
		return outcome.FailureErr[MineResult](invalidResponse("miner", "response is missing motifs", raw))
	}
	if probe.Statistics == nil {
		return outcome.FailureErr[MineResult](invalidResponse("miner", "response is missing statistics", raw))
	}

	var motifs []json.RawMessage
	if err := json.Unmarshal(probe.Motifs, &motifs); err != nil {
		return outcome.FailureErr[MineResult](invalidResponse("miner", "motifs is not a sequence", raw))
	}
	return outcome.Success(MineResult{Motifs: motifs, Statistics: probe.Statistics})
}

// buildMineBody assembles the multipart body: the artifact file plus the
// mining parameters as a JSON config field.
func buildMineBody(artifact io.Reader, filename string, cfg types.MiningConfig) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, artifact); err != nil {
		return nil, "", err
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("config", string(cfgJSON)); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
