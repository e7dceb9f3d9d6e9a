package ragbot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Health fetches the aggregated server health. A degraded or failing server
// answers 503 with the same body; that is reported as a status, not an error.
func (c *Client) Health(ctx context.Context) (_ HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	resp, err := c.do(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, decodeAPIError(resp)
	}

	var hs HealthStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&hs); err != nil {
		return HealthStatus{}, fmt.Errorf("ragbot: decode health: %w", err)
	}
	return hs, nil
}
