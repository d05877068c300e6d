// SPDX-License-Identifier: GPL-3.0-or-later

package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// FinalizeReport is what the collector hands off at the end of a
// session: the artifact manifest and the YARA scan outcome, for a policy
// evaluator to turn into a verdict.
type FinalizeReport struct {
	SessionID string      `json:"session_id"`
	Manifest  *Manifest   `json:"manifest"`
	Yara      *YaraResult `json:"yara"`
}

// ScoringClient hands a session's finalize report to the scoring
// service.
//
// This is a declared interface, not a policy-script evaluator: no
// component in this repo's scope implements scoring itself.
type ScoringClient interface {
	Submit(ctx context.Context, report FinalizeReport) error
}

// httpScoringClient POSTs the finalize report as JSON to a scoring
// service listening on SCORING_PORT.
type httpScoringClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewScoringClient returns a [ScoringClient] POSTing to baseURL (typically
// `http://127.0.0.1:<SCORING_PORT>`).
func NewScoringClient(baseURL string) ScoringClient {
	return &httpScoringClient{baseURL: baseURL, httpClient: &http.Client{}}
}

// Submit implements [ScoringClient].
func (c *httpScoringClient) Submit(ctx context.Context, report FinalizeReport) error {
	buf, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("collector: marshal finalize report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("collector: build scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("collector: POST scoring request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("collector: scoring service returned status %d", resp.StatusCode)
	}
	return nil
}
