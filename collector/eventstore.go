//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/httpslog/httpslog.go
//

package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/loonaro/sandbox/telemetry"
	"github.com/loonaro/sandbox/wire"
)

// MalwareEvent is the JSON body POSTed to the external event store for
// each decoded observation.
type MalwareEvent struct {
	EventID       string           `json:"event_id"`
	SessionID     string           `json:"session_id"`
	Discriminator string           `json:"discriminator"`
	Timestamp     uint64           `json:"timestamp"`
	PID           uint32           `json:"pid"`
	TID           uint32           `json:"tid"`
	Payload       []byte           `json:"payload,omitempty"`
	Header        wire.EventHeader `json:"-"`
}

// LifecycleState names a job's position in the session lifecycle.
type LifecycleState string

// Lifecycle states, POSTed as [JobLifecycleEvent] to the external store.
const (
	LifecycleCreated  LifecycleState = "CREATED"
	LifecycleRunning  LifecycleState = "RUNNING"
	LifecycleFinished LifecycleState = "FINISHED"
	LifecycleFailed   LifecycleState = "FAILED"
)

// JobLifecycleEvent is the JSON body POSTed to the external store on every
// session lifecycle transition.
type JobLifecycleEvent struct {
	SessionID string         `json:"session_id"`
	State     LifecycleState `json:"state"`
	Detail    string         `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventStoreClient POSTs decoded observations and lifecycle transitions to
// the external event store.
//
// A Client is safe for concurrent use: the underlying [http2.Transport]
// multiplexes POSTs over a small pool of connections the way an ordinary
// HTTP/2 client would, rather than the one-shot-connection wrapping
// [golang.org/x/net/http2] also supports.
type EventStoreClient struct {
	baseURL string
	apiKey  string

	httpClient *http.Client

	// ErrClassifier classifies transport errors for structured logging.
	ErrClassifier telemetry.ErrClassifier

	// Logger is the [telemetry.SLogger] to use.
	Logger telemetry.SLogger

	// TimeNow mocks [time.Now] for testing.
	TimeNow func() time.Time
}

// NewEventStoreClient returns an [*EventStoreClient] POSTing to baseURL
// with the given API key.
func NewEventStoreClient(baseURL, apiKey string, logger telemetry.SLogger) *EventStoreClient {
	if logger == nil {
		logger = telemetry.DefaultSLogger()
	}
	return &EventStoreClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Transport: &http2.Transport{
				AllowHTTP: false,
			},
		},
		ErrClassifier: telemetry.DefaultErrClassifier,
		Logger:        logger,
		TimeNow:       time.Now,
	}
}

// PostMalwareEvent POSTs a decoded observation to `{base}/ingest/MalwareEvent`.
func (c *EventStoreClient) PostMalwareEvent(ctx context.Context, ev MalwareEvent) error {
	if ev.EventID == "" {
		ev.EventID = telemetry.NewSpanID()
	}
	ev.Discriminator = ev.Header.Discriminator.String()
	ev.Timestamp = ev.Header.Timestamp
	ev.PID = ev.Header.PID
	ev.TID = ev.Header.TID
	return c.post(ctx, "/ingest/MalwareEvent", ev)
}

// PostJobLifecycleEvent POSTs a lifecycle transition to
// `{base}/ingest/JobLifecycleEvent`.
func (c *EventStoreClient) PostJobLifecycleEvent(ctx context.Context, ev JobLifecycleEvent) error {
	return c.post(ctx, "/ingest/JobLifecycleEvent", ev)
}

func (c *EventStoreClient) post(ctx context.Context, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("collector: marshal event store body: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("collector: build event store request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	t0 := c.TimeNow()
	c.Logger.Debug("eventStorePostStart", slog.String("url", url), slog.Time("t", t0))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Info("eventStorePostDone",
			slog.String("url", url),
			slog.Any("err", err),
			slog.String("errClass", c.ErrClassifier.Classify(err)),
			slog.Time("t0", t0),
			slog.Time("t", c.TimeNow()),
		)
		return fmt.Errorf("collector: POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.Logger.Debug("eventStorePostDone",
		slog.String("url", url),
		slog.Int("statusCode", resp.StatusCode),
		slog.Time("t0", t0),
		slog.Time("t", c.TimeNow()),
	)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("collector: POST %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

// CloseIdleConnections releases pooled connections held by the client's
// HTTP/2 transport.
func (c *EventStoreClient) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
