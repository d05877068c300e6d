// SPDX-License-Identifier: GPL-3.0-or-later

package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPScoringClientSubmitPostsReport(t *testing.T) {
	var gotPath string
	var gotBody FinalizeReport

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewScoringClient(srv.URL)
	err := client.Submit(context.Background(), FinalizeReport{
		SessionID: "session-1",
		Manifest:  &Manifest{SessionID: "session-1"},
		Yara:      &YaraResult{Severity: SeverityLow},
	})
	require.NoError(t, err)

	assert.Equal(t, "/score", gotPath)
	assert.Equal(t, "session-1", gotBody.SessionID)
	assert.Equal(t, SeverityLow, gotBody.Yara.Severity)
}

func TestHTTPScoringClientSubmitReturnsErrorOnFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewScoringClient(srv.URL)
	err := client.Submit(context.Background(), FinalizeReport{SessionID: "session-1"})
	assert.Error(t, err)
}
