// SPDX-License-Identifier: GPL-3.0-or-later

package fakenet

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPDefaultReplyForAPIPost(t *testing.T) {
	rs := NewRuleSet()
	bus := NewBus(nil)
	events, cancelSub := bus.Subscribe()
	defer cancelSub()

	svc := NewHTTPService(HTTPConfig{BindAddr: "127.0.0.1:0", Rules: rs, Bus: bus})
	ln, err := net.Listen("tcp", svc.cfg.BindAddr)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go svc.handle(conn)
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	req, err := http.NewRequest(http.MethodPost, "/api/check", nil)
	require.NoError(t, err)
	req.Host = "example.com"
	require.NoError(t, req.Write(conn))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, `{"success":true,"data":{}}`, string(body))

	select {
	case ev := <-events:
		require.Equal(t, "DEFAULT_SUCCESS_JSON", ev.ResponseSummary)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a protocol event")
	}
}
