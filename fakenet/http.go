// SPDX-License-Identifier: GPL-3.0-or-later

package fakenet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/loonaro/sandbox/telemetry"
)

// HTTPConfig configures the HTTP service.
type HTTPConfig struct {
	// BindAddr is the TCP bind address. Defaults to "0.0.0.0:80".
	BindAddr string

	Rules  *RuleSet
	Bus    *Bus
	Logger telemetry.SLogger
}

// HTTPService answers guest HTTP traffic. For each accepted
// connection it drives exactly one request/response cycle.
type HTTPService struct {
	cfg HTTPConfig
}

// NewHTTPService constructs a [*HTTPService] from cfg, defaulting an
// empty BindAddr to "0.0.0.0:80".
func NewHTTPService(cfg HTTPConfig) *HTTPService {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "0.0.0.0:80"
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.DefaultSLogger()
	}
	return &HTTPService{cfg: cfg}
}

// ListenAndServe binds the TCP socket and serves until ctx is done or a
// fatal socket error occurs.
func (s *HTTPService) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handle(conn)
	}
}

func (s *HTTPService) handle(conn net.Conn) {
	defer conn.Close()

	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		s.cfg.Logger.Info("fakenetHttpParseError", slog.Any("err", err))
		return
	}
	defer req.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(req.Body, 1<<20))

	headers := map[string]string{}
	for k := range req.Header {
		headers[k] = req.Header.Get(k)
	}

	action, ruleID, tags, matched := s.cfg.Rules.Match("http", Fields{
		URI:       req.URL.RequestURI(),
		Host:      req.Host,
		UserAgent: req.UserAgent(),
		Body:      string(body),
	})

	ev := ProtocolEvent{
		SourceEndpoint: conn.RemoteAddr().String(),
		Protocol:       "http",
		Http: &HttpPayload{
			Method:      req.Method,
			URI:         req.URL.RequestURI(),
			Host:        req.Host,
			UserAgent:   req.UserAgent(),
			ContentType: req.Header.Get("Content-Type"),
			BodySize:    len(body),
			BodyPreview: bodyPreview(body),
			Headers:     headers,
		},
		MatchedRuleID: ruleID,
		Tags:          tags,
	}

	var summary string
	if matched {
		summary = s.applyAction(conn, req, action)
	} else {
		summary = s.defaultReply(conn, req)
	}
	ev.ResponseSummary = summary
	s.cfg.Bus.Publish(ev)
}

func (s *HTTPService) applyAction(conn net.Conn, req *http.Request, action Action) string {
	switch action.Kind {
	case ActionHTTPResponse:
		writeResponse(conn, action.Status, action.Body, action.Headers)
		return fmt.Sprintf("HTTP %d", action.Status)
	case ActionServeFile:
		data, err := os.ReadFile(action.FilePath)
		if err != nil {
			writeResponse(conn, http.StatusNotFound, []byte("not found"), nil)
			return "SERVE_FILE_ERROR"
		}
		writeResponse(conn, http.StatusOK, data, nil)
		return fmt.Sprintf("SERVED_FILE %s", action.FilePath)
	case ActionDrop:
		conn.Close()
		return "DROPPED"
	case ActionDelay:
		time.Sleep(action.Delay)
		if action.Then != nil {
			return s.applyAction(conn, req, *action.Then)
		}
		return s.defaultReply(conn, req)
	default:
		return s.defaultReply(conn, req)
	}
}

// decoyHeaders are the fixed headers attached to every [ActionHTTPResponse]
// reply, unless overridden by the rule's own headers.
var decoyHeaders = map[string]string{
	"Server":         "Apache/2.4.41 (Ubuntu)",
	"X-Powered-By":   "PHP/7.4.3",
}

func writeResponse(conn net.Conn, status int, body []byte, extra map[string]string) {
	if status == 0 {
		status = http.StatusOK
	}
	w := bufio.NewWriter(conn)
	fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	for k, v := range decoyHeaders {
		if _, overridden := extra[k]; overridden {
			continue
		}
		fmt.Fprintf(w, "%s: %s\r\n", k, v)
	}
	for k, v := range extra {
		fmt.Fprintf(w, "%s: %s\r\n", k, v)
	}
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(body))
	w.Write(body)
	w.Flush()
}

// defaultReply generates a content-type-aware default reply from URI
// substrings when no rule matches.
func (s *HTTPService) defaultReply(conn net.Conn, req *http.Request) string {
	uri := strings.ToLower(req.URL.Path)

	var body []byte
	var contentType string
	var summary string

	switch {
	case strings.Contains(uri, ".exe") || strings.Contains(uri, ".dll") || strings.Contains(uri, ".bin"):
		body = []byte{0x4D, 0x5A, 0x90, 0x00} // MZ stub
		contentType = "application/octet-stream"
		summary = "DEFAULT_BINARY_STUB"
	case req.Method == http.MethodPost || strings.Contains(uri, "api"):
		body = []byte(`{"success":true,"data":{}}`)
		contentType = "application/json"
		summary = "DEFAULT_SUCCESS_JSON"
	case strings.Contains(uri, "gate") || strings.Contains(uri, "panel") ||
		strings.Contains(uri, "check") || strings.Contains(uri, ".php"):
		body = []byte(`{"cmd":"none","sleep":60}`)
		contentType = "application/json"
		summary = "DEFAULT_COMMAND_JSON"
	case strings.Contains(uri, "update") || strings.Contains(uri, "config"):
		body = []byte(`{"version":"1.0.0","update":false}`)
		contentType = "application/json"
		summary = "DEFAULT_UPDATE_JSON"
	case strings.Contains(uri, ".js") || strings.Contains(uri, ".css"):
		body = []byte("/* */")
		contentType = "text/javascript"
		summary = "DEFAULT_EMPTY_SCRIPT"
	default:
		body = []byte("<html><body>It works!</body></html>")
		contentType = "text/html"
		summary = "DEFAULT_HTML"
	}

	writeResponse(conn, http.StatusOK, body, map[string]string{"Content-Type": contentType})
	return summary
}
