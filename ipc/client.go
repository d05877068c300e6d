// SPDX-License-Identifier: GPL-3.0-or-later

package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
)

// Client is the hook library's side of the handshake/config/events
// protocol: it dials the agent's named channel, sends the
// handshake, reads back the hook configuration, then streams one event
// document per line.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to the agent's named channel at path and performs the
// handshake, returning the [HookConfig] the agent replies with.
func Dial(path string, handshake Handshake) (*Client, HookConfig, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, HookConfig{}, err
	}
	c := &Client{conn: conn, reader: bufio.NewReader(conn)}

	line, err := json.Marshal(handshake)
	if err != nil {
		conn.Close()
		return nil, HookConfig{}, err
	}
	line = append(line, '\n')
	if _, err := conn.Write(line); err != nil {
		conn.Close()
		return nil, HookConfig{}, err
	}

	cfgLine, err := c.reader.ReadBytes('\n')
	if err != nil {
		conn.Close()
		return nil, HookConfig{}, fmt.Errorf("ipc: reading hook configuration: %w", err)
	}
	var cfg HookConfig
	if err := json.Unmarshal(cfgLine, &cfg); err != nil {
		conn.Close()
		return nil, HookConfig{}, fmt.Errorf("ipc: decoding hook configuration: %w", err)
	}
	return c, cfg, nil
}

// SendEvent writes one event document, tagged with eventType, to the
// agent.
func (c *Client) SendEvent(eventType string, fields any) error {
	doc := struct {
		EventType string `json:"event_type"`
	}{EventType: eventType}

	merged, err := mergeEventDoc(doc, fields)
	if err != nil {
		return err
	}
	merged = append(merged, '\n')
	_, err = c.conn.Write(merged)
	return err
}

// mergeEventDoc flattens fields into a single JSON object alongside
// event_type, so the server's generic [EventEnvelope] decoder sees one
// document rather than a nested "fields" key.
func mergeEventDoc(doc any, fields any) ([]byte, error) {
	base := map[string]any{}
	if err := remarshal(doc, &base); err != nil {
		return nil, err
	}
	extra := map[string]any{}
	if err := remarshal(fields, &extra); err != nil {
		return nil, err
	}
	for k, v := range extra {
		base[k] = v
	}
	return json.Marshal(base)
}

func remarshal(v any, out *map[string]any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
