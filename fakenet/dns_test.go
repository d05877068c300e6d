// SPDX-License-Identifier: GPL-3.0-or-later

package fakenet

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

func TestDNSResolveRuleRoundTrip(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRule(Rule{
		ID: "resolve", Protocol: "dns", MatchField: MatchDomain, Pattern: `^example\.com$`,
		Priority: 100, Action: Action{Kind: ActionResolveDNS, ResolveIP: "10.0.0.1"},
	}))
	bus := NewBus(nil)
	events, cancelSub := bus.Subscribe()
	defer cancelSub()

	svc := NewDNSService(DNSConfig{BindAddr: "127.0.0.1:0", Rules: rs, Bus: bus})
	ln, err := net.ListenPacket("udp", svc.cfg.BindAddr)
	require.NoError(t, err)
	svc.conn = ln
	addr := ln.LocalAddr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.serve(ctx)

	client, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer client.Close()

	query := new(dns.Msg)
	query.SetQuestion("example.com.", dns.TypeA)
	raw, err := query.Pack()
	require.NoError(t, err)
	_, err = client.Write(raw)
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 512)
	n, err := client.Read(buf)
	require.NoError(t, err)

	var resp dns.Msg
	require.NoError(t, resp.Unpack(buf[:n]))
	require.Len(t, resp.Answer, 1)
	a, ok := resp.Answer[0].(*dns.A)
	require.True(t, ok)
	require.Equal(t, []byte{10, 0, 0, 1}, []byte(a.A.To4()))
	require.Equal(t, uint32(60), a.Hdr.Ttl)

	select {
	case ev := <-events:
		require.Equal(t, "example.com", ev.Dns.Domain)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a protocol event")
	}
}

func TestDNSDropRuleSendsNoReply(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRule(Rule{
		ID: "drop", Protocol: "*", MatchField: MatchDomain, Pattern: `evil\.com`,
		Priority: 100, Action: Action{Kind: ActionDrop},
	}))
	bus := NewBus(nil)
	events, cancelSub := bus.Subscribe()
	defer cancelSub()

	svc := NewDNSService(DNSConfig{BindAddr: "127.0.0.1:0", Rules: rs, Bus: bus})
	ln, err := net.ListenPacket("udp", svc.cfg.BindAddr)
	require.NoError(t, err)
	svc.conn = ln
	addr := ln.LocalAddr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.serve(ctx)

	client, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer client.Close()

	query := new(dns.Msg)
	query.SetQuestion("evil.com.", dns.TypeA)
	raw, err := query.Pack()
	require.NoError(t, err)
	_, err = client.Write(raw)
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, "DROPPED", ev.ResponseSummary)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a dropped protocol event")
	}

	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 512)
	_, err = client.Read(buf)
	require.Error(t, err) // no reply: read times out
}
