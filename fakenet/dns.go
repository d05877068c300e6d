// SPDX-License-Identifier: GPL-3.0-or-later

package fakenet

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"github.com/miekg/dns"

	"github.com/loonaro/sandbox/telemetry"
)

// DNSConfig configures the DNS service.
type DNSConfig struct {
	// BindAddr is the UDP bind address. Defaults to "0.0.0.0:53".
	BindAddr string

	// DefaultIP is returned for A queries that match no rule.
	DefaultIP string

	Rules  *RuleSet
	Bus    *Bus
	Logger telemetry.SLogger
}

// DNSService answers guest DNS traffic over UDP.
type DNSService struct {
	cfg  DNSConfig
	conn net.PacketConn
}

// NewDNSService constructs a [*DNSService] from cfg, defaulting an empty
// BindAddr to "0.0.0.0:53".
func NewDNSService(cfg DNSConfig) *DNSService {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "0.0.0.0:53"
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.DefaultSLogger()
	}
	return &DNSService{cfg: cfg}
}

// ListenAndServe binds the UDP socket and serves until ctx is done or a
// fatal socket error occurs.
func (s *DNSService) ListenAndServe(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.cfg.BindAddr)
	if err != nil {
		return err
	}
	s.conn = conn
	defer conn.Close()
	return s.serve(ctx)
}

// serve runs the read loop against the already-bound s.conn. Split out of
// [DNSService.ListenAndServe] so tests can bind a socket, inspect its
// ephemeral port, and drive the loop directly.
func (s *DNSService) serve(ctx context.Context) error {
	conn := s.conn
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 4096)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		query := make([]byte, n)
		copy(query, buf[:n])
		go s.handle(addr, query)
	}
}

func (s *DNSService) handle(addr net.Addr, raw []byte) {
	var req dns.Msg
	if err := req.Unpack(raw); err != nil {
		s.cfg.Logger.Info("fakenetDnsParseError", slog.Any("err", err))
		return
	}
	if len(req.Question) == 0 {
		return
	}
	q := req.Question[0]
	domain := strings.TrimSuffix(q.Name, ".")

	action, ruleID, tags, matched := s.cfg.Rules.Match("dns", Fields{Domain: domain})

	ev := ProtocolEvent{
		SourceEndpoint: addr.String(),
		Protocol:       "dns",
		Dns:            &DnsPayload{Domain: domain, Qtype: q.Qtype},
		MatchedRuleID:  ruleID,
		Tags:           tags,
	}

	if matched && action.Kind == ActionDrop {
		ev.ResponseSummary = "DROPPED"
		s.cfg.Bus.Publish(ev)
		return
	}

	// Only A-type queries receive a synthesized answer; other qtypes are
	// observed but no response is generated.
	if q.Qtype != dns.TypeA {
		ev.ResponseSummary = "OBSERVED"
		s.cfg.Bus.Publish(ev)
		return
	}

	responseIP := s.cfg.DefaultIP
	if matched && action.Kind == ActionResolveDNS && action.ResolveIP != "" {
		responseIP = action.ResolveIP
	}
	if responseIP == "" {
		ev.ResponseSummary = "NO_MATCH_NO_DEFAULT"
		s.cfg.Bus.Publish(ev)
		return
	}

	reply := buildAReply(&req, responseIP)
	packed, err := reply.Pack()
	if err != nil {
		s.cfg.Logger.Info("fakenetDnsPackError", slog.Any("err", err))
		return
	}
	if _, err := s.conn.WriteTo(packed, addr); err != nil {
		s.cfg.Logger.Info("fakenetDnsWriteError", slog.Any("err", err))
		return
	}

	ev.Dns.ResponseIP = responseIP
	ev.ResponseSummary = "RESOLVED " + responseIP
	s.cfg.Bus.Publish(ev)
}

// buildAReply synthesizes an A reply by copying the query, setting
// response flags (standard response + recursion available), and appending
// a single A answer with TTL 60.
func buildAReply(query *dns.Msg, ip string) *dns.Msg {
	reply := new(dns.Msg)
	reply.SetReply(query)
	reply.RecursionAvailable = true
	reply.Answer = append(reply.Answer, &dns.A{
		Hdr: dns.RR_Header{
			Name:   query.Question[0].Name,
			Rrtype: dns.TypeA,
			Class:  dns.ClassINET,
			Ttl:    60,
		},
		A: net.ParseIP(ip).To4(),
	})
	return reply
}
