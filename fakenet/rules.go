// SPDX-License-Identifier: GPL-3.0-or-later

package fakenet

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"
)

// ActionKind identifies the variant of [Action].
type ActionKind string

// Action kinds a RuleSet entry can take.
const (
	ActionResolveDNS    ActionKind = "resolve"
	ActionHTTPResponse  ActionKind = "http_response"
	ActionServeFile     ActionKind = "serve_file"
	ActionProxy         ActionKind = "proxy"
	ActionDrop          ActionKind = "drop"
	ActionDelay         ActionKind = "delay"
	ActionError         ActionKind = "error"
)

// Action describes what a matched rule does.
type Action struct {
	Kind ActionKind

	// ResolveIP is used by [ActionResolveDNS].
	ResolveIP string

	// Status and Body are used by [ActionHTTPResponse].
	Status int
	Body   []byte
	// Headers are additional response headers for [ActionHTTPResponse],
	// layered on top of the fixed decoy headers.
	Headers map[string]string

	// FilePath is used by [ActionServeFile].
	FilePath string

	// ProxyTarget is the "host:port" an [ActionProxy] rule names. The
	// HTTP service does not relay: it answers [ActionProxy] rules with
	// its default reply.
	ProxyTarget string

	// Delay and Then are used by [ActionDelay]: sleep Delay, then apply Then.
	Delay time.Duration
	Then  *Action

	// ErrorMessage is the message an [ActionError] rule carries. The
	// HTTP service answers [ActionError] rules with its default reply
	// and does not send this message.
	ErrorMessage string
}

// MatchField selects which field of a request a [Rule]'s pattern tests
// against.
type MatchField string

const (
	MatchDomain    MatchField = "domain"
	MatchURI       MatchField = "uri"
	MatchHost      MatchField = "host"
	MatchUserAgent MatchField = "user_agent"
	MatchBody      MatchField = "body"
	MatchAny       MatchField = "any"
)

// Rule is one entry of a [RuleSet].
type Rule struct {
	ID         string
	Protocol   string // "dns", "http", or "*"
	MatchField MatchField
	Pattern    string // regular-expression source
	Action     Action
	Priority   int
	Tags       []string

	compiled *regexp.Regexp
	seq      int // insertion order, used as the stable tiebreak
}

// RuleSet is the priority-ordered, compiled-once rule list.
//
// Evaluation order is stable descending priority with insertion-order
// tiebreak: ties never resolve non-deterministically.
//
// Reads ([RuleSet.Match]) take a shared lock; writes ([RuleSet.AddRule])
// are exclusive.
type RuleSet struct {
	mu    sync.RWMutex
	rules []*Rule
	next  int
}

// NewRuleSet returns an empty [*RuleSet].
func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

// AddRule compiles rule.Pattern, appends the rule, and re-sorts the set by
// descending priority with insertion-order tiebreak.
func (rs *RuleSet) AddRule(rule Rule) error {
	compiled, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return fmt.Errorf("fakenet: compile rule %q pattern %q: %w", rule.ID, rule.Pattern, err)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	rule.compiled = compiled
	rule.seq = rs.next
	rs.next++
	rs.rules = append(rs.rules, &rule)
	sort.SliceStable(rs.rules, func(i, j int) bool {
		if rs.rules[i].Priority != rs.rules[j].Priority {
			return rs.rules[i].Priority > rs.rules[j].Priority
		}
		return rs.rules[i].seq < rs.rules[j].seq
	})
	return nil
}

// Fields is the set of request fields a [RuleSet.Match] call can test
// against.
type Fields struct {
	Domain    string
	URI       string
	Host      string
	UserAgent string
	Body      string
}

func (f Fields) value(field MatchField) string {
	switch field {
	case MatchDomain:
		return f.Domain
	case MatchURI:
		return f.URI
	case MatchHost:
		return f.Host
	case MatchUserAgent:
		return f.UserAgent
	case MatchBody:
		return f.Body
	default:
		return ""
	}
}

// anyOrder is the field try-order for [MatchAny]: domain, uri,
// host, user-agent in that order, falling back to the empty string so a
// bare pattern like ".*" still matches.
var anyOrder = []MatchField{MatchDomain, MatchURI, MatchHost, MatchUserAgent}

// Match selects the first rule, in priority order, whose protocol is
// protocol or "*" and whose match field matches fields.
//
// Match is a pure function of (protocol, fields, rule list): the same
// inputs always yield the same result.
func (rs *RuleSet) Match(protocol string, fields Fields) (action Action, ruleID string, tags []string, matched bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	for _, rule := range rs.rules {
		if rule.Protocol != "*" && rule.Protocol != protocol {
			continue
		}
		if rule.MatchField == MatchAny {
			ok := false
			for _, field := range anyOrder {
				if rule.compiled.MatchString(fields.value(field)) {
					ok = true
					break
				}
			}
			if !ok && rule.compiled.MatchString("") {
				ok = true
			}
			if !ok {
				continue
			}
		} else if !rule.compiled.MatchString(fields.value(rule.MatchField)) {
			continue
		}
		return rule.Action, rule.ID, rule.Tags, true
	}
	return Action{}, "", nil, false
}

// Rules returns a snapshot of the current rule list in evaluation order.
// Used by callers that need to inspect the set (tests, diagnostics); the
// returned slice must not be mutated.
func (rs *RuleSet) Rules() []Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]Rule, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = *r
	}
	return out
}
