// SPDX-License-Identifier: GPL-3.0-or-later

package fakenet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleOrderingIsStableByPriorityThenInsertion(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRule(Rule{ID: "low", Protocol: "*", MatchField: MatchAny, Pattern: ".*", Priority: 10}))
	require.NoError(t, rs.AddRule(Rule{ID: "high-a", Protocol: "*", MatchField: MatchAny, Pattern: ".*", Priority: 100}))
	require.NoError(t, rs.AddRule(Rule{ID: "high-b", Protocol: "*", MatchField: MatchAny, Pattern: ".*", Priority: 100}))

	_, id, _, matched := rs.Match("dns", Fields{Domain: "example.com"})
	require.True(t, matched)
	// "high-a" was inserted before "high-b" at the same priority.
	assert.Equal(t, "high-a", id)
}

func TestMatchIsDeterministic(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRule(Rule{ID: "evil", Protocol: "dns", MatchField: MatchDomain, Pattern: `evil\.com`, Priority: 100, Action: Action{Kind: ActionDrop}}))

	for i := 0; i < 5; i++ {
		action, id, _, matched := rs.Match("dns", Fields{Domain: "evil.com"})
		require.True(t, matched)
		assert.Equal(t, "evil", id)
		assert.Equal(t, ActionDrop, action.Kind)
	}
}

func TestMatchAnyFallsBackToEmptyString(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRule(Rule{ID: "catchall", Protocol: "*", MatchField: MatchAny, Pattern: ".*", Priority: 1}))

	_, id, _, matched := rs.Match("http", Fields{})
	require.True(t, matched)
	assert.Equal(t, "catchall", id)
}

func TestHigherPriorityWinsOverLower(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRule(Rule{ID: "generic", Protocol: "dns", MatchField: MatchDomain, Pattern: ".*", Priority: 1}))
	require.NoError(t, rs.AddRule(Rule{ID: "specific", Protocol: "dns", MatchField: MatchDomain, Pattern: `evil\.com`, Priority: 100}))

	_, id, _, matched := rs.Match("dns", Fields{Domain: "evil.com"})
	require.True(t, matched)
	assert.Equal(t, "specific", id)
}

func TestNoMatchReturnsFalse(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRule(Rule{ID: "x", Protocol: "dns", MatchField: MatchDomain, Pattern: `evil\.com`, Priority: 1}))

	_, _, _, matched := rs.Match("dns", Fields{Domain: "benign.com"})
	assert.False(t, matched)
}
