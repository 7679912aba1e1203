package faq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitechat-ai/sitechat/internal/config"
)

func TestMatchFirstRuleWins(t *testing.T) {
	m := Load([]config.FAQRule{
		{Pattern: `(?i)ship|delivery`, Reply: "We ship worldwide."},
		{Pattern: `(?i)return|refund`, Reply: "Returns within 30 days."},
		{Pattern: `(?i)ship`, Reply: "never reached"},
	})

	reply, ok := m.Match("Do you SHIP to Canada?")
	require.True(t, ok)
	assert.Equal(t, "We ship worldwide.", reply)

	reply, ok = m.Match("how do refunds work")
	require.True(t, ok)
	assert.Equal(t, "Returns within 30 days.", reply)
}

func TestMatchNoRuleApplies(t *testing.T) {
	m := Load([]config.FAQRule{
		{Pattern: `(?i)ship`, Reply: "We ship worldwide."},
	})

	reply, ok := m.Match("what colors does the boot come in")
	assert.False(t, ok)
	assert.Empty(t, reply)
}

func TestMalformedPatternDisablesOnlyThatRule(t *testing.T) {
	m := Load([]config.FAQRule{
		{Pattern: `([unclosed`, Reply: "broken"},
		{Pattern: `(?i)payment`, Reply: "We accept cards."},
	})

	// The broken rule never fires, even on text containing its literal.
	_, ok := m.Match("([unclosed")
	assert.False(t, ok)

	reply, ok := m.Match("payment options?")
	require.True(t, ok)
	assert.Equal(t, "We accept cards.", reply)
}

func TestDefaultRulesCoverCommonQuestions(t *testing.T) {
	m := Load(config.DefaultFAQRules())

	tests := []struct {
		message string
		want    bool
	}{
		{"what are your shipping options", true},
		{"can I return this", true},
		{"which payment methods do you take", true},
		{"how do I contact support", true},
		{"tell me about the weather", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			_, ok := m.Match(tt.message)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestEmptyRuleSet(t *testing.T) {
	m := Load(nil)
	_, ok := m.Match("anything")
	assert.False(t, ok)
}
