// Package faq provides the regex-rule fallback the chat orchestrator
// consults when generation is unavailable or refused.
package faq

import (
	"regexp"

	"github.com/charmbracelet/log"

	"github.com/sitechat-ai/sitechat/internal/config"
)

// predicate decides whether a rule applies to a message. Rules compile to
// either a real pattern or a never-matching predicate, selected at load
// time, so a malformed pattern disables one rule instead of failing the
// whole rule set.
type predicate interface {
	match(message string) bool
}

type alwaysFalse struct{}

func (alwaysFalse) match(string) bool { return false }

type compiledPattern struct {
	re *regexp.Regexp
}

func (p compiledPattern) match(message string) bool {
	return p.re.MatchString(message)
}

type rule struct {
	pred  predicate
	reply string
}

// Matcher holds an ordered set of compiled fallback rules.
type Matcher struct {
	rules []rule
}

// Load compiles the configured rules. A pattern that fails to compile is
// kept as a never-matching rule and logged, not propagated.
func Load(cfgRules []config.FAQRule) *Matcher {
	rules := make([]rule, 0, len(cfgRules))
	for _, r := range cfgRules {
		var pred predicate = alwaysFalse{}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			log.Warn("Ignoring malformed FAQ pattern", "pattern", r.Pattern, "error", err)
		} else {
			pred = compiledPattern{re: re}
		}
		rules = append(rules, rule{pred: pred, reply: r.Reply})
	}
	return &Matcher{rules: rules}
}

// Match returns the reply of the first rule matching the message.
func (m *Matcher) Match(message string) (string, bool) {
	for _, r := range m.rules {
		if r.pred.match(message) {
			return r.reply, true
		}
	}
	return "", false
}
