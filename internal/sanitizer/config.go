package sanitizer

import (
	"fmt"
	"regexp"
)

// DefaultMaxContentLength bounds sanitized content (data minimization).
const DefaultMaxContentLength = 2000

// Rule defines one PII detection rule. Placeholder identifies only the PII
// class, never the matched value or a reversible encoding of it.
type Rule struct {
	Class       string
	Pattern     string
	Placeholder string

	compiled *regexp.Regexp
}

// Config configures the sanitizer. Pattern sets are explicit configuration
// passed into the constructor so they can be versioned and tested
// independently.
type Config struct {
	Rules            []Rule
	MaxContentLength int
}

// DefaultRules returns the standard PII rule set: emails, phone numbers in
// common formats, SSN-shaped digit groups, payment card numbers, and IPv4
// addresses. Order is fixed so redaction reports are deterministic.
func DefaultRules() []Rule {
	return []Rule{
		{
			Class:       "email",
			Pattern:     `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
			Placeholder: "[EMAIL_REDACTED]",
		},
		{
			Class:       "phone",
			Pattern:     `(\+?1[\s.\-]?)?(\(\d{3}\)[\s.\-]?|\d{3}[\s.\-])\d{3}[\s.\-]\d{4}`,
			Placeholder: "[PHONE_REDACTED]",
		},
		{
			Class:       "ssn",
			Pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
			Placeholder: "[SSN_REDACTED]",
		},
		{
			Class:       "credit_card",
			Pattern:     `\b(?:\d[ \-]?){13,16}\b`,
			Placeholder: "[CARD_REDACTED]",
		},
		{
			Class:       "ip_address",
			Pattern:     `\b(?:\d{1,3}\.){3}\d{1,3}\b`,
			Placeholder: "[IP_REDACTED]",
		},
	}
}

// DefaultConfig returns the standard sanitizer configuration.
func DefaultConfig() Config {
	return Config{
		Rules:            DefaultRules(),
		MaxContentLength: DefaultMaxContentLength,
	}
}

// Validate compiles the rule patterns and fills defaults.
func (c *Config) Validate() error {
	if c.MaxContentLength <= 0 {
		c.MaxContentLength = DefaultMaxContentLength
	}
	if len(c.Rules) == 0 {
		c.Rules = DefaultRules()
	}
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Class == "" {
			return fmt.Errorf("rule %d: class is required", i)
		}
		if r.Pattern == "" {
			return fmt.Errorf("rule %s: pattern is required", r.Class)
		}
		if r.Placeholder == "" {
			return fmt.Errorf("rule %s: placeholder is required", r.Class)
		}
		compiled, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: invalid pattern: %w", r.Class, err)
		}
		r.compiled = compiled
	}
	return nil
}
