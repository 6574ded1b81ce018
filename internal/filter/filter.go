package filter

import "strings"

// Rule is a single include or exclude rule.
type Rule struct {
	Pattern *compiledPattern
	Include bool
}

func (r Rule) String() string {
	if r.Include {
		return "+ " + r.Pattern.String()
	}
	return "- " + r.Pattern.String()
}

// Chain is an ordered list of rules plus size bounds. The scanner asks it
// whether each entry under a root should be considered.
type Chain struct {
	rules   []Rule
	minSize int64
	maxSize int64
}

// NewChain creates an empty filter chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude appends an exclude rule.
func (c *Chain) AddExclude(pattern string) error {
	return c.add(pattern, false)
}

// AddInclude appends an include rule.
func (c *Chain) AddInclude(pattern string) error {
	return c.add(pattern, true)
}

// AddRule appends a rule written as "+ pattern" or "- pattern". A line
// without a prefix is an exclude.
func (c *Chain) AddRule(line string) error {
	switch {
	case strings.HasPrefix(line, "+ "):
		return c.AddInclude(strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "- "):
		return c.AddExclude(strings.TrimSpace(line[2:]))
	default:
		return c.AddExclude(line)
	}
}

func (c *Chain) add(pattern string, include bool) error {
	cp, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{Pattern: cp, Include: include})
	return nil
}

// SetMinSize skips regular files smaller than n bytes (0 disables).
func (c *Chain) SetMinSize(n int64) { c.minSize = n }

// SetMaxSize skips regular files larger than n bytes (0 disables).
func (c *Chain) SetMaxSize(n int64) { c.maxSize = n }

// Rules returns the rules in evaluation order.
func (c *Chain) Rules() []Rule { return c.rules }

// Empty reports whether the chain has no rules and no size bounds.
func (c *Chain) Empty() bool {
	return len(c.rules) == 0 && c.minSize == 0 && c.maxSize == 0
}

// Match reports whether relPath should be considered. relPath is slash
// separated and relative to the scanned root; size is ignored for
// directories. Rules are evaluated in order and the first match wins; an
// entry no rule matches is included.
func (c *Chain) Match(relPath string, isDir bool, size int64) bool {
	if !isDir {
		if c.minSize > 0 && size < c.minSize {
			return false
		}
		if c.maxSize > 0 && size > c.maxSize {
			return false
		}
	}

	for _, rule := range c.rules {
		if rule.Pattern.match(relPath, isDir) {
			return rule.Include
		}
	}
	return true
}
