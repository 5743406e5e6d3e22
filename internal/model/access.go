package model

import (
	"sort"
	"strings"
)

// FallbackPolicy decides what a route does with a failed subscription lookup.
type FallbackPolicy string

const (
	FallbackOpen   FallbackPolicy = "open"
	FallbackClosed FallbackPolicy = "closed"
)

// RouteRule is the access requirement for every path under Prefix.
type RouteRule struct {
	Prefix               string         `mapstructure:"prefix" json:"prefix"`
	Public               bool           `mapstructure:"public" json:"public"`
	AdminOnly            bool           `mapstructure:"admin_only" json:"admin_only"`
	RequiredPlans        []string       `mapstructure:"required_plans" json:"required_plans,omitempty"`
	RequiredCapabilities []string       `mapstructure:"required_capabilities" json:"required_capabilities,omitempty"`
	OnNotFound           FallbackPolicy `mapstructure:"on_not_found" json:"on_not_found,omitempty"`
	OnUnauthorized       FallbackPolicy `mapstructure:"on_unauthorized" json:"on_unauthorized,omitempty"`
	OnNetworkError       FallbackPolicy `mapstructure:"on_network_error" json:"on_network_error,omitempty"`
	OnOtherError         FallbackPolicy `mapstructure:"on_other_error" json:"on_other_error,omitempty"`
}

// AccessConfig maps route prefixes to their requirements. It is built once
// at startup and never mutated.
type AccessConfig struct {
	rules []RouteRule
}

// NewAccessConfig copies rules and orders them longest prefix first.
func NewAccessConfig(rules []RouteRule) *AccessConfig {
	cp := make([]RouteRule, len(rules))
	copy(cp, rules)
	for i := range cp {
		cp[i].RequiredPlans = append([]string(nil), cp[i].RequiredPlans...)
		cp[i].RequiredCapabilities = append([]string(nil), cp[i].RequiredCapabilities...)
	}
	sort.SliceStable(cp, func(i, j int) bool {
		return len(cp[i].Prefix) > len(cp[j].Prefix)
	})
	return &AccessConfig{rules: cp}
}

// Match returns the rule with the longest prefix matching path. Paths with
// no rule get an authenticated-only rule with open fallbacks.
func (c *AccessConfig) Match(path string) RouteRule {
	if c != nil {
		for _, r := range c.rules {
			if matchPrefix(path, r.Prefix) {
				return r
			}
		}
	}
	return RouteRule{Prefix: "/"}
}

// Rules returns a copy of the configured rules.
func (c *AccessConfig) Rules() []RouteRule {
	if c == nil {
		return nil
	}
	out := make([]RouteRule, len(c.rules))
	copy(out, c.rules)
	return out
}

func matchPrefix(path, prefix string) bool {
	if prefix == "" || prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if strings.HasSuffix(prefix, "/") || len(path) == len(prefix) {
		return true
	}
	return path[len(prefix)] == '/'
}

// OrOpen returns the policy, defaulting to open.
func (p FallbackPolicy) OrOpen() FallbackPolicy {
	if p == "" {
		return FallbackOpen
	}
	return p
}
