// Package labelfilter parses the compact label-selector grammar used by the
// static target resolver's node-selector annotation.
package labelfilter

import (
	"strings"

	"github.com/hcloud-lb/robotlb/pkg/lberror"
)

type ruleKind int

const (
	ruleExists ruleKind = iota
	ruleDoesNotExist
	ruleEqual
	ruleNotEqual
)

type rule struct {
	kind  ruleKind
	key   string
	value string
}

// Filter is a parsed label-selector expression: an AND of independent clauses.
type Filter struct {
	rules []rule
}

// Matches reports whether labels satisfies every clause of the filter.
// An empty filter matches any label set.
func (f Filter) Matches(labels map[string]string) bool {
	for _, r := range f.rules {
		val, found := labels[r.key]
		switch r.kind {
		case ruleExists:
			if !found {
				return false
			}
		case ruleDoesNotExist:
			if found {
				return false
			}
		case ruleEqual:
			if !found || val != r.value {
				return false
			}
		case ruleNotEqual:
			if found && val == r.value {
				return false
			}
		}
	}
	return true
}

// Parse parses a comma-separated list of clauses of the form
// KEY, !KEY, KEY=VALUE or KEY!=VALUE into a Filter.
func Parse(s string) (Filter, error) {
	if s == "" {
		return Filter{}, nil
	}

	var f Filter
	for _, clause := range strings.Split(s, ",") {
		parts := strings.Split(clause, "=")
		switch len(parts) {
		case 1:
			key := parts[0]
			if strings.HasPrefix(key, "!") {
				f.rules = append(f.rules, rule{kind: ruleDoesNotExist, key: strings.TrimPrefix(key, "!")})
				continue
			}
			f.rules = append(f.rules, rule{kind: ruleExists, key: key})
		case 2:
			key, value := parts[0], parts[1]
			if strings.HasSuffix(key, "!") {
				f.rules = append(f.rules, rule{kind: ruleNotEqual, key: strings.TrimSuffix(key, "!"), value: value})
				continue
			}
			f.rules = append(f.rules, rule{kind: ruleEqual, key: key, value: value})
		default:
			return Filter{}, lberror.InvalidInputf("invalid node filter clause %q", clause)
		}
	}
	return f, nil
}
