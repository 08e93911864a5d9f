package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Macros maps a lowercase tag to the canned reply sent for it.
type Macros map[string]string

// DefaultMacros returns the built-in canned replies.
func DefaultMacros(team string) Macros {
	return Macros{
		"fraud":  fmt.Sprintf("Hey there!\nThe %s team cannot help you with this query. Please forward any related questions to the fraud team.", team),
		"fthelp": fmt.Sprintf("Hey there!\nThe %s team cannot help you with this query. Please ask it in the general help channel instead.", team),
		"faq":    "Hey there!\nThis question is answered in our FAQ. Please have a look there first, and open a new ticket if it does not help.",
		"queue":  "Hey there!\nWe currently have a backlog of submissions waiting to be reviewed. Please be patient, we will get to yours as soon as we can.",
	}
}

// Merge returns a copy of m with overrides applied. Empty bodies remove a tag.
func (m Macros) Merge(overrides map[string]string) Macros {
	out := make(Macros, len(m)+len(overrides))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range overrides {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if strings.TrimSpace(v) == "" {
			delete(out, key)
			continue
		}
		out[key] = v
	}
	return out
}

// Lookup finds a macro body by tag, ignoring case and surrounding space.
func (m Macros) Lookup(tag string) (string, bool) {
	body, ok := m[strings.ToLower(strings.TrimSpace(tag))]
	return body, ok
}

// Tags lists known tags in stable order.
func (m Macros) Tags() []string {
	tags := make([]string, 0, len(m))
	for k := range m {
		tags = append(tags, k)
	}
	sort.Strings(tags)
	return tags
}
