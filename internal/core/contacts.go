package core

import (
	"regexp"
	"sort"
	"strings"
)

var contactSeparators = regexp.MustCompile(`[,\n]+`)

// CollectContacts splits each part on commas and newlines, trims the tokens
// and returns them deduplicated in first-seen order. Blank tokens are
// dropped. Used for the admin/CC contact fields, which end users fill in as
// free-text lists.
func CollectContacts(parts ...string) []string {
	var recipients []string
	seen := make(map[string]struct{})

	for _, part := range parts {
		if part == "" {
			continue
		}
		for _, token := range contactSeparators.Split(part, -1) {
			cleaned := strings.TrimSpace(token)
			if cleaned == "" {
				continue
			}
			if _, ok := seen[cleaned]; ok {
				continue
			}
			recipients = append(recipients, cleaned)
			seen[cleaned] = struct{}{}
		}
	}

	return recipients
}

// RecipientSet is a deduplicated set of contact values (email addresses or
// mobile numbers). The zero value is not usable; construct with
// NewRecipientSet.
type RecipientSet map[string]struct{}

func NewRecipientSet(values ...string) RecipientSet {
	s := make(RecipientSet)
	s.AddAll(values)
	return s
}

// Add inserts a trimmed value, ignoring blanks.
func (s RecipientSet) Add(value string) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return
	}
	s[cleaned] = struct{}{}
}

// AddAll inserts every value, trimming and dropping blanks.
func (s RecipientSet) AddAll(values []string) {
	for _, v := range values {
		s.Add(v)
	}
}

// Sorted returns the members in ascending order, giving sends and log rows a
// stable recipient order.
func (s RecipientSet) Sorted() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s RecipientSet) Len() int { return len(s) }
