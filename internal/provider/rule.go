package provider

import (
	"fmt"
	"strings"
)

// RuleType classifies how an organization rule selects messages.
type RuleType string

const (
	RuleTypeSender  RuleType = "sender"
	RuleTypeDomain  RuleType = "domain"
	RuleTypeKeyword RuleType = "keyword"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeSender, RuleTypeDomain, RuleTypeKeyword:
		return true
	}
	return false
}

// Rule is one organization rule: a type plus the value it matches on.
type Rule struct {
	Type  RuleType
	Value string
}

// Matches applies the rule to a message. Sender rules require an exact address
// match, domain rules match the address suffix "@{value}", and keyword rules
// match a substring of the subject or body preview. Matching is
// case-insensitive for every rule type.
func (r Rule) Matches(fromAddress, subject, bodyPreview string) bool {
	value := strings.ToLower(r.Value)
	switch r.Type {
	case RuleTypeSender:
		return strings.ToLower(fromAddress) == value
	case RuleTypeDomain:
		return strings.HasSuffix(strings.ToLower(fromAddress), "@"+value)
	case RuleTypeKeyword:
		return strings.Contains(strings.ToLower(subject), value) ||
			strings.Contains(strings.ToLower(bodyPreview), value)
	}
	return false
}

// DeriveTargetName builds the label/folder name for a category. Categories are
// numbered from 1 in sort order so providers list them in a stable order.
func DeriveTargetName(categoryName string, sortOrder int) string {
	return fmt.Sprintf("%d: %s", sortOrder+1, categoryName)
}
