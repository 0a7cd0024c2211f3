package cleanup

import (
	"fmt"

	"github.com/wibookly/mailcore/internal/provider"
)

// ValidationError reports a cleanup request that cannot be processed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Request is the body of a rule cleanup call.
type Request struct {
	RuleType          string `json:"rule_type"`
	RuleValue         string `json:"rule_value"`
	CategoryName      string `json:"category_name"`
	CategorySortOrder int    `json:"category_sort_order"`
}

// Validate checks the request's required fields.
func (r Request) Validate() error {
	if r.RuleType == "" || r.RuleValue == "" || r.CategoryName == "" {
		return &ValidationError{Message: "rule_type, rule_value and category_name are required"}
	}
	if !provider.RuleType(r.RuleType).Valid() {
		return &ValidationError{Message: fmt.Sprintf("unknown rule_type: %s", r.RuleType)}
	}
	return nil
}

// Rule returns the provider-level rule this request describes.
func (r Request) Rule() provider.Rule {
	return provider.Rule{
		Type:  provider.RuleType(r.RuleType),
		Value: r.RuleValue,
	}
}

// Response is the outcome of a cleanup across all connected providers.
type Response struct {
	Message              string                   `json:"message"`
	Results              []provider.CleanupResult `json:"results"`
	TotalEmailsProcessed int                      `json:"totalEmailsProcessed"`
}
