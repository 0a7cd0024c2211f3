package gmail

import (
	"fmt"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/wibookly/mailcore/internal/provider"
)

// searchQuery builds the Gmail search for messages carrying the label that an
// organization rule would have applied. The label clause uses the label id,
// not its display name.
func searchQuery(rule provider.Rule, labelID string) string {
	switch rule.Type {
	case provider.RuleTypeSender:
		return fmt.Sprintf("from:%s label:%s", rule.Value, labelID)
	case provider.RuleTypeDomain:
		return fmt.Sprintf("from:@%s label:%s", rule.Value, labelID)
	default:
		return fmt.Sprintf("%s label:%s", rule.Value, labelID)
	}
}

// filterMatches reports whether a settings filter is the one created for the
// rule: sender and domain rules key on criteria.From, keyword rules on the
// free-text criteria.Query.
func filterMatches(rule provider.Rule, criteria *gmail.FilterCriteria) bool {
	if criteria == nil {
		return false
	}
	switch rule.Type {
	case provider.RuleTypeSender:
		return criteria.From == rule.Value
	case provider.RuleTypeDomain:
		return criteria.From == "@"+rule.Value
	case provider.RuleTypeKeyword:
		return criteria.Query == rule.Value
	}
	return false
}
