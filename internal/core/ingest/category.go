package ingest

import "strings"

// categoryRules is ordered by priority: the first entry whose keywords match
// wins, so a filename mentioning both "hr" and "finance" lands in HR.
var categoryRules = []struct {
	label    string
	keywords []string
}{
	{"HR", []string{"hr", "human resource"}},
	{"Finance", []string{"finance", "accounting"}},
	{"Compliance", []string{"compliance", "regulatory"}},
	{"Operations", []string{"operations", "ops"}},
	{"Sales & Marketing", []string{"sales", "marketing"}},
	{"IT", []string{"it", "technology", "tech"}},
	{"Security", []string{"security", "safety"}},
	{"Customer Service", []string{"customer", "service"}},
	{"Policies", []string{"policy"}},
	{"SOPs", []string{"sop", "procedure"}},
}

// InferCategory maps a filename to its coarse document category by
// case-insensitive substring match, falling through to General.
func InferCategory(filename string) string {
	lower := strings.ToLower(filename)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return "General"
}
