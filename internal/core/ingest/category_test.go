package ingest

import "testing"

func TestInferCategory(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"HR Onboarding Guide.pdf", "HR"},
		{"human resources handbook.docx", "HR"},
		{"Finance Month-End Close.pdf", "Finance"},
		{"Regulatory Filing Checklist.docx", "Compliance"},
		{"Branch Ops Runbook.txt", "Operations"},
		{"Marketing Playbook.pdf", "Sales & Marketing"},
		{"Customer Escalation Matrix.pdf", "Customer Service"},
		{"Leave Policy.pdf", "Policies"},
		{"Cash Handling Procedure.pdf", "SOPs"},
		{"random notes.txt", "General"},
	}
	for _, tc := range cases {
		if got := InferCategory(tc.filename); got != tc.want {
			t.Errorf("InferCategory(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestInferCategoryPriorityOrder(t *testing.T) {
	// HR outranks Finance when both keyword sets match.
	if got := InferCategory("hr finance combined.pdf"); got != "HR" {
		t.Errorf("got %q, want HR", got)
	}
	// Finance outranks Security.
	if got := InferCategory("accounting security memo.pdf"); got != "Finance" {
		t.Errorf("got %q, want Finance", got)
	}
}

func TestInferCategoryCaseInsensitive(t *testing.T) {
	if got := InferCategory("COMPLIANCE-AUDIT.PDF"); got != "Compliance" {
		t.Errorf("got %q, want Compliance", got)
	}
}
