package payments

import (
	"strings"

	"github.com/geocoder89/autocabinet/internal/crm"
)

// Family is the pipeline phase a stage id belongs to.
type Family string

const (
	FamilyNew          Family = "new"
	FamilyPreparation  Family = "preparation"
	FamilyApproval     Family = "approval"
	FamilyInWork       Family = "in_work"
	FamilyFinalInvoice Family = "final_invoice"
	FamilyWon          Family = "won"
	FamilyUnknown      Family = "unknown"
)

type Classification struct {
	Family     Family
	Completed  int
	Paid       bool
	Recognized bool
}

type stageRule struct {
	family   Family
	contains []string
	equals   []string
	percent  int
	paid     bool
}

func (r stageRule) matches(stage string) bool {
	for _, eq := range r.equals {
		if stage == eq {
			return true
		}
	}
	for _, token := range r.contains {
		if strings.Contains(stage, token) {
			return true
		}
	}
	return false
}

// Evaluated top to bottom, first match wins. Tokens are lowercase; input is lowercased
// before matching. Percentage and paid flag live on the same rule so they cannot drift.
var stageRules = []stageRule{
	{family: FamilyNew, percent: 0,
		contains: []string{"новая", "new"},
		equals:   []string{"c10:new", "c1:new"}},
	{family: FamilyPreparation, percent: 20,
		contains: []string{"подготовка", "документ", "preparation"},
		equals:   []string{"c10:preparation", "c1:preparation"}},
	{family: FamilyApproval, percent: 40,
		contains: []string{"согласован", "предоплат", "prepayment_invoice"},
		equals:   []string{"c10:prepayment_invoice"}},
	{family: FamilyInWork, percent: 60, paid: true,
		contains: []string{"работа", "work", "в работе", "executing"},
		equals:   []string{"c10:executing", "c1:work"}},
	{family: FamilyFinalInvoice, percent: 80,
		contains: []string{"финальн", "final_invoice"},
		equals:   []string{"c10:final_invoice"}},
	{family: FamilyWon, percent: 100, paid: true,
		contains: []string{"успешн", "завершен", "won"},
		equals:   []string{"c10:won", "c1:won"}},

	// numbered stages of the first custom pipeline
	{family: FamilyNew, percent: 0, equals: []string{"c1:1"}},
	{family: FamilyPreparation, percent: 20, equals: []string{"c1:2"}},
	{family: FamilyApproval, percent: 40, equals: []string{"c1:3"}},
	{family: FamilyInWork, percent: 60, paid: true, equals: []string{"c1:4"}},
	{family: FamilyFinalInvoice, percent: 80, equals: []string{"c1:5"}},
	{family: FamilyWon, percent: 100, paid: true, equals: []string{"c1:6"}},
}

// ClassifyStage maps a stage id or label to its family, completion percentage and paid flag.
// Unknown stages come back as 0%, unpaid, Recognized=false.
func ClassifyStage(stageID string) Classification {
	stage := strings.ToLower(strings.TrimSpace(stageID))

	for _, rule := range stageRules {
		if rule.matches(stage) {
			return Classification{
				Family:     rule.family,
				Completed:  rule.percent,
				Paid:       rule.paid,
				Recognized: true,
			}
		}
	}

	return Classification{Family: FamilyUnknown}
}

// Classify is ClassifyStage plus the semantic id: a deal the CRM reports as won is paid
// whatever its stage text says.
func Classify(stageID, semanticID string) Classification {
	c := ClassifyStage(stageID)
	if crm.IsWon(strings.ToUpper(strings.TrimSpace(semanticID))) {
		c.Paid = true
	}
	return c
}

// IsWorkStage reports whether a stage id or label classifies into the "in work" family.
func IsWorkStage(text string) bool {
	return ClassifyStage(text).Family == FamilyInWork
}

func StatusLabel(paid bool) string {
	if paid {
		return "paid"
	}
	return "unpaid"
}
