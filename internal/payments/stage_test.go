package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStage(t *testing.T) {
	tests := []struct {
		stage     string
		family    Family
		completed int
		paid      bool
	}{
		{"NEW", FamilyNew, 0, false},
		{"C1:NEW", FamilyNew, 0, false},
		{"Новая", FamilyNew, 0, false},
		{"PREPARATION", FamilyPreparation, 20, false},
		{"Подготовка документов", FamilyPreparation, 20, false},
		{"C10:PREPAYMENT_INVOICE", FamilyApproval, 40, false},
		{"Согласование", FamilyApproval, 40, false},
		{"EXECUTING", FamilyInWork, 60, true},
		{"C1:WORK", FamilyInWork, 60, true},
		{"В работе", FamilyInWork, 60, true},
		{"FINAL_INVOICE", FamilyFinalInvoice, 80, false},
		{"Финальный счёт", FamilyFinalInvoice, 80, false},
		{"WON", FamilyWon, 100, true},
		{"C10:WON", FamilyWon, 100, true},
		{"Сделка успешна", FamilyWon, 100, true},
		{"C1:1", FamilyNew, 0, false},
		{"C1:2", FamilyPreparation, 20, false},
		{"C1:3", FamilyApproval, 40, false},
		{"C1:4", FamilyInWork, 60, true},
		{"C1:5", FamilyFinalInvoice, 80, false},
		{"C1:6", FamilyWon, 100, true},
		{"  executing  ", FamilyInWork, 60, true},
		{"Сделка В РАБОТЕ", FamilyInWork, 60, true},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			got := ClassifyStage(tt.stage)
			assert.True(t, got.Recognized)
			assert.Equal(t, tt.family, got.Family)
			assert.Equal(t, tt.completed, got.Completed)
			assert.Equal(t, tt.paid, got.Paid)
		})
	}
}

func TestClassifyStage_Unknown(t *testing.T) {
	for _, stage := range []string{"", "LOSE", "C1:7", "APOLOGY"} {
		got := ClassifyStage(stage)
		assert.False(t, got.Recognized, stage)
		assert.Equal(t, FamilyUnknown, got.Family, stage)
		assert.Zero(t, got.Completed, stage)
		assert.False(t, got.Paid, stage)
	}
}

func TestClassify_WonSemanticMeansPaid(t *testing.T) {
	assert.True(t, Classify("FINAL_INVOICE", "S").Paid)
	assert.True(t, Classify("LOSE", "W").Paid)
	assert.True(t, Classify("C1:3", "s").Paid)
	assert.False(t, Classify("C1:3", "P").Paid)
	assert.False(t, Classify("LOSE", "F").Paid)

	// semantic id never changes the percentage
	assert.Equal(t, 80, Classify("FINAL_INVOICE", "S").Completed)
}

func TestPaidAgreesWithPercentage(t *testing.T) {
	for _, r := range stageRules {
		if r.percent >= 60 && r.percent < 100 && r.family != FamilyInWork {
			assert.False(t, r.paid, "only the work family is paid below 100%%: %s", r.family)
		}
		if r.percent == 100 {
			assert.True(t, r.paid, "won stages must be paid")
		}
		if r.percent < 60 {
			assert.False(t, r.paid, "stages before work are unpaid: %s", r.family)
		}
	}
}

func TestIsWorkStage(t *testing.T) {
	assert.True(t, IsWorkStage("EXECUTING"))
	assert.True(t, IsWorkStage("В работе"))
	assert.True(t, IsWorkStage("C1:4"))
	assert.False(t, IsWorkStage("PREPARATION"))
	assert.False(t, IsWorkStage("Новая работа"))
}
