package installments

import (
	"testing"

	"github.com/sheikh-saqib/installments-ledger/internal/models"
)

func TestIsInstallmentMember(t *testing.T) {
	tests := []struct {
		name         string
		installments *int
		want         bool
	}{
		{name: "absent", installments: nil, want: false},
		{name: "zero", installments: models.Ptr(0), want: false},
		{name: "one", installments: models.Ptr(1), want: false},
		{name: "two", installments: models.Ptr(2), want: true},
		{name: "twelve", installments: models.Ptr(12), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInstallmentMember(models.Transaction{Installments: tt.installments}); got != tt.want {
				t.Errorf("IsInstallmentMember = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyGroup(t *testing.T) {
	member := func(n int) models.Transaction { return models.Transaction{Installments: models.Ptr(n)} }

	tests := []struct {
		name    string
		members []models.Transaction
		want    models.PlanState
	}{
		{name: "no rows", members: nil, want: models.PlanDeleted},
		{name: "plain record", members: []models.Transaction{{}}, want: models.PlanUnplanned},
		{name: "complete", members: []models.Transaction{member(2), member(2)}, want: models.PlanCreated},
		{name: "one removed", members: []models.Transaction{member(3), member(3)}, want: models.PlanPartiallyDeleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyGroup(tt.members); got != tt.want {
				t.Errorf("ClassifyGroup = %q, want %q", got, tt.want)
			}
		})
	}
}
