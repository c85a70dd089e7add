package installments

import "github.com/sheikh-saqib/installments-ledger/internal/models"

// IsInstallmentMember reports whether t belongs to a multi-payment plan
func IsInstallmentMember(t models.Transaction) bool {
	return t.Installments != nil && *t.Installments > 1
}

// ClassifyGroup derives the plan state from the rows still stored for it.
// Members keep their declared count after single deletes, so fewer rows than
// declared means the plan was partially deleted.
func ClassifyGroup(members []models.Transaction) models.PlanState {
	if len(members) == 0 {
		return models.PlanDeleted
	}
	declared := 0
	for _, m := range members {
		if n := m.InstallmentCount(); n > declared {
			declared = n
		}
	}
	switch {
	case declared <= 1:
		return models.PlanUnplanned
	case len(members) < declared:
		return models.PlanPartiallyDeleted
	default:
		return models.PlanCreated
	}
}
