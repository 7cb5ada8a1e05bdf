package editor

import (
	"slices"

	"github.com/starford/tortoise/internal/apperr"
	"github.com/starford/tortoise/internal/models"
)

// AddCashFlow appends cf to the end of the cash-flow list.
func (s *Store) AddCashFlow(cf models.CashFlow) {
	cp := cf.Clone()
	_ = s.update(func(a *models.Account) error {
		cfs := make([]models.CashFlow, 0, len(a.CashFlows)+1)
		cfs = append(cfs, a.CashFlows...)
		a.CashFlows = append(cfs, cp)
		return nil
	})
}

// AddCashFlowIndex inserts a default cash flow at index, shifting later
// entries. index may equal the list length to append.
func (s *Store) AddCashFlowIndex(index int) error {
	return s.update(func(a *models.Account) error {
		if index < 0 || index > len(a.CashFlows) {
			return &apperr.IndexError{Op: "add cash flow", Index: index, Len: len(a.CashFlows)}
		}
		cfs := make([]models.CashFlow, 0, len(a.CashFlows)+1)
		cfs = append(cfs, a.CashFlows[:index]...)
		cfs = append(cfs, models.DefaultCashFlow())
		a.CashFlows = append(cfs, a.CashFlows[index:]...)
		return nil
	})
}

// RemoveCashFlowIndex deletes the cash flow at index, shifting later entries.
func (s *Store) RemoveCashFlowIndex(index int) error {
	return s.update(func(a *models.Account) error {
		if err := checkIndex("remove cash flow", a, index); err != nil {
			return err
		}
		cfs := make([]models.CashFlow, 0, len(a.CashFlows)-1)
		cfs = append(cfs, a.CashFlows[:index]...)
		a.CashFlows = append(cfs, a.CashFlows[index+1:]...)
		return nil
	})
}

// SetCashFlowName replaces the name of the cash flow at index.
func (s *Store) SetCashFlowName(index int, name string) error {
	return s.editCashFlow("set cash flow name", index, func(cf *models.CashFlow) {
		cf.Name = models.Ptr(name)
	})
}

// SetCashFlowAmount replaces the amount of the cash flow at index.
func (s *Store) SetCashFlowAmount(index int, amount float64) error {
	return s.editCashFlow("set cash flow amount", index, func(cf *models.CashFlow) {
		cf.Amount = amount
	})
}

// SetCashFlowFrequency replaces the frequency of the cash flow at index.
func (s *Store) SetCashFlowFrequency(index int, f models.Frequency) error {
	return s.editCashFlow("set cash flow frequency", index, func(cf *models.CashFlow) {
		cf.Frequency = f
	})
}

// SetCashFlowStartDate replaces the start date of the cash flow at index; nil clears it.
func (s *Store) SetCashFlowStartDate(index int, date *string) error {
	return s.editCashFlow("set cash flow start date", index, func(cf *models.CashFlow) {
		cf.StartDate = copyPtr(date)
	})
}

// SetCashFlowEndDate replaces the end date of the cash flow at index; nil clears it.
func (s *Store) SetCashFlowEndDate(index int, date *string) error {
	return s.editCashFlow("set cash flow end date", index, func(cf *models.CashFlow) {
		cf.EndDate = copyPtr(date)
	})
}

// SetCashFlowTaxRate replaces the tax rate of the cash flow at index.
func (s *Store) SetCashFlowTaxRate(index int, rate float64) error {
	return s.editCashFlow("set cash flow tax rate", index, func(cf *models.CashFlow) {
		cf.TaxRate = models.Ptr(rate)
	})
}

// AddCashFlowTag attaches tag to the cash flow at index. A tag already
// attached is left alone, so tags added one at a time never repeat.
func (s *Store) AddCashFlowTag(index int, tag string) error {
	return s.editCashFlow("add cash flow tag", index, func(cf *models.CashFlow) {
		if cf.HasTag(tag) {
			return
		}
		tags := make([]string, 0, len(cf.Tags)+1)
		tags = append(tags, cf.Tags...)
		cf.Tags = append(tags, tag)
	})
}

// RemoveCashFlowTag detaches tag from the cash flow at index. Removing a tag
// that is not attached changes nothing.
func (s *Store) RemoveCashFlowTag(index int, tag string) error {
	return s.editCashFlow("remove cash flow tag", index, func(cf *models.CashFlow) {
		if !cf.HasTag(tag) {
			return
		}
		cf.Tags = slices.DeleteFunc(slices.Clone(cf.Tags), func(t string) bool { return t == tag })
	})
}

// ClearCashFlowTags leaves the cash flow at index with an empty tag list.
func (s *Store) ClearCashFlowTags(index int) error {
	return s.editCashFlow("clear cash flow tags", index, func(cf *models.CashFlow) {
		cf.Tags = []string{}
	})
}

// SetCashFlowTags replaces the tag list of the cash flow at index with a copy
// of tags, as given. Unlike AddCashFlowTag it does not drop duplicates, and a
// nil list stays nil.
func (s *Store) SetCashFlowTags(index int, tags []string) error {
	cp := slices.Clone(tags)
	return s.editCashFlow("set cash flow tags", index, func(cf *models.CashFlow) {
		cf.Tags = cp
	})
}

// editCashFlow copies the list and the entry at index before handing the copy to fn.
func (s *Store) editCashFlow(op string, index int, fn func(cf *models.CashFlow)) error {
	return s.update(func(a *models.Account) error {
		if err := checkIndex(op, a, index); err != nil {
			return err
		}
		cfs := slices.Clone(a.CashFlows)
		fn(&cfs[index])
		a.CashFlows = cfs
		return nil
	})
}

func checkIndex(op string, a *models.Account, index int) error {
	if index < 0 || index >= len(a.CashFlows) {
		return &apperr.IndexError{Op: op, Index: index, Len: len(a.CashFlows)}
	}
	return nil
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	return models.Ptr(*p)
}
