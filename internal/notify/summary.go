package notify

import (
	"sort"

	"github.com/shopspring/decimal"

	"finbot/internal/domain"
)

// BuildDaySummary aggregates one day's movements into per-currency
// income/expense totals and per-category expense totals. Output ordering is
// deterministic (currency, then category name).
func BuildDaySummary(day string, movements []domain.Movement) domain.DaySummary {
	type catKey struct{ category, currency string }

	totals := map[string]*domain.CurrencyTotal{}
	cats := map[catKey]decimal.Decimal{}

	for _, m := range movements {
		t := totals[m.Amount.Currency]
		if t == nil {
			t = &domain.CurrencyTotal{Currency: m.Amount.Currency}
			totals[m.Amount.Currency] = t
		}
		switch m.Kind {
		case domain.MovementIncome:
			t.Income = t.Income.Add(m.Amount.Amount)
		case domain.MovementExpense:
			t.Expense = t.Expense.Add(m.Amount.Amount)
			cat := m.Category
			if cat == "" {
				cat = "uncategorized"
			}
			k := catKey{category: cat, currency: m.Amount.Currency}
			cats[k] = cats[k].Add(m.Amount.Amount)
		}
	}

	out := domain.DaySummary{Date: day, Movements: len(movements)}

	for _, t := range totals {
		out.Totals = append(out.Totals, *t)
	}
	sort.Slice(out.Totals, func(i, j int) bool {
		return out.Totals[i].Currency < out.Totals[j].Currency
	})

	for k, v := range cats {
		out.Categories = append(out.Categories, domain.CategoryTotal{
			Category: k.category,
			Total:    domain.NewMoney(v, k.currency),
		})
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		a, b := out.Categories[i], out.Categories[j]
		if a.Total.Currency != b.Total.Currency {
			return a.Total.Currency < b.Total.Currency
		}
		return a.Category < b.Category
	})

	return out
}
