package invariant

import (
	"fmt"

	"github.com/savegress/hospitalfin/pkg/models"
	"github.com/shopspring/decimal"
)

// Invariant names reported by Verify
const (
	NetIncome     = "NET_INCOME"
	ProfitMargin  = "PROFIT_MARGIN"
	PercentageSum = "PERCENTAGE_SUM"
	EBIDA         = "EBIDA"
	NetCashFlow   = "NET_CASH_FLOW"
	AdditiveTotal = "ADDITIVE_TOTAL"
	SeriesLength  = "SERIES_LENGTH"
)

// Violation describes a broken relationship in a generated record
type Violation struct {
	Invariant string
	Location  string
	Details   string
	Err       error
}

func (v *Violation) Error() string {
	return fmt.Sprintf("invariant %s violated at %s: %s", v.Invariant, v.Location, v.Details)
}

func (v *Violation) Unwrap() error {
	return v.Err
}

// Expected series lengths
const (
	Months          = 12
	CashFlowPeriods = 6
)

// Verify checks every relationship a FinancialRecord promises to its consumers.
// It returns the first *Violation found, or nil.
func Verify(rec *models.FinancialRecord) error {
	loc := fmt.Sprintf("%s/%d", rec.EntityID, rec.Period)

	if len(rec.Monthly) != Months {
		return &Violation{SeriesLength, loc + " monthly", fmt.Sprintf("%d entries, want %d", len(rec.Monthly), Months), nil}
	}
	revenue, expenses := decimal.Zero, decimal.Zero
	for _, m := range rec.Monthly {
		if err := checkDifference(NetIncome, loc+" monthly "+m.Month, m.NetIncome, m.Revenue, m.Expenses); err != nil {
			return err
		}
		revenue = revenue.Add(m.Revenue)
		expenses = expenses.Add(m.Expenses)
	}

	a := rec.Annual
	if !a.Revenue.Equal(revenue) || !a.Expenses.Equal(expenses) {
		return &Violation{AdditiveTotal, loc + " annual", "annual totals differ from monthly series", nil}
	}
	if err := checkDifference(NetIncome, loc+" annual", a.NetIncome, a.Revenue, a.Expenses); err != nil {
		return err
	}
	if err := checkMargin(loc+" annual", a.ProfitMargin, a.NetIncome, a.Revenue); err != nil {
		return err
	}

	for _, d := range rec.Departments {
		where := loc + " department " + d.Name
		if err := checkDifference(NetIncome, where, d.Profit, d.Revenue, d.Expenses); err != nil {
			return err
		}
		if err := checkMargin(where, d.ProfitMargin, d.Profit, d.Revenue); err != nil {
			return err
		}
	}

	expenseAmounts := make([]decimal.Decimal, len(rec.Expenses))
	expensePcts := make([]decimal.Decimal, len(rec.Expenses))
	for i, e := range rec.Expenses {
		expenseAmounts[i] = e.Amount
		expensePcts[i] = e.Percentage
	}
	if err := checkShares(loc+" expenses", expenseAmounts, expensePcts); err != nil {
		return err
	}

	if len(rec.CashFlow) != CashFlowPeriods {
		return &Violation{SeriesLength, loc + " cash flow", fmt.Sprintf("%d entries, want %d", len(rec.CashFlow), CashFlowPeriods), nil}
	}
	for _, c := range rec.CashFlow {
		if !c.Net.Equal(Sum(c.Operating, c.Investing, c.Financing)) {
			return &Violation{NetCashFlow, loc + " cash flow " + c.Period, fmt.Sprintf("net %s != %s + %s + %s", c.Net, c.Operating, c.Investing, c.Financing), nil}
		}
	}

	payerAmounts := make([]decimal.Decimal, len(rec.PayerMix.Shares))
	payerPcts := make([]decimal.Decimal, len(rec.PayerMix.Shares))
	for i, s := range rec.PayerMix.Shares {
		payerAmounts[i] = s.Amount
		payerPcts[i] = s.Percentage
	}
	if !Sum(payerAmounts...).Equal(rec.PayerMix.TotalRevenue) || !rec.PayerMix.TotalRevenue.Equal(a.Revenue) {
		return &Violation{AdditiveTotal, loc + " payer mix", "payer amounts do not sum to annual revenue", nil}
	}
	if err := checkShares(loc+" payer mix", payerAmounts, payerPcts); err != nil {
		return err
	}

	for _, p := range append([]models.EBIDAPeriod{rec.EBIDA.Annual}, rec.EBIDA.Quarterly...) {
		if !p.EBIDA.Equal(Sum(p.OperatingIncome, p.Depreciation, p.Interest)) {
			return &Violation{EBIDA, loc + " ebida " + p.Period, fmt.Sprintf("ebida %s != %s + %s + %s", p.EBIDA, p.OperatingIncome, p.Depreciation, p.Interest), nil}
		}
	}

	donations := decimal.Zero
	for _, s := range rec.Donations.Sources {
		donations = donations.Add(s.Amount)
	}
	if !donations.Equal(rec.Donations.Total) {
		return &Violation{AdditiveTotal, loc + " donations", "sources do not sum to total", nil}
	}

	as := rec.Assets
	if !as.TotalAssets.Equal(Sum(as.Cash, as.Investments, as.Receivables, as.PropertyPlant)) {
		return &Violation{AdditiveTotal, loc + " assets", "components do not sum to total assets", nil}
	}
	if !as.NetAssets.Equal(Subtract(as.TotalAssets, as.Liabilities)) {
		return &Violation{NetIncome, loc + " assets", "net assets != total - liabilities", nil}
	}

	state := decimal.Zero
	for _, p := range rec.ProgramDependency.Programs {
		state = state.Add(p.Amount)
	}
	if !state.Equal(rec.ProgramDependency.TotalStateFunding) {
		return &Violation{AdditiveTotal, loc + " program dependency", "programs do not sum to total state funding", nil}
	}
	if err := checkMargin(loc+" program dependency", rec.ProgramDependency.DependencyPct, state, a.Revenue); err != nil {
		return err
	}

	return nil
}

func checkDifference(name, where string, net, a, b decimal.Decimal) error {
	if !net.Equal(Subtract(a, b)) {
		return &Violation{name, where, fmt.Sprintf("%s != %s - %s", net, a, b), nil}
	}
	return nil
}

func checkMargin(where string, margin, part, whole decimal.Decimal) error {
	want, err := Margin(part, whole)
	if err != nil {
		return &Violation{ProfitMargin, where, "undefined margin", err}
	}
	if !margin.Equal(want) {
		return &Violation{ProfitMargin, where, fmt.Sprintf("margin %s, want %s", margin, want), nil}
	}
	return nil
}

func checkShares(where string, amounts, pcts []decimal.Decimal) error {
	want, err := Shares(amounts, PercentPlaces)
	if err != nil {
		return &Violation{PercentageSum, where, "undefined breakdown", err}
	}
	for i := range want {
		if !pcts[i].Equal(want[i]) {
			return &Violation{PercentageSum, where, fmt.Sprintf("category %d is %s%%, want %s%%", i, pcts[i], want[i]), nil}
		}
	}
	if !Sum(pcts...).Equal(hundred) {
		return &Violation{PercentageSum, where, fmt.Sprintf("percentages sum to %s", Sum(pcts...)), nil}
	}
	return nil
}
