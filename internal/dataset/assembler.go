package dataset

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/savegress/hospitalfin/internal/config"
	"github.com/savegress/hospitalfin/internal/invariant"
	"github.com/savegress/hospitalfin/internal/variation"
	"github.com/savegress/hospitalfin/pkg/models"
	"github.com/shopspring/decimal"
)

// Assembler builds the financial record for one hospital and year
type Assembler struct {
	config *config.CatalogConfig
	events []models.ContextEvent
	seed   uint64
	now    func() time.Time
}

// NewAssembler creates a new assembler.
// A zero cfg.Seed picks a random base seed once, so records differ between
// processes but stay stable for the life of this assembler.
func NewAssembler(cfg *config.CatalogConfig, events []models.ContextEvent) *Assembler {
	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Assembler{
		config: cfg,
		events: events,
		seed:   seed,
		now:    time.Now,
	}
}

// Generator returns the variation source for one (entity, period) pair.
// The stream depends only on the base seed and the key, never on build order.
func (a *Assembler) Generator(entityID string, period models.Period) *variation.Generator {
	key := entityID + "/" + strconv.Itoa(int(period))
	return variation.NewSeeded(a.seed ^ xxhash.Sum64String(key))
}

// Scale returns the combined period and entity-type multiplier
func (a *Assembler) Scale(entity models.Entity, period models.Period) (float64, error) {
	pm, ok := a.config.PeriodMultipliers[int(period)]
	if !ok {
		return 0, fmt.Errorf("no multiplier for period %d", period)
	}
	tm, ok := a.config.TypeMultipliers[string(entity.Type)]
	if !ok {
		return 0, fmt.Errorf("no multiplier for hospital type %q", entity.Type)
	}
	return pm * tm, nil
}

// Assemble builds the complete record for entity in period.
// An error means a derived figure was undefined, which aborts catalog construction.
func (a *Assembler) Assemble(entity models.Entity, period models.Period) (*models.FinancialRecord, error) {
	scale, err := a.Scale(entity, period)
	if err != nil {
		return nil, fmt.Errorf("assemble %s/%d: %w", entity.ID, period, err)
	}

	b := &builder{
		g:      a.Generator(entity.ID, period),
		pct:    a.config.VariationPct,
		scale:  scale,
		entity: entity,
	}

	rec := &models.FinancialRecord{
		EntityID:    entity.ID,
		Period:      period,
		GeneratedAt: a.now(),
	}

	steps := []struct {
		name string
		fn   func(*models.FinancialRecord) error
	}{
		{"monthly", b.monthly},
		{"departments", b.departments},
		{"expenses", b.expenses},
		{"cash flow", b.cashFlow},
		{"payer mix", b.payerMix},
		{"ebida", b.ebida},
		{"donations", b.donations},
		{"assets", b.assets},
		{"bond rating", b.bondRating},
		{"program dependency", b.programDependency},
		{"summary", b.summary},
	}
	for _, step := range steps {
		if err := step.fn(rec); err != nil {
			return nil, fmt.Errorf("assemble %s/%d %s: %w", entity.ID, period, step.name, err)
		}
	}

	rec.Events = a.eventsThrough(period)
	return rec, nil
}

// eventsThrough returns the context events dated in or before period
func (a *Assembler) eventsThrough(period models.Period) []models.ContextEvent {
	var out []models.ContextEvent
	for _, e := range a.events {
		if e.Date.Year() <= int(period) {
			out = append(out, e)
		}
	}
	return out
}

// builder carries the per-record variation state
type builder struct {
	g      *variation.Generator
	pct    float64
	scale  float64
	entity models.Entity
}

func (b *builder) vary(base float64) decimal.Decimal {
	return b.g.Vary(base*b.scale, b.pct)
}

func (b *builder) monthly(rec *models.FinancialRecord) error {
	rec.Monthly = make([]models.MonthlyFinancials, len(monthNames))
	revenue, expenses := decimal.Zero, decimal.Zero

	for i, month := range monthNames {
		r := b.vary(baseMonthlyRevenue * seasonality[i])
		e := b.vary(baseMonthlyExpenses * seasonality[i])
		rec.Monthly[i] = models.MonthlyFinancials{
			Month:     month,
			Revenue:   r,
			Expenses:  e,
			NetIncome: invariant.Subtract(r, e),
		}
		revenue = revenue.Add(r)
		expenses = expenses.Add(e)
	}

	margin, err := invariant.Margin(invariant.Subtract(revenue, expenses), revenue)
	if err != nil {
		return err
	}
	rec.Annual = models.AnnualTotals{
		Revenue:      revenue,
		Expenses:     expenses,
		NetIncome:    invariant.Subtract(revenue, expenses),
		ProfitMargin: margin,
	}
	return nil
}

func (b *builder) departments(rec *models.FinancialRecord) error {
	renames := departmentSubstitutions[b.entity.Type]
	rec.Departments = make([]models.DepartmentPerformance, len(departments))

	for i, d := range departments {
		name := d.name
		if alt, ok := renames[name]; ok {
			name = alt
		}
		r := b.vary(d.revenue)
		e := b.vary(d.revenue * d.expenseRatio)
		profit := invariant.Subtract(r, e)
		margin, err := invariant.Margin(profit, r)
		if err != nil {
			return fmt.Errorf("department %s: %w", name, err)
		}
		rec.Departments[i] = models.DepartmentPerformance{
			Name:         name,
			Revenue:      r,
			Expenses:     e,
			Profit:       profit,
			ProfitMargin: margin,
		}
	}
	return nil
}

func (b *builder) expenses(rec *models.FinancialRecord) error {
	floor := decimal.NewFromFloat(expenseFloor)
	amounts := make([]decimal.Decimal, len(expenseCategories))
	for i, c := range expenseCategories {
		amounts[i] = decimal.Max(b.vary(c.amount), floor)
	}

	shares, err := invariant.Shares(amounts, invariant.PercentPlaces)
	if err != nil {
		return err
	}

	rec.Expenses = make([]models.ExpenseCategory, len(expenseCategories))
	for i, c := range expenseCategories {
		rec.Expenses[i] = models.ExpenseCategory{
			Name:       c.name,
			Amount:     amounts[i],
			Percentage: shares[i],
			Color:      c.color,
		}
	}
	return nil
}

func (b *builder) cashFlow(rec *models.FinancialRecord) error {
	rec.CashFlow = make([]models.CashFlowEntry, len(cashFlowPeriods))
	for i, p := range cashFlowPeriods {
		op := b.vary(baseOperatingCash)
		inv := b.vary(baseInvestingCash)
		fin := b.vary(baseFinancingCash)
		rec.CashFlow[i] = models.CashFlowEntry{
			Period:    p,
			Operating: op,
			Investing: inv,
			Financing: fin,
			Net:       invariant.Sum(op, inv, fin),
		}
	}
	return nil
}

func (b *builder) payerMix(rec *models.FinancialRecord) error {
	weights := make([]decimal.Decimal, len(payerWeights))
	for i, p := range payerWeights {
		weights[i] = decimal.Max(b.g.VaryPlaces(p.weight, b.pct, 2), decimal.New(1, -2))
	}

	amounts, err := invariant.Allocate(rec.Annual.Revenue, weights)
	if err != nil {
		return err
	}
	shares, err := invariant.Shares(amounts, invariant.PercentPlaces)
	if err != nil {
		return err
	}

	rec.PayerMix = models.PayerMix{
		TotalRevenue: rec.Annual.Revenue,
		Shares:       make([]models.PayerShare, len(payerWeights)),
	}
	for i, p := range payerWeights {
		rec.PayerMix.Shares[i] = models.PayerShare{
			Payer:      p.payer,
			Amount:     amounts[i],
			Percentage: shares[i],
		}
	}
	return nil
}

func (b *builder) ebida(rec *models.FinancialRecord) error {
	annual := models.EBIDAPeriod{Period: "FY"}
	rec.EBIDA.Quarterly = make([]models.EBIDAPeriod, len(quarters))

	for i, q := range quarters {
		op := b.vary(baseQuarterOperatingIncome)
		dep := b.vary(baseQuarterDepreciation)
		interest := b.vary(baseQuarterInterest)
		rec.EBIDA.Quarterly[i] = models.EBIDAPeriod{
			Period:          q,
			OperatingIncome: op,
			Depreciation:    dep,
			Interest:        interest,
			EBIDA:           invariant.Sum(op, dep, interest),
		}
		annual.OperatingIncome = annual.OperatingIncome.Add(op)
		annual.Depreciation = annual.Depreciation.Add(dep)
		annual.Interest = annual.Interest.Add(interest)
	}
	annual.EBIDA = invariant.Sum(annual.OperatingIncome, annual.Depreciation, annual.Interest)
	rec.EBIDA.Annual = annual

	margin, err := invariant.Margin(annual.EBIDA, rec.Annual.Revenue)
	if err != nil {
		return err
	}
	rec.EBIDA.Margin = margin
	return nil
}

func (b *builder) donations(rec *models.FinancialRecord) error {
	sources := make([]models.DonationSource, len(donationSources))
	amounts := make([]decimal.Decimal, len(donationSources))
	for i, s := range donationSources {
		amounts[i] = b.vary(s.amount)
		sources[i] = models.DonationSource{Name: s.name, Amount: amounts[i]}
	}

	total := invariant.Sum(amounts...)
	donors := decimal.Max(b.vary(baseDonorCount), decimal.NewFromInt(1))

	rec.Donations = models.DonationMetrics{
		Sources:     sources,
		Total:       total,
		DonorCount:  donors,
		AverageGift: total.Div(donors).Round(2),
	}
	return nil
}

func (b *builder) assets(rec *models.FinancialRecord) error {
	cash := b.vary(baseCash)
	investments := b.vary(baseInvestments)
	receivables := b.vary(baseReceivables)
	property := b.vary(basePropertyPlant)
	total := invariant.Sum(cash, investments, receivables, property)
	liabilities := b.vary(baseLiabilities)

	if rec.Annual.Expenses.IsZero() {
		return invariant.ErrZeroTotal
	}
	dailyExpense := rec.Annual.Expenses.Div(decimal.NewFromInt(365))

	rec.Assets = models.FinancialAssets{
		Cash:           cash,
		Investments:    investments,
		Receivables:    receivables,
		PropertyPlant:  property,
		TotalAssets:    total,
		Liabilities:    liabilities,
		NetAssets:      invariant.Subtract(total, liabilities),
		DaysCashOnHand: cash.Div(dailyExpense).Round(1),
	}
	return nil
}

func (b *builder) bondRating(rec *models.FinancialRecord) error {
	idx := ratingIndex[b.entity.Type]
	margin := rec.Annual.ProfitMargin
	outlook := "Stable"
	switch {
	case margin.IsNegative():
		idx++
		outlook = "Negative"
	case margin.GreaterThan(decimal.NewFromInt(8)):
		idx--
		outlook = "Positive"
	case margin.GreaterThan(decimal.NewFromInt(5)):
		outlook = "Positive"
	}

	ratings := make([]models.AgencyRating, len(ratingAgencies))
	for i, ag := range ratingAgencies {
		j := max(0, min(idx, len(ag.ladder)-1))
		ratings[i] = models.AgencyRating{Agency: ag.agency, Rating: ag.ladder[j]}
	}

	rec.BondRating = models.BondRating{
		Ratings:              ratings,
		Outlook:              outlook,
		DebtServiceCoverage:  b.g.VaryPlaces(baseDebtServiceCoverage, b.pct, 2),
		DebtToCapitalization: b.g.VaryPlaces(baseDebtToCap, b.pct, 1),
		OutstandingDebt:      b.vary(baseOutstandingDebt),
	}
	return nil
}

func (b *builder) programDependency(rec *models.FinancialRecord) error {
	weights := programWeights[b.entity.Type]
	programs := make([]models.StateProgram, len(statePrograms))
	amounts := make([]decimal.Decimal, len(statePrograms))
	for i, p := range statePrograms {
		base := p.amount
		if w, ok := weights[p.name]; ok {
			base *= w
		}
		amounts[i] = b.vary(base)
		programs[i] = models.StateProgram{Name: p.name, Amount: amounts[i]}
	}

	total := invariant.Sum(amounts...)
	pct, err := invariant.Margin(total, rec.Annual.Revenue)
	if err != nil {
		return err
	}

	risk := "low"
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(25)):
		risk = "high"
	case pct.GreaterThanOrEqual(decimal.NewFromInt(15)):
		risk = "medium"
	}

	rec.ProgramDependency = models.ProgramDependency{
		Programs:          programs,
		TotalStateFunding: total,
		DependencyPct:     pct,
		RiskLevel:         risk,
	}
	return nil
}

func (b *builder) summary(rec *models.FinancialRecord) error {
	a := rec.Annual
	rec.Summary = []models.SummaryMetric{
		b.metric("total_revenue", "Total Revenue", a.Revenue, models.MetricFormatCurrency, 4.5),
		b.metric("total_expenses", "Total Expenses", a.Expenses, models.MetricFormatCurrency, 3.8),
		b.metric("net_income", "Net Income", a.NetIncome, models.MetricFormatCurrency, 6.0),
		b.metric("profit_margin", "Profit Margin", a.ProfitMargin, models.MetricFormatPercentage, 1.2),
		b.metric("patient_volume", "Patient Volume", b.vary(basePatientVolume), models.MetricFormatCount, 2.5),
		b.metric("avg_length_of_stay", "Avg Length of Stay", b.g.VaryPlaces(baseLengthOfStay, b.pct, 1), models.MetricFormatCount, -1.5),
		b.metric("bed_occupancy", "Bed Occupancy", b.g.VaryPlaces(baseBedOccupancy, b.pct/3, 1), models.MetricFormatPercentage, 1.0),
	}
	return nil
}

// metric builds a summary card whose change swings around bias by twice its size
func (b *builder) metric(key, label string, value decimal.Decimal, format models.MetricFormat, bias float64) models.SummaryMetric {
	change := b.g.VaryPlaces(bias, 200, 1)
	dir := models.DirectionFlat
	switch change.Sign() {
	case 1:
		dir = models.DirectionUp
	case -1:
		dir = models.DirectionDown
	}
	return models.SummaryMetric{
		Key:       key,
		Label:     label,
		Value:     value,
		Format:    format,
		Change:    change,
		Direction: dir,
	}
}
