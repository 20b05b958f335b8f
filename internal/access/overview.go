package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/savegress/hospitalfin/internal/invariant"
	"github.com/savegress/hospitalfin/pkg/models"
	"github.com/shopspring/decimal"
)

// HospitalMargin is one row of a portfolio overview
type HospitalMargin struct {
	EntityID     string          `json:"entity_id"`
	Name         string          `json:"name"`
	Revenue      decimal.Decimal `json:"revenue"`
	NetIncome    decimal.Decimal `json:"net_income"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// MarginStats describes the spread of profit margins across a portfolio
type MarginStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// Overview aggregates one year across every hospital a principal may see
type Overview struct {
	Period        models.Period    `json:"period"`
	Hospitals     []HospitalMargin `json:"hospitals"`
	TotalRevenue  decimal.Decimal  `json:"total_revenue"`
	TotalExpenses decimal.Decimal  `json:"total_expenses"`
	TotalNet      decimal.Decimal  `json:"total_net_income"`
	Margin        decimal.Decimal  `json:"portfolio_margin"`
	Spread        MarginStats      `json:"margin_spread"`
}

// Overview builds a portfolio summary for period.
// Every hospital is read through Fetch; hospitals without data for period are skipped.
// ErrDenied is returned when p is entitled to nothing, ErrNotFound when no
// entitled hospital has data for period.
func (f *Facade) Overview(ctx context.Context, p *models.Principal, period models.Period) (*Overview, error) {
	ids := f.model.AccessibleEntities(p)
	if len(ids) == 0 {
		return nil, ErrDenied
	}

	ov := &Overview{Period: period, Hospitals: []HospitalMargin{}}
	var margins stats.Float64Data

	for _, id := range ids {
		rec, err := f.Fetch(ctx, p, id, period)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		row := HospitalMargin{
			EntityID:     id,
			Revenue:      rec.Annual.Revenue,
			NetIncome:    rec.Annual.NetIncome,
			ProfitMargin: rec.Annual.ProfitMargin,
		}
		if e, ok := f.catalog.Entity(id); ok {
			row.Name = e.Name
		}
		ov.Hospitals = append(ov.Hospitals, row)

		ov.TotalRevenue = ov.TotalRevenue.Add(rec.Annual.Revenue)
		ov.TotalExpenses = ov.TotalExpenses.Add(rec.Annual.Expenses)
		ov.TotalNet = ov.TotalNet.Add(rec.Annual.NetIncome)
		margins = append(margins, rec.Annual.ProfitMargin.InexactFloat64())
	}

	if len(ov.Hospitals) == 0 {
		return nil, ErrNotFound
	}

	margin, err := invariant.Margin(ov.TotalNet, ov.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("portfolio margin: %w", err)
	}
	ov.Margin = margin

	spread, err := describe(margins)
	if err != nil {
		return nil, fmt.Errorf("margin spread: %w", err)
	}
	ov.Spread = spread

	return ov, nil
}

func describe(data stats.Float64Data) (MarginStats, error) {
	var s MarginStats
	var err error

	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return s, err
	}
	return s, nil
}
