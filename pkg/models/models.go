package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType represents the kind of hospital
type EntityType string

const (
	EntityTypeGeneral   EntityType = "general"
	EntityTypeSpecialty EntityType = "specialty"
	EntityTypePediatric EntityType = "pediatric"
	EntityTypeTrauma    EntityType = "trauma"
)

// Valid reports whether t is one of the known entity types
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeGeneral, EntityTypeSpecialty, EntityTypePediatric, EntityTypeTrauma:
		return true
	}
	return false
}

// Entity represents a hospital, the unit of financial reporting
type Entity struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	Location string     `json:"location" yaml:"location"`
	Type     EntityType `json:"type" yaml:"type"`
}

// Period is a supported reporting year
type Period int

// MetricFormat tells the presentation layer how to render a summary value
type MetricFormat string

const (
	MetricFormatCurrency   MetricFormat = "currency"
	MetricFormatPercentage MetricFormat = "percentage"
	MetricFormatCount      MetricFormat = "count"
)

// Direction is the sign of a period-over-period change
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// SummaryMetric is a headline figure shown on the dashboard cards
type SummaryMetric struct {
	Key       string          `json:"key"`
	Label     string          `json:"label"`
	Value     decimal.Decimal `json:"value"`
	Format    MetricFormat    `json:"format"`
	Change    decimal.Decimal `json:"change"` // percent vs prior year
	Direction Direction       `json:"direction"`
}

// AnnualTotals holds the year-level income statement
type AnnualTotals struct {
	Revenue      decimal.Decimal `json:"revenue"`
	Expenses     decimal.Decimal `json:"expenses"`
	NetIncome    decimal.Decimal `json:"net_income"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// MonthlyFinancials is one entry of the monthly revenue series
type MonthlyFinancials struct {
	Month     string          `json:"month"`
	Revenue   decimal.Decimal `json:"revenue"`
	Expenses  decimal.Decimal `json:"expenses"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// DepartmentPerformance is the income statement of one department
type DepartmentPerformance struct {
	Name         string          `json:"name"`
	Revenue      decimal.Decimal `json:"revenue"`
	Expenses     decimal.Decimal `json:"expenses"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// ExpenseCategory is one slice of the expense breakdown
type ExpenseCategory struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	Color      string          `json:"color"`
}

// CashFlowEntry is one period of the cash-flow series
type CashFlowEntry struct {
	Period    string          `json:"period"`
	Operating decimal.Decimal `json:"operating"`
	Investing decimal.Decimal `json:"investing"`
	Financing decimal.Decimal `json:"financing"`
	Net       decimal.Decimal `json:"net"`
}

// PayerType identifies a revenue source class
type PayerType string

const (
	PayerGovernment PayerType = "government"
	PayerCommercial PayerType = "commercial"
	PayerSelfPay    PayerType = "self_pay"
	PayerOther      PayerType = "other"
)

// PayerShare is the revenue attributed to one payer class
type PayerShare struct {
	Payer      PayerType       `json:"payer"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PayerMix breaks total revenue down by payer
type PayerMix struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Shares       []PayerShare    `json:"shares"`
}

// EBIDAPeriod holds earnings before interest, depreciation and amortization for one span
type EBIDAPeriod struct {
	Period          string          `json:"period"`
	OperatingIncome decimal.Decimal `json:"operating_income"`
	Depreciation    decimal.Decimal `json:"depreciation"`
	Interest        decimal.Decimal `json:"interest"`
	EBIDA           decimal.Decimal `json:"ebida"`
}

// EBIDAMetrics holds the annual EBIDA figure and its quarterly trend
type EBIDAMetrics struct {
	Annual    EBIDAPeriod     `json:"annual"`
	Margin    decimal.Decimal `json:"margin"`
	Quarterly []EBIDAPeriod   `json:"quarterly"`
}

// DonationSource is one donor class
type DonationSource struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// DonationMetrics summarises philanthropic income
type DonationMetrics struct {
	Sources     []DonationSource `json:"sources"`
	Total       decimal.Decimal  `json:"total"`
	DonorCount  decimal.Decimal  `json:"donor_count"`
	AverageGift decimal.Decimal  `json:"average_gift"`
}

// FinancialAssets is a balance-sheet snapshot
type FinancialAssets struct {
	Cash           decimal.Decimal `json:"cash"`
	Investments    decimal.Decimal `json:"investments"`
	Receivables    decimal.Decimal `json:"receivables"`
	PropertyPlant  decimal.Decimal `json:"property_plant"`
	TotalAssets    decimal.Decimal `json:"total_assets"`
	Liabilities    decimal.Decimal `json:"liabilities"`
	NetAssets      decimal.Decimal `json:"net_assets"`
	DaysCashOnHand decimal.Decimal `json:"days_cash_on_hand"`
}

// AgencyRating is a rating issued by one agency
type AgencyRating struct {
	Agency string `json:"agency"`
	Rating string `json:"rating"`
}

// BondRating is a credit snapshot
type BondRating struct {
	Ratings              []AgencyRating  `json:"ratings"`
	Outlook              string          `json:"outlook"`
	DebtServiceCoverage  decimal.Decimal `json:"debt_service_coverage"`
	DebtToCapitalization decimal.Decimal `json:"debt_to_capitalization"`
	OutstandingDebt      decimal.Decimal `json:"outstanding_debt"`
}

// StateProgram is one state-funded revenue stream
type StateProgram struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProgramDependency measures reliance on state programs
type ProgramDependency struct {
	Programs          []StateProgram  `json:"programs"`
	TotalStateFunding decimal.Decimal `json:"total_state_funding"`
	DependencyPct     decimal.Decimal `json:"dependency_pct"`
	RiskLevel         string          `json:"risk_level"`
}

// ContextEvent is a dated market or regulatory event annotated on charts
type ContextEvent struct {
	Date        time.Time `json:"date" yaml:"date"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Impact      string    `json:"impact" yaml:"impact"`
}

// FinancialRecord is the complete generated dataset for one hospital and year.
// Records are read-only once the catalog is built.
type FinancialRecord struct {
	EntityID          string                  `json:"entity_id"`
	Period            Period                  `json:"period"`
	Summary           []SummaryMetric         `json:"summary"`
	Annual            AnnualTotals            `json:"annual"`
	Monthly           []MonthlyFinancials     `json:"monthly"`
	Departments       []DepartmentPerformance `json:"departments"`
	Expenses          []ExpenseCategory       `json:"expenses"`
	CashFlow          []CashFlowEntry         `json:"cash_flow"`
	PayerMix          PayerMix                `json:"payer_mix"`
	EBIDA             EBIDAMetrics            `json:"ebida"`
	Donations         DonationMetrics         `json:"donations"`
	Assets            FinancialAssets         `json:"assets"`
	BondRating        BondRating              `json:"bond_rating"`
	ProgramDependency ProgramDependency       `json:"program_dependency"`
	Events            []ContextEvent          `json:"events"`
	GeneratedAt       time.Time               `json:"generated_at"`
}

// Role represents a principal's authorization class
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleHospitalOwner Role = "hospital_owner"
	RoleBranchOwner   Role = "branch_owner"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHospitalOwner, RoleBranchOwner:
		return true
	}
	return false
}

// Principal represents an authenticated user.
// EntityID is used by branch owners, EntityIDs by hospital owners.
type Principal struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      Role     `json:"role"`
	EntityID  string   `json:"entity_id,omitempty"`
	EntityIDs []string `json:"entity_ids,omitempty"`
}
