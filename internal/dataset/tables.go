package dataset

import "github.com/savegress/hospitalfin/pkg/models"

// Base figures describe a General hospital in the most recent year. Every
// figure is scaled by the period and entity-type multipliers before variation.

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Respiratory season lifts winter volumes.
var seasonality = [12]float64{1.08, 1.05, 1.02, 0.98, 0.96, 0.94, 0.95, 0.97, 0.99, 1.01, 1.02, 1.03}

const (
	baseMonthlyRevenue  = 37_500_000.0
	baseMonthlyExpenses = 34_100_000.0
	basePatientVolume   = 48_000.0
	baseLengthOfStay    = 4.6
	baseBedOccupancy    = 76.0
	expenseFloor        = 1_000.0
)

type departmentBase struct {
	name         string
	revenue      float64
	expenseRatio float64
}

var departments = []departmentBase{
	{"Cardiology", 86_000_000, 0.81},
	{"Oncology", 71_000_000, 0.87},
	{"Orthopedics", 58_000_000, 0.79},
	{"Neurology", 44_000_000, 0.90},
	{"Emergency", 56_000_000, 0.96},
	{"Surgery", 92_000_000, 0.78},
}

// departmentSubstitutions renames department lines for specific hospital types
var departmentSubstitutions = map[models.EntityType]map[string]string{
	models.EntityTypePediatric: {"Oncology": "Pediatrics"},
	models.EntityTypeTrauma:    {"Orthopedics": "Trauma"},
}

type expenseBase struct {
	name   string
	amount float64
	color  string
}

var expenseCategories = []expenseBase{
	{"Salaries & Benefits", 216_900_000, "blue"},
	{"Medical Supplies", 75_300_000, "green"},
	{"Facilities", 50_000_000, "amber"},
	{"Equipment", 24_900_000, "purple"},
	{"Administrative", 20_700_000, "red"},
	{"Other", 21_000_000, "gray"},
}

var cashFlowPeriods = []string{"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

const (
	baseOperatingCash = 4_200_000.0
	baseInvestingCash = -1_800_000.0
	baseFinancingCash = -900_000.0
)

type payerBase struct {
	payer  models.PayerType
	weight float64
}

var payerWeights = []payerBase{
	{models.PayerGovernment, 45},
	{models.PayerCommercial, 35},
	{models.PayerSelfPay, 12},
	{models.PayerOther, 8},
}

const (
	baseQuarterOperatingIncome = 4_500_000.0
	baseQuarterDepreciation    = 5_500_000.0
	baseQuarterInterest        = 1_500_000.0
)

var quarters = []string{"Q1", "Q2", "Q3", "Q4"}

type namedBase struct {
	name   string
	amount float64
}

var donationSources = []namedBase{
	{"Individual", 2_400_000},
	{"Corporate", 1_100_000},
	{"Foundation", 1_600_000},
	{"Events", 500_000},
}

const baseDonorCount = 3_200.0

const (
	baseCash          = 85_000_000.0
	baseInvestments   = 160_000_000.0
	baseReceivables   = 65_000_000.0
	basePropertyPlant = 310_000_000.0
	baseLiabilities   = 280_000_000.0
)

var ratingAgencies = []struct {
	agency string
	ladder []string
}{
	{"Moody's", []string{"Aa2", "Aa3", "A1", "A2", "A3", "Baa1", "Baa2"}},
	{"S&P", []string{"AA", "AA-", "A+", "A", "A-", "BBB+", "BBB"}},
	{"Fitch", []string{"AA", "AA-", "A+", "A", "A-", "BBB+", "BBB"}},
}

// ratingIndex is each type's position on the rating ladders before margin adjustment
var ratingIndex = map[models.EntityType]int{
	models.EntityTypeGeneral:   2,
	models.EntityTypeSpecialty: 3,
	models.EntityTypePediatric: 2,
	models.EntityTypeTrauma:    4,
}

const (
	baseDebtServiceCoverage = 2.4
	baseDebtToCap           = 38.0
	baseOutstandingDebt     = 240_000_000.0
)

var statePrograms = []namedBase{
	{"Medicaid Supplemental", 38_000_000},
	{"State Grants", 8_000_000},
	{"Uncompensated Care Pool", 5_500_000},
	{"Behavioral Health", 3_000_000},
}

// programWeights boosts programs that matter more to specific hospital types
var programWeights = map[models.EntityType]map[string]float64{
	models.EntityTypePediatric: {"Medicaid Supplemental": 1.6},
	models.EntityTypeTrauma:    {"Uncompensated Care Pool": 1.8},
}
