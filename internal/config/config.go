package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/savegress/hospitalfin/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for hospitalfin
type Config struct {
	Catalog   CatalogConfig         `yaml:"catalog"`
	Hospitals []models.Entity       `yaml:"hospitals"`
	Events    []models.ContextEvent `yaml:"events"`
	Auth      AuthConfig            `yaml:"auth"`
	Audit     AuditConfig           `yaml:"audit"`
}

// CatalogConfig holds dataset generation configuration
type CatalogConfig struct {
	Years             []int              `yaml:"years"`
	PeriodMultipliers map[int]float64    `yaml:"period_multipliers"`
	TypeMultipliers   map[string]float64 `yaml:"type_multipliers"`
	VariationPct      float64            `yaml:"variation_pct"`
	Seed              int64              `yaml:"seed"` // 0 seeds from the clock
	Workers           int                `yaml:"workers"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	BCryptCost        int           `yaml:"bcrypt_cost"`
	MinPasswordLength int           `yaml:"min_password_length"`
	DemoUsers         []DemoUser    `yaml:"demo_users"`
}

// DemoUser is an account seeded into the user directory at startup
type DemoUser struct {
	Name      string   `yaml:"name"`
	Email     string   `yaml:"email"`
	Password  string   `yaml:"password"`
	Role      string   `yaml:"role"`
	EntityID  string   `yaml:"entity_id"`
	EntityIDs []string `yaml:"entity_ids"`
}

// AuditConfig holds audit logging configuration
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	MaxEvents  int  `yaml:"max_events"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{Audit: AuditConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := &Config{
		Catalog: CatalogConfig{
			Years:        getEnvIntList("CATALOG_YEARS", nil),
			VariationPct: getEnvFloat("CATALOG_VARIATION_PCT", 15),
			Seed:         getEnvInt64("CATALOG_SEED", 0),
			Workers:      getEnvInt("CATALOG_WORKERS", 4),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			TokenTTL:          getEnvDuration("AUTH_TOKEN_TTL", 8*time.Hour),
			BCryptCost:        getEnvInt("AUTH_BCRYPT_COST", 10),
			MinPasswordLength: getEnvInt("AUTH_MIN_PASSWORD", 8),
		},
		Audit: AuditConfig{
			Enabled:    getEnvBool("AUDIT_ENABLED", true),
			BufferSize: getEnvInt("AUDIT_BUFFER", 1000),
			MaxEvents:  getEnvInt("AUDIT_MAX_EVENTS", 10000),
		},
	}
	setDefaults(cfg)
	return cfg
}

// Validate checks the configuration for values the dataset engine cannot work with
func (c *Config) Validate() error {
	if len(c.Catalog.Years) == 0 {
		return fmt.Errorf("catalog: no years configured")
	}
	for _, y := range c.Catalog.Years {
		if _, ok := c.Catalog.PeriodMultipliers[y]; !ok {
			return fmt.Errorf("catalog: no period multiplier for %d", y)
		}
	}
	if c.Catalog.VariationPct < 0 {
		return fmt.Errorf("catalog: variation_pct must not be negative")
	}
	if c.Catalog.Workers < 1 {
		return fmt.Errorf("catalog: workers must be at least 1")
	}

	seen := make(map[string]bool, len(c.Hospitals))
	for _, h := range c.Hospitals {
		if h.ID == "" {
			return fmt.Errorf("hospitals: entry %q has no id", h.Name)
		}
		if seen[h.ID] {
			return fmt.Errorf("hospitals: duplicate id %q", h.ID)
		}
		seen[h.ID] = true
		if !h.Type.Valid() {
			return fmt.Errorf("hospitals: %s has unknown type %q", h.ID, h.Type)
		}
		if _, ok := c.Catalog.TypeMultipliers[string(h.Type)]; !ok {
			return fmt.Errorf("catalog: no type multiplier for %q", h.Type)
		}
	}

	for _, u := range c.Auth.DemoUsers {
		if !models.Role(u.Role).Valid() {
			return fmt.Errorf("auth: demo user %s has unknown role %q", u.Email, u.Role)
		}
	}
	return nil
}

func setDefaults(cfg *Config) {
	if len(cfg.Catalog.Years) == 0 {
		cfg.Catalog.Years = []int{2020, 2021, 2022, 2023, 2024}
	}
	if cfg.Catalog.PeriodMultipliers == nil {
		cfg.Catalog.PeriodMultipliers = map[int]float64{
			2020: 0.82,
			2021: 0.86,
			2022: 0.90,
			2023: 0.95,
			2024: 1.0,
		}
	}
	if cfg.Catalog.TypeMultipliers == nil {
		cfg.Catalog.TypeMultipliers = map[string]float64{
			string(models.EntityTypeGeneral):   1.0,
			string(models.EntityTypeSpecialty): 0.65,
			string(models.EntityTypePediatric): 0.55,
			string(models.EntityTypeTrauma):    0.8,
		}
	}
	if cfg.Catalog.VariationPct == 0 {
		cfg.Catalog.VariationPct = 15
	}
	if cfg.Catalog.Workers == 0 {
		cfg.Catalog.Workers = 4
	}
	if len(cfg.Hospitals) == 0 {
		cfg.Hospitals = DefaultHospitals()
	}
	if cfg.Events == nil {
		cfg.Events = DefaultEvents()
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 8 * time.Hour
	}
	if cfg.Auth.BCryptCost == 0 {
		cfg.Auth.BCryptCost = 10
	}
	if cfg.Auth.MinPasswordLength == 0 {
		cfg.Auth.MinPasswordLength = 8
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "hospitalfin-dev-secret"
	}
	if cfg.Auth.DemoUsers == nil {
		cfg.Auth.DemoUsers = DefaultDemoUsers()
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = 1000
	}
	if cfg.Audit.MaxEvents == 0 {
		cfg.Audit.MaxEvents = 10000
	}
}

// DefaultHospitals returns the built-in hospital list
func DefaultHospitals() []models.Entity {
	return []models.Entity{
		{ID: "general-1", Name: "Metro General Hospital", Location: "Springfield, IL", Type: models.EntityTypeGeneral},
		{ID: "general-2", Name: "Riverside Community Hospital", Location: "Peoria, IL", Type: models.EntityTypeGeneral},
		{ID: "cardio-1", Name: "Heart & Vascular Institute", Location: "Chicago, IL", Type: models.EntityTypeSpecialty},
		{ID: "peds-1", Name: "Children's Medical Center", Location: "Rockford, IL", Type: models.EntityTypePediatric},
		{ID: "trauma-1", Name: "Regional Trauma Center", Location: "Champaign, IL", Type: models.EntityTypeTrauma},
	}
}

// DefaultEvents returns the built-in market and regulatory timeline
func DefaultEvents() []models.ContextEvent {
	date := func(y int, m time.Month) time.Time { return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }
	return []models.ContextEvent{
		{Date: date(2020, time.March), Title: "COVID-19 elective surgery pause", Description: "Elective procedures suspended statewide", Impact: "negative"},
		{Date: date(2020, time.May), Title: "CARES Act relief funds", Description: "Provider relief fund distributions received", Impact: "positive"},
		{Date: date(2021, time.July), Title: "Price transparency rule", Description: "Hospitals required to publish standard charges", Impact: "neutral"},
		{Date: date(2022, time.January), Title: "Labor cost surge", Description: "Contract nursing rates peak", Impact: "negative"},
		{Date: date(2023, time.April), Title: "Medicaid redetermination", Description: "Continuous enrollment ends, coverage reviews resume", Impact: "negative"},
		{Date: date(2024, time.January), Title: "Medicare rate update", Description: "Inpatient prospective payment rates increase", Impact: "positive"},
		{Date: date(2025, time.October), Title: "State budget revision", Description: "Supplemental program funding under review", Impact: "neutral"},
	}
}

// DefaultDemoUsers returns the accounts available before anyone signs up
func DefaultDemoUsers() []DemoUser {
	return []DemoUser{
		{Name: "System Administrator", Email: "admin@hospitalfin.local", Password: "admin-password", Role: string(models.RoleAdmin)},
		{Name: "Hospital Group Owner", Email: "owner@hospitalfin.local", Password: "owner-password", Role: string(models.RoleHospitalOwner), EntityIDs: []string{"general-1", "general-2", "peds-1"}},
		{Name: "Cardiology Branch Owner", Email: "branch@hospitalfin.local", Password: "branch-password", Role: string(models.RoleBranchOwner), EntityID: "cardio-1"},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, i)
	}
	return out
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
