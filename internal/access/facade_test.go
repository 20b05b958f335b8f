package access

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/savegress/hospitalfin/internal/audit"
	"github.com/savegress/hospitalfin/internal/catalog"
	"github.com/savegress/hospitalfin/internal/config"
	"github.com/savegress/hospitalfin/internal/dataset"
	"github.com/savegress/hospitalfin/internal/entitlement"
	"github.com/savegress/hospitalfin/pkg/models"
)

var (
	buildOnce sync.Once
	testCat   *catalog.Catalog
	buildErr  error
)

func sharedCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	buildOnce.Do(func() {
		cfg := config.LoadFromEnv()
		cfg.Catalog.Seed = 42
		cfg.Catalog.VariationPct = 15
		asm := dataset.NewAssembler(&cfg.Catalog, config.DefaultEvents())
		testCat, buildErr = catalog.Build(context.Background(), asm, config.DefaultHospitals(),
			[]models.Period{2023, 2024}, catalog.Options{Workers: 4})
	})
	if buildErr != nil {
		t.Fatalf("catalog build failed: %v", buildErr)
	}
	return testCat
}

func newFacade(t *testing.T) (*Facade, *audit.Logger) {
	t.Helper()
	cat := sharedCatalog(t)
	logger := audit.NewLogger(&config.AuditConfig{Enabled: true})
	return NewFacade(entitlement.NewModel(cat.EntityIDs()), cat, logger), logger
}

var (
	admin  = &models.Principal{ID: "u-admin", Role: models.RoleAdmin}
	owner  = &models.Principal{ID: "u-owner", Role: models.RoleHospitalOwner, EntityIDs: []string{"general-1", "general-2", "peds-1"}}
	branch = &models.Principal{ID: "u-branch", Role: models.RoleBranchOwner, EntityID: "cardio-1"}
)

func TestFetch_AdminGranted(t *testing.T) {
	f, logger := newFacade(t)

	rec, err := f.Fetch(context.Background(), admin, "general-1", 2024)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec.EntityID != "general-1" || rec.Period != 2024 {
		t.Errorf("wrong record: %s/%d", rec.EntityID, rec.Period)
	}

	events := logger.Events(audit.EventFilter{PrincipalID: admin.ID})
	if len(events) != 1 || events[0].Outcome != audit.OutcomeGranted {
		t.Errorf("expected one granted audit event, got %+v", events)
	}
}

func TestFetch_BranchOwnerDenied(t *testing.T) {
	f, logger := newFacade(t)

	rec, err := f.Fetch(context.Background(), branch, "general-1", 2024)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if rec != nil {
		t.Error("denied fetch must not return data")
	}

	events := logger.Events(audit.EventFilter{Outcome: audit.OutcomeDenied})
	if len(events) != 1 {
		t.Fatalf("expected one denied event, got %d", len(events))
	}
	if events[0].PrincipalID != "u-branch" || events[0].EntityID != "general-1" {
		t.Errorf("unexpected denied event: %+v", events[0])
	}
}

func TestFetch_DeniedEvenWhenDataExists(t *testing.T) {
	f, _ := newFacade(t)

	if _, ok := f.catalog.Lookup("trauma-1", 2024); !ok {
		t.Fatal("precondition: trauma-1/2024 should exist")
	}
	for _, p := range []*models.Principal{owner, branch} {
		if _, err := f.Fetch(context.Background(), p, "trauma-1", 2024); !errors.Is(err, ErrDenied) {
			t.Errorf("role %s: expected ErrDenied, got %v", p.Role, err)
		}
	}
}

func TestFetch_NotFound(t *testing.T) {
	f, logger := newFacade(t)

	_, err := f.Fetch(context.Background(), branch, "cardio-1", 1999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Unentitled and unsupported: denial wins
	_, err = f.Fetch(context.Background(), branch, "general-1", 1999)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied to take precedence, got %v", err)
	}

	// Admin asking for an unknown hospital
	_, err = f.Fetch(context.Background(), admin, "nowhere-1", 2024)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown hospital, got %v", err)
	}

	if got := len(logger.Events(audit.EventFilter{Outcome: audit.OutcomeNotFound})); got != 2 {
		t.Errorf("expected 2 not_found events, got %d", got)
	}
}

func TestFetch_NilPrincipal(t *testing.T) {
	f, logger := newFacade(t)

	if _, err := f.Fetch(context.Background(), nil, "general-1", 2024); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	events := logger.Events(audit.EventFilter{})
	if len(events) != 1 || events[0].PrincipalID != "" {
		t.Errorf("expected anonymous denial to be audited, got %+v", events)
	}
}

func TestFetch_ErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrDenied, ErrNotFound) {
		t.Error("ErrDenied and ErrNotFound must be distinguishable")
	}
	if ErrDenied.Code != "ACCESS_DENIED" || ErrNotFound.Code != "NOT_FOUND" {
		t.Errorf("unexpected codes: %s, %s", ErrDenied.Code, ErrNotFound.Code)
	}
}

func TestFetch_WithoutAuditLogger(t *testing.T) {
	cat := sharedCatalog(t)
	f := NewFacade(entitlement.NewModel(cat.EntityIDs()), cat, nil)

	if _, err := f.Fetch(context.Background(), admin, "peds-1", 2023); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
}

func TestHospitals(t *testing.T) {
	f, _ := newFacade(t)

	tests := []struct {
		name      string
		principal *models.Principal
		want      []string
	}{
		{"admin", admin, []string{"general-1", "general-2", "cardio-1", "peds-1", "trauma-1"}},
		{"hospital owner", owner, []string{"general-1", "general-2", "peds-1"}},
		{"branch owner", branch, []string{"cardio-1"}},
		{"unknown role", &models.Principal{Role: "guest", EntityID: "cardio-1"}, []string{}},
		{"nil", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Hospitals(tt.principal)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d hospitals, got %d", len(tt.want), len(got))
			}
			for i, e := range got {
				if e.ID != tt.want[i] {
					t.Errorf("hospital %d = %s, want %s", i, e.ID, tt.want[i])
				}
			}
		})
	}
}

func TestOverview_Owner(t *testing.T) {
	f, logger := newFacade(t)

	ov, err := f.Overview(context.Background(), owner, 2024)
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if len(ov.Hospitals) != 3 {
		t.Fatalf("expected 3 hospitals, got %d", len(ov.Hospitals))
	}

	for _, h := range ov.Hospitals {
		if h.EntityID == "cardio-1" || h.EntityID == "trauma-1" {
			t.Errorf("overview leaked unentitled hospital %s", h.EntityID)
		}
		if h.Name == "" {
			t.Errorf("hospital %s has no name", h.EntityID)
		}
	}

	if !ov.TotalNet.Equal(ov.TotalRevenue.Sub(ov.TotalExpenses)) {
		t.Errorf("total net %s != revenue %s - expenses %s", ov.TotalNet, ov.TotalRevenue, ov.TotalExpenses)
	}
	if ov.Spread.Min > ov.Spread.Median || ov.Spread.Median > ov.Spread.Max {
		t.Errorf("spread out of order: %+v", ov.Spread)
	}
	if ov.Spread.Mean < ov.Spread.Min || ov.Spread.Mean > ov.Spread.Max {
		t.Errorf("mean outside range: %+v", ov.Spread)
	}

	// Each hospital went through Fetch
	if got := len(logger.Events(audit.EventFilter{Outcome: audit.OutcomeGranted})); got != 3 {
		t.Errorf("expected 3 granted fetches, got %d", got)
	}
}

func TestOverview_Errors(t *testing.T) {
	f, _ := newFacade(t)

	if _, err := f.Overview(context.Background(), &models.Principal{Role: models.RoleBranchOwner}, 2024); !errors.Is(err, ErrDenied) {
		t.Errorf("expected ErrDenied for principal without hospitals, got %v", err)
	}
	if _, err := f.Overview(context.Background(), admin, 1999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unsupported year, got %v", err)
	}
}

func TestOverview_SingleHospital(t *testing.T) {
	f, _ := newFacade(t)

	ov, err := f.Overview(context.Background(), branch, 2023)
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	rec, _ := f.Fetch(context.Background(), branch, "cardio-1", 2023)
	if !ov.Margin.Equal(rec.Annual.ProfitMargin) {
		t.Errorf("single hospital portfolio margin %s != record margin %s", ov.Margin, rec.Annual.ProfitMargin)
	}
	if ov.Spread.StdDev != 0 {
		t.Errorf("expected zero spread for one hospital, got %f", ov.Spread.StdDev)
	}
}
