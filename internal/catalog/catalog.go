// Package catalog materializes every (hospital, year) financial record once
// at startup and serves read-only lookups afterwards.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/savegress/hospitalfin/internal/invariant"
	"github.com/savegress/hospitalfin/internal/workerpool"
	"github.com/savegress/hospitalfin/pkg/models"
)

// Assembler builds one record; *dataset.Assembler satisfies it
type Assembler interface {
	Assemble(entity models.Entity, period models.Period) (*models.FinancialRecord, error)
}

// Key indexes a record by hospital and year
type Key struct {
	EntityID string
	Period   models.Period
}

// Options controls catalog construction
type Options struct {
	Workers int
}

// Catalog is the immutable set of generated records.
// It is safe for concurrent readers because nothing writes after Build returns.
type Catalog struct {
	records  map[Key]*models.FinancialRecord
	entities []models.Entity
	byID     map[string]models.Entity
	periods  []models.Period
}

// Build assembles and verifies a record for every entity × period pair.
// Any assembly or invariant failure aborts the build; no partial catalog is returned.
func Build(ctx context.Context, asm Assembler, entities []models.Entity, periods []models.Period, opts Options) (*Catalog, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	start := time.Now()

	c := &Catalog{
		records:  make(map[Key]*models.FinancialRecord, len(entities)*len(periods)),
		entities: append([]models.Entity(nil), entities...),
		byID:     make(map[string]models.Entity, len(entities)),
		periods:  append([]models.Period(nil), periods...),
	}
	for _, e := range entities {
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate hospital id %q", e.ID)
		}
		c.byID[e.ID] = e
	}
	sort.Slice(c.periods, func(i, j int) bool { return c.periods[i] < c.periods[j] })

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	pool, err := workerpool.New(workerpool.Config{
		Workers:   opts.Workers,
		QueueSize: len(entities) * len(periods),
		ErrorHandler: func(err error) {
			fail(err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer pool.Stop()

submit:
	for _, e := range entities {
		for _, p := range c.periods {
			entity, period := e, p
			err := pool.SubmitWithContext(ctx, func() error {
				rec, err := asm.Assemble(entity, period)
				if err != nil {
					return err
				}
				if err := invariant.Verify(rec); err != nil {
					return err
				}
				mu.Lock()
				c.records[Key{entity.ID, period}] = rec
				mu.Unlock()
				return nil
			})
			if err != nil {
				fail(err)
				break submit
			}
		}
	}
	pool.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("catalog: build failed: %w", firstErr)
	}

	log.Printf("Catalog built: %d records (%d hospitals x %d years) in %s",
		len(c.records), len(entities), len(c.periods), time.Since(start).Round(time.Millisecond))
	return c, nil
}

// Lookup returns the record for a hospital and year.
// The second result is false when the pair was never materialized.
func (c *Catalog) Lookup(entityID string, period models.Period) (*models.FinancialRecord, bool) {
	rec, ok := c.records[Key{entityID, period}]
	return rec, ok
}

// Entities returns the hospitals in configuration order
func (c *Catalog) Entities() []models.Entity {
	return append([]models.Entity(nil), c.entities...)
}

// Entity returns a hospital by id
func (c *Catalog) Entity(id string) (models.Entity, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// EntityIDs returns every known hospital id
func (c *Catalog) EntityIDs() []string {
	ids := make([]string, len(c.entities))
	for i, e := range c.entities {
		ids[i] = e.ID
	}
	return ids
}

// Periods returns the supported years in ascending order
func (c *Catalog) Periods() []models.Period {
	return append([]models.Period(nil), c.periods...)
}

// Supports reports whether period is one of the materialized years
func (c *Catalog) Supports(period models.Period) bool {
	for _, p := range c.periods {
		if p == period {
			return true
		}
	}
	return false
}

// Len returns the number of records
func (c *Catalog) Len() int {
	return len(c.records)
}
