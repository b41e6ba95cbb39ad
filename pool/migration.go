package pool

import "fmt"

// Migrations below are keyed to state.go's schemaVersion directly, so
// adding a new step never requires touching NewPool.

// Migrate upgrades p in place from whatever SchemaVersion it was
// persisted at up to schemaVersion. It is a no-op if p is already current,
// and returns an error if p was persisted at a version newer than this
// binary understands.
func Migrate(p *Pool) error {
	if p.SchemaVersion > schemaVersion {
		return fmt.Errorf("pool: persisted schema version %d is newer than this binary's %d", p.SchemaVersion, schemaVersion)
	}
	for p.SchemaVersion < schemaVersion {
		step, ok := migrations[p.SchemaVersion]
		if !ok {
			return fmt.Errorf("pool: no migration registered from schema version %d", p.SchemaVersion)
		}
		if err := step(p); err != nil {
			return fmt.Errorf("pool: migrating from schema version %d: %w", p.SchemaVersion, err)
		}
		p.SchemaVersion++
	}
	return nil
}

// migrations maps a FROM version to the step that advances a Pool to
// FROM+1. There is currently nothing registered above version 1: this
// repo's genesis schema. A prior deployment generation carried a dormant
// LiquidityPool/Farm subsystem alongside the staking pool; that subsystem
// never shipped a populated instance and is not represented here, so
// there is no data to migrate out of it, only the decision to never
// instantiate it again.
var migrations = map[uint32]func(*Pool) error{}

// legacyLiquidityPoolStub documents the decommissioned sibling subsystem
// referenced by older migration tooling. It intentionally holds no state
// and exposes no operations; its only purpose is to be a named, findable
// answer to "where did LiquidityPool/Farm go" for anyone migrating an
// older deployment's records.
type legacyLiquidityPoolStub struct{}

// Decommissioned always reports true: this subsystem is permanently
// retired and never reinstantiated by Migrate.
func (legacyLiquidityPoolStub) Decommissioned() bool { return true }
