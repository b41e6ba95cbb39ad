// Package wal records dispatched settlement attempts so a callback that
// arrives after a crash-and-restart can still be matched against the
// Attempt that triggered it, rather than being misapplied to a fresh one.
// This is the idempotency ledger referenced by the engine's
// suspension-boundary model: an Attempt is logged before the external
// call goes out, and cleared once Confirm or Fail lands.
package wal

import (
	"github.com/fxamacker/cbor/v2"
	tmdb "github.com/tendermint/tm-db"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/pool"
)

func entryKey(kind pool.ActionKind, validator address.Address) []byte {
	key := make([]byte, 0, len(kind)+1+len(validator))
	key = append(key, []byte(kind)...)
	key = append(key, ':')
	key = append(key, validator[:]...)
	return key
}

// WAL is a tm-db-backed append-and-clear ledger of in-flight Attempts,
// keyed by (kind, validator) — matching the state machine's invariant
// that at most one action is ever in flight per (validator, kind) pair.
type WAL struct {
	db tmdb.DB
}

// Open opens a GoLevelDB-backed WAL rooted at dir.
func Open(name, dir string) (*WAL, error) {
	db, err := tmdb.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, err
	}
	return &WAL{db: db}, nil
}

// Close releases the underlying database.
func (w *WAL) Close() error {
	return w.db.Close()
}

// Record logs a about-to-be-dispatched Attempt. It must be called before
// the corresponding external call goes out.
func (w *WAL) Record(a *pool.Attempt) error {
	raw, err := cbor.Marshal(a)
	if err != nil {
		return err
	}
	return w.db.Set(entryKey(a.Kind, a.Validator), raw)
}

// Clear removes the logged Attempt once its callback (Confirm or Fail)
// has been applied.
func (w *WAL) Clear(kind pool.ActionKind, validator address.Address) error {
	return w.db.Delete(entryKey(kind, validator))
}

// Pending looks up a previously-recorded Attempt for (kind, validator),
// used on restart to discover attempts that were dispatched but never
// confirmed or failed before the process stopped.
func (w *WAL) Pending(kind pool.ActionKind, validator address.Address) (*pool.Attempt, bool, error) {
	raw, err := w.db.Get(entryKey(kind, validator))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	var a pool.Attempt
	if err := cbor.Unmarshal(raw, &a); err != nil {
		return nil, false, err
	}
	return &a, true, nil
}
