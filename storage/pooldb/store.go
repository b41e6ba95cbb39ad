// Package pooldb persists a pool.Pool's accounting state between process
// restarts. A single-instance accounting ledger has no peers to sync
// against and no proofs to serve — it only needs durable key-value
// storage for one blob, so this wraps badger directly rather than a
// content-addressed Merkle tree.
package pooldb

import (
	"github.com/dgraph-io/badger/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/golang/snappy"

	"github.com/stakepool/liquidcore/common/logging"
	"github.com/stakepool/liquidcore/pool"
)

var logger = logging.GetLogger("storage/pooldb")

// snapshot is the serializable wrapper around a pool.Pool: ValidatorPool
// and Broker are excluded from pool.Pool's own cbor tags because a
// B-tree and a pubsub broker aren't serializable values, so their
// contents travel here instead and get stitched back on Load.
type snapshot struct {
	Pool       *pool.Pool        `cbor:"pool"`
	Validators []*pool.Validator `cbor:"validators"`
}

func snapshotOf(p *pool.Pool) (*snapshot, error) {
	vs, err := p.ValidatorPool.All()
	if err != nil {
		return nil, err
	}
	return &snapshot{Pool: p, Validators: vs}, nil
}

func (s *snapshot) restore() *pool.Pool {
	s.Pool.ValidatorPool = pool.NewValidatorPoolFromSnapshot(s.Validators)
	s.Pool.EnsureBroker()
	return s.Pool
}

// stateKey is the single badger key the current pool snapshot lives
// under. Historical snapshots are addressed by epoch, see Checkpoint.
var stateKey = []byte("pool/state/current")

func checkpointKey(epoch uint64) []byte {
	key := make([]byte, 0, len(stateKey)+1+8)
	key = append(key, []byte("pool/state/checkpoint/")...)
	for shift := 56; shift >= 0; shift -= 8 {
		key = append(key, byte(epoch>>uint(shift)))
	}
	return key
}

// Store is a badger-backed persistence layer for a single pool.Pool
// instance.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists p's current state, overwriting any previous snapshot.
func (s *Store) Save(p *pool.Pool) error {
	snap, err := snapshotOf(p)
	if err != nil {
		return err
	}
	raw, err := cbor.Marshal(snap)
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, raw)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey, compressed)
	})
}

// Load restores the most recently saved pool state, or returns
// badger.ErrKeyNotFound if nothing has ever been saved.
func (s *Store) Load() (*pool.Pool, error) {
	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			compressed = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := cbor.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return snap.restore(), nil
}

// Checkpoint saves an additional, epoch-addressed copy of p's state
// alongside the current snapshot, for later audit or rollback.
func (s *Store) Checkpoint(epoch uint64, p *pool.Pool) error {
	snap, err := snapshotOf(p)
	if err != nil {
		return err
	}
	raw, err := cbor.Marshal(snap)
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, raw)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(epoch), compressed)
	})
}

// LoadCheckpoint restores the snapshot saved for a specific epoch.
func (s *Store) LoadCheckpoint(epoch uint64) (*pool.Pool, error) {
	var compressed []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(epoch))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			compressed = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := cbor.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return snap.restore(), nil
}

// GC runs badger's value-log garbage collection. Callers schedule this
// periodically; it returns nil when badger reports nothing worth
// reclaiming (badger.ErrNoRewrite).
func (s *Store) GC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if err == badger.ErrNoRewrite {
		return nil
	}
	if err != nil {
		logger.Warn("value log GC failed", "err", err)
	}
	return err
}
