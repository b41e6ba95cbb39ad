// Package events indexes the pool's emitted Event stream into a
// full-text search index, so operators can query past settlement
// activity ("every failed unstake against validator X") without
// replaying the entire event log.
package events

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/pool"
)

// Record is the flattened, indexable projection of a pool.Event.
type Record struct {
	Kind      string    `json:"kind"`
	Epoch     uint64    `json:"epoch"`
	Account   string    `json:"account,omitempty"`
	Validator string    `json:"validator,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Shares    string    `json:"shares,omitempty"`
	Weight    uint16    `json:"weight,omitempty"`
	IndexedAt time.Time `json:"indexed_at"`
}

func toRecord(ev pool.Event, indexedAt time.Time) Record {
	r := Record{
		Kind:      string(ev.Kind),
		Epoch:     uint64(ev.Epoch),
		Weight:    ev.Weight,
		IndexedAt: indexedAt,
	}
	var zero address.Address
	if ev.Account != zero {
		r.Account, _ = address.Encode(ev.Account)
	}
	if ev.Validator != zero {
		r.Validator, _ = address.Encode(ev.Validator)
	}
	if ev.Amount != nil {
		r.Amount = ev.Amount.String()
	}
	if ev.Shares != nil {
		r.Shares = ev.Shares.String()
	}
	return r
}

// Index is a bleve-backed store of indexed event Records.
type Index struct {
	bi bleve.Index
}

// OpenIndex opens (creating if absent) a bleve index rooted at dir.
func OpenIndex(dir string) (*Index, error) {
	bi, err := bleve.Open(dir)
	if err == nil {
		return &Index{bi: bi}, nil
	}
	mapping := bleve.NewIndexMapping()
	bi, err = bleve.New(dir, mapping)
	if err != nil {
		return nil, err
	}
	return &Index{bi: bi}, nil
}

// Close releases the underlying bleve index.
func (idx *Index) Close() error {
	return idx.bi.Close()
}

// Index stores ev under a document id built from its kind, epoch and
// validator plus indexedAt. Indexing the same event again at a different
// indexedAt (Pump passes time.Now()) therefore adds a second entry rather
// than replacing the first.
func (idx *Index) Index(ev pool.Event, indexedAt time.Time) error {
	record := toRecord(ev, indexedAt)
	id := fmt.Sprintf("%s-%d-%s-%d", record.Kind, record.Epoch, record.Validator, indexedAt.UnixNano())
	return idx.bi.Index(id, record)
}

// Pump indexes every event it receives from events until the channel is
// closed, logging (rather than aborting) on an indexing failure so one bad
// record can't stop the stream.
func (idx *Index) Pump(events <-chan interface{}, onErr func(error)) {
	for item := range events {
		ev, ok := item.(pool.Event)
		if !ok {
			continue
		}
		if err := idx.Index(ev, time.Now()); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// Search runs a bleve query string (e.g. `kind:epoch_unstake_failed
// validator:stake1...`) against the indexed events.
func (idx *Index) Search(query string, limit int) (*bleve.SearchResult, error) {
	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"*"}
	return idx.bi.Search(req)
}
