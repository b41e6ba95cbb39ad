// Package relay broadcasts a pool's emitted events to peer observers
// (dashboards, auditors, other instances of the same operator's
// tooling) over a libp2p gossip topic, independent of the local event
// broker used within the process.
package relay

import (
	"context"

	"github.com/fxamacker/cbor/v2"
	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p-core/host"
	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"github.com/stakepool/liquidcore/common/logging"
	"github.com/stakepool/liquidcore/pool"
)

var logger = logging.GetLogger("events/relay")

const topicName = "stakepool/events/v1"

// Relay publishes a pool's Events onto a libp2p gossipsub topic and lets
// remote subscribers read them back.
type Relay struct {
	host  host.Host
	ps    *pubsub.PubSub
	topic *pubsub.Topic
	sub   *pubsub.Subscription
}

// New starts a libp2p host and joins the shared event-relay topic.
func New(ctx context.Context) (*Relay, error) {
	h, err := libp2p.New(ctx)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, err
	}
	topic, err := ps.Join(topicName)
	if err != nil {
		return nil, err
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, err
	}
	return &Relay{host: h, ps: ps, topic: topic, sub: sub}, nil
}

// Close tears down the relay's libp2p host.
func (r *Relay) Close() error {
	r.sub.Cancel()
	if err := r.topic.Close(); err != nil {
		return err
	}
	return r.host.Close()
}

// Publish broadcasts ev to every subscriber of the relay topic.
func (r *Relay) Publish(ctx context.Context, ev pool.Event) error {
	raw, err := cbor.Marshal(ev)
	if err != nil {
		return err
	}
	return r.topic.Publish(ctx, raw)
}

// Pump forwards every message the local event broker emits onto the
// relay topic until ctx is cancelled. Intended to run in its own
// goroutine alongside an Engine.
func (r *Relay) Pump(ctx context.Context, events <-chan interface{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-events:
			if !ok {
				return
			}
			ev, ok := raw.(pool.Event)
			if !ok {
				continue
			}
			if err := r.Publish(ctx, ev); err != nil {
				logger.Warn("failed to relay event", "err", err)
			}
		}
	}
}

// Receive blocks until the next event arrives from a remote peer over
// the relay topic.
func (r *Relay) Receive(ctx context.Context) (pool.Event, error) {
	msg, err := r.sub.Next(ctx)
	if err != nil {
		return pool.Event{}, err
	}
	var ev pool.Event
	if err := cbor.Unmarshal(msg.Data, &ev); err != nil {
		return pool.Event{}, err
	}
	return ev, nil
}
