package main

import (
	"context"
	"fmt"
	"strings"

	plugin "github.com/hashicorp/go-plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"google.golang.org/grpc/credentials"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/delegation"
	"github.com/stakepool/liquidcore/epochtime"
	"github.com/stakepool/liquidcore/events"
	"github.com/stakepool/liquidcore/events/relay"
	"github.com/stakepool/liquidcore/metrics"
	"github.com/stakepool/liquidcore/pool"
	"github.com/stakepool/liquidcore/storage/pooldb"
	"github.com/stakepool/liquidcore/storage/wal"
)

// session bundles a loaded pool, the Engine driving it, the store it came
// from, and everything tailing its event stream (the append-only log, the
// search index, and, if configured, the gossip relay), so a command can
// run its action and then persist the result back with Save.
type session struct {
	pool   *pool.Pool
	engine *pool.Engine
	store  *pooldb.Store

	wal *wal.WAL

	logSub   pubsubUnsubscriber
	eventLog *events.LogWriter

	indexSub pubsubUnsubscriber
	index    *events.Index

	relaySub pubsubUnsubscriber
	relay    *relay.Relay

	pluginClients []*plugin.Client
}

// pubsubUnsubscriber is the subset of pubsub.ClosableSubscription a
// session needs to tear down one of its event pumps.
type pubsubUnsubscriber interface {
	Close()
}

// Save writes the (possibly mutated) pool state back to the store.
func (s *session) Save() error {
	return s.store.Save(s.pool)
}

// Close stops every event pump, releases the dialed plugin endpoints, and
// releases the underlying store.
func (s *session) Close() error {
	if s.logSub != nil {
		s.logSub.Close()
	}
	if s.eventLog != nil {
		_ = s.eventLog.Close()
	}
	if s.indexSub != nil {
		s.indexSub.Close()
	}
	if s.index != nil {
		_ = s.index.Close()
	}
	if s.relaySub != nil {
		s.relaySub.Close()
	}
	if s.relay != nil {
		_ = s.relay.Close()
	}
	for _, c := range s.pluginClients {
		c.Kill()
	}
	if s.wal != nil {
		_ = s.wal.Close()
	}
	return s.store.Close()
}

// openSession loads the persisted pool state from dataDir, dials every
// validator endpoint named in the config's "validators" table, attaches
// the idempotency WAL and event sinks, and returns a ready-to-drive
// session.
func openSession(ctx context.Context, startEpoch epochtime.EpochTime) (*session, error) {
	store, err := pooldb.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	p, err := store.Load()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("loading pool state: %w", err)
	}

	resolver, pluginClients, err := dialValidatorEndpoints(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	w, err := wal.Open("wal", dataDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("opening attempt ledger: %w", err)
	}

	mc := metrics.NewCollector(prometheus.NewRegistry())
	epoch := epochtime.NewManualBackend(startEpoch)
	engine := pool.NewEngine(p, epoch, resolver, mc, nil)
	engine.SetAttemptRecorder(w)

	p.EnsureBroker()
	eventLog, err := events.OpenLogWriter(dataDir + "/events.log")
	if err != nil {
		_ = w.Close()
		_ = store.Close()
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	logCh, logSub := p.WatchEvents()
	go eventLog.Pump(logCh, func(err error) {
		logger.Error("failed to append event", "err", err)
	})

	index, err := events.OpenIndex(dataDir + "/events.idx")
	if err != nil {
		_ = eventLog.Close()
		_ = w.Close()
		_ = store.Close()
		return nil, fmt.Errorf("opening event search index: %w", err)
	}
	indexCh, indexSub := p.WatchEvents()
	go index.Pump(indexCh, func(err error) {
		logger.Error("failed to index event", "err", err)
	})

	s := &session{
		pool:          p,
		engine:        engine,
		store:         store,
		wal:           w,
		logSub:        logSub,
		eventLog:      eventLog,
		indexSub:      indexSub,
		index:         index,
		pluginClients: pluginClients,
	}

	if viper.GetBool("relay.enabled") {
		r, err := relay.New(ctx)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("starting event relay: %w", err)
		}
		relayCh, relaySub := p.WatchEvents()
		go r.Pump(ctx, relayCh)
		s.relay, s.relaySub = r, relaySub
	}

	return s, nil
}

// dialValidatorEndpoints dials a delegation endpoint for every entry under
// the "validators" config key, mapping validator address (hex) to dial
// target. A target of the form "plugin://<path>" launches an external
// go-plugin delegation binary instead of dialing gRPC directly; every
// other target is parsed as a multiaddr and dialed over TLS (configured
// under the "tls" key), unless "tls.insecure" is set.
func dialValidatorEndpoints(ctx context.Context) (delegation.MapResolver, []*plugin.Client, error) {
	resolver := make(delegation.MapResolver)
	var pluginClients []*plugin.Client
	targets := viper.GetStringMapString("validators")

	creds, err := validatorTLSCredentials()
	if err != nil {
		return nil, nil, err
	}
	insecureOK := viper.GetBool("tls.insecure")

	for addrStr, target := range targets {
		addr, err := address.Decode(addrStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid validator address %q: %w", addrStr, err)
		}

		if path := strings.TrimPrefix(target, "plugin://"); path != target {
			endpoint, client, err := delegation.DialPluginEndpoint(path)
			if err != nil {
				return nil, nil, fmt.Errorf("launching validator %q plugin %q: %w", addrStr, path, err)
			}
			resolver[addr] = endpoint
			pluginClients = append(pluginClients, client)
			continue
		}

		endpointAddr, err := delegation.ParseEndpointAddr(target)
		if err != nil {
			return nil, nil, fmt.Errorf("validator %q: %w", addrStr, err)
		}
		endpoint, err := delegation.DialEndpoint(ctx, endpointAddr, creds, insecureOK)
		if err != nil {
			return nil, nil, fmt.Errorf("dialing validator %q endpoint %q: %w", addrStr, target, err)
		}
		resolver[addr] = endpoint
	}
	return resolver, pluginClients, nil
}

// validatorTLSCredentials builds advancedtls-backed client credentials
// from the "tls" config section, or returns nil if no cert is configured
// (local/test deployments are expected to set "tls.insecure" instead).
func validatorTLSCredentials() (credentials.TransportCredentials, error) {
	certFile := viper.GetString("tls.cert_file")
	if certFile == "" {
		return nil, nil
	}
	return delegation.NewClientCredentials(delegation.TLSConfig{
		CertFile:     certFile,
		KeyFile:      viper.GetString("tls.key_file"),
		RootCertFile: viper.GetString("tls.root_cert_file"),
	})
}
