package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/eapache/channels"
	"github.com/opentracing/opentracing-go"
	tmlog "github.com/tendermint/tendermint/libs/log"
	tmservice "github.com/tendermint/tendermint/libs/service"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/logging"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/delegation"
	"github.com/stakepool/liquidcore/epochtime"
	"github.com/stakepool/liquidcore/metrics"
)

var engineLogger = logging.GetLogger("pool/engine")

// AttemptRecorder is an idempotency ledger that survives a crash-and-restart
// across the suspension boundary: Record is called before the external
// delegation call goes out, Clear once Confirm or Fail has been applied, so
// a callback that arrives after a restart can still be matched against the
// Attempt that triggered it. storage/wal.WAL implements this.
type AttemptRecorder interface {
	Record(a *Attempt) error
	Clear(kind ActionKind, validator address.Address) error
}

// Engine owns a Pool and everything needed to actually drive its
// settlement pipeline against live validators: a resolver for the
// per-validator delegation endpoints, the epoch clock, and a queue for
// work items that arrive faster than settlement can drain them.
//
// The suspension boundary the accounting spec describes — atomic local
// work, then an external call, then an atomic callback — is implemented
// here as: take the lock, compute the attempt, release the lock, make
// the blocking delegation.Endpoint call, take the lock again, apply
// confirm or fail. Any other entry point may interleave during the
// unlocked external call, exactly as the single-threaded cooperative
// model allows.
type Engine struct {
	tmservice.BaseService

	mu       sync.Mutex
	pool     *Pool
	epoch    epochtime.Backend
	resolver delegation.Resolver
	metrics  *metrics.Collector
	tracer   opentracing.Tracer
	recorder AttemptRecorder

	workQueue *channels.InfiniteChannel
}

// SetAttemptRecorder attaches (or, with nil, detaches) an idempotency
// ledger that every dispatched Attempt is recorded into ahead of its
// external call and cleared from once resolved.
func (e *Engine) SetAttemptRecorder(r AttemptRecorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder = r
}

// recordAttempt logs a about-to-be-dispatched attempt, if a recorder is
// attached. A logging failure is not fatal to the attempt itself: the
// ledger is a recovery aid, not a consistency requirement for this
// process's own lifetime.
func (e *Engine) recordAttempt(a *Attempt) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(a); err != nil {
		engineLogger.Warn("failed to record in-flight attempt", "kind", a.Kind, "validator", a.Validator, "err", err)
	}
}

// clearAttempt removes a resolved attempt's ledger entry, if a recorder is
// attached.
func (e *Engine) clearAttempt(a *Attempt) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Clear(a.Kind, a.Validator); err != nil {
		engineLogger.Warn("failed to clear in-flight attempt", "kind", a.Kind, "validator", a.Validator, "err", err)
	}
}

// NewEngine constructs an Engine around an already-initialized Pool.
func NewEngine(p *Pool, epoch epochtime.Backend, resolver delegation.Resolver, mc *metrics.Collector, tracer opentracing.Tracer) *Engine {
	e := &Engine{
		pool:      p,
		epoch:     epoch,
		resolver:  resolver,
		metrics:   mc,
		tracer:    tracer,
		workQueue: channels.NewInfiniteChannel(),
	}
	e.BaseService = *tmservice.NewBaseService(tmlog.NewNopLogger(), "pool-engine", e)
	return e
}

// OnStart implements tendermint/libs/service.Service.
func (e *Engine) OnStart() error {
	go e.drainWorkQueue()
	return nil
}

// OnStop implements tendermint/libs/service.Service.
func (e *Engine) OnStop() {
	e.workQueue.Close()
}

// drainWorkQueue runs queued settlement requests one at a time. Queuing
// them rather than handling each inline keeps a burst of operator calls
// (e.g. epoch_stake fired once per validator by a cron) from piling up
// concurrent external calls against the same validator.
func (e *Engine) drainWorkQueue() {
	for item := range e.workQueue.Out() {
		fn, ok := item.(func())
		if !ok {
			engineLogger.Warn("dropped malformed work queue item")
			continue
		}
		fn()
	}
}

func (e *Engine) startSpan(ctx context.Context, op string) (opentracing.Span, context.Context) {
	if e.tracer == nil {
		return opentracing.StartSpanFromContext(ctx, op)
	}
	span := e.tracer.StartSpan(op)
	return span, opentracing.ContextWithSpan(ctx, span)
}

// Deposit locks the pool and applies a user deposit.
func (e *Engine) Deposit(ctx context.Context, id address.Address, amount *quantity.Quantity) error {
	span, _ := e.startSpan(ctx, "pool.Deposit")
	defer span.Finish()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.Deposit(id, amount)
}

// Withdraw locks the pool and applies a user withdrawal.
func (e *Engine) Withdraw(ctx context.Context, id address.Address, amount, freeBalance *quantity.Quantity) error {
	span, _ := e.startSpan(ctx, "pool.Withdraw")
	defer span.Finish()

	e.mu.Lock()
	defer e.mu.Unlock()
	currentEpoch, err := e.epoch.GetEpoch(ctx)
	if err != nil {
		return err
	}
	return e.pool.Withdraw(id, amount, currentEpoch, freeBalance)
}

// Stake locks the pool and applies a user stake.
func (e *Engine) Stake(ctx context.Context, id address.Address, amount *quantity.Quantity) error {
	span, _ := e.startSpan(ctx, "pool.Stake")
	defer span.Finish()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.Stake(id, amount)
}

// Unstake locks the pool and applies a user unstake.
func (e *Engine) Unstake(ctx context.Context, id address.Address, amount *quantity.Quantity) error {
	span, _ := e.startSpan(ctx, "pool.Unstake")
	defer span.Finish()

	e.mu.Lock()
	defer e.mu.Unlock()
	currentEpoch, err := e.epoch.GetEpoch(ctx)
	if err != nil {
		return err
	}
	return e.pool.Unstake(id, amount, currentEpoch)
}

// RunEpochStake drives one full attempt -> external call -> confirm/fail
// round of epoch_stake.
func (e *Engine) RunEpochStake(ctx context.Context, freeBalance *quantity.Quantity, budget Budget) (bool, error) {
	span, ctx := e.startSpan(ctx, "pool.EpochStake")
	defer span.Finish()

	e.mu.Lock()
	currentEpoch, err := e.epoch.GetEpoch(ctx)
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	attempt, err := e.pool.BeginEpochStake(currentEpoch, freeBalance, budget)
	e.mu.Unlock()
	if err != nil || attempt == nil {
		return attempt != nil, err
	}
	e.recordAttempt(attempt)

	endpoint, ok := e.resolver.Endpoint(attempt.Validator)
	if !ok {
		e.mu.Lock()
		_ = e.pool.FailEpochStake(attempt)
		e.mu.Unlock()
		e.clearAttempt(attempt)
		return false, fmt.Errorf("pool: no endpoint registered for validator %s", attempt.Validator)
	}

	callErr := endpoint.DepositAndStake(ctx, attempt.Amount)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearAttempt(attempt)
	if callErr != nil {
		if e.metrics != nil {
			e.metrics.ObserveFailure(string(EventEpochStakeFailed))
		}
		if err := e.pool.FailEpochStake(attempt); err != nil {
			return false, err
		}
		return false, callErr
	}
	if e.metrics != nil {
		e.metrics.ObserveEvent(string(EventEpochStakeSuccess))
	}
	return true, e.pool.ConfirmEpochStake(attempt)
}

// RunEpochUnstake drives one full round of epoch_unstake.
func (e *Engine) RunEpochUnstake(ctx context.Context, budget Budget) (bool, error) {
	span, ctx := e.startSpan(ctx, "pool.EpochUnstake")
	defer span.Finish()

	e.mu.Lock()
	currentEpoch, err := e.epoch.GetEpoch(ctx)
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	attempt, err := e.pool.BeginEpochUnstake(currentEpoch, budget)
	e.mu.Unlock()
	if err != nil || attempt == nil {
		return attempt != nil, err
	}
	e.recordAttempt(attempt)

	endpoint, ok := e.resolver.Endpoint(attempt.Validator)
	if !ok {
		e.mu.Lock()
		_ = e.pool.FailEpochUnstake(attempt)
		e.mu.Unlock()
		e.clearAttempt(attempt)
		return false, fmt.Errorf("pool: no endpoint registered for validator %s", attempt.Validator)
	}

	callErr := endpoint.Unstake(ctx, attempt.Amount)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearAttempt(attempt)
	if callErr != nil {
		if e.metrics != nil {
			e.metrics.ObserveFailure(string(EventEpochUnstakeFailed))
		}
		return false, e.pool.FailEpochUnstake(attempt)
	}
	if e.metrics != nil {
		e.metrics.ObserveEvent(string(EventEpochUnstakeSuccess))
	}
	return true, e.pool.ConfirmEpochUnstake(attempt)
}

// RunEpochWithdraw drives one full round of epoch_withdraw for a single
// validator.
func (e *Engine) RunEpochWithdraw(ctx context.Context, validatorID address.Address, budget Budget) (bool, error) {
	span, ctx := e.startSpan(ctx, "pool.EpochWithdraw")
	defer span.Finish()

	e.mu.Lock()
	currentEpoch, err := e.epoch.GetEpoch(ctx)
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	attempt, err := e.pool.BeginEpochWithdraw(validatorID, currentEpoch, budget)
	e.mu.Unlock()
	if err != nil || attempt == nil {
		return attempt != nil, err
	}
	e.recordAttempt(attempt)

	endpoint, ok := e.resolver.Endpoint(attempt.Validator)
	if !ok {
		e.mu.Lock()
		_ = e.pool.FailEpochWithdraw(attempt)
		e.mu.Unlock()
		e.clearAttempt(attempt)
		return false, fmt.Errorf("pool: no endpoint registered for validator %s", attempt.Validator)
	}

	callErr := endpoint.Withdraw(ctx, attempt.Amount)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearAttempt(attempt)
	if callErr != nil {
		if e.metrics != nil {
			e.metrics.ObserveFailure(string(EventEpochWithdrawFailed))
		}
		return false, e.pool.FailEpochWithdraw(attempt)
	}
	if e.metrics != nil {
		e.metrics.ObserveEvent(string(EventEpochWithdrawSuccess))
	}
	return true, e.pool.ConfirmEpochWithdraw(attempt)
}

// RunUpdateRewards polls a single validator's total balance and ingests
// any growth as reward.
func (e *Engine) RunUpdateRewards(ctx context.Context, validatorID address.Address, budget Budget) error {
	span, ctx := e.startSpan(ctx, "pool.UpdateRewards")
	defer span.Finish()

	endpoint, ok := e.resolver.Endpoint(validatorID)
	if !ok {
		return fmt.Errorf("pool: no endpoint registered for validator %s", validatorID)
	}
	total, err := endpoint.GetAccountTotalBalance(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	currentEpoch, err := e.epoch.GetEpoch(ctx)
	if err != nil {
		return err
	}
	return e.pool.UpdateRewards(validatorID, total, currentEpoch, budget)
}

// RunSyncValidatorBalance polls a single validator's own breakdown and
// reconciles small drift against the local view.
func (e *Engine) RunSyncValidatorBalance(ctx context.Context, validatorID address.Address, budget Budget) error {
	span, ctx := e.startSpan(ctx, "pool.SyncValidatorBalance")
	defer span.Finish()

	endpoint, ok := e.resolver.Endpoint(validatorID)
	if !ok {
		return fmt.Errorf("pool: no endpoint registered for validator %s", validatorID)
	}
	view, err := endpoint.GetAccount(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	currentEpoch, err := e.epoch.GetEpoch(ctx)
	if err != nil {
		return err
	}
	return e.pool.SyncValidatorBalance(validatorID, view.StakedBalance, view.UnstakedBalance, currentEpoch, budget)
}

// RunDrainUnstake drives one full round of drain_unstake: the operator
// pulling a decommissioned validator's remaining stake out ahead of
// removal.
func (e *Engine) RunDrainUnstake(ctx context.Context, caller, validatorID address.Address, budget Budget) (bool, error) {
	span, ctx := e.startSpan(ctx, "pool.DrainUnstake")
	defer span.Finish()

	e.mu.Lock()
	currentEpoch, err := e.epoch.GetEpoch(ctx)
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	attempt, err := e.pool.BeginDrainUnstake(caller, validatorID, currentEpoch, budget)
	e.mu.Unlock()
	if err != nil || attempt == nil {
		return attempt != nil, err
	}
	e.recordAttempt(attempt)

	endpoint, ok := e.resolver.Endpoint(attempt.Validator)
	if !ok {
		e.mu.Lock()
		_ = e.pool.FailDrainUnstake(attempt)
		e.mu.Unlock()
		e.clearAttempt(attempt)
		return false, fmt.Errorf("pool: no endpoint registered for validator %s", attempt.Validator)
	}

	callErr := endpoint.Unstake(ctx, attempt.Amount)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearAttempt(attempt)
	if callErr != nil {
		if e.metrics != nil {
			e.metrics.ObserveFailure(string(EventDrainUnstakeFailed))
		}
		return false, e.pool.FailDrainUnstake(attempt)
	}
	if e.metrics != nil {
		e.metrics.ObserveEvent(string(EventDrainUnstakeSuccess))
	}
	return true, e.pool.ConfirmDrainUnstake(attempt)
}

// RunDrainWithdraw drives one full round of drain_withdraw, recovering a
// decommissioned validator's unstaked balance back into the pool's
// general stake-request queue.
func (e *Engine) RunDrainWithdraw(ctx context.Context, caller, validatorID address.Address, budget Budget) (bool, error) {
	span, ctx := e.startSpan(ctx, "pool.DrainWithdraw")
	defer span.Finish()

	e.mu.Lock()
	currentEpoch, err := e.epoch.GetEpoch(ctx)
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	attempt, err := e.pool.BeginDrainWithdraw(caller, validatorID, currentEpoch, budget)
	e.mu.Unlock()
	if err != nil || attempt == nil {
		return attempt != nil, err
	}
	e.recordAttempt(attempt)

	endpoint, ok := e.resolver.Endpoint(attempt.Validator)
	if !ok {
		e.mu.Lock()
		_ = e.pool.FailDrainWithdraw(attempt)
		e.mu.Unlock()
		e.clearAttempt(attempt)
		return false, fmt.Errorf("pool: no endpoint registered for validator %s", attempt.Validator)
	}

	callErr := endpoint.Withdraw(ctx, attempt.Amount)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearAttempt(attempt)
	if callErr != nil {
		if e.metrics != nil {
			e.metrics.ObserveFailure(string(EventDrainWithdrawFailed))
		}
		return false, e.pool.FailDrainWithdraw(attempt)
	}
	if e.metrics != nil {
		e.metrics.ObserveEvent(string(EventDrainWithdrawSuccess))
	}
	return true, e.pool.ConfirmDrainWithdraw(attempt)
}

// Enqueue schedules fn to run on the engine's background worker rather
// than inline, so a burst of operator-triggered settlement calls does not
// stack concurrent external calls against the same validator.
func (e *Engine) Enqueue(fn func()) {
	e.workQueue.In() <- fn
}
