package conserver

import (
	"context"
	"fmt"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/vcon-dev/conserver/internal/metrics"
)

// Outcome describes how a single run of a chain for a vCon ended.
type Outcome int

const (
	// OutcomeUnknown is returned alongside infrastructure errors that happened before the outcome was known.
	OutcomeUnknown Outcome = iota
	// OutcomeCompleted means every link ran and the wrap-up was performed.
	OutcomeCompleted
	// OutcomeHalted means a link stopped the chain. Later links were skipped but the wrap-up was performed.
	OutcomeHalted
	// OutcomeDropped means the chain is missing or disabled, or the vCon no longer exists.
	OutcomeDropped
	// OutcomeFailed means a link failed. No egress or storage was performed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeHalted:
		return "halted"
	case OutcomeDropped:
		return "dropped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Process runs the named chain for the vCon. Links run strictly in order and each one sees the writes of
// the previous links through the record store. Once every link has run, or a link has halted the chain,
// the id is pushed to the egress lists and egress chains and the storages are invoked. A failing link
// skips this wrap-up.
//
// A failing link is returned as a *StageError. An egress push failure is returned wrapping
// ErrEgressFailed. Any other error is an infrastructure error that happened before the chain could be run.
func (e *Engine) Process(ctx context.Context, vconID string, chainName string) (Outcome, error) {
	t0 := e.clock.Now()
	meta := map[string]string{
		"vcon_id": vconID,
		"chain":   chainName,
	}

	outcome, err := e.process(ctx, vconID, chainName, meta)
	metrics.ChainOutcomes.WithLabelValues(chainName, outcome.String()).Inc()
	if outcome == OutcomeCompleted {
		metrics.ChainLatency.WithLabelValues(chainName).Observe(e.clock.Since(t0).Seconds())
	}

	e.logger.maybeDebug(ctx, "chain "+outcome.String(), withMeta(meta, "duration", e.clock.Since(t0).String()))

	return outcome, err
}

func (e *Engine) process(ctx context.Context, vconID string, chainName string, meta map[string]string) (Outcome, error) {
	chain, err := e.chains.Chain(ctx, chainName)
	if errors.Is(err, ErrChainNotFound) {
		e.logger.Error(ctx, errors.Wrap(err, "dropping record", j.MKV{"vcon_id": vconID, "chain": chainName}))
		return OutcomeDropped, nil
	} else if err != nil {
		return OutcomeUnknown, errors.Wrap(err, "lookup chain", j.MKV{"chain": chainName})
	}

	if !chain.Enabled {
		e.logger.maybeDebug(ctx, "dropping record for disabled chain", meta)
		return OutcomeDropped, nil
	}

	exists, err := e.records.Exists(ctx, vconID)
	if err != nil {
		return OutcomeUnknown, errors.Wrap(err, "lookup record", j.MKV{"vcon_id": vconID})
	}

	if !exists {
		e.logger.Error(ctx, errors.Wrap(ErrRecordNotFound, "dropping record", j.MKV{
			"vcon_id": vconID,
			"chain":   chainName,
		}))
		return OutcomeDropped, nil
	}

	id := vconID
	outcome := OutcomeCompleted
	for _, linkName := range chain.Links {
		next, err := e.runLink(ctx, chain.Name, linkName, id)
		if err != nil {
			return OutcomeFailed, err
		}

		if next == "" {
			e.logger.maybeDebug(ctx, "chain halted by link", withMeta(meta, "link", linkName))
			outcome = OutcomeHalted
			break
		}

		id = next
	}

	err = e.wrapUp(ctx, *chain, id)
	if err != nil {
		return outcome, err
	}

	return outcome, nil
}

func (e *Engine) runLink(ctx context.Context, chainName, linkName, vconID string) (string, error) {
	stageErr := func(err error, config bool) error {
		return &StageError{
			VconID: vconID,
			Chain:  chainName,
			Link:   linkName,
			Config: config,
			Err:    err,
		}
	}

	def, err := e.chains.Link(ctx, linkName)
	if errors.Is(err, ErrLinkNotFound) {
		return "", stageErr(err, true)
	} else if err != nil {
		return "", errors.Wrap(err, "lookup link", j.MKV{"link": linkName})
	}

	link, defaults, err := e.registry.ResolveLink(def.Module, e.deps)
	if err != nil {
		return "", stageErr(err, true)
	}

	opts := EffectiveOptions(defaults, *def)

	t0 := e.clock.Now()
	next, err := runLinkSafely(ctx, link, vconID, linkName, opts)
	took := e.clock.Since(t0)
	metrics.LinkLatency.WithLabelValues(chainName, linkName).Observe(took.Seconds())
	if err != nil {
		metrics.LinkErrors.WithLabelValues(chainName, linkName).Inc()
		return "", stageErr(err, false)
	}

	e.logger.maybeDebug(ctx, "link completed", map[string]string{
		"vcon_id":  vconID,
		"chain":    chainName,
		"link":     linkName,
		"module":   def.Module,
		"duration": took.String(),
	})

	return next, nil
}

// runLinkSafely turns a panicking link into a link error so that one bad stage cannot take a worker down.
func runLinkSafely(ctx context.Context, l Link, vconID, linkName string, opts StageOptions) (next string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("link panicked: %v", r)
		}
	}()

	return l.Run(ctx, vconID, linkName, opts)
}

// wrapUp pushes the vCon to the chain's egress lists and egress chains and then invokes every storage. A
// failing storage is logged and does not prevent the remaining storages from running. Egress failures are
// logged and returned as ErrEgressFailed once the storages have run.
func (e *Engine) wrapUp(ctx context.Context, chain Chain, vconID string) error {
	var egressFailed bool
	for _, queue := range chain.EgressLists {
		err := e.queue.Push(ctx, queue, vconID)
		if err != nil {
			e.logger.Error(ctx, errors.Wrap(err, "egress push failed", j.MKV{
				"vcon_id": vconID,
				"chain":   chain.Name,
				"queue":   queue,
			}))
			egressFailed = true
		}
	}

	for _, target := range chain.EgressChains {
		err := e.pushToChain(ctx, target, vconID)
		if errors.Is(err, ErrChainNotFound) {
			e.logger.Error(ctx, errors.Wrap(err, "egress chain not found", j.MKV{
				"vcon_id": vconID,
				"chain":   chain.Name,
				"target":  target,
			}))
			continue
		} else if err != nil {
			e.logger.Error(ctx, errors.Wrap(err, "egress chain push failed", j.MKV{
				"vcon_id": vconID,
				"chain":   chain.Name,
				"target":  target,
			}))
			egressFailed = true
		}
	}

	for _, storageName := range chain.Storages {
		err := e.save(ctx, chain.Name, storageName, vconID)
		if err != nil {
			metrics.StorageErrors.WithLabelValues(chain.Name, storageName).Inc()
			e.logger.Error(ctx, errors.Wrap(err, "storage failed", j.MKV{
				"vcon_id": vconID,
				"chain":   chain.Name,
				"storage": storageName,
			}))
		}
	}

	if e.opts.recordTTL > 0 {
		err := e.records.Expire(ctx, vconID, e.opts.recordTTL)
		if err != nil {
			e.logger.Error(ctx, errors.Wrap(err, "refresh record expiry", j.MKV{"vcon_id": vconID}))
		}
	}

	if egressFailed {
		return errors.Wrap(ErrEgressFailed, "", j.MKV{"vcon_id": vconID, "chain": chain.Name})
	}

	return nil
}

// pushToChain hands the vCon to another chain by pushing an envelope naming that chain onto the chain's
// first ingress queue.
func (e *Engine) pushToChain(ctx context.Context, chainName string, vconID string) error {
	target, err := e.chains.Chain(ctx, chainName)
	if err != nil {
		return err
	}

	if len(target.IngressLists) == 0 {
		return errors.Wrap(ErrChainNotFound, "chain has no ingress list", j.MKV{"chain": chainName})
	}

	value, err := Envelope{VconID: vconID, Chain: target.Name}.Encode()
	if err != nil {
		return err
	}

	return e.queue.Push(ctx, target.IngressLists[0], value)
}

func (e *Engine) save(ctx context.Context, chainName, storageName, vconID string) error {
	def, err := e.chains.Storage(ctx, storageName)
	if err != nil {
		return err
	}

	s, defaults, err := e.registry.ResolveStorage(def.Module, e.deps)
	if err != nil {
		return err
	}

	t0 := e.clock.Now()
	err = saveSafely(ctx, s, vconID, EffectiveOptions(defaults, *def))
	metrics.StorageLatency.WithLabelValues(chainName, storageName).Observe(e.clock.Since(t0).Seconds())

	return err
}

func saveSafely(ctx context.Context, s Storage, vconID string, opts StageOptions) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("storage panicked: %v", r)
		}
	}()

	return s.Save(ctx, vconID, opts)
}

func withMeta(meta map[string]string, kv ...string) map[string]string {
	out := make(map[string]string, len(meta)+len(kv)/2)
	for k, v := range meta {
		out[k] = v
	}

	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}

	return out
}
