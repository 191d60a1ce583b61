package cartsync

import (
	"context"

	"github.com/dronestore/storefront/internal/domain/cart"
	"go.uber.org/zap"
)

// execute runs one queued gateway call on the worker goroutine
func (s *Store) execute(t remoteTask) {
	if t.ctx.Err() != nil {
		s.discarded(t.ctx, t.op, t.version)
		return
	}

	switch t.op {
	case OpFetch:
		s.executeFetch(t)
	case OpReconcile:
		s.clearRequeued()
		s.refetch(t)
	default:
		ctx, cancel := context.WithTimeout(t.ctx, s.timeout)
		err := t.call(ctx)
		cancel()
		s.reconcile(t, err)
	}
}

// executeFetch resolves a Loading transition for a server-backed cart.
// Failures fall back to the local copy under the same key.
func (s *Store) executeFetch(t remoteTask) {
	ctx, cancel := context.WithTimeout(t.ctx, s.timeout)
	defer cancel()

	items, err := s.gateway.FetchCart(ctx)
	if err != nil {
		if t.ctx.Err() != nil {
			s.discarded(t.ctx, t.op, t.version)
			return
		}
		s.fail(t, err)
		if !s.isCurrent(t.version) {
			s.discarded(t.ctx, t.op, t.version)
			return
		}
		s.recorder.RecordFallback(context.WithoutCancel(t.ctx))
		s.logger.Warn("remote cart fetch failed, using local cart",
			zap.Stringer("identity", t.identity),
			zap.Error(err),
		)
		items = s.persistence.Load(t.ctx, t.key)
	}

	if !s.adoptLoad(t.version, items) {
		s.discarded(t.ctx, t.op, t.version)
	}
}

// reconcile handles the outcome of a mutation's gateway call. Only a stock
// conflict changes local state: the server cart is fetched and adopted.
func (s *Store) reconcile(t remoteTask, err error) {
	if err == nil {
		return
	}
	if t.ctx.Err() != nil {
		s.discarded(t.ctx, t.op, t.version)
		return
	}
	if cart.OutcomeOf(err) != cart.OutcomeStockConflict {
		s.fail(t, err)
		return
	}

	bg := context.WithoutCancel(t.ctx)
	s.recorder.RecordStockConflict(bg, t.op)
	s.logger.Info("stock conflict, refetching cart",
		zap.String("op", string(t.op)),
		zap.String("product_id", string(t.productID)),
	)
	if t.name != "" {
		s.notifier.Notify(bg, stockLimitNotice(t.name))
	}
	s.refetch(t)
}

// refetch adopts the server cart at t.version. When newer mutations have
// overtaken t, the server cart would overwrite them, so the refetch is
// queued again behind them instead.
func (s *Store) refetch(t remoteTask) {
	if !s.isCurrent(t.version) {
		s.requeueRefetch(t)
		return
	}

	ctx, cancel := context.WithTimeout(t.ctx, s.timeout)
	defer cancel()
	items, err := s.gateway.FetchCart(ctx)
	if err != nil {
		if t.ctx.Err() != nil {
			s.discarded(t.ctx, OpReconcile, t.version)
			return
		}
		failed := t
		failed.op = OpReconcile
		s.fail(failed, err)
		return
	}

	if !s.adoptRefetch(context.WithoutCancel(t.ctx), t.version, items) {
		s.requeueRefetch(t)
	}
}

// requeueRefetch queues one refetch stamped with the current version. It
// runs after the mutations already queued, so the server has seen them. A
// refetch from a previous identity or route session is dropped.
func (s *Store) requeueRefetch(t remoteTask) {
	s.discarded(t.ctx, OpReconcile, t.version)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.requeued || t.ctx.Err() != nil || s.session != t.ctx {
		return
	}
	s.requeued = s.queue.push(remoteTask{
		op:        OpReconcile,
		productID: t.productID,
		version:   s.version,
		identity:  s.identity,
		key:       s.identity.Key(),
		ctx:       s.session,
	})
	if s.requeued {
		s.logger.Debug("cart refetch queued behind newer mutations",
			zap.Uint64("version", s.version),
		)
	}
}

func (s *Store) clearRequeued() {
	s.mu.Lock()
	s.requeued = false
	s.mu.Unlock()
}

// fail reports an unresolved remote failure. Optimistic state is kept.
func (s *Store) fail(t remoteTask, err error) {
	ctx := context.WithoutCancel(t.ctx)
	s.recorder.RecordRemoteFailure(ctx, t.op)
	if cart.OutcomeOf(err) == cart.OutcomeAuthRequired {
		s.auth.AuthRequired(ctx, t.op)
	}
	s.reporter.Report(ctx, err, ReportContext{
		Operation: t.op,
		Identity:  t.identity,
		ProductID: t.productID,
		Version:   t.version,
	})
}

func (s *Store) isCurrent(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.version == version
}

func (s *Store) discarded(ctx context.Context, op Operation, version uint64) {
	s.recorder.RecordStaleDiscard(context.WithoutCancel(ctx), op)
	s.logger.Debug("discarding stale cart result",
		zap.String("op", string(op)),
		zap.Uint64("version", version),
	)
}
