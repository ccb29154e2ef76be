package crucible

import (
	"context"
	"sync"
	"sync/atomic"
)

type scopeContextKey struct{}

// Scope holds one instance per Scoped registration. Scopes are explicit:
// open one with Container.NewScope, attach it to a context, and close it
// when the logical unit of work ends.
type Scope struct {
	c *Container

	slots sync.Map // registration id -> *scopeSlot

	cleanups  []cleanupEntry
	cleanupMu sync.Mutex

	closed atomic.Bool
}

type scopeSlot struct {
	mu    sync.Mutex
	value *any
}

func newScope(c *Container) *Scope {
	return &Scope{c: c}
}

// Attach returns a context carrying s. Scoped resolutions travel with the
// context. The scope closes itself when ctx ends, so a scope attached to
// a request context needs no separate Close call.
func (s *Scope) Attach(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, scopeContextKey{}, s)
	context.AfterFunc(ctx, s.Close)

	return ctx
}

// ScopeFromContext returns the scope carried by ctx, if any.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok
}

// Close runs scoped cleanups in reverse creation order and discards all
// cached instances. A closed scope rejects further resolution. Close is
// idempotent.
func (s *Scope) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i].fn.CallWithRecovery(Scoped, s.cleanups[i].typeName)
	}

	s.cleanups = nil
	s.slots.Range(func(key, _ any) bool {
		s.slots.Delete(key)
		return true
	})
}

func (s *Scope) instanceFor(ctx context.Context, plan *buildPlan) (any, error) {
	if s.closed.Load() {
		return nil, newServiceBuilderError(ErrScopeClosed, Scoped, plan.typeName)
	}

	sl, _ := s.slots.LoadOrStore(plan.cacheID, new(scopeSlot))
	slot := sl.(*scopeSlot)

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.value != nil {
		return *slot.value, nil
	}

	service, cleanUp, err := s.c.build(ctx, plan)
	if err != nil {
		return nil, err
	}

	if plan.constructorType == withErrorAndCleanUp {
		s.cleanupMu.Lock()
		s.cleanups = append(s.cleanups, cleanupEntry{fn: cleanUp, typeName: plan.typeName})
		s.cleanupMu.Unlock()
	}

	slot.value = &service

	return service, nil
}
