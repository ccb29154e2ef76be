package crucible

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

type ContainerConfiguration struct {
	Settings                Settings
	Ctx                     context.Context
	SilenceLifetimeWarnings bool
}

type ContainerOption func(*ContainerConfiguration)

var (
	// WithSettings selects the source for WithSetting / WithFieldSetting
	// lookups. The default is the process environment.
	WithSettings = func(settings Settings) ContainerOption {
		return func(conf *ContainerConfiguration) { conf.Settings = settings }
	}

	// WithShutdownContext closes the container, running singleton
	// cleanups, when ctx ends.
	WithShutdownContext = func(ctx context.Context) ContainerOption {
		return func(conf *ContainerConfiguration) { conf.Ctx = ctx }
	}

	SilenceLifetimeWarnings ContainerOption = func(conf *ContainerConfiguration) { conf.SilenceLifetimeWarnings = true }
)

// New returns an empty Container. Register services with Configure, then
// resolve them with GetInstance and friends.
func New(opts ...ContainerOption) *Container {
	conf := ContainerConfiguration{
		Settings: EnvSettings(),
	}

	for _, opt := range opts {
		opt(&conf)
	}

	c := &Container{
		registrations:           make(map[reflect.Type][]*registration),
		settings:                conf.Settings,
		silenceLifetimeWarnings: conf.SilenceLifetimeWarnings,
	}

	if conf.Ctx != nil {
		c.stopShutdown = context.AfterFunc(conf.Ctx, c.Close)
	}

	return c
}

type cleanupEntry struct {
	fn       Cleanup
	typeName string
}

// Container owns the registration store, derived build plans and all
// cached singleton instances. It is safe for concurrent resolution once
// configuration has completed.
type Container struct {
	registrations map[reflect.Type][]*registration
	settings      Settings
	stopShutdown  func() bool

	plans      sync.Map // registration id -> *buildPlan
	autoPlans  sync.Map // reflect.Type -> *buildPlan
	singletons sync.Map // registration id -> *any
	sMu        sync.Map // registration id -> *sync.Mutex

	cleanups  []cleanupEntry
	cleanupMu sync.Mutex

	mu                      sync.RWMutex
	nextID                  int
	locked                  atomic.Bool
	closed                  atomic.Bool
	silenceLifetimeWarnings bool
}

// Configure runs mutate against a fresh Registrar and commits its staged
// registrations. The commit is all-or-nothing: if mutate returns an error
// or any registration was invalid, the store is left untouched.
//
// Configure may be called multiple times before the first resolution;
// afterwards it fails with ErrConfigurationLocked.
func (c *Container) Configure(mutate func(*Registrar) error) error {
	if c.closed.Load() {
		return ErrContainerClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked.Load() {
		return ErrConfigurationLocked
	}

	r := &Registrar{}
	if err := mutate(r); err != nil {
		return err
	}

	if r.err != nil {
		return r.err
	}

	for _, reg := range r.staged {
		c.nextID++
		reg.id = c.nextID
	}

	if !c.silenceLifetimeWarnings {
		c.warnCaptiveDependencies(r.staged)
	}

	for _, reg := range r.staged {
		c.registrations[reg.serviceType] = append(c.registrations[reg.serviceType], reg)
	}

	return nil
}

// warnCaptiveDependencies flags registrations that would capture a
// shorter-lived dependency, e.g. a Singleton holding a Scoped service
// far beyond its scope. Must be called with mu held.
func (c *Container) warnCaptiveDependencies(staged []*registration) {
	defaults := make(map[reflect.Type]*registration)
	for serviceType, regs := range c.registrations {
		defaults[serviceType] = regs[len(regs)-1]
	}

	for _, reg := range staged {
		defaults[reg.serviceType] = reg
	}

	for _, reg := range staged {
		for _, dep := range reg.dependencies {
			depReg, ok := defaults[dep.argType]
			if !ok || depReg.lifetime >= reg.lifetime {
				continue
			}

			logger().Warn(
				"registration captures a shorter-lived dependency",
				"service", reg.typeName,
				"lifetime", reg.lifetime.String(),
				"dependency", depReg.typeName,
				"dependencyLifetime", depReg.lifetime.String(),
			)
		}
	}
}

// GetInstance resolves the default (last-added) registration for the
// service named by token. The token is either a (*T)(nil) pointer, naming
// service type T, or a reflect.Type.
func (c *Container) GetInstance(ctx context.Context, token any) (any, error) {
	serviceType, err := tokenType(token)
	if err != nil {
		return nil, err
	}

	return c.getInstance(ctx, serviceType)
}

// TryGetInstance is GetInstance returning an explicit absent result
// instead of NoDefaultInstanceError when the service has no registration
// and no auto-wiring path. Every other error kind still propagates.
func (c *Container) TryGetInstance(ctx context.Context, token any) (any, bool, error) {
	serviceType, err := tokenType(token)
	if err != nil {
		return nil, false, err
	}

	if _, ok := c.defaultRegistration(serviceType); !ok && !wireable(serviceType) {
		return nil, false, nil
	}

	service, err := c.getInstance(ctx, serviceType)
	if err != nil {
		return nil, false, err
	}

	return service, true, nil
}

// GetAllInstances builds one instance per registration for the service
// named by token, in registration order. A service with no registrations
// yields an empty result, not an error.
func (c *Container) GetAllInstances(ctx context.Context, token any) ([]any, error) {
	serviceType, err := tokenType(token)
	if err != nil {
		return nil, err
	}

	if c.closed.Load() {
		return nil, ErrContainerClosed
	}

	c.mu.RLock()
	c.locked.Store(true)
	regs := slices.Clone(c.registrations[serviceType])
	c.mu.RUnlock()

	services := make([]any, 0, len(regs))
	for _, reg := range regs {
		plan, err := c.planForRegistration(reg, nil)
		if err != nil {
			return nil, err
		}

		service, err := c.instanceFor(ctx, plan)
		if err != nil {
			return nil, err
		}

		services = append(services, service)
	}

	return services, nil
}

// NewScope opens a new scope for Scoped services. Attach it to a context
// and close it when the logical request ends.
func (c *Container) NewScope() *Scope {
	return newScope(c)
}

// Close runs singleton cleanups in reverse creation order and rejects any
// further resolution. Close is idempotent.
func (c *Container) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	if c.stopShutdown != nil {
		c.stopShutdown()
	}

	c.cleanupMu.Lock()
	defer c.cleanupMu.Unlock()

	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i].fn.CallWithRecovery(Singleton, c.cleanups[i].typeName)
	}

	c.cleanups = nil
}

func (c *Container) getInstance(ctx context.Context, serviceType reflect.Type) (any, error) {
	if c.closed.Load() {
		return nil, ErrContainerClosed
	}

	plan, err := c.planForType(serviceType, nil)
	if err != nil {
		return nil, err
	}

	return c.instanceFor(ctx, plan)
}

// defaultRegistration also seals the configuration: the store becomes
// immutable on first lookup.
func (c *Container) defaultRegistration(serviceType reflect.Type) (*registration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.locked.Store(true)

	regs := c.registrations[serviceType]
	if len(regs) == 0 {
		return nil, false
	}

	return regs[len(regs)-1], true
}

func (c *Container) instanceFor(ctx context.Context, plan *buildPlan) (any, error) {
	switch plan.lifetime {
	case Singleton:
		if plan.constructorType == prebuiltValue {
			return plan.value, nil
		}

		return c.getSingleton(ctx, plan)
	case Scoped:
		return c.getScoped(ctx, plan)
	case Transient:
		service, _, err := c.build(ctx, plan)
		return service, err
	default:
		return nil, newServiceBuilderError(
			LifetimeUnsupportedError(plan.lifetime.String()),
			plan.lifetime,
			plan.typeName,
		)
	}
}

func (c *Container) getSingleton(ctx context.Context, plan *buildPlan) (any, error) {
	mu, _ := c.sMu.LoadOrStore(plan.cacheID, new(sync.Mutex))

	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	servicePtr, ok := c.singletons.Load(plan.cacheID)
	if ok {
		return *servicePtr.(*any), nil
	}

	service, cleanUp, err := c.build(ctx, plan)
	if err != nil {
		return nil, err
	}

	if plan.constructorType == withErrorAndCleanUp {
		c.cleanupMu.Lock()
		c.cleanups = append(c.cleanups, cleanupEntry{fn: cleanUp, typeName: plan.typeName})
		c.cleanupMu.Unlock()
	}

	c.singletons.Store(plan.cacheID, &service)

	return service, nil
}

func (c *Container) getScoped(ctx context.Context, plan *buildPlan) (any, error) {
	if ctx == nil {
		return nil, newServiceBuilderError(ErrNilContext, Scoped, plan.typeName)
	}

	if err := ctx.Err(); err != nil {
		return nil, newServiceBuilderError(err, Scoped, plan.typeName)
	}

	scope, ok := ScopeFromContext(ctx)
	if !ok {
		return nil, newServiceBuilderError(ErrNoActiveScope, Scoped, plan.typeName)
	}

	return scope.instanceFor(ctx, plan)
}

func tokenType(token any) (reflect.Type, error) {
	switch t := token.(type) {
	case nil:
		return nil, ErrNilToken
	case reflect.Type:
		return t, nil
	default:
		rt := reflect.TypeOf(token)
		if rt.Kind() != reflect.Pointer {
			return nil, newNoDefaultInstanceError(rt)
		}

		return rt.Elem(), nil
	}
}
