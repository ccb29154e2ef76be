/*
Package crucible is an inversion-of-control container with lifetime-aware
instance caching. Services are registered during a configuration phase and
resolved afterwards; the registration store is immutable once the first
instance has been resolved.

How to use:

	type NameService interface {
		Name() string
	}

	type Greeter struct {
		Names NameService
	}

	c := crucible.New()
	err := c.Configure(func(r *crucible.Registrar) error {
		r.Add(crucible.Singleton, func() (NameService, error) {
			return nameProvider("Bob"), nil
		})
		r.Add(crucible.Transient, func(names NameService) (*Greeter, error) {
			return &Greeter{Names: names}, nil
		})
		return nil
	})
	if err != nil {
		// handle error
	}

	greeter, err := crucible.GetInstance[*Greeter](ctx, c)
	if err != nil {
		// handle error
	}

Request-scoped services are cached per Scope. A Scope is opened from the
container, attached to a context.Context and closed when the request ends:

	func MyRequestHandler(w http.ResponseWriter, req *http.Request) {
		scope := c.NewScope()
		defer scope.Close()

		ctx := scope.Attach(req.Context())
		service, err := crucible.GetInstance[*UnitOfWork](ctx, c)
		if err != nil {
			// handle error
		}

		// use service
	}

Functions:
  - crucible.New
  - crucible.GetInstance
  - crucible.TryGetInstance
  - crucible.GetAllInstances
  - crucible.MustGetInstance
  - crucible.AddInstance
  - crucible.Default
  - crucible.SetLogger

Lifetime constants:

	crucible.Transient - new instance on every resolution (default)
	crucible.Scoped    - one instance per Scope
	crucible.Singleton - one instance per Container

Constructor types that can be used:
  - func(T1, T2, ...) [T|(T, error)|(T, Cleanup, error)] - for any lifetime,
    except that Transient constructors may not return a Cleanup
  - func(context.Context, T1, T2, ...) [T|(T, error)|(T, Cleanup, error)] - for Scoped and Transient only

The same service may be registered any number of times; the last
registration added is the default used by GetInstance, and GetAllInstances
returns one instance per registration in registration order.

Exported-field constructors:
  - crucible.Wire[Type] - returns a Type value with exported fields filled from the container.
  - crucible.WirePtr[Type] - returns a *Type with exported fields filled from the container.
  - crucible.Bind[Interface, Type] - registers Interface backed by a field-filled *Type.

A concrete struct type that was never registered can still be resolved: its
exported fields are wired recursively, as long as every field is itself
registered, wireable, or covered by a literal override.
*/
package crucible
