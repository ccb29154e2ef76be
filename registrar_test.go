package crucible_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forgekit/crucible"
)

var _ = Describe("Configure", func() {
	It("should register Singleton", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.Add(crucible.Singleton, nameProviderConstructor).Err()
		})

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("should register Scoped", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.Add(crucible.Scoped, nameProviderConstructor).Err()
		})

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("should register Transient", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.Add(crucible.Transient, nameProviderConstructor).Err()
		})

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("should refuse Singleton constructor dependant on context.Context", func() {
		counter := 0
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Singleton, requestTrackerConstructor(&counter)).
				Err()
		})

		Expect(err).Should(HaveOccurred())
		Expect(err).Should(BeAssignableToTypeOf(new(crucible.BadConstructorError)))
		Expect(errors.Unwrap(err)).Should(BeAssignableToTypeOf(new(crucible.ConstructorTemplateError)))
	})

	It("should register Scoped constructor dependant on context.Context", func() {
		counter := 0
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Scoped, requestTrackerConstructor(&counter)).
				Err()
		})

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("should allow constructor without error", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Singleton, func() NameProvider { return NameProvider("Bob") }).
				Err()
		})

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("should allow constructor with cleanup function", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Singleton,
					func() (NameProvider, crucible.Cleanup, error) { return NameProvider("Bob"), func() {}, nil },
				).
				Err()
		})

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("should refuse Transient constructor with cleanup function", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Transient, nameServiceConstructorWithCleanup(func() {})).
				Err()
		})

		Expect(err).Should(HaveOccurred())
		Expect(err).Should(BeAssignableToTypeOf(new(crucible.BadConstructorError)))
	})

	It("should refuse variadic constructor", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Transient, func(names ...string) (NameService, error) {
					return NameProvider("Bob"), nil
				}).
				Err()
		})

		Expect(err).Should(HaveOccurred())
		Expect(errors.Is(err, crucible.ErrVariadicConstructor)).To(BeTrue())
	})

	It("should refuse constructor that is not a function", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.Add(crucible.Transient, "not a constructor").Err()
		})

		Expect(err).Should(HaveOccurred())
		Expect(errors.Is(err, crucible.ErrConstructorNotAFunction)).To(BeTrue())
	})

	It("should refuse constructor with context.Context not in first position", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Scoped, func(nameService NameService, ctx context.Context) (*Hero, error) {
					return &Hero{nameService.Name()}, nil
				}).
				Err()
		})

		Expect(err).Should(HaveOccurred())
		Expect(err).Should(BeAssignableToTypeOf(new(crucible.BadConstructorError)))
	})

	It("should allow the same service to be added repeatedly", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Transient, namedServiceConstructor("first")).
				Add(crucible.Transient, namedServiceConstructor("second")).
				Err()
		})

		Expect(err).ShouldNot(HaveOccurred())
	})

	It("should commit nothing when the mutator fails", func() {
		c := crucible.New()
		boom := errors.New("boom")

		err := c.Configure(func(r *crucible.Registrar) error {
			r.Add(crucible.Transient, nameServiceConstructor)
			return boom
		})

		Expect(err).To(MatchError(boom))

		_, ok, err := crucible.TryGetInstance[NameService](context.Background(), c)

		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should commit nothing when any staged registration is invalid", func() {
		c := crucible.New()

		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Transient, nameServiceConstructor).
				Add(crucible.Transient, "not a constructor").
				Err()
		})

		Expect(err).Should(HaveOccurred())

		_, ok, err := crucible.TryGetInstance[NameService](context.Background(), c)

		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should lock configuration after first resolution", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.Add(crucible.Transient, nameServiceConstructor).Err()
		})

		Expect(err).ShouldNot(HaveOccurred())

		_, err = crucible.GetInstance[NameService](context.Background(), c)

		Expect(err).ShouldNot(HaveOccurred())

		err = c.Configure(func(r *crucible.Registrar) error {
			return r.Add(crucible.Transient, heroConstructor).Err()
		})

		Expect(err).To(MatchError(crucible.ErrConfigurationLocked))
	})

	It("should allow multiple Configure calls before first resolution", func() {
		c := crucible.New()

		err := c.Configure(func(r *crucible.Registrar) error {
			return r.Add(crucible.Transient, nameServiceConstructor).Err()
		})

		Expect(err).ShouldNot(HaveOccurred())

		err = c.Configure(func(r *crucible.Registrar) error {
			return r.Add(crucible.Transient, heroConstructor).Err()
		})

		Expect(err).ShouldNot(HaveOccurred())

		hero, err := crucible.GetInstance[*Hero](context.Background(), c)

		Expect(err).ShouldNot(HaveOccurred())
		Expect(hero.Announce()).To(Equal("Bob is our hero!"))
	})

	It("should register a pre-built value with Instance", func() {
		c := crucible.New()
		cfg := &ServerConfig{Host: "localhost", Port: 8080}

		err := c.Configure(func(r *crucible.Registrar) error {
			return r.Instance(cfg).Err()
		})

		Expect(err).ShouldNot(HaveOccurred())

		got, err := crucible.GetInstance[*ServerConfig](context.Background(), c)

		Expect(err).ShouldNot(HaveOccurred())
		Expect(got).To(BeIdenticalTo(cfg))
	})

	It("should register a pre-built value for an interface with AddInstance", func() {
		c := crucible.New()

		err := c.Configure(func(r *crucible.Registrar) error {
			return crucible.AddInstance[NameService](r, NameProvider("Ann")).Err()
		})

		Expect(err).ShouldNot(HaveOccurred())

		got, err := crucible.GetInstance[NameService](context.Background(), c)

		Expect(err).ShouldNot(HaveOccurred())
		Expect(got.Name()).To(Equal("Ann"))
	})

	It("should refuse positional override out of range", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Transient, heroConstructor, crucible.WithValue(5, NameProvider("Ann"))).
				Err()
		})

		Expect(err).Should(HaveOccurred())
		Expect(err).Should(BeAssignableToTypeOf(new(crucible.BadConstructorError)))
	})

	It("should refuse literal override of the wrong type", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Transient, heroConstructor, crucible.WithValue(0, 42)).
				Err()
		})

		Expect(err).Should(HaveOccurred())
	})

	It("should refuse field override that matches no exported field", func() {
		c := crucible.New()
		err := c.Configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Transient, crucible.Wire[Greeter], crucible.WithFieldValue("Nope", 1)).
				Err()
		})

		Expect(err).Should(HaveOccurred())
	})
})
