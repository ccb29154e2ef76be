package crucible_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/goleak"

	"github.com/forgekit/crucible"
)

var _ = Describe("Scope", func() {
	newScopedContainer := func() *crucible.Container {
		counter := new(int)

		return configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Scoped, requestTrackerConstructor(counter)).
				Err()
		})
	}

	It("should return the same instance within one scope", func() {
		c := newScopedContainer()

		scope := c.NewScope()
		defer scope.Close()

		ctx := scope.Attach(context.Background())

		tracker1, err := crucible.GetInstance[*RequestTracker](ctx, c)

		Expect(err).ShouldNot(HaveOccurred())

		tracker2, err := crucible.GetInstance[*RequestTracker](ctx, c)

		Expect(err).ShouldNot(HaveOccurred())
		Expect(tracker1).To(BeIdenticalTo(tracker2))
	})

	It("should return different instances in different scopes", func() {
		c := newScopedContainer()

		scope1 := c.NewScope()
		defer scope1.Close()

		scope2 := c.NewScope()
		defer scope2.Close()

		tracker1, err := crucible.GetInstance[*RequestTracker](scope1.Attach(context.Background()), c)

		Expect(err).ShouldNot(HaveOccurred())

		tracker2, err := crucible.GetInstance[*RequestTracker](scope2.Attach(context.Background()), c)

		Expect(err).ShouldNot(HaveOccurred())
		Expect(tracker1).NotTo(BeIdenticalTo(tracker2))
	})

	It("should fail without an active scope", func() {
		c := newScopedContainer()

		_, err := crucible.GetInstance[*RequestTracker](context.Background(), c)

		Expect(err).Should(HaveOccurred())
		Expect(err).To(MatchError(crucible.ErrNoActiveScope))
	})

	It("should fail for a nil context", func() {
		c := newScopedContainer()

		_, err := crucible.GetInstance[*RequestTracker](nil, c)

		Expect(err).To(MatchError(crucible.ErrNilContext))
	})

	It("should discard instances on Close", func() {
		c := newScopedContainer()

		scope := c.NewScope()
		ctx := scope.Attach(context.Background())

		tracker1, err := crucible.GetInstance[*RequestTracker](ctx, c)

		Expect(err).ShouldNot(HaveOccurred())

		scope.Close()

		scope2 := c.NewScope()
		defer scope2.Close()

		tracker2, err := crucible.GetInstance[*RequestTracker](scope2.Attach(context.Background()), c)

		Expect(err).ShouldNot(HaveOccurred())
		Expect(tracker1).NotTo(BeIdenticalTo(tracker2))
	})

	It("should reject resolution on a closed scope", func() {
		c := newScopedContainer()

		scope := c.NewScope()
		ctx := scope.Attach(context.Background())

		scope.Close()

		_, err := crucible.GetInstance[*RequestTracker](ctx, c)

		Expect(err).Should(HaveOccurred())
		Expect(err).To(MatchError(crucible.ErrScopeClosed))
	})

	It("should not resolve for a cancelled context", func() {
		c := newScopedContainer()

		scope := c.NewScope()
		defer scope.Close()

		ctx, cancel := context.WithCancel(context.Background())
		ctx = scope.Attach(ctx)
		cancel()

		_, err := crucible.GetInstance[*RequestTracker](ctx, c)

		Expect(err).Should(HaveOccurred())
		Expect(err).To(MatchError(context.Canceled))
	})

	It("should close itself when the attached context ends", func() {
		c := configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Scoped, nameServiceConstructorWithCleanup(func() {})).
				Err()
		})

		scope := c.NewScope()
		ctx, cancel := context.WithCancel(context.Background())
		ctx = scope.Attach(ctx)

		_, err := crucible.GetInstance[NameService](ctx, c)

		Expect(err).ShouldNot(HaveOccurred())

		cancel()

		Eventually(func() error {
			_, err := crucible.GetInstance[NameService](ctx, c)
			return err
		}).Should(MatchError(context.Canceled))

		time.Sleep(time.Millisecond)
		Expect(goleak.Find(
			goleak.IgnoreTopFunction(
				"github.com/onsi/ginkgo/v2/internal.(*Suite).runNode",
			),
			goleak.IgnoreTopFunction(
				"github.com/onsi/ginkgo/v2/internal/interrupt_handler.(*InterruptHandler).registerForInterrupts.func2",
			),
			goleak.IgnoreAnyFunction(
				"github.com/onsi/ginkgo/v2/internal.RegisterForProgressSignal.func1",
			),
		)).ShouldNot(HaveOccurred())
	})

	It("should run scoped cleanups in reverse creation order on Close", func() {
		order := make([]string, 0, 2)

		c := configure(func(r *crucible.Registrar) error {
			return r.
				Add(crucible.Scoped, nameServiceConstructorWithCleanup(func() {
					order = append(order, "nameService")
				})).
				Add(crucible.Scoped, heroConstructorWithCleanup(func() {
					order = append(order, "hero")
				})).
				Err()
		})

		scope := c.NewScope()
		ctx := scope.Attach(context.Background())

		_, err := crucible.GetInstance[*Hero](ctx, c)

		Expect(err).ShouldNot(HaveOccurred())

		scope.Close()

		Expect(order).To(Equal([]string{"hero", "nameService"}))
	})
})
