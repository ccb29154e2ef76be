package crucible

import (
	"context"
	"reflect"
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// GetInstance resolves the default registration for T from c. Unregistered
// concrete struct types are auto-wired through their exported fields.
func GetInstance[T any](ctx context.Context, c *Container) (T, error) {
	service, err := c.GetInstance(ctx, typeOf[T]())
	if err != nil {
		var empty T
		return empty, err
	}

	return service.(T), nil
}

// TryGetInstance resolves T if it is registered or auto-wireable. An
// unknown service yields ok == false with a nil error; any other failure
// is reported as an error.
func TryGetInstance[T any](ctx context.Context, c *Container) (T, bool, error) {
	service, ok, err := c.TryGetInstance(ctx, typeOf[T]())
	if err != nil || !ok {
		var empty T
		return empty, ok, err
	}

	return service.(T), true, nil
}

// GetAllInstances resolves every registration of T in registration order.
// The last element is the same instance GetInstance would return.
func GetAllInstances[T any](ctx context.Context, c *Container) ([]T, error) {
	services, err := c.GetAllInstances(ctx, typeOf[T]())
	if err != nil {
		return nil, err
	}

	result := make([]T, len(services))
	for i, service := range services {
		result[i] = service.(T)
	}

	return result, nil
}

// MustGetInstance is GetInstance that panics on error. Use it in program
// wiring where a missing service is a bug, not a condition to handle.
func MustGetInstance[T any](ctx context.Context, c *Container) T {
	service, err := GetInstance[T](ctx, c)
	if err != nil {
		panic(err)
	}

	return service
}
