package crucible

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

const (
	constructorTypeStr            string = "func(T1, ...) [T|(T, error)|(T, Cleanup, error)]"
	constructorWithContextTypeStr string = "func(context.Context, T1, ...) [T|(T, error)|(T, Cleanup, error)]"

	singletonPossibleConstructor string = constructorTypeStr
	scopedPossibleConstructor    string = constructorTypeStr + " | " + constructorWithContextTypeStr
	transientPossibleConstructor string = "func(T1, ...) [T|(T, error)]" + " | " + "func(context.Context, T1, ...) [T|(T, error)]"
)

var (
	errorInterface   = reflect.TypeOf((*error)(nil)).Elem()
	cleanUpType      = reflect.TypeOf((*Cleanup)(nil)).Elem()
	contextInterface = reflect.TypeOf((*context.Context)(nil)).Elem()

	ErrVariadicConstructor     = errors.New("variadic constructor is not supported")
	ErrConstructorNotAFunction = errors.New("constructor is not a function")
	ErrNilContext              = errors.New("got nil context")
	ErrNilToken                = errors.New("got nil service token")
	ErrConfigurationLocked     = errors.New("container configuration is locked after first resolution")
	ErrContainerClosed         = errors.New("container is closed")
	ErrNoActiveScope           = errors.New("no active scope on context")
	ErrScopeClosed             = errors.New("scope is closed")
	ErrWireWrongTType          = errors.New("Wire can be used only with T as a struct")
	ErrBindWrongIType          = errors.New("Bind can be used only with I as an interface")
	ErrBindTDoesNotImplementI  = errors.New("Bind can only be used with I and T if T or *T implements I")
)

func newConstructorUnsupportedError(constructorType reflect.Type, lifetime Lifetime) error {
	switch lifetime {
	case Singleton:
		return newBadConstructorError(
			&ConstructorTemplateError{
				Lifetime:                      lifetime,
				SupportedConstructorTemplates: singletonPossibleConstructor,
			},
			constructorType,
		)
	case Scoped:
		return newBadConstructorError(
			&ConstructorTemplateError{
				Lifetime:                      lifetime,
				SupportedConstructorTemplates: scopedPossibleConstructor,
			},
			constructorType,
		)
	case Transient:
		return newBadConstructorError(
			&ConstructorTemplateError{
				Lifetime:                      lifetime,
				SupportedConstructorTemplates: transientPossibleConstructor,
			},
			constructorType,
		)
	default:
		return LifetimeUnsupportedError(lifetime.String())
	}
}

type LifetimeUnsupportedError string

func (lifetime LifetimeUnsupportedError) Error() string {
	return fmt.Sprintf("%s Lifetime is unsupported", string(lifetime))
}

func newBadConstructorError(cause error, constructorType reflect.Type) error {
	return &BadConstructorError{
		cause:           cause,
		ConstructorType: constructorType,
	}
}

// BadConstructorError is a configuration error: a recipe passed to
// (*Registrar).Add does not fit any supported constructor shape, or its
// registration options do not match its parameters.
type BadConstructorError struct {
	cause           error
	ConstructorType reflect.Type
}

func (err *BadConstructorError) Error() string {
	return fmt.Sprintf("bad constructor %s: %s", err.ConstructorType, err.cause)
}

func (err *BadConstructorError) Unwrap() error {
	return err.cause
}

type ConstructorTemplateError struct {
	SupportedConstructorTemplates string
	Lifetime                      Lifetime
}

func (err *ConstructorTemplateError) Error() string {
	return fmt.Sprintf(
		"only %s can be used for %s",
		err.SupportedConstructorTemplates,
		err.Lifetime,
	)
}

type WireError struct {
	cause error
	T     reflect.Type
}

func (err *WireError) Error() string {
	return fmt.Sprintf("cannot wire %s by its exported fields: %s", err.T, err.cause)
}

func (err *WireError) Unwrap() error {
	return err.cause
}

func newBindError(cause error, i, t reflect.Type) error {
	return &BindError{I: i, T: t, cause: cause}
}

type BindError struct {
	cause error

	I, T reflect.Type
}

func (err *BindError) Error() string {
	return fmt.Sprintf("crucible.Bind[%s, %s] returned an error: %s", err.I, err.T, err.cause)
}

func (err *BindError) Unwrap() error {
	return err.cause
}

func newNoDefaultInstanceError(serviceType reflect.Type) error {
	return &NoDefaultInstanceError{
		TypeName: serviceType.String(),
	}
}

// NoDefaultInstanceError is returned when a requested service has no
// registration and is not a concrete type that could be wired from its
// exported fields. TryGetInstance downgrades this error, and only this
// error, to an absent result.
type NoDefaultInstanceError struct {
	TypeName string
}

func (err *NoDefaultInstanceError) Error() string {
	return fmt.Sprintf("no default instance for %s", err.TypeName)
}

func newCircularDependencyError(path []string) error {
	return &CircularDependencyError{Path: path}
}

// CircularDependencyError is returned on the first resolution of any
// service that participates in a constructor-dependency cycle.
type CircularDependencyError struct {
	Path []string
}

func (err *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(err.Path, " -> "))
}

func newUnresolvableArgumentError(argument string, argType reflect.Type) error {
	return &UnresolvableArgumentError{
		Argument: argument,
		ArgType:  argType,
	}
}

// UnresolvableArgumentError is returned when a constructor argument or an
// exported field is a plain value type with no literal override, no
// matching setting and no registration of its own.
type UnresolvableArgumentError struct {
	ArgType  reflect.Type
	Argument string
}

func (err *UnresolvableArgumentError) Error() string {
	return fmt.Sprintf(
		"argument %s of type %s has no literal override, setting or registration",
		err.Argument,
		err.ArgType,
	)
}

func newServiceBuilderError(cause error, lifetime Lifetime, typeName string) error {
	return &ServiceBuilderError{
		cause:    cause,
		Lifetime: lifetime,
		TypeName: typeName,
	}
}

// ServiceBuilderError wraps any error raised while building a particular
// service instance, carrying its lifetime and type name.
type ServiceBuilderError struct {
	cause    error
	TypeName string
	Lifetime Lifetime
}

func (err *ServiceBuilderError) Error() string {
	return fmt.Sprintf("cannot build %s %s: %s", err.Lifetime, err.TypeName, err.cause)
}

func (err *ServiceBuilderError) Unwrap() error {
	return err.cause
}

func newConstructorError(cause error) error {
	return &ConstructorError{
		cause: cause,
	}
}

// ConstructorError wraps an error returned (or a panic raised) by a
// registered constructor.
type ConstructorError struct {
	cause error
}

func (err *ConstructorError) Error() string {
	return fmt.Sprintf("constructor returned an error: %s", err.cause)
}

func (err *ConstructorError) Unwrap() error {
	return err.cause
}
