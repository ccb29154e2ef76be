package crucible

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// buildPlan is a resolved recipe: per-argument sources plus the
// constructor to invoke. Plans are derived lazily on first resolution and
// cached per registration (or per auto-wired concrete type), so the
// recursive walk, the cycle check and any settings lookups happen once.
type buildPlan struct {
	constructor      reflect.Value
	newInstance      func(values ...any) (any, error)
	value            any
	serviceType      reflect.Type
	typeName         string
	args             []planArg
	cacheID          int
	constructorType  constructorType
	lifetime         Lifetime
	dependsOnContext bool
}

type planArg struct {
	child     *buildPlan
	literal   reflect.Value
	isLiteral bool
}

func (c *Container) planForType(serviceType reflect.Type, stack []string) (*buildPlan, error) {
	if reg, ok := c.defaultRegistration(serviceType); ok {
		return c.planForRegistration(reg, stack)
	}

	return c.autoPlanFor(serviceType, stack)
}

func (c *Container) planForRegistration(reg *registration, stack []string) (*buildPlan, error) {
	if cached, ok := c.plans.Load(reg.id); ok {
		return cached.(*buildPlan), nil
	}

	if slices.Contains(stack, reg.typeName) {
		return nil, newCircularDependencyError(append(slices.Clone(stack), reg.typeName))
	}

	stack = append(stack, reg.typeName)

	args := make([]planArg, len(reg.dependencies))
	for i, dep := range reg.dependencies {
		key := argKey{pos: i}
		if reg.constructorType == fieldFiller {
			key = argKey{field: dep.name, pos: -1}
		}

		if ov, ok := reg.overrides[key]; ok {
			literal, err := c.resolveOverride(ov, dep, reg)
			if err != nil {
				return nil, err
			}

			args[i] = planArg{literal: literal, isLiteral: true}

			continue
		}

		child, err := c.dependencyPlan(dep, reg.lifetime, reg.typeName, stack)
		if err != nil {
			return nil, err
		}

		args[i] = planArg{child: child}
	}

	plan := &buildPlan{
		constructor:      reg.constructor,
		newInstance:      reg.newInstance,
		value:            reg.value,
		serviceType:      reg.serviceType,
		typeName:         reg.typeName,
		args:             args,
		cacheID:          reg.id,
		constructorType:  reg.constructorType,
		lifetime:         reg.lifetime,
		dependsOnContext: reg.dependsOnContext,
	}

	c.plans.Store(reg.id, plan)

	return plan, nil
}

// autoPlanFor wires an unregistered concrete type from its exported
// fields. Auto-wired instances follow Transient semantics: they are never
// cached and are owned by the caller.
func (c *Container) autoPlanFor(serviceType reflect.Type, stack []string) (*buildPlan, error) {
	if !wireable(serviceType) {
		return nil, newNoDefaultInstanceError(serviceType)
	}

	if cached, ok := c.autoPlans.Load(serviceType); ok {
		return cached.(*buildPlan), nil
	}

	typeName := serviceType.String()
	if slices.Contains(stack, typeName) {
		return nil, newCircularDependencyError(append(slices.Clone(stack), typeName))
	}

	stack = append(stack, typeName)

	structType := serviceType
	ptr := false
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
		ptr = true
	}

	structFields, fieldsMap := exportedFields(structType)

	args := make([]planArg, len(structFields))
	for i, field := range structFields {
		dep := dependency{argType: field.Type, name: field.Name}

		child, err := c.dependencyPlan(dep, Transient, typeName, stack)
		if err != nil {
			return nil, err
		}

		args[i] = planArg{child: child}
	}

	plan := &buildPlan{
		newInstance:     dynamicInstance(structType, fieldsMap, ptr),
		serviceType:     serviceType,
		typeName:        typeName,
		args:            args,
		constructorType: fieldFiller,
		lifetime:        Transient,
	}

	c.autoPlans.Store(serviceType, plan)

	return plan, nil
}

func (c *Container) dependencyPlan(
	dep dependency, lifetime Lifetime, typeName string, stack []string,
) (*buildPlan, error) {
	if reg, ok := c.defaultRegistration(dep.argType); ok {
		return c.planForRegistration(reg, stack)
	}

	if wireable(dep.argType) {
		return c.autoPlanFor(dep.argType, stack)
	}

	if dep.argType.Kind() == reflect.Interface {
		return nil, newServiceBuilderError(newNoDefaultInstanceError(dep.argType), lifetime, typeName)
	}

	return nil, newServiceBuilderError(
		newUnresolvableArgumentError(dep.name, dep.argType),
		lifetime,
		typeName,
	)
}

func (c *Container) resolveOverride(ov override, dep dependency, reg *registration) (reflect.Value, error) {
	if !ov.isSetting {
		return reflect.ValueOf(ov.value), nil
	}

	raw, ok := c.settings.Lookup(ov.settingKey)
	if !ok {
		return reflect.Value{}, newServiceBuilderError(
			newUnresolvableArgumentError(dep.name, dep.argType),
			reg.lifetime,
			reg.typeName,
		)
	}

	literal, err := convertSetting(raw, dep.argType)
	if err != nil {
		return reflect.Value{}, newServiceBuilderError(
			fmt.Errorf("setting %q for argument %s: %w", ov.settingKey, dep.name, err),
			reg.lifetime,
			reg.typeName,
		)
	}

	return literal, nil
}

// wireable reports whether a type can be built without a registration:
// concrete structs and pointers to structs qualify for field wiring.
func wireable(t reflect.Type) bool {
	if t.Kind() == reflect.Struct {
		return true
	}

	return t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
}

func (c *Container) build(ctx context.Context, plan *buildPlan) (service any, cleanUp Cleanup, err error) {
	defer func() {
		if rp := recover(); rp != nil {
			err = newServiceBuilderError(
				newConstructorError(fmt.Errorf("recovered from panic: %v", rp)),
				plan.lifetime,
				plan.typeName,
			)
		}
	}()

	if plan.constructorType == prebuiltValue {
		return plan.value, func() {}, nil
	}

	values := make([]any, len(plan.args))
	for i, arg := range plan.args {
		if arg.isLiteral {
			values[i] = arg.literal.Interface()

			continue
		}

		child, err := c.instanceFor(ctx, arg.child)
		if err != nil {
			return nil, nil, err
		}

		values[i] = child
	}

	if plan.constructorType == fieldFiller {
		service, err := plan.newInstance(values...)
		if err != nil {
			return nil, nil, newServiceBuilderError(newConstructorError(err), plan.lifetime, plan.typeName)
		}

		return service, func() {}, nil
	}

	args := make([]reflect.Value, 0, len(values)+1)
	if plan.dependsOnContext {
		if ctx == nil {
			return nil, nil, newServiceBuilderError(ErrNilContext, plan.lifetime, plan.typeName)
		}

		args = append(args, reflect.ValueOf(ctx))
	}

	for _, v := range values {
		args = append(args, reflect.ValueOf(v))
	}

	results := plan.constructor.Call(args)

	switch plan.constructorType {
	case onlyService:
		return results[0].Interface(), func() {}, nil
	case withError:
		serviceV, errV := results[0], results[1]
		if err, ok := (errV.Interface()).(error); ok && err != nil {
			return nil, nil, newServiceBuilderError(newConstructorError(err), plan.lifetime, plan.typeName)
		}

		return serviceV.Interface(), func() {}, nil
	case withErrorAndCleanUp:
		serviceV, cleanUpV, errV := results[0], results[1], results[2]
		if err, ok := (errV.Interface()).(error); ok && err != nil {
			return nil, nil, newServiceBuilderError(newConstructorError(err), plan.lifetime, plan.typeName)
		}

		return serviceV.Interface(), cleanUpV.Convert(cleanUpType).Interface().(Cleanup), nil
	default:
		return nil, nil, newServiceBuilderError(
			newConstructorUnsupportedError(plan.constructor.Type(), plan.lifetime),
			plan.lifetime,
			plan.typeName,
		)
	}
}
