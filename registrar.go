package crucible

import (
	"fmt"
	"reflect"
)

type constructorType int

const (
	onlyService constructorType = iota
	withError
	withErrorAndCleanUp
	fieldFiller
	prebuiltValue
)

type argKey struct {
	field string
	pos   int
}

type override struct {
	value      any
	settingKey string
	isSetting  bool
}

type dependency struct {
	argType reflect.Type
	name    string
}

type registration struct {
	constructor      reflect.Value
	newInstance      func(values ...any) (any, error)
	value            any
	serviceType      reflect.Type
	overrides        map[argKey]override
	typeName         string
	dependencies     []dependency
	id               int
	constructorType  constructorType
	lifetime         Lifetime
	dependsOnContext bool
}

// RegisterOption customizes a single registration, overriding how one of
// its constructor arguments or fields is obtained.
type RegisterOption func(*registration) error

// WithValue passes value verbatim as the constructor argument at pos.
// Positions count declared parameters, excluding a leading context.Context.
func WithValue(pos int, value any) RegisterOption {
	return func(r *registration) error {
		if err := checkPos(r, pos); err != nil {
			return err
		}

		if value == nil {
			return fmt.Errorf("literal override for argument %d is nil", pos)
		}

		if !reflect.TypeOf(value).AssignableTo(r.dependencies[pos].argType) {
			return fmt.Errorf(
				"literal override %T is not assignable to argument %d of type %s",
				value, pos, r.dependencies[pos].argType,
			)
		}

		r.overrides[argKey{pos: pos}] = override{value: value}

		return nil
	}
}

// WithSetting fills the constructor argument at pos from the container's
// Settings source, converting the raw string to the argument type.
func WithSetting(pos int, key string) RegisterOption {
	return func(r *registration) error {
		if err := checkPos(r, pos); err != nil {
			return err
		}

		r.overrides[argKey{pos: pos}] = override{settingKey: key, isSetting: true}

		return nil
	}
}

// WithFieldValue passes value verbatim as the named exported field of a
// Wire/WirePtr/Bind registration.
func WithFieldValue(name string, value any) RegisterOption {
	return func(r *registration) error {
		pos, err := fieldPos(r, name)
		if err != nil {
			return err
		}

		if value == nil {
			return fmt.Errorf("literal override for field %s is nil", name)
		}

		if !reflect.TypeOf(value).AssignableTo(r.dependencies[pos].argType) {
			return fmt.Errorf(
				"literal override %T is not assignable to field %s of type %s",
				value, name, r.dependencies[pos].argType,
			)
		}

		r.overrides[argKey{field: name, pos: -1}] = override{value: value}

		return nil
	}
}

// WithFieldSetting fills the named exported field from the container's
// Settings source.
func WithFieldSetting(name, key string) RegisterOption {
	return func(r *registration) error {
		if _, err := fieldPos(r, name); err != nil {
			return err
		}

		r.overrides[argKey{field: name, pos: -1}] = override{settingKey: key, isSetting: true}

		return nil
	}
}

func checkPos(r *registration, pos int) error {
	if r.constructorType == fieldFiller || r.constructorType == prebuiltValue {
		return fmt.Errorf("positional override %d is only valid for constructor functions", pos)
	}

	if pos < 0 || pos >= len(r.dependencies) {
		return fmt.Errorf("override position %d is out of range", pos)
	}

	return nil
}

func fieldPos(r *registration, name string) (int, error) {
	if r.constructorType != fieldFiller {
		return 0, fmt.Errorf("field override %s is only valid for Wire, WirePtr and Bind registrations", name)
	}

	for i, dep := range r.dependencies {
		if dep.name == name {
			return i, nil
		}
	}

	return 0, fmt.Errorf("field override %s does not match any exported field", name)
}

// Registrar collects registrations during one Configure call. Nothing it
// stages reaches the container until the mutator returns successfully.
type Registrar struct {
	err    error
	staged []*registration
}

// Err returns the first registration error, if any. Configure fails with
// it even when the mutator itself returns nil.
func (r *Registrar) Err() error {
	return r.err
}

// Add registers a constructor for a service with the given lifetime. The
// service identity is the constructor's first return type (or the wired
// type for Wire/WirePtr/Bind). The same service may be added repeatedly;
// the last addition becomes the default used by GetInstance.
func (r *Registrar) Add(lifetime Lifetime, constructor any, opts ...RegisterOption) *Registrar {
	if r.err != nil {
		return r
	}

	if lifetime != Singleton &&
		lifetime != Scoped &&
		lifetime != Transient {
		r.err = LifetimeUnsupportedError(lifetime.String())
		return r
	}

	if construct, ok := constructor.(func() (fieldConstructor, error)); ok {
		return r.addFieldFiller(lifetime, construct, opts)
	}

	t := reflect.TypeOf(constructor)
	if t == nil || t.Kind() != reflect.Func {
		r.err = newBadConstructorError(ErrConstructorNotAFunction, t)
		return r
	}

	cType, err := getConstructorType(lifetime, t)
	if err != nil {
		r.err = err
		return r
	}

	reg := &registration{
		constructorType: cType,
		lifetime:        lifetime,
		constructor:     reflect.ValueOf(constructor),
		serviceType:     t.Out(0),
		typeName:        t.Out(0).String(),
		overrides:       make(map[argKey]override),
	}

	if err := fillDependencies(lifetime, t, reg); err != nil {
		r.err = err
		return r
	}

	for _, opt := range opts {
		if err := opt(reg); err != nil {
			r.err = newBadConstructorError(err, t)
			return r
		}
	}

	r.staged = append(r.staged, reg)

	return r
}

// Instance registers a pre-built value as a Singleton keyed by its own
// dynamic type. The container never cleans up pre-built values.
func (r *Registrar) Instance(value any) *Registrar {
	if r.err != nil {
		return r
	}

	if value == nil {
		r.err = newBadConstructorError(ErrConstructorNotAFunction, nil)
		return r
	}

	t := reflect.TypeOf(value)
	r.staged = append(r.staged, &registration{
		constructorType: prebuiltValue,
		lifetime:        Singleton,
		value:           value,
		serviceType:     t,
		typeName:        t.String(),
		overrides:       make(map[argKey]override),
	})

	return r
}

// AddInstance registers a pre-built value keyed by T, which lets a value
// back an interface service.
func AddInstance[T any](r *Registrar, value T) *Registrar {
	if r.err != nil {
		return r
	}

	t := reflect.TypeOf(new(T)).Elem()
	r.staged = append(r.staged, &registration{
		constructorType: prebuiltValue,
		lifetime:        Singleton,
		value:           value,
		serviceType:     t,
		typeName:        t.String(),
		overrides:       make(map[argKey]override),
	})

	return r
}

func (r *Registrar) addFieldFiller(
	lifetime Lifetime, construct func() (fieldConstructor, error), opts []RegisterOption,
) *Registrar {
	constructor, err := construct()
	if err != nil {
		r.err = err
		return r
	}

	t := constructor.Type
	reg := &registration{
		constructorType: fieldFiller,
		lifetime:        lifetime,
		newInstance:     constructor.NewInstance,
		serviceType:     t,
		typeName:        t.String(),
		overrides:       make(map[argKey]override),
	}

	for _, field := range constructor.Fields {
		reg.dependencies = append(reg.dependencies, dependency{
			argType: field.Type,
			name:    field.Name,
		})
	}

	for _, opt := range opts {
		if err := opt(reg); err != nil {
			r.err = newBadConstructorError(err, t)
			return r
		}
	}

	r.staged = append(r.staged, reg)

	return r
}

func getConstructorType(lifetime Lifetime, t reflect.Type) (constructorType, error) {
	cType := onlyService

	if t.IsVariadic() {
		return cType, newBadConstructorError(ErrVariadicConstructor, t)
	}

	numIn := t.NumIn()

	// A Singleton outlives any context it could be built from.
	if lifetime == Singleton && numIn > 0 && t.In(0).Implements(contextInterface) {
		return cType, newConstructorUnsupportedError(t, lifetime)
	}

	switch t.NumOut() {
	case 1:
		if out := t.Out(0); out.Implements(errorInterface) {
			return cType, newConstructorUnsupportedError(t, lifetime)
		}
	case 2:
		cType = withError

		if errType := t.Out(1); !errType.Implements(errorInterface) {
			return cType, newConstructorUnsupportedError(t, lifetime)
		}
	case 3:
		cType = withErrorAndCleanUp

		if cleanupType := t.Out(1); !cleanupType.AssignableTo(cleanUpType) {
			return cType, newConstructorUnsupportedError(t, lifetime)
		}

		if errType := t.Out(2); !errType.Implements(errorInterface) {
			return cType, newConstructorUnsupportedError(t, lifetime)
		}

		// Transient instances are owned by the caller; nobody would ever
		// run their cleanup.
		if lifetime == Transient {
			return cType, newConstructorUnsupportedError(t, lifetime)
		}
	default:
		return cType, newConstructorUnsupportedError(t, lifetime)
	}

	return cType, nil
}

func fillDependencies(lifetime Lifetime, t reflect.Type, reg *registration) error {
	numIn := t.NumIn()
	for i := 0; i < numIn; i++ {
		argT := t.In(i)
		if i > 0 && argT.Implements(contextInterface) {
			return newConstructorUnsupportedError(t, lifetime)
		}

		if argT.Implements(contextInterface) {
			reg.dependsOnContext = true

			continue
		}

		reg.dependencies = append(reg.dependencies, dependency{
			argType: argT,
			name:    fmt.Sprintf("#%d", len(reg.dependencies)),
		})
	}

	return nil
}
