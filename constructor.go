package crucible

import "reflect"

// fieldConstructor builds a service by filling the exported fields of a
// struct from the container instead of calling a constructor function.
type fieldConstructor struct {
	Type        reflect.Type
	Fields      []reflect.StructField
	NewInstance func(values ...any) (any, error)
}

func exportedFields(t reflect.Type) ([]reflect.StructField, map[int]int) {
	fieldIndex := 0
	fields := make(map[int]int)
	structFields := make([]reflect.StructField, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}

		structFields = append(structFields, t.Field(i))
		fields[fieldIndex] = i
		fieldIndex++
	}

	return structFields, fields
}

// Wire returns a constructor producing a T value with its exported fields
// resolved from the container. Pass it uncalled:
//
//	r.Add(crucible.Transient, crucible.Wire[Greeter])
func Wire[T any]() (fieldConstructor, error) {
	t := reflect.TypeOf(new(T)).Elem()

	if t.Kind() != reflect.Struct {
		return fieldConstructor{}, &WireError{T: t, cause: ErrWireWrongTType}
	}

	structFields, fields := exportedFields(t)

	return fieldConstructor{
		Type:        t,
		Fields:      structFields,
		NewInstance: valueInstance[T](fields),
	}, nil
}

// WirePtr is Wire for *T services.
func WirePtr[T any]() (fieldConstructor, error) {
	t := reflect.TypeOf(new(T)).Elem()

	if t.Kind() != reflect.Struct {
		return fieldConstructor{}, &WireError{T: t, cause: ErrWireWrongTType}
	}

	structFields, fields := exportedFields(t)

	return fieldConstructor{
		Type:        reflect.TypeOf(new(T)),
		Fields:      structFields,
		NewInstance: pointerInstance[T](fields),
	}, nil
}

// Bind registers interface I backed by *T with its exported fields
// resolved from the container.
func Bind[I, T any]() (fieldConstructor, error) {
	p := reflect.TypeOf(new(T))
	t := p.Elem()
	i := reflect.TypeOf(new(I)).Elem()

	if t.Kind() != reflect.Struct {
		return fieldConstructor{}, newBindError(ErrWireWrongTType, i, t)
	}

	if i.Kind() != reflect.Interface {
		return fieldConstructor{}, newBindError(ErrBindWrongIType, i, t)
	}

	if !p.Implements(i) {
		return fieldConstructor{}, newBindError(ErrBindTDoesNotImplementI, i, t)
	}

	structFields, fields := exportedFields(t)

	return fieldConstructor{
		Type:        i,
		Fields:      structFields,
		NewInstance: pointerInstance[T](fields),
	}, nil
}

func valueInstance[T any](fields map[int]int) func(...any) (any, error) {
	return func(values ...any) (any, error) {
		p := reflect.ValueOf(new(T)).Elem()

		for i, v := range values {
			p.Field(fields[i]).Set(reflect.ValueOf(v))
		}

		return p.Interface(), nil
	}
}

func pointerInstance[T any](fields map[int]int) func(...any) (any, error) {
	return func(values ...any) (any, error) {
		p := reflect.ValueOf(new(T)).Elem()

		for i, v := range values {
			p.Field(fields[i]).Set(reflect.ValueOf(v))
		}

		return p.Addr().Interface(), nil
	}
}

// dynamicInstance mirrors valueInstance/pointerInstance for types only
// known at runtime; it backs auto-wiring of unregistered concrete types.
func dynamicInstance(t reflect.Type, fields map[int]int, ptr bool) func(...any) (any, error) {
	return func(values ...any) (any, error) {
		p := reflect.New(t).Elem()

		for i, v := range values {
			p.Field(fields[i]).Set(reflect.ValueOf(v))
		}

		if ptr {
			return p.Addr().Interface(), nil
		}

		return p.Interface(), nil
	}
}
