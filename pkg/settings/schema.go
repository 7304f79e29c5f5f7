package settings

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Schema validates a resolved mapping
type Schema interface {
	Validate(fields map[string]any) error
}

// Aliaser is implemented by schemas that declare identifier-aliased fields.
// Aliases maps a field name to the identifier whose value it takes.
type Aliaser interface {
	Aliases() map[string]string
}

// SchemaFunc adapts a function to Schema
type SchemaFunc func(fields map[string]any) error

func (f SchemaFunc) Validate(fields map[string]any) error { return f(fields) }

// FieldError describes one offending field
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError lists every field a schema rejected
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Required returns a schema that rejects every missing or nil key
func Required(keys ...string) Schema {
	return SchemaFunc(func(fields map[string]any) error {
		var errs []FieldError
		for _, k := range keys {
			if v, ok := fields[k]; !ok || v == nil {
				errs = append(errs, FieldError{Field: k, Message: "required field missing"})
			}
		}
		if len(errs) > 0 {
			return &ValidationError{Fields: errs}
		}
		return nil
	})
}

var secretType = reflect.TypeOf(Secret{})

type structField struct {
	index      int
	name       string
	required   bool
	identifier string
}

// StructSchema validates a mapping by decoding it into the struct T.
//
// Fields are matched by the tag
//
//	confidant:"NAME[,required][,identifier=OTHER]"
//
// or by the Go field name when untagged; "-" skips a field. Values are
// decoded with weak typing, so "8080" fills an int and "1s" a time.Duration.
type StructSchema[T any] struct {
	fields []structField
}

// NewStructSchema builds the schema for T, which must be a struct type
func NewStructSchema[T any]() (*StructSchema[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("settings: %s is not a struct", t)
	}

	s := &StructSchema[T]{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("confidant")
		if tag == "-" {
			continue
		}

		sf := structField{index: i, name: f.Name}
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			sf.name = parts[0]
		}
		for _, opt := range parts[1:] {
			switch {
			case opt == "required":
				sf.required = true
			case strings.HasPrefix(opt, "identifier="):
				sf.identifier = strings.TrimPrefix(opt, "identifier=")
			default:
				return nil, fmt.Errorf("settings: field %s: unknown tag option %q", f.Name, opt)
			}
		}
		s.fields = append(s.fields, sf)
	}
	return s, nil
}

// MustStructSchema is like NewStructSchema but panics on error
func MustStructSchema[T any]() *StructSchema[T] {
	s, err := NewStructSchema[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Aliases returns the identifier declared on each field
func (s *StructSchema[T]) Aliases() map[string]string {
	aliases := make(map[string]string)
	for _, f := range s.fields {
		if f.identifier != "" {
			aliases[f.name] = f.identifier
		}
	}
	return aliases
}

// Validate reports every field that is missing or fails to decode
func (s *StructSchema[T]) Validate(fields map[string]any) error {
	_, err := s.Decode(fields)
	return err
}

// Decode builds a T from fields
func (s *StructSchema[T]) Decode(fields map[string]any) (T, error) {
	var out T
	rv := reflect.ValueOf(&out).Elem()

	var errs []FieldError
	for _, f := range s.fields {
		v, ok := fields[f.name]
		if !ok || v == nil {
			if f.required {
				errs = append(errs, FieldError{Field: f.name, Message: "required field missing"})
			}
			continue
		}

		target := rv.Field(f.index)
		ptr := reflect.New(target.Type())
		if err := decodeValue(v, ptr.Interface()); err != nil {
			errs = append(errs, FieldError{Field: f.name, Message: err.Error()})
			continue
		}
		target.Set(ptr.Elem())
	}

	if len(errs) > 0 {
		var zero T
		return zero, &ValidationError{Fields: errs}
	}
	return out, nil
}

// decodeValue decodes v into the value pointed to by ptr
func decodeValue(v any, ptr any) error {
	if sp, ok := ptr.(*Secret); ok {
		switch val := v.(type) {
		case Secret:
			*sp = val
		case string:
			*sp = NewSecret(val)
		case map[string]any, map[any]any, []any:
			return fmt.Errorf("expected a scalar secret, got %T", v)
		default:
			*sp = NewSecret(fmt.Sprint(val))
		}
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			revealSecretHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		TagName:          "confidant",
		Result:           ptr,
	})
	if err != nil {
		return err
	}
	return dec.Decode(v)
}

// revealSecretHook decodes a Secret through its plaintext unless the target
// is a Secret or an interface
func revealSecretHook(from, to reflect.Type, data any) (any, error) {
	if from != secretType || to == secretType {
		return data, nil
	}
	if s, ok := data.(Secret); ok && to.Kind() != reflect.Interface {
		return s.Reveal(), nil
	}
	return data, nil
}
