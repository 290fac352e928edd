package promptcatalog

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/skosovsky/promptcatalog/internal/cast"
)

// Arguer is implemented by argument types that build their own invocation map, such as the
// structs produced by promptcatalog gen.
type Arguer interface {
	Arguments() map[string]string
}

type argField struct {
	index     int
	name      string
	omitEmpty bool
}

var argFieldCache sync.Map // reflect.Type -> []argField

// StructArgs converts v into an invocation map. An Arguer supplies its own map; otherwise v must
// be a struct or a pointer to one whose exported fields carry `prompt:"name"` tags. Fields tagged
// "-" or untagged are ignored, nil pointers are omitted, and `prompt:"name,omitempty"` also omits
// zero values. Field values must be scalars (see InvokeAny).
func StructArgs(v any) (map[string]string, error) {
	if a, ok := v.(Arguer); ok {
		return a.Arguments(), nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil %T", ErrInvalidArgs, v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T is not a struct", ErrInvalidArgs, v)
	}
	fields := argFields(rv.Type())
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s has no prompt-tagged fields", ErrInvalidArgs, rv.Type())
	}

	out := make(map[string]string, len(fields))
	for _, f := range fields {
		fv := rv.Field(f.index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		text, ok := cast.ToText(fv.Interface())
		if !ok {
			return nil, fmt.Errorf("%w: field for %q has non-text type %s", ErrInvalidArgs, f.name, fv.Type())
		}
		out[f.name] = text
	}
	return out, nil
}

func argFields(t reflect.Type) []argField {
	if cached, ok := argFieldCache.Load(t); ok {
		return cached.([]argField)
	}
	var fields []argField
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("prompt")
		if tag == "" || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fields = append(fields, argField{index: i, name: name, omitEmpty: opts == "omitempty"})
	}
	argFieldCache.Store(t, fields)
	return fields
}
