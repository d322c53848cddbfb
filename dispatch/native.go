package dispatch

import (
	"reflect"
	"strings"
	"unicode"

	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/values"
)

// RegisterStruct reflects every exported method of host (a pointer to
// a struct of native bindings) and registers each as a native
// Candidate under namespacePath, using its PascalCase method name
// converted to lowercase hyphenated form (e.g. WriteLine -> "write-line");
// namespacePath itself is used unchanged.
// This mirrors the host-function registration pattern used throughout
// the runtime's ambient stack: reflect the Go method set once at
// startup rather than hand-writing a binding per native function.
func (r *Registry) RegisterStruct(namespacePath string, host any) error {
	v := reflect.ValueOf(host)
	t := v.Type()
	if t.Kind() != reflect.Ptr {
		return sberrors.New(sberrors.PhaseHost, sberrors.KindNativeFailure).
			Detail("RegisterStruct requires a pointer receiver, got %s", t.Kind()).Build()
	}

	for i := 0; i < v.NumMethod(); i++ {
		m := t.Method(i)
		fn, err := adaptMethod(v.Method(i))
		if err != nil {
			return err
		}
		c := &Candidate{
			Name:       toKebabCase(m.Name),
			Params:     paramsFromMethod(m.Func.Type(), true),
			ReturnKind: values.Object,
			ParamsIndex: -1,
			Native:     fn,
		}
		r.Define(namespacePath, c)
	}
	return nil
}

// RegisterFunc registers a single Go function value as a native
// candidate under name, for host programs that prefer to wire
// individual callbacks rather than a struct's whole method set.
func (r *Registry) RegisterFunc(namespacePath, name string, fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return sberrors.New(sberrors.PhaseHost, sberrors.KindNativeFailure).
			Detail("RegisterFunc requires a function value").Build()
	}
	adapted, err := adaptMethod(v)
	if err != nil {
		return err
	}
	c := &Candidate{
		Name:        name,
		Params:      paramsFromMethod(v.Type(), false),
		ReturnKind:  values.Object,
		ParamsIndex: -1,
		Native:      adapted,
	}
	r.Define(namespacePath, c)
	return nil
}

// toKebabCase converts a PascalCase Go identifier (e.g. "WriteLine")
// into lowercase words joined by hyphens ("write-line").
func toKebabCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func paramsFromMethod(t reflect.Type, isMethod bool) []Param {
	start := 0
	if isMethod {
		start = 1 // receiver
	}
	params := make([]Param, 0, t.NumIn()-start)
	for i := start; i < t.NumIn(); i++ {
		params = append(params, Param{
			Name: "",
			Kind: kindFromGoType(t.In(i)),
		})
	}
	return params
}

// adaptMethod wraps a reflected Go function/method as a NativeFunc: it
// converts interpreter values to Go arguments by Go kind, invokes, and
// converts the (single, or first) Go result back — surfacing any panic
// as a typed NativeFailure (spec §4.9 "Native adapter").
func adaptMethod(fn reflect.Value) (NativeFunc, error) {
	t := fn.Type()
	return func(args []values.Value) (res values.Value, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = sberrors.NativeFailure("native", nil, []string{toString(p)})
			}
		}()

		in := make([]reflect.Value, 0, t.NumIn())
		for i := 0; i < t.NumIn() && i < len(args); i++ {
			in = append(in, goValueFromKind(args[i], t.In(i)))
		}

		out := fn.Call(in)
		if len(out) == 0 {
			return values.Value{Kind: values.Object}, nil
		}
		last := out[len(out)-1]
		if last.Type().Implements(errType) && !last.IsNil() {
			return values.Value{}, sberrors.NativeFailure("native", last.Interface().(error), nil)
		}
		return kindValueFromGo(out[0]), nil
	}, nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if e, ok := v.(error); ok {
		return e.Error()
	}
	return "panic"
}

func kindFromGoType(t reflect.Type) values.Kind {
	switch t.Kind() {
	case reflect.Int, reflect.Int32:
		return values.Int
	case reflect.Int64:
		return values.Long
	case reflect.Uint, reflect.Uint32:
		return values.Uint
	case reflect.Uint64:
		return values.Ulong
	case reflect.Float32:
		return values.Float
	case reflect.Float64:
		return values.Double
	case reflect.String:
		return values.String
	case reflect.Bool:
		return values.Bool
	default:
		return values.Object
	}
}

func goValueFromKind(v values.Value, t reflect.Type) reflect.Value {
	switch t.Kind() {
	case reflect.Int, reflect.Int32:
		return reflect.ValueOf(int32(v.AsInt64())).Convert(t)
	case reflect.Int64:
		return reflect.ValueOf(v.AsInt64())
	case reflect.Uint, reflect.Uint32:
		return reflect.ValueOf(uint32(v.AsUint64())).Convert(t)
	case reflect.Uint64:
		return reflect.ValueOf(v.AsUint64())
	case reflect.Float32:
		return reflect.ValueOf(float32(v.AsFloat64()))
	case reflect.Float64:
		return reflect.ValueOf(v.AsFloat64())
	case reflect.String:
		return reflect.ValueOf(v.Str)
	case reflect.Bool:
		return reflect.ValueOf(v.B)
	default:
		return reflect.Zero(t)
	}
}

func kindValueFromGo(v reflect.Value) values.Value {
	switch v.Kind() {
	case reflect.Int, reflect.Int32:
		return values.IntValue(int32(v.Int()))
	case reflect.Int64:
		return values.LongValue(v.Int())
	case reflect.Uint, reflect.Uint32:
		return values.UintValue(uint32(v.Uint()))
	case reflect.Uint64:
		return values.UlongValue(v.Uint())
	case reflect.Float32:
		return values.FloatValue(float32(v.Float()))
	case reflect.Float64:
		return values.DoubleValue(v.Float())
	case reflect.String:
		return values.Value{Kind: values.String, Str: v.String()}
	case reflect.Bool:
		return values.BoolValue(v.Bool())
	default:
		return values.Value{Kind: values.Object}
	}
}
