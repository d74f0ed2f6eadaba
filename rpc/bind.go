package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// binding holds reflection data for a function registered by Register or
// RegisterFunc.
type binding struct {
	fn        reflect.Value
	paramType reflect.Type
	params    Params
	fields    []int // field index per entry of params
	name      string
	hasResult bool
}

// parseFunc extracts signature information via reflection.
// Valid signatures: func(ctx context.Context, params P) (R, error) and
// func(ctx context.Context, params P) error, with P a struct.
func parseFunc(fn reflect.Value) (*binding, bool) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, false
	}
	ft := fn.Type()

	if ft.NumIn() != 2 || ft.In(0) != contextType {
		return nil, false
	}

	b := &binding{fn: fn, params: Params{}}
	switch ft.NumOut() {
	case 1:
		if ft.Out(0) != errorType {
			return nil, false
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, false
		}
		b.hasResult = true
	default:
		return nil, false
	}

	paramType := ft.In(1)
	if paramType.Kind() != reflect.Struct {
		return nil, false
	}
	b.paramType = paramType

	for i := 0; i < paramType.NumField(); i++ {
		field := paramType.Field(i)
		if field.Name == "_" {
			if tag := field.Tag.Get("rpc"); tag != "" {
				b.name = tag
			}
			continue
		}
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			tagName := strings.Split(jsonTag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		b.params = append(b.params, Param{Name: name, Type: field.Type.String()})
		b.fields = append(b.fields, i)
	}

	return b, true
}

func (b *binding) method(namespace, name string) Method {
	return Method{
		Namespace: namespace,
		Name:      name,
		Params:    b.params,
		Func:      b.call,
	}
}

// call decodes each raw argument into the params struct field it binds to
// and invokes the function.
func (b *binding) call(ctx context.Context, args []json.RawMessage) (any, error) {
	if len(args) != len(b.fields) {
		return nil, fmt.Errorf("rpc: expected %d args, got %d", len(b.fields), len(args))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	param := reflect.New(b.paramType).Elem()
	for i, raw := range args {
		field := param.Field(b.fields[i])
		if err := json.Unmarshal(raw, field.Addr().Interface()); err != nil {
			return nil, fmt.Errorf("rpc: param %q: %w", b.params[i].Name, err)
		}
	}

	out := b.fn.Call([]reflect.Value{reflect.ValueOf(ctx), param})
	if errOut := out[len(out)-1]; !errOut.IsNil() {
		return nil, errOut.Interface().(error)
	}
	if !b.hasResult {
		return NoResult, nil
	}
	return out[0].Interface(), nil
}
