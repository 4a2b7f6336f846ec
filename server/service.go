package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"mini-jsonrpc/message"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// method is a registered function with its reflected signature.
// Accepted shapes:
//
//	func([ctx context.Context,] p1 P1, ..., pn Pn) (R, error)
//	func([ctx context.Context,] p1 P1, ..., pn Pn) error
type method struct {
	name      string
	fn        reflect.Value
	withCtx   bool
	params    []reflect.Type
	hasResult bool
}

func newMethod(name string, fn any) (*method, error) {
	if name == "" {
		return nil, fmt.Errorf("rpc: empty method name")
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("rpc: %s: handler must be a func, got %T", name, fn)
	}
	typ := v.Type()
	if typ.IsVariadic() {
		return nil, fmt.Errorf("rpc: %s: variadic handlers are not supported", name)
	}

	m := &method{name: name, fn: v}

	in := 0
	if typ.NumIn() > 0 && typ.In(0) == contextType {
		m.withCtx = true
		in = 1
	}
	for ; in < typ.NumIn(); in++ {
		m.params = append(m.params, typ.In(in))
	}

	switch {
	case typ.NumOut() == 1 && typ.Out(0) == errorType:
	case typ.NumOut() == 2 && typ.Out(1) == errorType:
		m.hasResult = true
	default:
		return nil, fmt.Errorf("rpc: %s: handler must return (R, error) or error", name)
	}
	return m, nil
}

// call decodes positional params and invokes the function. A nil result encodes as null.
func (m *method) call(ctx context.Context, params json.RawMessage) (any, error) {
	args, err := m.decodeParams(params)
	if err != nil {
		return nil, err
	}

	in := make([]reflect.Value, 0, len(args)+1)
	if m.withCtx {
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}
	in = append(in, args...)

	out := m.fn.Call(in)
	errv := out[len(out)-1]
	if !errv.IsNil() {
		err := errv.Interface().(error)
		// A typed nil such as (*message.ErrorObject)(nil) is non-nil as an error.
		if ev := reflect.ValueOf(err); ev.Kind() == reflect.Pointer && ev.IsNil() {
			return nil, fmt.Errorf("%s returned a nil %s as error", m.name, ev.Type())
		}
		return nil, err
	}
	if !m.hasResult {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func (m *method) decodeParams(params json.RawMessage) ([]reflect.Value, error) {
	var raw []json.RawMessage
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, &raw); err != nil {
			return nil, message.NewErrorObject(message.CodeInvalidParams, "params must be an array", nil)
		}
	}
	if len(raw) != len(m.params) {
		return nil, message.NewErrorObject(message.CodeInvalidParams,
			fmt.Sprintf("%s expects %d params, got %d", m.name, len(m.params), len(raw)), nil)
	}

	args := make([]reflect.Value, len(raw))
	for i, p := range raw {
		v := reflect.New(m.params[i])
		if err := json.Unmarshal(p, v.Interface()); err != nil {
			return nil, message.NewErrorObject(message.CodeInvalidParams,
				fmt.Sprintf("param %d: %v", i, err), nil)
		}
		args[i] = v.Elem()
	}
	return args, nil
}
