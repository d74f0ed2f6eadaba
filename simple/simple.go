// Package simple implements the minimal onesocket wire convention.
//
// A request is a JSON object with a "method" string and optional "params",
// either an array (positional) or an object (named):
//
//	{"method": "sum", "params": {"a": 1, "b": 2}}
//
// There are no ids, versions or notifications. The reply is the method's
// return value: strings are sent verbatim, anything else as JSON. Methods
// that produce no value, or a nil one, get no reply. Validation failures are answered with
// the failure message, and execution failures with the literal
// "Internal server error".
package simple

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"unicode/utf8"

	"github.com/go-logr/logr"

	"github.com/mnehpets/onesocket/rpc"
)

// InternalServerError is the reply sent when a method fails.
const InternalServerError = "Internal server error"

// Request is a simple protocol request.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Handler is the simple protocol rpc.MessageHandler.
type Handler struct {
	log logr.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used to record method failures.
func WithLogger(l logr.Logger) Option {
	return func(h *Handler) {
		h.log = l
	}
}

// NewHandler creates a simple protocol message handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{log: logr.Discard()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ rpc.MessageHandler = (*Handler)(nil)

// Handle validates message. On failure the result's Data holds the failure
// message as a string; on success it holds the *Request.
func (h *Handler) Handle(message []byte, methods map[string]*rpc.Method) *rpc.HandlerResult {
	res := &rpc.HandlerResult{
		Error: true,
		Func:  rpc.Nop,
		Args:  []json.RawMessage{},
	}

	req, err := parseRequest(message)
	if err != nil {
		res.Data = err.Error()
		return res
	}

	method, err := rpc.ValidateMethod(req.Method, methods)
	if err != nil {
		res.Data = err.Error()
		return res
	}

	args, err := rpc.ValidateParams(req.Params, method.Params)
	if err != nil {
		res.Data = err.Error()
		return res
	}

	res.Error = false
	res.Data = req
	res.Func = method.Func
	res.Args = args
	return res
}

// Process returns the failure message for failed results, and otherwise
// invokes the method and encodes its return value.
func (h *Handler) Process(ctx context.Context, res *rpc.HandlerResult) ([]byte, error) {
	if res == nil {
		return nil, errors.New("simple: nil handler result")
	}
	if res.Error {
		msg, ok := res.Data.(string)
		if !ok {
			msg = InternalServerError
		}
		return []byte(msg), nil
	}

	method := ""
	if req, ok := res.Data.(*Request); ok {
		method = req.Method
	}

	result, err := rpc.Invoke(ctx, res.Func, res.Args)
	if err != nil {
		h.log.V(1).Info("method failed", "method", method, "error", err.Error())
		return []byte(InternalServerError), nil
	}

	if result == rpc.NoResult || isNull(result) {
		return nil, nil
	}
	if s, ok := result.(string); ok {
		return []byte(s), nil
	}

	out, err := rpc.Marshal(result)
	if err != nil {
		h.log.Error(err, "cannot encode result", "method", method)
		return []byte(InternalServerError), nil
	}
	return out, nil
}

func parseRequest(message []byte) (*Request, error) {
	if !utf8.Valid(message) {
		return nil, errors.New("Message must be valid UTF-8 text")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(message, &fields); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, err
		}
		return nil, errors.New("Request must include prop 'method' with value of type 'string'")
	}

	req := &Request{}
	raw, ok := fields["method"]
	if !ok || rpc.Kind(raw) != '"' || json.Unmarshal(raw, &req.Method) != nil {
		return nil, errors.New("Request must include prop 'method' with value of type 'string'")
	}

	// Omitted params bind like an empty object.
	req.Params = json.RawMessage("{}")
	if raw, ok := fields["params"]; ok {
		if k := rpc.Kind(raw); k != '[' && k != '{' {
			return nil, errors.New("Params must be one of 'object' or 'array'")
		}
		req.Params = raw
	}
	return req, nil
}

// isNull reports whether v would encode as JSON null.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
