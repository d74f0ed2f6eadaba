package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"unicode/utf8"

	"github.com/go-logr/logr"

	"github.com/mnehpets/onesocket/rpc"
)

// Version is the only accepted value of the "jsonrpc" member.
const Version = "2.0"

// Request is a validated JSON-RPC 2.0 request. ID is nil for notifications
// and otherwise holds the id exactly as the client sent it.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response is a JSON-RPC 2.0 response object. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Call is the protocol context carried in rpc.HandlerResult.Data.
type Call struct {
	// Request is nil when the message failed to parse or validate.
	Request *Request
	// ID is the request id, or nil when it could not be determined.
	ID json.RawMessage
	// Notification is set once a valid request without an id is seen.
	Notification bool
	// Err is the failure reported by Handle.
	Err *JSONRPCError
}

// Handler is the JSON-RPC 2.0 rpc.MessageHandler.
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

// NewHandler creates a JSON-RPC 2.0 message handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{log: logr.Discard()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ rpc.MessageHandler = (*Handler)(nil)

// Handle parses and validates message, then resolves the method and binds
// its params.
func (h *Handler) Handle(message []byte, methods map[string]*rpc.Method) *rpc.HandlerResult {
	call := &Call{}
	res := &rpc.HandlerResult{
		Error: true,
		Data:  call,
		Func:  rpc.Nop,
		Args:  []json.RawMessage{},
	}

	req, rpcErr := parseRequest(message, call)
	if rpcErr != nil {
		call.Err = rpcErr
		return res
	}
	call.Request = req
	call.Notification = req.ID == nil

	method, err := rpc.ValidateMethod(req.Method, methods)
	if err != nil {
		call.Err = NewError(CodeMethodNotFound, err.Error())
		return res
	}

	args, err := rpc.ValidateParams(req.Params, method.Params)
	if err != nil {
		call.Err = NewError(CodeInvalidParams, err.Error())
		return res
	}

	res.Error = false
	res.Func = method.Func
	res.Args = args
	return res
}

// Process invokes the resolved method and encodes the response. It returns
// a nil payload for notifications.
func (h *Handler) Process(ctx context.Context, res *rpc.HandlerResult) ([]byte, error) {
	if res == nil {
		return nil, errors.New("jsonrpc: nil handler result")
	}
	call, ok := res.Data.(*Call)
	if !ok || call == nil {
		return encodeError(nil, NewError(CodeInternalError, nil))
	}

	if res.Error {
		if call.Notification {
			h.log.V(2).Info("dropping error for notification", "method", call.Request.Method, "code", errorCode(call.Err))
			return nil, nil
		}
		if call.Err == nil {
			return encodeError(call.ID, NewError(CodeInternalError, nil))
		}
		return encodeError(call.ID, call.Err)
	}

	method := ""
	if call.Request != nil {
		method = call.Request.Method
	}

	result, err := rpc.Invoke(ctx, res.Func, res.Args)
	if err != nil {
		h.log.V(1).Info("method failed", "method", method, "error", err.Error())
		if call.Notification {
			return nil, nil
		}
		return encodeError(call.ID, NewError(CodeInternalError, nil))
	}
	if call.Notification {
		return nil, nil
	}

	if result == rpc.NoResult {
		result = nil
	}
	raw, err := rpc.Marshal(result)
	if err != nil {
		h.log.Error(err, "cannot encode result", "method", method)
		return encodeError(call.ID, NewError(CodeInternalError, nil))
	}

	return rpc.Marshal(Response{
		JSONRPC: Version,
		Result:  raw,
		ID:      call.ID,
	})
}

func encodeError(id json.RawMessage, rpcErr *JSONRPCError) ([]byte, error) {
	return rpc.Marshal(Response{
		JSONRPC: Version,
		Error:   rpcErr,
		ID:      id,
	})
}

func errorCode(e *JSONRPCError) int {
	if e == nil {
		return CodeInternalError
	}
	return e.Code
}

// parseRequest decodes message into a validated request. A well-typed id is
// recorded on call before the remaining members are checked, so that
// Invalid Request replies still carry it.
func parseRequest(message []byte, call *Call) (*Request, *JSONRPCError) {
	if !utf8.Valid(message) {
		return nil, NewError(CodeParseError, "Message must be valid UTF-8 text")
	}
	if !json.Valid(message) {
		return nil, NewError(CodeParseError, nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(message, &fields); err != nil || fields == nil {
		return nil, NewError(CodeInvalidRequest, "Request must be an object")
	}

	var idErr *JSONRPCError
	id, hasID := fields["id"]
	if hasID {
		if k := rpc.Kind(id); k == '"' || k == 'n' || k == '-' || (k >= '0' && k <= '9') {
			call.ID = id
		} else {
			idErr = NewError(CodeInvalidRequest, "Value of 'id' must be of type 'string', 'number', or of value 'null'")
		}
	}

	var version string
	if raw, ok := fields["jsonrpc"]; !ok || rpc.Kind(raw) != '"' || json.Unmarshal(raw, &version) != nil || version != Version {
		return nil, NewError(CodeInvalidRequest, "Value of 'jsonrpc' must be exactly '2.0' and of type 'string'")
	}

	req := &Request{JSONRPC: version}
	if raw, ok := fields["method"]; !ok || rpc.Kind(raw) != '"' || json.Unmarshal(raw, &req.Method) != nil {
		return nil, NewError(CodeInvalidRequest, "Value of 'method' must be of type 'string'")
	}

	// Omitted params bind like an empty object.
	req.Params = json.RawMessage("{}")
	if raw, ok := fields["params"]; ok {
		if k := rpc.Kind(raw); k != '[' && k != '{' {
			return nil, NewError(CodeInvalidRequest, "Value of 'params' must be of type 'array' or 'object'")
		}
		req.Params = raw
	}

	if idErr != nil {
		return nil, idErr
	}
	if hasID {
		req.ID = id
	}
	return req, nil
}
