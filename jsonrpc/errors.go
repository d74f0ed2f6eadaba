package jsonrpc

import "fmt"

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeParamsNotFound = -32604
)

var messages = map[int]string{
	CodeParseError:     "Parse error",
	CodeInvalidRequest: "Invalid Request",
	CodeMethodNotFound: "Method not found",
	CodeInvalidParams:  "Invalid params",
	CodeInternalError:  "Internal error",
	CodeParamsNotFound: "Params not found",
}

// Message returns the canonical message for code. Unrecognized codes map to
// "Internal error".
func Message(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[CodeInternalError]
}

// JSONRPCError is a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("jsonrpc: %s (%d): %v", e.Message, e.Code, e.Data)
	}
	return fmt.Sprintf("jsonrpc: %s (%d)", e.Message, e.Code)
}

// NewError returns an error object for code carrying the canonical message.
// data holds optional details; nil or an empty string omits them.
func NewError(code int, data interface{}) *JSONRPCError {
	if s, ok := data.(string); ok && s == "" {
		data = nil
	}
	return &JSONRPCError{Code: code, Message: Message(code), Data: data}
}
