package jsonrpc

import (
	"encoding/json"
	"errors"

	"github.com/mnehpets/onesocket/rpc"
)

type notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Notification encodes a server-to-client notification. params may be nil;
// otherwise it must encode to a JSON array or object.
func Notification(method string, params any) ([]byte, error) {
	if method == "" {
		return nil, errors.New("jsonrpc: notification method must not be empty")
	}
	n := notification{JSONRPC: Version, Method: method}
	if params != nil {
		raw, err := rpc.Marshal(params)
		if err != nil {
			return nil, err
		}
		if k := rpc.Kind(raw); k != '[' && k != '{' {
			return nil, errors.New("jsonrpc: notification params must be an array or object")
		}
		n.Params = raw
	}
	return rpc.Marshal(n)
}
