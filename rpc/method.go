package rpc

import (
	"context"
	"encoding/json"
)

// Param is one entry of a method's parameter schema.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Params is an ordered parameter schema.
type Params []Param

// Names returns the parameter names in declaration order.
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Func is the callable bound to a Method. args holds one raw JSON value per
// declared parameter, in declaration order.
type Func func(ctx context.Context, args []json.RawMessage) (any, error)

type noResult struct{}

// NoResult is returned by a Func whose target produces no value.
var NoResult any = noResult{}

// Nop is the Func of the empty method. It does nothing and returns NoResult.
func Nop(context.Context, []json.RawMessage) (any, error) {
	return NoResult, nil
}

// Method describes a callable registered under a namespace.
type Method struct {
	Namespace string
	Name      string
	Params    Params
	Func      Func
}

// emptyMethod returns the sentinel handed out when a method cannot be resolved.
func emptyMethod() *Method {
	return &Method{Params: Params{}, Func: Nop}
}
