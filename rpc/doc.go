// Package rpc holds the protocol-independent half of onesocket: the method
// registry, parameter and method validation, and the contract every wire
// protocol handler implements.
//
// # Registering Methods
//
// Methods are registered into an explicit Registry under a namespace:
//
//	reg := rpc.NewRegistry()
//	reg.Register("math", &MathMethods{})
//
// Methods are defined on a struct with a params type:
//
//	type MathMethods struct{}
//
//	type SumParams struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
//	func (m *MathMethods) Sum(ctx context.Context, p SumParams) (int, error) {
//	    return p.A + p.B, nil
//	}
//
// The json tags of the params struct name the parameters, and field
// declaration order is the order positional (array) params bind in. A method
// that only returns an error produces no result value; the simple protocol
// then sends no reply at all.
//
// # Method Name Override
//
// Use a `_` field with an `rpc` tag to override the method name:
//
//	type SumParams struct {
//	    _ struct{} `rpc:"sum"`
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
// # Low-level Registration
//
// Registry.Add registers a Method directly, for callables that decode their
// own raw arguments.
//
// # Last Registration Wins
//
// Registering the same (namespace, name) twice replaces the earlier Method.
package rpc
