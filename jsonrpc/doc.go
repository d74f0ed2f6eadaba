// Package jsonrpc implements the JSON-RPC 2.0 message handler for onesocket
// namespaces.
//
// This package implements the JSON-RPC 2.0 specification
// (https://www.jsonrpc.org/specification) for single, non-batched requests
// delivered as websocket messages.
//
// # Basic Usage
//
// Register methods, then serve a namespace with a JSON-RPC handler:
//
//	reg := rpc.NewRegistry()
//	reg.Register("math", &MathMethods{})
//	ns := socket.New("math", reg, jsonrpc.NewHandler())
//	http.Handle("/math", endpoint.Handler(ns.Endpoint))
//
// # Request Lifecycle
//
// Handle parses the message, validates the request object, resolves the
// method and binds the params. Process invokes the method and builds the
// response. Failures map onto the standard error codes:
//   - CodeParseError (-32700): the message is not valid JSON text.
//   - CodeInvalidRequest (-32600): the value is not a valid request object.
//   - CodeMethodNotFound (-32601): no method with that name in the namespace.
//   - CodeInvalidParams (-32602): params do not match the method's schema.
//   - CodeInternalError (-32603): the method returned an error or panicked.
//
// Errors returned by a method are logged but never sent to the client; the
// client always receives a bare Internal error.
//
// # Notifications
//
// A request without an "id" member is a notification. Notifications are
// executed but never answered, not even when they fail. Requests that fail
// before they are recognized as valid requests are always answered.
//
// # Server Push
//
// Notification builds a server-to-client notification frame, suitable for
// socket.Namespace.Broadcast.
package jsonrpc
