// Package socket binds registered methods to websocket connections.
//
// A Namespace owns the set of open connections for one namespace, hands
// each inbound message to its protocol handler and writes the reply back to
// the connection the message arrived on:
//
//	reg := rpc.NewRegistry()
//	reg.Register("b", &Calculator{})
//	ns := socket.New("b", reg, jsonrpc.NewHandler())
//	mux.Handle("GET /b", endpoint.Handler(ns.Endpoint))
//
// Messages on one connection are handled strictly in arrival order, and
// different connections are handled concurrently.
package socket
