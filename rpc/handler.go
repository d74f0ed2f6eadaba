package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// HandlerResult is the outcome of MessageHandler.Handle, consumed once by
// MessageHandler.Process.
type HandlerResult struct {
	// Error reports whether parsing or validation failed.
	Error bool
	// Data is protocol specific context, such as the failure message or the
	// parsed request.
	Data any
	// Func is the resolved callable. It is Nop unless the method was resolved.
	Func Func
	// Args holds the arguments in declared parameter order.
	Args []json.RawMessage
}

// MessageHandler implements one wire convention.
//
// Handle parses and validates a raw message against the namespace's
// methods, and never fails: problems are reported through the result.
// Process invokes the resolved callable and builds the reply payload. A nil
// payload means nothing is sent back.
type MessageHandler interface {
	Handle(message []byte, methods map[string]*Method) *HandlerResult
	Process(ctx context.Context, res *HandlerResult) ([]byte, error)
}

// Invoke calls fn with args, converting a panic into an error.
func Invoke(ctx context.Context, fn Func, args []json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("rpc: panic: %v", r)
		}
	}()
	if fn == nil {
		return nil, fmt.Errorf("rpc: nil func")
	}
	return fn(ctx, args)
}

// Marshal encodes v as JSON without HTML escaping and without the trailing
// newline json.Encoder appends.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
