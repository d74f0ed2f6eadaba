package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errParamsShape = errors.New("Params must be one of 'object' or 'array'")

// Kind returns the first significant byte of a JSON value, or 0 for an
// empty value. '[' marks an array, '{' an object, '"' a string, 'n' null,
// 't'/'f' a boolean, and '-' or a digit a number.
func Kind(raw json.RawMessage) byte {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}

// ValidateParams binds provided params onto the expected schema. Arrays are
// returned unchanged once their length matches. Objects are reordered into
// the declared parameter order, independent of the caller's key order.
func ValidateParams(provided json.RawMessage, expected Params) ([]json.RawMessage, error) {
	switch Kind(provided) {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(provided, &list); err != nil {
			return nil, errParamsShape
		}
		if len(list) != len(expected) {
			return nil, countError(len(expected), len(list))
		}
		if list == nil {
			list = []json.RawMessage{}
		}
		return list, nil

	case '{':
		var named map[string]json.RawMessage
		if err := json.Unmarshal(provided, &named); err != nil {
			return nil, errParamsShape
		}
		if len(named) != len(expected) {
			return nil, countError(len(expected), len(named))
		}
		args := make([]json.RawMessage, 0, len(expected))
		for _, p := range expected {
			v, ok := named[p.Name]
			if !ok {
				return nil, fmt.Errorf("Params must include '%s'", p.Name)
			}
			args = append(args, v)
		}
		return args, nil
	}

	return nil, errParamsShape
}

func countError(expected, received int) error {
	return fmt.Errorf("Expected %d params. Received %d.", expected, received)
}

// ValidateMethod looks up name in methods. When the name is unknown it
// returns a copy of the empty method, whose Func is Nop, along with the
// error, so callers can treat both outcomes uniformly.
func ValidateMethod(name string, methods map[string]*Method) (*Method, error) {
	if m, ok := methods[name]; ok && m != nil {
		return m, nil
	}
	return emptyMethod(), fmt.Errorf("Method with name '%s' could not be found.", name)
}
