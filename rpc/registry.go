package rpc

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

type methodKey struct {
	namespace string
	name      string
}

// Registry is the table of registered methods. It is populated during
// startup and read by every namespace dispatcher built from it.
type Registry struct {
	mu      sync.RWMutex
	methods []*Method
	index   map[methodKey]int
}

// NewRegistry creates an empty method registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[methodKey]int),
	}
}

// Add registers m. A method already registered under the same namespace and
// name is replaced.
func (r *Registry) Add(m Method) error {
	if m.Name == "" {
		return errors.New("rpc: method name must not be empty")
	}
	if m.Func == nil {
		return fmt.Errorf("rpc: method %q has a nil Func", m.Name)
	}
	m.Params = append(Params{}, m.Params...)

	key := methodKey{namespace: m.Namespace, name: m.Name}

	r.mu.Lock()
	defer r.mu.Unlock()
	if i, exists := r.index[key]; exists {
		r.methods[i] = &m
		return nil
	}
	r.index[key] = len(r.methods)
	r.methods = append(r.methods, &m)
	return nil
}

// Register adds methods from a receiver to the namespace.
// Only exported methods with the signature
//
//	func(ctx context.Context, params P) (R, error)
//	func(ctx context.Context, params P) error
//
// where P is a struct type are registered; others are skipped. It is an
// error for receiver to have no such method.
func (r *Registry) Register(namespace string, receiver any) error {
	val := reflect.ValueOf(receiver)
	if !val.IsValid() {
		return errors.New("rpc: nil receiver")
	}
	typ := val.Type()

	registered := 0
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		if !method.IsExported() {
			continue
		}

		b, ok := parseFunc(val.Method(i))
		if !ok {
			continue
		}

		name := method.Name
		if b.name != "" {
			name = b.name
		}
		if err := r.Add(b.method(namespace, name)); err != nil {
			return err
		}
		registered++
	}

	if registered == 0 {
		return fmt.Errorf("rpc: %T has no methods with a valid signature", receiver)
	}
	return nil
}

// RegisterFunc adds a single function to the namespace. fn must have one of
// the signatures accepted by Register. An empty name falls back to the
// params struct's `rpc` override tag.
func (r *Registry) RegisterFunc(namespace, name string, fn any) error {
	b, ok := parseFunc(reflect.ValueOf(fn))
	if !ok {
		return fmt.Errorf("rpc: unsupported function signature %T", fn)
	}
	if name == "" {
		name = b.name
	}
	return r.Add(b.method(namespace, name))
}

// MethodsFor returns the methods registered under namespace, keyed by name.
func (r *Registry) MethodsFor(namespace string) map[string]*Method {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make(map[string]*Method)
	for _, m := range r.methods {
		if m.Namespace != namespace {
			continue
		}
		cp := *m
		methods[m.Name] = &cp
	}
	return methods
}

// Namespaces returns the sorted namespaces that have at least one method.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var namespaces []string
	for _, m := range r.methods {
		if !seen[m.Namespace] {
			seen[m.Namespace] = true
			namespaces = append(namespaces, m.Namespace)
		}
	}
	sort.Strings(namespaces)
	return namespaces
}
