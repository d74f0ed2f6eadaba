package socket

import (
	"net/http"
	"strings"

	"github.com/mnehpets/onesocket/endpoint"
	"github.com/mnehpets/onesocket/rpc"
)

// MethodInfo describes one callable method in a directory listing.
type MethodInfo struct {
	Name   string     `json:"name"`
	Params rpc.Params `json:"params"`
}

// Listing is the JSON body served for one namespace.
type Listing struct {
	Namespace string       `json:"namespace"`
	Methods   []MethodInfo `json:"methods"`
}

// Listing returns the namespace's methods in name order.
func (ns *Namespace) Listing() Listing {
	l := Listing{Namespace: ns.name, Methods: []MethodInfo{}}
	for _, m := range ns.Methods() {
		params := m.Params
		if params == nil {
			params = rpc.Params{}
		}
		l.Methods = append(l.Methods, MethodInfo{Name: m.Name, Params: params})
	}
	return l
}

// Text renders the listing one method per line, e.g. "Sum(a int, b int)".
func (l Listing) Text() string {
	var b strings.Builder
	for _, m := range l.Methods {
		b.WriteString(m.Name)
		b.WriteByte('(')
		for i, p := range m.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name + " " + p.Type)
		}
		b.WriteString(")\n")
	}
	return b.String()
}

// DirectoryParams selects the namespace to list and the output format,
// "json" (the default) or "text".
type DirectoryParams struct {
	Namespace string `path:"namespace"`
	Format    string `query:"format"`
}

// DirectoryEndpoint returns an endpoint for GET /methods/{namespace} that
// lists the methods of one of the given namespaces.
func DirectoryEndpoint(namespaces ...*Namespace) endpoint.EndpointFunc[DirectoryParams] {
	byName := make(map[string]*Namespace, len(namespaces))
	for _, ns := range namespaces {
		byName[ns.name] = ns
	}
	return func(_ http.ResponseWriter, _ *http.Request, p DirectoryParams) (endpoint.Renderer, error) {
		ns, ok := byName[p.Namespace]
		if !ok {
			return nil, endpoint.Error(http.StatusNotFound, "unknown namespace", nil)
		}
		switch p.Format {
		case "", "json":
			return &endpoint.JSONRenderer{Value: ns.Listing()}, nil
		case "text":
			return &endpoint.StringRenderer{Body: ns.Listing().Text()}, nil
		}
		return nil, endpoint.Error(http.StatusBadRequest, "format must be json or text", nil)
	}
}
