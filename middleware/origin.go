package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/mnehpets/onesocket/endpoint"
)

// OriginPolicy decides which browser origins may open a websocket or read
// an API response.
//
// AllowedOrigins holds exact origins such as "https://example.com"; "*"
// allows any origin. With an empty list only same-host requests are
// accepted, matching gorilla/websocket's default CheckOrigin. Requests
// without an Origin header come from non-browser clients and are always
// allowed.
type OriginPolicy struct {
	AllowedOrigins []string
}

// NewOriginPolicy returns a policy for the given origins, dropping blanks.
func NewOriginPolicy(origins ...string) *OriginPolicy {
	p := &OriginPolicy{}
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			p.AllowedOrigins = append(p.AllowedOrigins, strings.TrimSuffix(o, "/"))
		}
	}
	return p
}

// CheckOrigin reports whether r's Origin is allowed. Its signature matches
// websocket.Upgrader.CheckOrigin.
func (p *OriginPolicy) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if p == nil || len(p.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range p.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Process implements endpoint.Processor. Disallowed origins are rejected
// with 403 before the endpoint runs; allowed cross-origin requests get
// Access-Control-Allow-Origin echoed back.
func (p *OriginPolicy) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return next(w, r)
	}
	w.Header().Add("Vary", "Origin")
	if !p.CheckOrigin(r) {
		return endpoint.Error(http.StatusForbidden, "origin not allowed", nil)
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	return next(w, r)
}

var _ endpoint.Processor = (*OriginPolicy)(nil)
