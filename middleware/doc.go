// Package middleware provides endpoint.Processors for the HTTP routes in
// front of websocket namespaces.
//
// OriginPolicy guards websocket upgrades against cross-site requests, and
// SecurityHeadersProcessor sets response headers suited to a JSON API.
package middleware
