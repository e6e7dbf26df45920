// Package httpserver provides the reusable HTTP server shell around the
// engine's handlers: standard middleware, health endpoints, an optional
// metrics listener, readiness control for load balancers, and graceful
// shutdown.
//
// Components plug in by implementing RouteRegistrar; the server contributes
// /livez, /readyz, /drain, /undrain and optional pprof endpoints on top of
// whatever routes they register.
package httpserver
