// Package middleware adapts tokenpair.Engine to net/http.
//
// # Pipeline
//
// [Pipeline] is an ordered list of named stages selected by method and
// path. The built-in stages are Login, Refresh and Logout; every request no
// stage claims falls through to ResourceAccess, which runs [Guard] and then
// the route [Policy].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// parse tokens or consult the ledger itself; all decisions are delegated to
// the Engine. Responses carry only a generic status body. The classified
// cause is logged, never written to the client.
package middleware
