// Package server exposes the sync scheduler over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # Routes
//
//   - POST /sync/{id} : 202 when a drain starts, 409 when one is already running for the playlist
//   - POST /sync : triggers every playlist with pending entries
//   - GET /healthz : status and the playlists currently draining
//   - GET /metrics : Prometheus exposition
//
// # Daemon
//
// [Daemon] recovers entries interrupted by a crash, optionally triggers every pending playlist on an
// interval, and on shutdown stops running drains after their in-flight entry.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
