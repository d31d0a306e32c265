// Package server exposes the player over HTTP: a JSON control API, the local music directory, extracted
// covers, an event stream and a now-playing page.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Recover] and [Logging] are installed by [NewRouter].
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Control API
//
// [API] maps requests onto a playlist controller. Mutating endpoints reply with the controller snapshot;
// failures reply with {"error", "kind"} and a status from [StatusFor]:
//
//	not_found    → 404
//	rate_limited → 429
//	network      → 502
//	invalid      → 400
//	playback     → 500
//
// GET /share?trackId&name&artist&album&bitrate&source&id resolves a shared track, plays it and redirects
// to the player page.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Lifecycle
//
// [Server.Run] serves until its context ends and then shuts down gracefully within [ShutdownTimeout].
package server
