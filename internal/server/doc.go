// Package server provides HTTP routing, middleware, and the OAuth redirect listener used by the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] runs in the order it was added: the first one is the outermost.
//
// The [BasicRouter] registers method patterns such as "GET /ping" on an [http.ServeMux], so GET routes
// also answer HEAD.
//
// # Callback Handler
//
// [CallbackHandler] bridges the authorization code redirect into a blocking wait. Each handler owns one
// write-once cell: the first callback carrying a code and the expected state resolves it, and every
// waiter in [CallbackHandler.Code] observes that code.
//
// Callbacks with a missing code or state, or a state that does not match the session, are answered
// with 400 and do not touch the cell. A provider error redirect (error=access_denied) rejects it.
//
// # Callback Server
//
// [CallbackServer] serves the handler and /ping on localhost:3939 by default. [CallbackServer.Code]
// waits for the code with a timeout and shuts the listener down once the session completes.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
