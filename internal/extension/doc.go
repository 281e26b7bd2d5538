// Package extension implements the extension-registration and
// per-document execution layer of the runtime.
//
// Hosts register extensions (a name plus a JavaScript API string, with an
// optional native message handler) into a Service before any render
// process exists. The first render-process creation event binds the
// Service to that process for its whole lifetime and announces every
// registered extension to it; from then on registration is closed.
//
// For every document, whether it predates the binding or appears later,
// the Service creates one DocumentHandler and attaches one Runner per
// registered extension to the document's top frame. Runners are the
// isolated execution channels for extension logic: the default
// ThreadedRunner dispatches on a dedicated worker goroutine so a slow
// extension never stalls document lifecycle handling, while DirectRunner
// executes synchronously on the caller.
//
// Lifecycle and ownership:
//
//   - The Service owns registered extensions and closes them on teardown.
//   - A DocumentHandler is owned by its document's user-data mechanism
//     and dies with the document, detaching (and draining) its runners.
//   - Runners hold non-owning references to their extension; extensions
//     always outlive runners by construction order.
//
// Extensions can also be loaded from disk: a Loader discovers directories
// carrying an extension.json manifest (or a bare api.js) and materializes
// them, using a sandboxed Lua interpreter for the native handler when the
// manifest names a handler script.
package extension
