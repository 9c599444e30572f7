// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunIssue, RunRefresh, RunValidate, RunLogout) accepts a
// typed dependency struct and returns a classified result without side effects
// beyond those dependencies. This keeps the Engine type thin and lets the flows
// be tested with fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the refresh store and the JWT manager.
// They do NOT own either; ownership stays with the Engine. Metrics, audit and
// logging are the Engine's job and are driven from the returned results.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
