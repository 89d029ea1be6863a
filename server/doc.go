// Package server exposes an [engine.Engine] over HTTP.
//
// Routes:
//
//	POST /parse       evaluate the request body as a template
//	POST /highlight   render the request body as highlighted HTML
//	GET  /constructs  list the registered constructs as JSON
//	GET  /health      report liveness and version
//
// /parse accepts the query arguments record (entity/id), org and locale
// (LCID). Failures are answered with a JSON object holding the error
// message, its kind and its location; the status code follows the kind.
package server
