// Package registry exposes each catalog definition as an invocable Handle with a parameter
// contract. A call validates required arguments, applies declared defaults and renders the
// template; the handle set is recomputed on every catalog reload.
//
// Registry implements promptcatalog.Service, the surface a protocol server (for example an
// MCP prompt server) adapts to its own wire format.
package registry
