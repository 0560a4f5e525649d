// Package bindings defines the wire schema spoken between a ccanvas component
// and the compositor server.
//
// Every tagged union on the wire (request contents, render operations,
// subscriptions, responses, events) is modelled as a sealed Go interface with
// one struct per variant. Each variant marshals itself with its literal "type"
// tag, and the Decode* helpers map tags back to variants. Unknown tags and
// malformed payloads are reported as errors; decoding never panics.
//
// The tag strings must match the server byte for byte, including the
// historical "confirm recieve" spelling.
package bindings
