// Command ccanvas is a small client for a running ccanvas server. It can
// print subscribed events, draw text, manage spaces and components, and
// inspect the client configuration.
package main
