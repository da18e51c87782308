// Package app wires the service stack together and implements the
// command entry points invoked by the cobra layer.
package app
