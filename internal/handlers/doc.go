// Package handlers maps the handler names used by declared build steps to
// compiled Go functions. Handler packages live under modules/ and register
// themselves through the Module interface.
package handlers
