package testutil

import "github.com/specialistvlad/extforge/internal/handlers"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single handler.
type SimpleModule struct {
	Name string
	Fn   handlers.Func
}

// Register implements the handlers.Module interface.
func (m *SimpleModule) Register(r *handlers.Handlers) {
	r.RegisterHandler(m.Name, &handlers.RegisteredHandler{Fn: m.Fn})
}
