package ccip

import (
	"fmt"
	"sync/atomic"
)

// RegistrationError is returned when a handler cannot be registered. It is fatal at startup.
type RegistrationError struct {
	Function string
	Reason   string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register %s: %s", e.Function, e.Reason)
}

// Registry maps selectors to handlers. It is populated once at startup and read-only after Seal.
type Registry struct {
	handlers map[Selector]*HandlerDescriptor
	sealed   atomic.Bool
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Selector]*HandlerDescriptor)}
}

// Register resolves every handler's function against source and stores it by selector.
// Nothing is stored when any of the handlers fails to register.
func (r *Registry) Register(source any, handlers []HandlerDescription) error {
	if r.sealed.Load() {
		return &RegistrationError{Function: "*", Reason: "registry is sealed"}
	}
	iface, err := ParseInterface(source)
	if err != nil {
		return &RegistrationError{Function: "*", Reason: err.Error()}
	}
	pending := make(map[Selector]*HandlerDescriptor, len(handlers))
	for _, handler := range handlers {
		if handler.Func == nil {
			return &RegistrationError{Function: handler.Type, Reason: "nil handler"}
		}
		function, err := iface.Function(handler.Type)
		if err != nil {
			return &RegistrationError{Function: handler.Type, Reason: err.Error()}
		}
		selector := SelectorOf(function.Sig)
		if existing, ok := r.handlers[selector]; ok {
			return &RegistrationError{Function: function.Sig, Reason: fmt.Sprintf("selector %s already registered for %s", selector, existing.Function.Sig)}
		}
		if existing, ok := pending[selector]; ok {
			return &RegistrationError{Function: function.Sig, Reason: fmt.Sprintf("selector %s already registered for %s", selector, existing.Function.Sig)}
		}
		pending[selector] = &HandlerDescriptor{Selector: selector, Function: function, Func: handler.Func}
	}
	for selector, descriptor := range pending {
		r.handlers[selector] = descriptor
	}
	return nil
}

func (r *Registry) Find(selector Selector) (*HandlerDescriptor, bool) {
	descriptor, ok := r.handlers[selector]
	return descriptor, ok
}

func (r *Registry) Len() int { return len(r.handlers) }

// Seal stops further registration so the registry can be read concurrently.
func (r *Registry) Seal() { r.sealed.Store(true) }
