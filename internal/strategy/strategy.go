// Package strategy defines the Strategy contract for backtested trading
// strategies and provides a Registry mapping strategy identifiers to
// constructors and parameter schemas.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"backtester/internal/domain"
)

// ErrUnknownStrategy is returned when an identifier does not resolve to a
// registered strategy. It is a client input error, distinct from data and
// execution failures.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy is the interface all trading strategies implement. A fresh
// instance is constructed per run; instances are not reused.
type Strategy interface {
	// Name returns the registry identifier for this strategy.
	Name() string

	// Init is called once with the full bar history and parameter values.
	// Strategies precompute indicator arrays here.
	Init(ctx context.Context, bars []domain.Bar, params Params) error

	// OnBar is called once per bar in order and returns the signal for
	// bar i. Returning an error aborts the run.
	OnBar(ctx context.Context, i int) (domain.Signal, error)

	// Overlays returns the indicator series this strategy exposes for
	// charting, valid after Init. Warm-up positions are undefined Floats.
	Overlays() []domain.Overlay
}

// Constructor builds a fresh strategy instance.
type Constructor func() Strategy

// ParamKind classifies a strategy parameter.
type ParamKind string

const (
	ParamNumeric ParamKind = "numeric"
	ParamInteger ParamKind = "integer"
	ParamEnum    ParamKind = "enum"
	ParamBoolean ParamKind = "boolean"
)

// ParamSpec describes one tunable knob of a strategy variant. It is used for
// introspection (UI control generation), not execution.
type ParamSpec struct {
	Name    string    `json:"name"`
	Kind    ParamKind `json:"kind"`
	Default any       `json:"default"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Choices []string  `json:"choices,omitempty"`
}

// Params holds the parameter values for one run. Values typically arrive
// from JSON, so numbers may be float64 even for integer parameters; the
// typed getters normalize that.
type Params map[string]any

// Int returns the named parameter as an int, or def when absent or not a
// number.
func (p Params) Int(name string, def int) int {
	switch v := p[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns the named parameter as a float64, or def.
func (p Params) Float(name string, def float64) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Bool returns the named parameter as a bool, or def.
func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name].(bool); ok {
		return v
	}
	return def
}

// String returns the named parameter as a string, or def.
func (p Params) String(name string, def string) string {
	if v, ok := p[name].(string); ok {
		return v
	}
	return def
}

type entry struct {
	ctor  Constructor
	specs []ParamSpec
}

// Registry holds the closed set of strategy variants. It is populated at
// process start and read-only afterwards, which makes unsynchronized
// concurrent reads safe.
type Registry struct {
	entries map[string]entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a strategy variant under the given identifier along with its
// ordered parameter schema. Call only during startup.
func (r *Registry) Register(name string, ctor Constructor, specs []ParamSpec) {
	r.entries[name] = entry{ctor: ctor, specs: specs}
}

// Resolve returns the constructor for the identifier, or ErrUnknownStrategy.
func (r *Registry) Resolve(name string) (Constructor, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return e.ctor, nil
}

// ParamSpecs returns the ordered parameter schema for the identifier, or
// ErrUnknownStrategy.
func (r *Registry) ParamSpecs(name string) ([]ParamSpec, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return e.specs, nil
}

// List returns a sorted slice of all registered identifiers.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
