package strategy

import (
	"context"
	"errors"
	"testing"

	"backtester/internal/domain"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) Init(_ context.Context, _ []domain.Bar, _ Params) error {
	return nil
}
func (s *stubStrategy) OnBar(_ context.Context, _ int) (domain.Signal, error) {
	return domain.SignalHold, nil
}
func (s *stubStrategy) Overlays() []domain.Overlay { return nil }

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	r.Register("test-strategy", func() Strategy { return &stubStrategy{name: "test-strategy"} }, nil)

	ctor, err := r.Resolve("test-strategy")
	if err != nil {
		t.Fatalf("Resolve returned error for registered strategy: %v", err)
	}
	if got := ctor().Name(); got != "test-strategy" {
		t.Errorf("constructed strategy Name() = %q, want %q", got, "test-strategy")
	}
}

func TestRegistryResolve_Unknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("nonexistent")
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("Resolve error = %v, want ErrUnknownStrategy", err)
	}

	_, err = r.ParamSpecs("nonexistent")
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("ParamSpecs error = %v, want ErrUnknownStrategy", err)
	}
}

func TestRegistryParamSpecs(t *testing.T) {
	r := NewRegistry()
	specs := []ParamSpec{
		{Name: "period", Kind: ParamInteger, Default: 14},
		{Name: "threshold", Kind: ParamNumeric, Default: 30.0},
	}
	r.Register("with-params", func() Strategy { return &stubStrategy{name: "with-params"} }, specs)

	got, err := r.ParamSpecs("with-params")
	if err != nil {
		t.Fatalf("ParamSpecs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ParamSpecs returned %d specs, want 2", len(got))
	}
	// Order from registration is preserved.
	if got[0].Name != "period" || got[1].Name != "threshold" {
		t.Errorf("ParamSpecs order = [%s %s], want [period threshold]", got[0].Name, got[1].Name)
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register("beta", func() Strategy { return &stubStrategy{name: "beta"} }, nil)
	r.Register("alpha", func() Strategy { return &stubStrategy{name: "alpha"} }, nil)

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}

func TestParamsGetters(t *testing.T) {
	// Values as they arrive from JSON: all numbers are float64.
	p := Params{"period": 14.0, "threshold": 1.5, "enabled": true, "mode": "fast"}

	if got := p.Int("period", 0); got != 14 {
		t.Errorf("Int(period) = %d, want 14", got)
	}
	if got := p.Float("threshold", 0); got != 1.5 {
		t.Errorf("Float(threshold) = %v, want 1.5", got)
	}
	if !p.Bool("enabled", false) {
		t.Error("Bool(enabled) = false, want true")
	}
	if got := p.String("mode", ""); got != "fast" {
		t.Errorf("String(mode) = %q, want fast", got)
	}

	// Missing or mistyped keys fall back to the default.
	if got := p.Int("missing", 7); got != 7 {
		t.Errorf("Int(missing) = %d, want default 7", got)
	}
	if got := p.Float("mode", 2.5); got != 2.5 {
		t.Errorf("Float(mode) = %v, want default 2.5", got)
	}
}
