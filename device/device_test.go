package device

import (
	"errors"
	"testing"
)

func TestResolve_Default(t *testing.T) {
	dev, err := Resolve(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("failed to resolve a device: %v", err)
	}
	defer dev.Free()

	if dev.Info().Mode == "" {
		t.Error("resolved device reports no mode")
	}
	if dev.OCCA() == nil {
		t.Error("resolved device has no OCCA handle")
	}
}

func TestResolve_EmptyList(t *testing.T) {
	_, err := Resolve(Config{}, nil)
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice for empty backend list, got %v", err)
	}
}

func TestResolve_NoUsableBackend(t *testing.T) {
	cfg := Config{Backends: []string{`{"mode": "NoSuchBackend"}`}}
	_, err := Resolve(cfg, nil)
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice when every backend fails, got %v", err)
	}
}

func TestDevice_FreeIdempotent(t *testing.T) {
	dev, err := Resolve(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("failed to resolve a device: %v", err)
	}
	dev.Free()
	dev.Free()
}
