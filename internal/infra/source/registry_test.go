package source

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistry_Lookup(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	for _, key := range []string{"travis", "Travis", " WILLIAMSON "} {
		if _, err := r.Lookup(key); err != nil {
			t.Errorf("Lookup(%q) failed: %v", key, err)
		}
	}

	_, err = r.Lookup("harris")
	if !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
	if !strings.Contains(err.Error(), "travis, williamson") {
		t.Errorf("error should list known variants: %v", err)
	}
}

func TestRegistry_Extra(t *testing.T) {
	r, err := NewRegistry(VariantConfig{Name: "Hays", CaseURL: "https://hays.example/Case?n={id}"})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	v, err := r.Lookup("hays")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got := v.CaseURL("J1 CV/20"); got != "https://hays.example/Case?n=J1+CV%2F20" {
		t.Errorf("CaseURL = %s", got)
	}

	if _, err := NewRegistry(VariantConfig{Name: "bad", CaseURL: "https://x.example/"}); err == nil {
		t.Error("expected error for template without {id}")
	}
	if _, err := NewRegistry(VariantConfig{CaseURL: "https://x.example/{id}"}); err == nil {
		t.Error("expected error for unnamed variant")
	}
}
