package source

import (
	"fmt"
	"sort"
	"strings"
)

// Built-in portal variants.
const (
	VariantTravis     = "travis"
	VariantWilliamson = "williamson"
)

// Registry maps county keys to portal variants.
type Registry struct {
	variants map[string]Variant
}

// NewRegistry returns a registry holding the built-in variants plus extra.
// Entries in extra replace built-ins with the same name.
func NewRegistry(extra ...VariantConfig) (*Registry, error) {
	r := &Registry{variants: make(map[string]Variant)}

	r.Register(Variant{
		Name:        VariantTravis,
		URLTemplate: "https://odysseypa.traviscountytx.gov/JPPublicAccess/CaseDetail.aspx?CaseNumber={id}",
		Parse:       OdysseyParser(VariantTravis),
	})
	r.Register(Variant{
		Name:        VariantWilliamson,
		URLTemplate: "https://judicialrecords.wilco.org/PublicAccess/CaseDetail.aspx?CaseNumber={id}",
		Parse:       OdysseyParser(VariantWilliamson),
	})

	for _, vc := range extra {
		if vc.Name == "" || vc.CaseURL == "" {
			return nil, fmt.Errorf("source variant needs name and case_url: %+v", vc)
		}
		if !strings.Contains(vc.CaseURL, "{id}") {
			return nil, fmt.Errorf("source %s: case_url has no {id} placeholder", vc.Name)
		}
		name := strings.ToLower(vc.Name)
		r.Register(Variant{
			Name:        name,
			URLTemplate: vc.CaseURL,
			Parse:       OdysseyParser(name),
		})
	}

	return r, nil
}

// Register adds or replaces a variant.
func (r *Registry) Register(v Variant) {
	r.variants[strings.ToLower(v.Name)] = v
}

// Lookup resolves a county key, ignoring case.
func (r *Registry) Lookup(name string) (Variant, error) {
	v, ok := r.variants[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Variant{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownVariant, name, strings.Join(r.Names(), ", "))
	}
	return v, nil
}

// Names lists the registered variant keys in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.variants))
	for name := range r.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
