package seeder

import "strings"

// Vendor is one brand in the synthetic catalog. Name appears in offer copy,
// Domain in offer targets and request-segment values.
type Vendor struct {
	Name string
	TLD  string
}

// Domain returns the vendor's lowercase web domain, e.g. "prada.com".
func (v Vendor) Domain() string {
	return strings.ToLower(v.Name) + "." + v.TLD
}

// DefaultVendors is the built-in catalog used by the seeding flow. Names are
// single tokens so the derived domains stay well formed.
var DefaultVendors = []Vendor{
	{Name: "Armani", TLD: "com"},
	{Name: "Burberry", TLD: "net"},
	{Name: "Cartier", TLD: "com"},
	{Name: "Chanel", TLD: "io"},
	{Name: "Coach", TLD: "org"},
	{Name: "Dior", TLD: "sh"},
	{Name: "Fendi", TLD: "com"},
	{Name: "Gucci", TLD: "io"},
	{Name: "Hermes", TLD: "net"},
	{Name: "Lacoste", TLD: "net"},
	{Name: "Levis", TLD: "org"},
	{Name: "Omega", TLD: "sh"},
	{Name: "Prada", TLD: "com"},
	{Name: "Rolex", TLD: "org"},
	{Name: "Versace", TLD: "io"},
	{Name: "Zara", TLD: "com"},
}
