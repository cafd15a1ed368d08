// Package fiscal holds the vocabulary shared by every tax-aware component:
// the fixed set of tax kinds and the monetary rounding rules.
package fiscal

// TaxKind identifies one of the four tax types carried on every fiscal line.
type TaxKind int

const (
	TaxICMS TaxKind = iota // state value-added tax
	TaxIPI                 // federal excise tax
	TaxPIS                 // turnover tax
	TaxCOFINS              // turnover tax
)

// NumTaxKinds is the size of every per-kind array in the engine.
const NumTaxKinds = 4

// TaxKinds lists the kinds in canonical order. All per-line tax processing
// iterates this array; there are no per-kind code paths.
var TaxKinds = [NumTaxKinds]TaxKind{TaxICMS, TaxIPI, TaxPIS, TaxCOFINS}

func (k TaxKind) String() string {
	switch k {
	case TaxICMS:
		return "ICMS"
	case TaxIPI:
		return "IPI"
	case TaxPIS:
		return "PIS"
	case TaxCOFINS:
		return "COFINS"
	default:
		return "UNKNOWN"
	}
}

// ParseTaxKind maps a stored kind name back to its TaxKind.
func ParseTaxKind(name string) (TaxKind, bool) {
	for _, k := range TaxKinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}
