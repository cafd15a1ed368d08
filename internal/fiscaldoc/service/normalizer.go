package service

import (
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
	docdomain "github.com/smartcontab/fiscalcore/internal/fiscaldoc/domain"
)

// Decode reads the issuer's XML into the document tree. It is a
// convenience wrapper for HTTP handlers; Normalize accepts the tree
// directly.
func Decode(r io.Reader) (*docdomain.Document, error) {
	var doc docdomain.Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &docdomain.ParseError{Block: -1, Field: "document", Err: err}
	}
	return &doc, nil
}

// Normalize turns the raw document tree into a canonical header and line
// list. It is a pure transform: no side effects, and on any malformed
// block it returns a ParseError with no partial result.
//
// Line totals: when qty*unitPrice disagrees with the declared line total
// by more than tolerance, the declared total wins and qty/unitPrice are
// kept as given. Per tax kind the first present sub-variant is
// extracted; a block that populates more than one variant for the same
// kind gets NeedsReview set, extraction unchanged.
func Normalize(doc *docdomain.Document, tolerance decimal.Decimal) (*docdomain.NormalizedHeader, []docdomain.NormalizedLine, error) {
	if doc == nil || len(doc.NFe.InfNFe.Det) == 0 {
		return nil, nil, docdomain.ErrEmptyDocument
	}
	inf := doc.NFe.InfNFe

	header, err := normalizeHeader(&inf)
	if err != nil {
		return nil, nil, err
	}

	lines := make([]docdomain.NormalizedLine, 0, len(inf.Det))
	for i, det := range inf.Det {
		line, err := normalizeLine(i, &det, tolerance)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, *line)
	}
	return header, lines, nil
}

func normalizeHeader(inf *docdomain.InfNFe) (*docdomain.NormalizedHeader, error) {
	issuedAt := time.Time{}
	if raw := strings.TrimSpace(inf.Ide.Issued); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, &docdomain.ParseError{Block: -1, Field: "dhEmi", Value: raw, Err: err}
		}
		issuedAt = t.UTC()
	}

	total := decimal.Zero
	if raw := strings.TrimSpace(inf.Total.ICMSTot.VNF); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, &docdomain.ParseError{Block: -1, Field: "vNF", Value: raw, Err: err}
		}
		total = v
	}

	return &docdomain.NormalizedHeader{
		Number:                strings.TrimSpace(inf.Ide.Number),
		Series:                strings.TrimSpace(inf.Ide.Series),
		NatOp:                 strings.TrimSpace(inf.Ide.NatOp),
		IssuedAt:              issuedAt,
		IssuerName:            strings.TrimSpace(inf.Issuer.Name),
		IssuerTaxID:           strings.TrimSpace(inf.Issuer.TaxID()),
		IssuerJurisdiction:    strings.ToUpper(strings.TrimSpace(inf.Issuer.Jurisdiction())),
		RecipientName:         strings.TrimSpace(inf.Dest.Name),
		RecipientTaxID:        strings.TrimSpace(inf.Dest.TaxID()),
		RecipientJurisdiction: strings.ToUpper(strings.TrimSpace(inf.Dest.Jurisdiction())),
		TotalAmount:           total,
	}, nil
}

func normalizeLine(block int, det *docdomain.Det, tolerance decimal.Decimal) (*docdomain.NormalizedLine, error) {
	code := strings.TrimSpace(det.Prod.Code)
	if code == "" {
		return nil, &docdomain.ParseError{Block: block, Field: "cProd"}
	}

	qty, err := parseAmount(block, "qCom", det.Prod.Quantity, true)
	if err != nil {
		return nil, err
	}
	unitPrice, err := parseAmount(block, "vUnCom", det.Prod.UnitPrice, true)
	if err != nil {
		return nil, err
	}
	declared, err := parseAmount(block, "vProd", det.Prod.LineTotal, false)
	if err != nil {
		return nil, err
	}

	lineTotal := fiscal.Round2(qty.Mul(unitPrice))
	if !declared.IsZero() && lineTotal.Sub(declared).Abs().GreaterThan(tolerance) {
		lineTotal = declared
	}

	line := &docdomain.NormalizedLine{
		LineNo:         block + 1,
		SupplierCode:   code,
		Description:    strings.TrimSpace(det.Prod.Description),
		Classification: strings.TrimSpace(det.Prod.Classification),
		Unit:           strings.TrimSpace(det.Prod.Unit),
		OperationCode:  strings.TrimSpace(det.Prod.OperationCode),
		Quantity:       qty,
		UnitCost:       unitPrice,
		LineTotal:      lineTotal,
	}

	for _, k := range fiscal.TaxKinds {
		fact, multiple, err := extractTax(block, k, &det.Imposto)
		if err != nil {
			return nil, err
		}
		line.Taxes[k] = fact
		if multiple {
			line.NeedsReview = true
		}
	}
	return line, nil
}

// rawVariant is one candidate sub-variant of a tax group, flattened to
// the four declared fields before numeric parsing.
type rawVariant struct {
	name  string
	cst   string
	base  string
	rate  string
	value string
}

func extractTax(block int, kind fiscal.TaxKind, imposto *docdomain.Imposto) (docdomain.DeclaredTax, bool, error) {
	var present []rawVariant
	switch kind {
	case fiscal.TaxICMS:
		present = icmsVariants(&imposto.ICMS)
	case fiscal.TaxIPI:
		present = ipiVariants(&imposto.IPI)
	case fiscal.TaxPIS:
		present = pisVariants(&imposto.PIS)
	case fiscal.TaxCOFINS:
		present = cofinsVariants(&imposto.COFINS)
	}

	if len(present) == 0 {
		return docdomain.DeclaredTax{}, false, nil
	}

	// First present wins; additional populated variants only flag the
	// line for review.
	v := present[0]
	fact := docdomain.DeclaredTax{CST: strings.TrimSpace(v.cst)}

	var err error
	if fact.Base, err = parseAmount(block, v.name+".vBC", v.base, false); err != nil {
		return docdomain.DeclaredTax{}, false, err
	}
	if fact.Rate, err = parseAmount(block, v.name+".rate", v.rate, false); err != nil {
		return docdomain.DeclaredTax{}, false, err
	}
	if fact.Value, err = parseAmount(block, v.name+".value", v.value, false); err != nil {
		return docdomain.DeclaredTax{}, false, err
	}
	return fact, len(present) > 1, nil
}

func icmsVariants(g *docdomain.ICMSGroup) []rawVariant {
	var out []rawVariant
	add := func(name string, v *docdomain.ICMSVariant) {
		if v != nil {
			out = append(out, rawVariant{name, v.CST, v.VBC, v.PICMS, v.VICMS})
		}
	}
	add("ICMS00", g.ICMS00)
	add("ICMS10", g.ICMS10)
	add("ICMS20", g.ICMS20)
	add("ICMS40", g.ICMS40)
	add("ICMS60", g.ICMS60)
	add("ICMS90", g.ICMS90)
	if v := g.ICMSSN101; v != nil {
		out = append(out, rawVariant{"ICMSSN101", v.CSOSN, "", v.PCredSN, v.VCredICMSSN})
	}
	if v := g.ICMSSN102; v != nil {
		out = append(out, rawVariant{"ICMSSN102", v.CSOSN, "", v.PCredSN, v.VCredICMSSN})
	}
	return out
}

func ipiVariants(g *docdomain.IPIGroup) []rawVariant {
	var out []rawVariant
	if v := g.IPITrib; v != nil {
		out = append(out, rawVariant{"IPITrib", v.CST, v.VBC, v.PIPI, v.VIPI})
	}
	if v := g.IPINT; v != nil {
		out = append(out, rawVariant{"IPINT", v.CST, "", "", ""})
	}
	return out
}

func pisVariants(g *docdomain.PISGroup) []rawVariant {
	var out []rawVariant
	if v := g.PISAliq; v != nil {
		out = append(out, rawVariant{"PISAliq", v.CST, v.VBC, v.RateField(), v.ValueField()})
	}
	if v := g.PISNT; v != nil {
		out = append(out, rawVariant{"PISNT", v.CST, "", "", ""})
	}
	if v := g.PISOutr; v != nil {
		out = append(out, rawVariant{"PISOutr", v.CST, v.VBC, v.RateField(), v.ValueField()})
	}
	return out
}

func cofinsVariants(g *docdomain.COFINSGroup) []rawVariant {
	var out []rawVariant
	if v := g.COFINSAliq; v != nil {
		out = append(out, rawVariant{"COFINSAliq", v.CST, v.VBC, v.RateField(), v.ValueField()})
	}
	if v := g.COFINSNT; v != nil {
		out = append(out, rawVariant{"COFINSNT", v.CST, "", "", ""})
	}
	if v := g.COFINSOutr; v != nil {
		out = append(out, rawVariant{"COFINSOutr", v.CST, v.VBC, v.RateField(), v.ValueField()})
	}
	return out
}

func parseAmount(block int, field, raw string, required bool) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return decimal.Zero, &docdomain.ParseError{Block: block, Field: field}
		}
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &docdomain.ParseError{Block: block, Field: field, Value: raw, Err: err}
	}
	return v, nil
}
