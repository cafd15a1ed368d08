// Package domain contains the inbound fiscal document tree, the
// normalized line model, and the import contracts.
package domain

import "encoding/xml"

// Document is the already-parsed tree of an inbound electronic fiscal
// document (NF-e shaped). Numeric fields arrive as strings and are only
// interpreted by the normalizer. The wire format belongs to the issuer;
// this tree is the ingestion boundary.
type Document struct {
	XMLName xml.Name `xml:"nfeProc"`
	NFe     struct {
		InfNFe InfNFe `xml:"infNFe"`
	} `xml:"NFe"`
}

type InfNFe struct {
	ID     string   `xml:"Id,attr"`
	Ide    Ide      `xml:"ide"`
	Issuer Party    `xml:"emit"`
	Dest   Party    `xml:"dest"`
	Det    []Det    `xml:"det"`
	Total  DocTotal `xml:"total"`
}

type Ide struct {
	Number string `xml:"nNF"`
	Series string `xml:"serie"`
	NatOp  string `xml:"natOp"`
	Issued string `xml:"dhEmi"`
}

type Party struct {
	CNPJ    string  `xml:"CNPJ"`
	CPF     string  `xml:"CPF"`
	Name    string  `xml:"xNome"`
	Address Address `xml:"enderEmit"`
	// Recipient addresses arrive under a different element name.
	DestAddress Address `xml:"enderDest"`
}

type Address struct {
	City         string `xml:"xMun"`
	Jurisdiction string `xml:"UF"`
}

// Jurisdiction returns the party's state code from whichever address
// element the document populated.
func (p Party) Jurisdiction() string {
	if p.Address.Jurisdiction != "" {
		return p.Address.Jurisdiction
	}
	return p.DestAddress.Jurisdiction
}

// TaxID returns the party's registration number, company or individual.
func (p Party) TaxID() string {
	if p.CNPJ != "" {
		return p.CNPJ
	}
	return p.CPF
}

type DocTotal struct {
	ICMSTot struct {
		VProd string `xml:"vProd"`
		VNF   string `xml:"vNF"`
	} `xml:"ICMSTot"`
}

// Det is one raw product block with its declared taxes.
type Det struct {
	NItem   string  `xml:"nItem,attr"`
	Prod    Prod    `xml:"prod"`
	Imposto Imposto `xml:"imposto"`
}

type Prod struct {
	Code           string `xml:"cProd"`
	EAN            string `xml:"cEAN"`
	Description    string `xml:"xProd"`
	Classification string `xml:"NCM"`
	OperationCode  string `xml:"CFOP"`
	Unit           string `xml:"uCom"`
	Quantity       string `xml:"qCom"`
	UnitPrice      string `xml:"vUnCom"`
	LineTotal      string `xml:"vProd"`
}

// Imposto groups the four declared tax blocks. Each group exposes
// mutually exclusive regime sub-variants; a populated variant is a
// non-nil pointer.
type Imposto struct {
	ICMS   ICMSGroup   `xml:"ICMS"`
	IPI    IPIGroup    `xml:"IPI"`
	PIS    PISGroup    `xml:"PIS"`
	COFINS COFINSGroup `xml:"COFINS"`
}

type ICMSGroup struct {
	ICMS00    *ICMSVariant   `xml:"ICMS00"`
	ICMS10    *ICMSVariant   `xml:"ICMS10"`
	ICMS20    *ICMSVariant   `xml:"ICMS20"`
	ICMS40    *ICMSVariant   `xml:"ICMS40"`
	ICMS60    *ICMSVariant   `xml:"ICMS60"`
	ICMS90    *ICMSVariant   `xml:"ICMS90"`
	ICMSSN101 *ICMSSNVariant `xml:"ICMSSN101"`
	ICMSSN102 *ICMSSNVariant `xml:"ICMSSN102"`
}

type ICMSVariant struct {
	CST   string `xml:"CST"`
	VBC   string `xml:"vBC"`
	PICMS string `xml:"pICMS"`
	VICMS string `xml:"vICMS"`
}

// ICMSSNVariant is the simplified-regime shape: a CSOSN code instead of
// a CST, usually without a base or value of its own.
type ICMSSNVariant struct {
	CSOSN       string `xml:"CSOSN"`
	PCredSN     string `xml:"pCredSN"`
	VCredICMSSN string `xml:"vCredICMSSN"`
}

type IPIGroup struct {
	IPITrib *IPITrib `xml:"IPITrib"`
	IPINT   *IPINT   `xml:"IPINT"`
}

type IPITrib struct {
	CST  string `xml:"CST"`
	VBC  string `xml:"vBC"`
	PIPI string `xml:"pIPI"`
	VIPI string `xml:"vIPI"`
}

type IPINT struct {
	CST string `xml:"CST"`
}

type PISGroup struct {
	PISAliq *TurnoverVariant   `xml:"PISAliq"`
	PISNT   *TurnoverExemption `xml:"PISNT"`
	PISOutr *TurnoverVariant   `xml:"PISOutr"`
}

type COFINSGroup struct {
	COFINSAliq *TurnoverVariant   `xml:"COFINSAliq"`
	COFINSNT   *TurnoverExemption `xml:"COFINSNT"`
	COFINSOutr *TurnoverVariant   `xml:"COFINSOutr"`
}

// TurnoverVariant is the taxed shape shared by PIS and COFINS.
type TurnoverVariant struct {
	CST      string `xml:"CST"`
	VBC      string `xml:"vBC"`
	Rate     string `xml:"pPIS"`
	RateAlt  string `xml:"pCOFINS"`
	Value    string `xml:"vPIS"`
	ValueAlt string `xml:"vCOFINS"`
}

// RateField returns whichever of the two rate elements was populated.
func (v *TurnoverVariant) RateField() string {
	if v.Rate != "" {
		return v.Rate
	}
	return v.RateAlt
}

// ValueField returns whichever of the two value elements was populated.
func (v *TurnoverVariant) ValueField() string {
	if v.Value != "" {
		return v.Value
	}
	return v.ValueAlt
}

type TurnoverExemption struct {
	CST string `xml:"CST"`
}
