package service

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
	docdomain "github.com/smartcontab/fiscalcore/internal/fiscaldoc/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var centTolerance = decimal.New(1, -2)

func baseDocument(dets ...docdomain.Det) *docdomain.Document {
	doc := &docdomain.Document{}
	doc.NFe.InfNFe.Ide = docdomain.Ide{
		Number: "1234",
		Series: "1",
		NatOp:  "COMPRA P/ COMERCIALIZACAO",
		Issued: "2025-04-02T10:30:00-03:00",
	}
	doc.NFe.InfNFe.Issuer = docdomain.Party{
		CNPJ: "12345678000190",
		Name: "Distribuidora Alfa LTDA",
		Address: docdomain.Address{
			City:         "Campinas",
			Jurisdiction: "SP",
		},
	}
	doc.NFe.InfNFe.Dest = docdomain.Party{
		CNPJ: "98765432000110",
		Name: "Comercio Beta ME",
		DestAddress: docdomain.Address{
			City:         "Rio de Janeiro",
			Jurisdiction: "RJ",
		},
	}
	doc.NFe.InfNFe.Det = dets
	return doc
}

func simpleDet(code, qty, unitPrice, total string) docdomain.Det {
	return docdomain.Det{
		NItem: "1",
		Prod: docdomain.Prod{
			Code:           code,
			Description:    "PARAFUSO SEXT 1/4",
			Classification: "73181500",
			OperationCode:  "5102",
			Unit:           "UN",
			Quantity:       qty,
			UnitPrice:      unitPrice,
			LineTotal:      total,
		},
	}
}

func TestNormalize_Basic(t *testing.T) {
	doc := baseDocument(simpleDet("P-001", "10", "2.50", "25.00"))

	header, lines, err := Normalize(doc, centTolerance)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, "1234", header.Number)
	assert.Equal(t, "SP", header.IssuerJurisdiction)
	assert.Equal(t, "RJ", header.RecipientJurisdiction)
	assert.Equal(t, "12345678000190", header.IssuerTaxID)

	line := lines[0]
	assert.Equal(t, 1, line.LineNo)
	assert.Equal(t, "P-001", line.SupplierCode)
	assert.Equal(t, "5102", line.OperationCode)
	assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("25.00")))
	assert.False(t, line.NeedsReview)
}

func TestNormalize_DeclaredTotalWinsOnDisagreement(t *testing.T) {
	// 3 * 3.33 = 9.99 but the issuer declared 10.05; the declared value
	// wins and qty/unitPrice stay as given.
	doc := baseDocument(simpleDet("P-002", "3", "3.33", "10.05"))

	_, lines, err := Normalize(doc, centTolerance)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("10.05")))
	assert.True(t, line.Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, line.UnitCost.Equal(decimal.RequireFromString("3.33")))
}

func TestNormalize_ComputedTotalKeptWithinTolerance(t *testing.T) {
	doc := baseDocument(simpleDet("P-003", "3", "3.33", "9.99"))

	_, lines, err := Normalize(doc, centTolerance)
	require.NoError(t, err)
	assert.True(t, lines[0].LineTotal.Equal(decimal.RequireFromString("9.99")))
}

func TestNormalize_FirstPresentTaxVariant(t *testing.T) {
	det := simpleDet("P-004", "1", "100.00", "100.00")
	det.Imposto.ICMS.ICMS00 = &docdomain.ICMSVariant{
		CST:   "00",
		VBC:   "100.00",
		PICMS: "18.00",
		VICMS: "18.00",
	}
	det.Imposto.PIS.PISAliq = &docdomain.TurnoverVariant{
		CST:   "01",
		VBC:   "100.00",
		Rate:  "1.65",
		Value: "1.65",
	}
	doc := baseDocument(det)

	_, lines, err := Normalize(doc, centTolerance)
	require.NoError(t, err)

	icms := lines[0].Taxes[fiscal.TaxICMS]
	assert.Equal(t, "00", icms.CST)
	assert.True(t, icms.Base.Equal(decimal.NewFromInt(100)))
	assert.True(t, icms.Rate.Equal(decimal.NewFromInt(18)))
	assert.True(t, icms.Value.Equal(decimal.NewFromInt(18)))

	pis := lines[0].Taxes[fiscal.TaxPIS]
	assert.Equal(t, "01", pis.CST)
	assert.True(t, pis.Rate.Equal(decimal.RequireFromString("1.65")))

	// Absent groups come back as zero tuples, not errors.
	assert.Empty(t, lines[0].Taxes[fiscal.TaxIPI].CST)
	assert.True(t, lines[0].Taxes[fiscal.TaxCOFINS].Value.IsZero())
	assert.False(t, lines[0].NeedsReview)
}

func TestNormalize_MultipleVariantsFlagForReview(t *testing.T) {
	det := simpleDet("P-005", "1", "50.00", "50.00")
	det.Imposto.ICMS.ICMS00 = &docdomain.ICMSVariant{CST: "00", VBC: "50.00", PICMS: "18.00", VICMS: "9.00"}
	det.Imposto.ICMS.ICMS60 = &docdomain.ICMSVariant{CST: "60"}
	doc := baseDocument(det)

	_, lines, err := Normalize(doc, centTolerance)
	require.NoError(t, err)

	// First present still wins; the ambiguity only flags the line.
	assert.Equal(t, "00", lines[0].Taxes[fiscal.TaxICMS].CST)
	assert.True(t, lines[0].NeedsReview)
}

func TestNormalize_SimplifiedRegimeVariant(t *testing.T) {
	det := simpleDet("P-006", "2", "10.00", "20.00")
	det.Imposto.ICMS.ICMSSN102 = &docdomain.ICMSSNVariant{CSOSN: "102"}
	det.Imposto.PIS.PISNT = &docdomain.TurnoverExemption{CST: "07"}
	doc := baseDocument(det)

	_, lines, err := Normalize(doc, centTolerance)
	require.NoError(t, err)

	icms := lines[0].Taxes[fiscal.TaxICMS]
	assert.Equal(t, "102", icms.CST)
	assert.True(t, icms.Rate.IsZero())
	assert.Equal(t, "07", lines[0].Taxes[fiscal.TaxPIS].CST)
}

func TestNormalize_MalformedNumberIsParseError(t *testing.T) {
	doc := baseDocument(
		simpleDet("P-007", "1", "10.00", "10.00"),
		simpleDet("P-008", "abc", "5.00", "5.00"),
	)

	header, lines, err := Normalize(doc, centTolerance)
	require.Error(t, err)

	var pe *docdomain.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Block)
	assert.Equal(t, "qCom", pe.Field)

	// No partial result.
	assert.Nil(t, header)
	assert.Nil(t, lines)
}

func TestNormalize_MissingProductCodeIsParseError(t *testing.T) {
	doc := baseDocument(simpleDet("", "1", "10.00", "10.00"))

	_, _, err := Normalize(doc, centTolerance)
	var pe *docdomain.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Block)
	assert.Equal(t, "cProd", pe.Field)
}

func TestNormalize_EmptyDocument(t *testing.T) {
	_, _, err := Normalize(baseDocument(), centTolerance)
	assert.ErrorIs(t, err, docdomain.ErrEmptyDocument)

	_, _, err = Normalize(nil, centTolerance)
	assert.ErrorIs(t, err, docdomain.ErrEmptyDocument)
}

func TestDecode_NFeShapedXML(t *testing.T) {
	payload := `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc>
  <NFe>
    <infNFe Id="NFe35250412345678000190550010000012341000012349">
      <ide><nNF>1234</nNF><serie>1</serie><dhEmi>2025-04-02T10:30:00-03:00</dhEmi></ide>
      <emit><CNPJ>12345678000190</CNPJ><xNome>Distribuidora Alfa LTDA</xNome><enderEmit><xMun>Campinas</xMun><UF>SP</UF></enderEmit></emit>
      <dest><CNPJ>98765432000110</CNPJ><xNome>Comercio Beta ME</xNome><enderDest><xMun>Rio de Janeiro</xMun><UF>RJ</UF></enderDest></dest>
      <det nItem="1">
        <prod>
          <cProd>P-001</cProd><xProd>PARAFUSO SEXT 1/4</xProd><NCM>73181500</NCM>
          <CFOP>5102</CFOP><uCom>UN</uCom><qCom>10</qCom><vUnCom>2.50</vUnCom><vProd>25.00</vProd>
        </prod>
        <imposto>
          <ICMS><ICMS00><CST>00</CST><vBC>25.00</vBC><pICMS>18.00</pICMS><vICMS>4.50</vICMS></ICMS00></ICMS>
          <PIS><PISAliq><CST>01</CST><vBC>25.00</vBC><pPIS>1.65</pPIS><vPIS>0.41</vPIS></PISAliq></PIS>
        </imposto>
      </det>
      <total><ICMSTot><vProd>25.00</vProd><vNF>25.00</vNF></ICMSTot></total>
    </infNFe>
  </NFe>
</nfeProc>`

	doc, err := Decode(strings.NewReader(payload))
	require.NoError(t, err)

	header, lines, err := Normalize(doc, centTolerance)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "SP", header.IssuerJurisdiction)
	assert.True(t, header.TotalAmount.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, "00", lines[0].Taxes[fiscal.TaxICMS].CST)
	assert.True(t, lines[0].Taxes[fiscal.TaxICMS].Value.Equal(decimal.RequireFromString("4.50")))
}

func TestDecode_MalformedXML(t *testing.T) {
	_, err := Decode(strings.NewReader("<nfeProc><NFe>"))
	assert.True(t, docdomain.IsParseError(err))
}
