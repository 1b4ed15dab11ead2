package ubl

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/fatoora/internal/compliance/domain"
)

func artifact(typ domain.InvoiceType) domain.InvoiceArtifact {
	buyer := &domain.Party{
		Name:      "Buyer Trading Co",
		VATNumber: "310000000000003",
		Address: domain.Address{
			StreetName:     "King Fahd Rd",
			BuildingNumber: "8228",
			District:       "Al Olaya",
			City:           "Riyadh",
			PostalCode:     "12244",
			CountryCode:    "SA",
		},
	}
	return domain.InvoiceArtifact{
		InvoiceNumber: "R-1001",
		UUID:          "8e6486d4-2b41-4f42-9bd8-4751a7a4d1fc",
		IssuedAt:      time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC),
		Type:          typ,
		Currency:      "SAR",
		Seller: domain.Party{
			Name:                   "Acme Trading",
			VATNumber:              "300000000000003",
			CommercialRegistration: "1010010000",
			Address: domain.Address{
				StreetName:     "Prince Sultan St",
				BuildingNumber: "2322",
				District:       "Al Murabba",
				City:           "Riyadh",
				PostalCode:     "23333",
				PlotID:         "2223",
				CountryCode:    "SA",
			},
		},
		Buyer: buyer,
		Lines: []domain.LineItem{
			{
				Name:      "Consulting",
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: decimal.RequireFromString("100.00"),
				LineTotal: decimal.RequireFromString("100.00"),
				TaxAmount: decimal.RequireFromString("15.00"),
			},
		},
		TaxTotal:     decimal.RequireFromString("15.00"),
		GrandTotal:   decimal.RequireFromString("115.00"),
		Sequence:     1,
		PreviousHash: domain.ZeroHash,
	}
}

func TestBuildStandardInvoice(t *testing.T) {
	out, err := Build(artifact(domain.InvoiceTypeStandard))
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, `<cbc:InvoiceTypeCode name="01">388</cbc:InvoiceTypeCode>`)
	assert.Contains(t, doc, "<cac:AccountingCustomerParty>")
	assert.Contains(t, doc, "Buyer Trading Co")
	assert.Contains(t, doc, "<cbc:IssueDate>2024-03-01</cbc:IssueDate>")
	assert.Contains(t, doc, "<cbc:IssueTime>10:15:00</cbc:IssueTime>")
}

func TestBuildSimplifiedOmitsBuyer(t *testing.T) {
	// The artifact carries a fully populated buyer; the simplified document
	// must still omit the block entirely.
	out, err := Build(artifact(domain.InvoiceTypeSimplified))
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, `<cbc:InvoiceTypeCode name="02">381</cbc:InvoiceTypeCode>`)
	assert.NotContains(t, doc, "AccountingCustomerParty")
	assert.NotContains(t, doc, "Buyer Trading Co")
}

func TestBuildChainReferences(t *testing.T) {
	out, err := Build(artifact(domain.InvoiceTypeSimplified))
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, "<cbc:ID>ICV</cbc:ID>")
	assert.Contains(t, doc, "<cbc:UUID>0000000001</cbc:UUID>")
	assert.Contains(t, doc, "<cbc:ID>PIH</cbc:ID>")
	assert.Contains(t, doc, domain.ZeroHash)
}

func TestBuildAmountsFixedDecimals(t *testing.T) {
	out, err := Build(artifact(domain.InvoiceTypeSimplified))
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, `<cbc:TaxInclusiveAmount currencyID="SAR">115.00</cbc:TaxInclusiveAmount>`)
	assert.Contains(t, doc, `<cbc:TaxExclusiveAmount currencyID="SAR">100.00</cbc:TaxExclusiveAmount>`)
	assert.Contains(t, doc, `<cbc:Percent>15.00</cbc:Percent>`)
}

func TestBuildStandardRequiresBuyer(t *testing.T) {
	a := artifact(domain.InvoiceTypeStandard)
	a.Buyer = nil

	_, err := Build(a)
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
}

func TestBuildRejectsUnknownType(t *testing.T) {
	a := artifact(domain.InvoiceTypeStandard)
	a.Type = "credit_note"

	_, err := Build(a)
	assert.ErrorIs(t, err, domain.ErrInvalidInvoiceType)
}

func TestBuildDeterministic(t *testing.T) {
	a := artifact(domain.InvoiceTypeSimplified)

	first, err := Build(a)
	require.NoError(t, err)
	second, err := Build(a)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(first), "<?xml"))
	assert.Equal(t, first, second)
}
