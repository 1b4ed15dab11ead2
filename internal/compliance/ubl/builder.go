package ubl

import (
	"encoding/xml"
	"fmt"

	"github.com/smallbiznis/fatoora/internal/compliance/chain"
	"github.com/smallbiznis/fatoora/internal/compliance/domain"
	"github.com/smallbiznis/fatoora/internal/compliance/vat"
)

const (
	profileID = "reporting:1.0"

	// UN/ECE 4461: payment in cash. Orders settled at the register.
	paymentMeansCash = "10"

	// Standard-rated tax category.
	taxCategoryStandard = "S"
	taxSchemeVAT        = "VAT"

	quantityUnitPiece = "PCE"
)

// Build renders the artifact as a UBL invoice document. The buyer block is
// emitted only for standard invoices; simplified invoices never carry buyer
// identification, even when a customer record exists.
func Build(a domain.InvoiceArtifact) ([]byte, error) {
	if !a.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidInvoiceType, a.Type)
	}
	if a.Type == domain.InvoiceTypeStandard && a.Buyer == nil {
		return nil, fmt.Errorf("%w: standard invoices require a buyer party", domain.ErrConfigurationMissing)
	}

	taxExclusive := a.GrandTotal.Sub(a.TaxTotal)

	doc := Invoice{
		Xmlns: NsInvoice,
		Cac:   NsCac,
		Cbc:   NsCbc,
		Ext:   NsExt,

		ProfileID: profileID,
		ID:        a.InvoiceNumber,
		UUID:      a.UUID,
		IssueDate: a.IssuedAt.Format("2006-01-02"),
		IssueTime: a.IssuedAt.Format("15:04:05"),
		InvoiceTypeCode: TypeCode{
			Name:  a.Type.Subcode(),
			Value: a.Type.TypeCode(),
		},

		DocumentCurrencyCode: a.Currency,
		TaxCurrencyCode:      a.Currency,

		AdditionalDocumentReferences: []DocumentReference{
			{ID: RefICV, UUID: chain.FormatICV(a.Sequence)},
			{ID: RefPIH, Attachment: &Attachment{
				EmbeddedDocumentBinaryObject: BinaryObject{
					MimeCode: "text/plain",
					Value:    a.PreviousHash,
				},
			}},
		},

		AccountingSupplierParty: partyContainer(a.Seller),
		PaymentMeans:            PaymentMeans{PaymentMeansCode: paymentMeansCash},

		TaxTotal: TaxTotal{
			TaxAmount: amount(a.Currency, vat.Amount(a.TaxTotal)),
			TaxSubtotal: &TaxSubtotal{
				TaxableAmount: amount(a.Currency, vat.Amount(taxExclusive)),
				TaxAmount:     amount(a.Currency, vat.Amount(a.TaxTotal)),
				TaxCategory: TaxCategory{
					ID:        taxCategoryStandard,
					Percent:   fmt.Sprintf("%.2f", float64(vat.StandardRatePercent)),
					TaxScheme: TaxScheme{ID: taxSchemeVAT},
				},
			},
		},
		LegalMonetaryTotal: MonetaryTotal{
			LineExtensionAmount: amount(a.Currency, vat.Amount(taxExclusive)),
			TaxExclusiveAmount:  amount(a.Currency, vat.Amount(taxExclusive)),
			TaxInclusiveAmount:  amount(a.Currency, vat.Amount(a.GrandTotal)),
			PayableAmount:       amount(a.Currency, vat.Amount(a.GrandTotal)),
		},
	}

	if a.Type == domain.InvoiceTypeStandard {
		buyer := partyContainer(*a.Buyer)
		doc.AccountingCustomerParty = &buyer
	}

	for i, line := range a.Lines {
		doc.InvoiceLines = append(doc.InvoiceLines, InvoiceLine{
			ID: fmt.Sprintf("%d", i+1),
			InvoicedQuantity: Quantity{
				UnitCode: quantityUnitPiece,
				Value:    line.Quantity.String(),
			},
			LineExtensionAmount: amount(a.Currency, vat.Amount(line.LineTotal)),
			TaxTotal: LineTaxTotal{
				TaxAmount:      amount(a.Currency, vat.Amount(line.TaxAmount)),
				RoundingAmount: amount(a.Currency, vat.Amount(line.LineTotal.Add(line.TaxAmount))),
			},
			Item: Item{Name: line.Name},
			Price: Price{
				PriceAmount: amount(a.Currency, vat.Amount(line.UnitPrice)),
			},
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func partyContainer(p domain.Party) PartyContainer {
	party := Party{
		PostalAddress: PostalAddress{
			StreetName:         p.Address.StreetName,
			BuildingNumber:     p.Address.BuildingNumber,
			PlotIdentification: p.Address.PlotID,
			CitySubdivision:    p.Address.District,
			CityName:           p.Address.City,
			PostalZone:         p.Address.PostalCode,
			Country:            Country{IdentificationCode: p.Address.CountryCode},
		},
		PartyTaxScheme: PartyTaxScheme{
			CompanyID: p.VATNumber,
			TaxScheme: TaxScheme{ID: taxSchemeVAT},
		},
		PartyLegalEntity: PartyLegalEntity{RegistrationName: p.Name},
	}
	if p.CommercialRegistration != "" {
		party.PartyIdentification = &PartyIdentification{
			ID: SchemeID{SchemeID: "CRN", Value: p.CommercialRegistration},
		}
	}
	return PartyContainer{Party: party}
}

func amount(currency, value string) Amount {
	return Amount{CurrencyID: currency, Value: value}
}
