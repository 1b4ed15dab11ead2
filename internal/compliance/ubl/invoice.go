// Package ubl renders invoice artifacts as UBL 2.1 invoice documents.
package ubl

import "encoding/xml"

// UBL 2.1 namespaces.
const (
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
)

// Document reference identifiers for the chain pointers.
const (
	RefICV = "ICV"
	RefPIH = "PIH"
)

// Invoice is the root UBL document.
type Invoice struct {
	XMLName xml.Name `xml:"Invoice"`
	Xmlns   string   `xml:"xmlns,attr"`
	Cac     string   `xml:"xmlns:cac,attr"`
	Cbc     string   `xml:"xmlns:cbc,attr"`
	Ext     string   `xml:"xmlns:ext,attr"`

	ProfileID       string   `xml:"cbc:ProfileID"`
	ID              string   `xml:"cbc:ID"`
	UUID            string   `xml:"cbc:UUID"`
	IssueDate       string   `xml:"cbc:IssueDate"`
	IssueTime       string   `xml:"cbc:IssueTime"`
	InvoiceTypeCode TypeCode `xml:"cbc:InvoiceTypeCode"`

	DocumentCurrencyCode string `xml:"cbc:DocumentCurrencyCode"`
	TaxCurrencyCode      string `xml:"cbc:TaxCurrencyCode"`

	AdditionalDocumentReferences []DocumentReference `xml:"cac:AdditionalDocumentReference"`

	AccountingSupplierParty PartyContainer  `xml:"cac:AccountingSupplierParty"`
	AccountingCustomerParty *PartyContainer `xml:"cac:AccountingCustomerParty,omitempty"`

	PaymentMeans PaymentMeans `xml:"cac:PaymentMeans"`

	TaxTotal           TaxTotal      `xml:"cac:TaxTotal"`
	LegalMonetaryTotal MonetaryTotal `xml:"cac:LegalMonetaryTotal"`
	InvoiceLines       []InvoiceLine `xml:"cac:InvoiceLine"`
}

// TypeCode is the invoice type code with its transaction subtype attribute.
type TypeCode struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// DocumentReference carries the ICV counter or the PIH attachment.
type DocumentReference struct {
	ID         string      `xml:"cbc:ID"`
	UUID       string      `xml:"cbc:UUID,omitempty"`
	Attachment *Attachment `xml:"cac:Attachment,omitempty"`
}

// Attachment embeds a base64 binary object.
type Attachment struct {
	EmbeddedDocumentBinaryObject BinaryObject `xml:"cbc:EmbeddedDocumentBinaryObject"`
}

// BinaryObject is a base64 value with its mime type.
type BinaryObject struct {
	MimeCode string `xml:"mimeCode,attr"`
	Value    string `xml:",chardata"`
}

// PartyContainer wraps a supplier or customer party.
type PartyContainer struct {
	Party Party `xml:"cac:Party"`
}

// Party is a UBL party block.
type Party struct {
	PartyIdentification *PartyIdentification `xml:"cac:PartyIdentification,omitempty"`
	PostalAddress       PostalAddress        `xml:"cac:PostalAddress"`
	PartyTaxScheme      PartyTaxScheme       `xml:"cac:PartyTaxScheme"`
	PartyLegalEntity    PartyLegalEntity     `xml:"cac:PartyLegalEntity"`
}

// PartyIdentification holds the commercial registration number.
type PartyIdentification struct {
	ID SchemeID `xml:"cbc:ID"`
}

// SchemeID is an identifier qualified by its scheme.
type SchemeID struct {
	SchemeID string `xml:"schemeID,attr"`
	Value    string `xml:",chardata"`
}

// PostalAddress is a structured address block.
type PostalAddress struct {
	StreetName         string  `xml:"cbc:StreetName"`
	BuildingNumber     string  `xml:"cbc:BuildingNumber"`
	PlotIdentification string  `xml:"cbc:PlotIdentification,omitempty"`
	CitySubdivision    string  `xml:"cbc:CitySubdivisionName"`
	CityName           string  `xml:"cbc:CityName"`
	PostalZone         string  `xml:"cbc:PostalZone"`
	Country            Country `xml:"cac:Country"`
}

// Country holds the ISO country code.
type Country struct {
	IdentificationCode string `xml:"cbc:IdentificationCode"`
}

// PartyTaxScheme carries the VAT registration.
type PartyTaxScheme struct {
	CompanyID string    `xml:"cbc:CompanyID,omitempty"`
	TaxScheme TaxScheme `xml:"cac:TaxScheme"`
}

// TaxScheme identifies the tax regime.
type TaxScheme struct {
	ID string `xml:"cbc:ID"`
}

// PartyLegalEntity carries the registered legal name.
type PartyLegalEntity struct {
	RegistrationName string `xml:"cbc:RegistrationName"`
}

// PaymentMeans is the payment method code.
type PaymentMeans struct {
	PaymentMeansCode string `xml:"cbc:PaymentMeansCode"`
}

// TaxTotal is the document-level tax block.
type TaxTotal struct {
	TaxAmount   Amount       `xml:"cbc:TaxAmount"`
	TaxSubtotal *TaxSubtotal `xml:"cac:TaxSubtotal,omitempty"`
}

// TaxSubtotal breaks the tax total down by category.
type TaxSubtotal struct {
	TaxableAmount Amount      `xml:"cbc:TaxableAmount"`
	TaxAmount     Amount      `xml:"cbc:TaxAmount"`
	TaxCategory   TaxCategory `xml:"cac:TaxCategory"`
}

// TaxCategory is the tax category with its rate.
type TaxCategory struct {
	ID        string    `xml:"cbc:ID"`
	Percent   string    `xml:"cbc:Percent"`
	TaxScheme TaxScheme `xml:"cac:TaxScheme"`
}

// MonetaryTotal is the legal monetary total block.
type MonetaryTotal struct {
	LineExtensionAmount Amount `xml:"cbc:LineExtensionAmount"`
	TaxExclusiveAmount  Amount `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusiveAmount  Amount `xml:"cbc:TaxInclusiveAmount"`
	PayableAmount       Amount `xml:"cbc:PayableAmount"`
}

// InvoiceLine is one line item.
type InvoiceLine struct {
	ID                  string       `xml:"cbc:ID"`
	InvoicedQuantity    Quantity     `xml:"cbc:InvoicedQuantity"`
	LineExtensionAmount Amount       `xml:"cbc:LineExtensionAmount"`
	TaxTotal            LineTaxTotal `xml:"cac:TaxTotal"`
	Item                Item         `xml:"cac:Item"`
	Price               Price        `xml:"cac:Price"`
}

// LineTaxTotal is the per-line tax block.
type LineTaxTotal struct {
	TaxAmount      Amount `xml:"cbc:TaxAmount"`
	RoundingAmount Amount `xml:"cbc:RoundingAmount"`
}

// Item names the goods or service on a line.
type Item struct {
	Name string `xml:"cbc:Name"`
}

// Price is the unit price block.
type Price struct {
	PriceAmount Amount `xml:"cbc:PriceAmount"`
}

// Amount is a fixed 2-decimal monetary value with its currency.
type Amount struct {
	CurrencyID string `xml:"currencyID,attr"`
	Value      string `xml:",chardata"`
}

// Quantity is an invoiced quantity with its unit code.
type Quantity struct {
	UnitCode string `xml:"unitCode,attr"`
	Value    string `xml:",chardata"`
}
