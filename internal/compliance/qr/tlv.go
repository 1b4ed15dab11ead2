// Package qr encodes the phase-1 invoice QR payload as base64 TLV.
package qr

import (
	"encoding/base64"
	"fmt"

	"github.com/smallbiznis/fatoora/internal/compliance/domain"
)

// Tags of the QR payload, in required order. Tags 6..8 belong to the
// extended variant reserved for a future signed payload.
const (
	TagSellerName   = 1
	TagVATNumber    = 2
	TagTimestamp    = 3
	TagInvoiceTotal = 4
	TagVATTotal     = 5
	TagInvoiceHash  = 6
	TagSignature    = 7
	TagPublicKey    = 8
)

// maxValueLen is the TLV length-byte ceiling. Longer values are a caller
// error, never truncated.
const maxValueLen = 255

// Field is a single tag/value pair.
type Field struct {
	Tag   byte
	Value string
}

// Encode concatenates tag, UTF-8 byte length, and value bytes for each field
// and base64-encodes the result. Pure; the only failure mode is a value
// exceeding 255 bytes.
func Encode(fields []Field) (string, error) {
	buf := make([]byte, 0, encodedLen(fields))
	for _, f := range fields {
		n := len(f.Value)
		if n > maxValueLen {
			return "", fmt.Errorf("%w: tag %d value is %d bytes, max %d",
				domain.ErrEncodingViolation, f.Tag, n, maxValueLen)
		}
		buf = append(buf, f.Tag, byte(n))
		buf = append(buf, f.Value...)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func encodedLen(fields []Field) int {
	n := 0
	for _, f := range fields {
		n += 2 + len(f.Value)
	}
	return n
}

// Payload holds the values of the base QR variant. Timestamp is ISO-8601;
// totals are fixed 2-decimal strings.
type Payload struct {
	SellerName string
	VATNumber  string
	Timestamp  string
	Total      string
	VATTotal   string
}

// Fields returns the payload as ordered TLV fields.
func (p Payload) Fields() []Field {
	return []Field{
		{Tag: TagSellerName, Value: p.SellerName},
		{Tag: TagVATNumber, Value: p.VATNumber},
		{Tag: TagTimestamp, Value: p.Timestamp},
		{Tag: TagInvoiceTotal, Value: p.Total},
		{Tag: TagVATTotal, Value: p.VATTotal},
	}
}

// Encode renders the base payload.
func (p Payload) Encode() (string, error) {
	return Encode(p.Fields())
}

// ExtendedPayload appends the phase-2 tags. InvoiceHash carries the chain
// hash of the rendered document; Signature and PublicKey are extension
// points for a signed variant and stay empty until a signing scheme exists.
type ExtendedPayload struct {
	Payload
	InvoiceHash string
	Signature   string
	PublicKey   string
}

// Encode renders the extended payload.
func (p ExtendedPayload) Encode() (string, error) {
	fields := append(p.Fields(),
		Field{Tag: TagInvoiceHash, Value: p.InvoiceHash},
		Field{Tag: TagSignature, Value: p.Signature},
		Field{Tag: TagPublicKey, Value: p.PublicKey},
	)
	return Encode(fields)
}
