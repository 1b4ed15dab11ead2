// Package chain implements the tamper-evident invoice hash chain: document
// hashing, counter formatting, and the chain-pointer rules. The commit
// itself lives in the compliance repository so it can be guarded against
// concurrent writers.
package chain

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/smallbiznis/fatoora/internal/compliance/domain"
)

// DocumentHash returns base64(sha256(xml)), the value the next invoice in
// the tenant's chain embeds as its previous-hash pointer.
func DocumentHash(xml []byte) string {
	sum := sha256.Sum256(xml)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// FormatICV renders an invoice counter value as the zero-padded 10-digit
// string embedded in the document.
func FormatICV(seq uint64) string {
	return fmt.Sprintf("%010d", seq)
}

// NextICV is the counter value the next invoice generated from the settings
// snapshot will carry.
func NextICV(s *domain.Settings) string {
	return FormatICV(s.InvoiceSequence + 1)
}
