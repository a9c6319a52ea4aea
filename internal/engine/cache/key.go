package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// KeyParams identifies a factor lookup.
type KeyParams struct {
	CategoryID string
	Unit       string
	Country    string
	Date       time.Time
}

// GenerateKey returns a SHA256 key over the normalized lookup parameters.
// Unit and country are case-folded; the date is truncated to the day.
func GenerateKey(p KeyParams) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.CategoryID))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(p.Unit)))
	b.WriteByte('|')
	b.WriteString(strings.ToUpper(strings.TrimSpace(p.Country)))
	b.WriteByte('|')
	if !p.Date.IsZero() {
		b.WriteString(p.Date.UTC().Format(time.DateOnly))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
