// Package numbering builds the human-facing document numbers (orders, invoices, warranties, claims, tracking).
package numbering

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLen = 8

// Generate returns PREFIX-YYYYMMDD-XXXXXXXX. Uniqueness is enforced by the owning table's unique index.
func Generate(prefix string, now time.Time) string {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen])
	if p == "" {
		return fmt.Sprintf("%s-%s", now.UTC().Format("20060102"), suffix)
	}
	return fmt.Sprintf("%s-%s-%s", p, now.UTC().Format("20060102"), suffix)
}
