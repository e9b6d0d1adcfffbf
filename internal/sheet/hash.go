package sheet

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Hash returns a deterministic digest of source text, used to detect edits.
//
// Text is canonicalized before hashing so cosmetic platform differences do
// not force a re-derivation: unicode is NFC-normalized and trailing
// whitespace is stripped per line and at the end of the document.
func Hash(text string) string {
	canonical := canonicalize(text)
	return fmt.Sprintf("%016x", xxhash.Sum64String(canonical))
}

func canonicalize(text string) string {
	normalized := norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))
	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
