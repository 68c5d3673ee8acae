package shared

import (
	"strings"

	"golang.org/x/text/width"
)

// NormalizeName folds full-width/half-width variants and case so that
// 株式会社 names entered as ｶﾅ or ＡＢＣ match their canonical forms in
// search. Stored alongside the display name at write time.
func NormalizeName(s string) string {
	folded := width.Fold.String(s)
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
