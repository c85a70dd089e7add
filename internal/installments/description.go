package installments

import (
	"fmt"
	"regexp"
	"strings"
)

// matches one or more trailing "(Installment i/N)" tags
var suffixPattern = regexp.MustCompile(`(?i)(\s*\(installment\s+\d+\s*/\s*\d+\))+\s*$`)

// StripSuffix removes any installment tag from the end of a description
func StripSuffix(description string) string {
	return strings.TrimSpace(suffixPattern.ReplaceAllString(description, ""))
}

// FormatDescription tags description as installment seq of total. Existing
// tags are replaced, never stacked.
func FormatDescription(description string, seq, total int) string {
	tag := fmt.Sprintf("(Installment %d/%d)", seq, total)
	base := StripSuffix(description)
	if base == "" {
		return tag
	}
	return base + " " + tag
}
