package arb

import (
	"regexp"
	"strconv"
)

var psaGradeRe = regexp.MustCompile(`(?i)PSA\s*(\d+)`)

// extractGrade pulls a PSA grade (1-10) from the listing's aspects, then
// from the title. Returns "" when no valid grade was found.
func extractGrade(l Listing) string {
	if l.Aspects != nil {
		if g := l.Aspects["Grade"]; validGrade(g) {
			return g
		}
	}
	if m := psaGradeRe.FindStringSubmatch(l.Title); m != nil && validGrade(m[1]) {
		return m[1]
	}
	return ""
}

func validGrade(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 1 && n <= 10
}
