// Package ni43101 archives NI 43-101 technical reports dropped into a
// ScienceBase item: each PDF gets a schema.org description, extracted page
// text, its own archive item and a Zotero report record.
package ni43101

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparseableName is returned for file names that do not follow the SEDAR+
// download naming scheme.
var ErrUnparseableName = errors.New("file name is not a SEDAR+ filing name")

// Filing is the information encoded in a SEDAR+ download file name:
//
//	<company id> <qualified name> / <company name> (...) / <filing id> ... <filing type>
type Filing struct {
	CompanyID   string
	CompanyName string
	FormerName  string
	FilingID    string
	FilingType  string
}

var parenthetical = regexp.MustCompile(`\((.*?)\)`)

// ParseFilingName parses a SEDAR+ file name.
func ParseFilingName(name string) (Filing, error) {
	parts := strings.Split(name, "/")
	if len(parts) < 3 {
		return Filing{}, fmt.Errorf("%w: %q", ErrUnparseableName, name)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	companyFields := strings.Fields(parts[0])
	filingFields := strings.Fields(parts[2])
	if len(companyFields) == 0 || len(filingFields) == 0 {
		return Filing{}, fmt.Errorf("%w: %q", ErrUnparseableName, name)
	}

	f := Filing{
		CompanyID:  companyFields[0],
		FilingID:   filingFields[0],
		FilingType: filingFields[len(filingFields)-1],
	}

	company, _, _ := strings.Cut(parts[1], "(")
	f.CompanyName = strings.TrimSpace(company)

	qualified := strings.TrimSpace(strings.Replace(parts[0], f.CompanyID, "", 1))
	if m := parenthetical.FindStringSubmatch(qualified); m != nil {
		f.FormerName = formerName(m[1])
	}

	return f, nil
}

// formerName returns the name in a "formerly ..." parenthetical, or "".
func formerName(s string) string {
	if !strings.HasPrefix(strings.ToLower(s), "formerly") {
		return ""
	}
	s = s[len("formerly"):]
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}
