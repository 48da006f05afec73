package shortid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dcim-inventory-backend/internal/apperr"
)

var tokenRe = regexp.MustCompile(`^([A-Za-z]*)\s*(-?)\s*(\d+)$`)

// Codec converts between stored short ID values and their printed display
// form, e.g. 12 <-> "E-00012". The stored value is always the bare integer.
type Codec struct {
	Prefix string
	Width  int
}

// NewCodec returns a codec for the given label prefix and digit width.
func NewCodec(prefix string, width int) Codec {
	if width <= 0 {
		width = 5
	}
	return Codec{Prefix: strings.ToUpper(prefix), Width: width}
}

// Format renders a value in its display form. Values wider than the
// configured width are printed in full.
func (c Codec) Format(value int64) string {
	return fmt.Sprintf("%s-%0*d", c.Prefix, c.Width, value)
}

// Parse accepts a bare positive integer ("12", "00012") or the display form
// with the configured prefix in any case ("E-00012", "e12") and returns the
// stored value.
func (c Codec) Parse(token string) (int64, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, &apperr.FormatError{Token: token, Reason: "empty"}
	}

	m := tokenRe.FindStringSubmatch(s)
	if m == nil {
		return 0, &apperr.FormatError{Token: token, Reason: "expected digits or " + c.Prefix + "-<digits>"}
	}

	prefix, dash, digits := m[1], m[2], m[3]
	if prefix == "" && dash != "" {
		return 0, &apperr.FormatError{Token: token, Reason: "must be a positive integer"}
	}
	if prefix != "" && !strings.EqualFold(prefix, c.Prefix) {
		return 0, &apperr.FormatError{Token: token, Reason: fmt.Sprintf("unknown prefix %q", prefix)}
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, &apperr.FormatError{Token: token, Reason: "out of range"}
	}
	if value < 1 {
		return 0, &apperr.FormatError{Token: token, Reason: "must be a positive integer"}
	}
	return value, nil
}
