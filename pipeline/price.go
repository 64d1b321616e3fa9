package pipeline

import "strings"

// NormalizePrice reduces a free-form feed price to a plain integer string:
// everything from the first '.' on is dropped, then every non-digit byte is
// stripped. No rounding, no currency handling.
//
//	NormalizePrice("5'990.00 руб.") == "5990"
//	NormalizePrice("12.34$") == "12"
//	NormalizePrice("abc") == ""
func NormalizePrice(price string) string {
	if i := strings.IndexByte(price, '.'); i >= 0 {
		price = price[:i]
	}
	var b strings.Builder
	b.Grow(len(price))
	for i := 0; i < len(price); i++ {
		if c := price[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
