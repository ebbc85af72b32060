package wire

import (
	"fmt"
	"strings"
)

// BCD nibble sentinels (§4.1). A run of decimal digit nibbles, two packed
// per byte, terminated either by the filler nibble 0xF (when the digit
// count is odd) or implicitly by the closing 0xFF byte when even.
const (
	bcdFiller byte = 0xF
	bcdNaN    byte = 0xF0
	bcdPosInf byte = 0xF1
	bcdNegInf byte = 0xF2
	bcdEnd    byte = 0xFF
)

// isDecimalLiteral reports whether s is a plain signed decimal literal
// (optionally with one '.'), the only strings the encoder will consider
// packing as BCD instead of as a literal String tag. fracDigits is the
// number of digits after the point (0 if s has none), which the caller
// must preserve on the wire so the point's position round-trips.
func isDecimalLiteral(s string) (negative bool, fracDigits int, ok bool) {
	if s == "" {
		return false, 0, false
	}
	t := s
	if t[0] == '+' || t[0] == '-' {
		negative = t[0] == '-'
		t = t[1:]
	}
	if t == "" {
		return false, 0, false
	}
	seenDigit := false
	seenDot := false
	for idx := 0; idx < len(t); idx++ {
		c := t[idx]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			if seenDot {
				fracDigits++
			}
		case c == '.' && !seenDot:
			seenDot = true
		default:
			return false, 0, false
		}
	}
	return negative, fracDigits, seenDigit
}

// encodeBCDDigits packs the decimal digits of s (as produced by
// isDecimalLiteral, sign and '.' stripped by the caller) two per byte, MSB
// nibble first, padding a trailing lone digit with the filler nibble.
func encodeBCDDigits(digits string) []byte {
	out := make([]byte, 0, (len(digits)+1)/2)
	for idx := 0; idx < len(digits); idx += 2 {
		hi := digits[idx] - '0'
		lo := bcdFiller
		if idx+1 < len(digits) {
			lo = digits[idx+1] - '0'
		}
		out = append(out, hi<<4|lo)
	}
	return out
}

// decodeBCDDigits unpacks bytes written by encodeBCDDigits back to a digit
// string, dropping a trailing filler nibble.
func decodeBCDDigits(raw []byte) string {
	var b strings.Builder
	for _, by := range raw {
		hi, lo := by>>4, by&0xF
		b.WriteByte('0' + hi)
		if lo != bcdFiller {
			b.WriteByte('0' + lo)
		}
	}
	return b.String()
}

// bcdSpecialString renders one of the three BCD sentinel codes back to the
// decimal-literal special string AsFloat64/AsString would recognize.
func bcdSpecialString(marker byte) (string, error) {
	switch marker {
	case bcdNaN:
		return "nan", nil
	case bcdPosInf:
		return "inf", nil
	case bcdNegInf:
		return "-inf", nil
	default:
		return "", fmt.Errorf("wire: unknown bcd sentinel 0x%02x", marker)
	}
}
