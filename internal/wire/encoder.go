package wire

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

// Encoder writes si.Info trees and RPC frames onto the wire in the binary
// codec's self-delimiting, dictionary-compressing format. An Encoder is
// bound to one connection; its name dictionary persists across frames and
// must be reset (via Reset) if the underlying stream is ever rewound.
type Encoder struct {
	w    *bufio.Writer
	dict *dictionary

	// PreferBCDForDecimalStrings makes the encoder pack string-valued nodes
	// that look like plain decimal literals (e.g. "123.45") into the Bcd /
	// BcdFloat envelope instead of the generic String tag, avoiding the
	// double round-trip loss a producer that already had an exact decimal
	// string would otherwise incur. Off by default: most callers produce
	// strings that are not decimal literals and gain nothing from the extra
	// parsing on the decode side.
	PreferBCDForDecimalStrings bool
}

// NewEncoder wraps w with a fresh dictionary.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), dict: newDictionary()}
}

// Reset rebinds the encoder to a new underlying writer and clears the name
// dictionary, as required at the start of a new logical stream.
func (e *Encoder) Reset(w io.Writer) {
	e.w.Reset(w)
	e.dict.reset()
}

// Flush pushes any buffered bytes to the underlying writer.
func (e *Encoder) Flush() error { return e.w.Flush() }

func (e *Encoder) writeByte(b byte) error { return e.w.WriteByte(b) }

func (e *Encoder) writeBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) writeUint16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return e.writeBytes(buf[:])
}

func (e *Encoder) writeUint32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return e.writeBytes(buf[:])
}

func (e *Encoder) writeUint64(v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return e.writeBytes(buf[:])
}

// writeLiteralName writes a name as a NUL-terminated UTF-8 literal, the
// format used for request/reply frame headers (domain, method) which are
// not dictionary-compressed.
func (e *Encoder) writeLiteralName(name string) error {
	if err := e.writeBytes([]byte(name)); err != nil {
		return err
	}
	return e.writeByte(0x00)
}

// writeMemberName writes a member/element name using the dictionary: a
// reference if already known, otherwise a literal that is then inserted.
func (e *Encoder) writeMemberName(name string) error {
	if idx, ok := e.dict.lookup(name); ok {
		if err := e.writeByte(nameRefMarker); err != nil {
			return err
		}
		return e.writeUint16(idx)
	}
	if err := e.writeLiteralName(name); err != nil {
		return err
	}
	e.dict.insert(name) // no-op once full; encoder then always writes literal
	return nil
}

func (e *Encoder) writeTypeName(t string) error {
	return e.writeLiteralName(t)
}

// EncodeValue writes one si.Info subtree, choosing the tag family and
// representation per §4.1.
func (e *Encoder) EncodeValue(n *si.Info) error {
	named := n.Name() != ""

	switch n.Category() {
	case si.Void:
		return e.writeNode(n, named, tVoid, func() error { return nil })

	case si.Value:
		return e.encodeScalar(n, named)

	case si.Array:
		tag := tArray
		if t, ok := structuralTypeNames[n.TypeName()]; ok && arrayLikeTags[t] {
			tag = t
		}
		return e.writeNode(n, named, tag, func() error {
			for _, c := range n.Children() {
				if err := e.EncodeValue(c); err != nil {
					return err
				}
			}
			return e.writeByte(frameEnd)
		})

	case si.Object:
		tag := tObject
		if t, ok := structuralTypeNames[n.TypeName()]; ok && !arrayLikeTags[t] {
			tag = t
		}
		return e.writeNode(n, named, tag, func() error {
			for _, c := range n.Children() {
				if err := e.EncodeValue(c); err != nil {
					return err
				}
			}
			return e.writeByte(frameEnd)
		})

	default:
		return e.writeNode(n, named, tVoid, func() error { return nil })
	}
}

// writeNode writes the tag byte (with the named bit set per `named`),
// optional name, always the typeName, then invokes payload to write the
// value- or children-specific body.
func (e *Encoder) writeNode(n *si.Info, named bool, tag byte, payload func() error) error {
	full := tag
	if named {
		full |= namedBit
	}
	if err := e.writeByte(full); err != nil {
		return err
	}
	if named {
		if err := e.writeMemberName(n.Name()); err != nil {
			return err
		}
	}
	if err := e.writeTypeName(n.TypeName()); err != nil {
		return err
	}
	return payload()
}

func (e *Encoder) encodeScalar(n *si.Info, named bool) error {
	switch n.ValueKind() {
	case si.KindNone:
		return e.writeNode(n, named, tEmpty, func() error { return nil })
	case si.KindBool:
		return e.writeNode(n, named, tBool, func() error {
			if n.RawBool() {
				return e.writeByte(1)
			}
			return e.writeByte(0)
		})
	case si.KindChar:
		return e.writeNode(n, named, tChar, func() error { return e.writeByte(n.RawChar()) })
	case si.KindInt:
		return e.encodeInt(n, named, n.RawInt())
	case si.KindUint:
		return e.encodeUint(n, named, n.RawUint())
	case si.KindFloat:
		return e.writeNode(n, named, tFloat32, func() error {
			return e.writeUint32(math.Float32bits(float32(n.RawFloat())))
		})
	case si.KindDouble:
		return e.encodeDouble(n, named, n.RawFloat())
	case si.KindString:
		return e.encodeString(n, named, n.RawString())
	default:
		return e.writeNode(n, named, tEmpty, func() error { return nil })
	}
}

func (e *Encoder) encodeString(n *si.Info, named bool, s string) error {
	if e.PreferBCDForDecimalStrings {
		if neg, fracDigits, ok := isDecimalLiteral(s); ok && fracDigits <= math.MaxUint8 {
			digits := stripDot(stripSign(s))
			tag := tBcd
			if fracDigits > 0 {
				tag = tBcdFloat
			}
			return e.writeNode(n, named, tag, func() error {
				return e.writeBCDPayload(neg, digits, fracDigits)
			})
		}
	}
	return e.writeNode(n, named, tString, func() error {
		if err := e.writeBytes([]byte(s)); err != nil {
			return err
		}
		if err := e.writeByte(0x00); err != nil {
			return err
		}
		return e.writeByte(frameEnd)
	})
}

func stripSign(s string) string {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		return s[1:]
	}
	return s
}

func stripDot(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// writeBCDPayload writes the sign byte, a fractional-digit count byte
// (0 for an integer literal, otherwise how many trailing digits of the
// packed run sit right of the point) so the decoder can reinsert the
// point at the right position, then the packed digits and terminator.
func (e *Encoder) writeBCDPayload(neg bool, digits string, fracDigits int) error {
	sign := byte(0)
	if neg {
		sign = 1
	}
	if err := e.writeByte(sign); err != nil {
		return err
	}
	if err := e.writeByte(byte(fracDigits)); err != nil {
		return err
	}
	if err := e.writeBytes(encodeBCDDigits(digits)); err != nil {
		return err
	}
	return e.writeByte(bcdEnd)
}

func (e *Encoder) encodeInt(n *si.Info, named bool, v int64) error {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return e.writeNode(n, named, tInt8, func() error { return e.writeByte(byte(int8(v))) })
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return e.writeNode(n, named, tInt16, func() error { return e.writeUint16(uint16(int16(v))) })
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return e.writeNode(n, named, tInt32, func() error { return e.writeUint32(uint32(int32(v))) })
	default:
		return e.writeNode(n, named, tInt64, func() error { return e.writeUint64(uint64(v)) })
	}
}

func (e *Encoder) encodeUint(n *si.Info, named bool, v uint64) error {
	switch {
	case v <= math.MaxUint8:
		return e.writeNode(n, named, tUInt8, func() error { return e.writeByte(byte(v)) })
	case v <= math.MaxUint16:
		return e.writeNode(n, named, tUInt16, func() error { return e.writeUint16(uint16(v)) })
	case v <= math.MaxUint32:
		return e.writeNode(n, named, tUInt32, func() error { return e.writeUint32(uint32(v)) })
	default:
		return e.writeNode(n, named, tUInt64, func() error { return e.writeUint64(v) })
	}
}

func (e *Encoder) encodeDouble(n *si.Info, named bool, f float64) error {
	neg, special, exp, mant := splitDouble(f)
	tag := chooseDoubleEnvelope(special, exp, mant)
	return e.writeNode(n, named, tag, func() error {
		return e.writeFloatEnvelope(tag, neg, special, exp, mant)
	})
}

func (e *Encoder) writeFloatEnvelope(tag byte, neg bool, special floatSpecial, exp int32, mant uint64) error {
	switch tag {
	case tShortFloat:
		flags := byte(special) << 1
		if neg {
			flags |= 1
		}
		if err := e.writeByte(flags); err != nil {
			return err
		}
		if special != fsNormal {
			return e.writeBytes([]byte{0, 0, 0})
		}
		if err := e.writeByte(byte(int8(exp))); err != nil {
			return err
		}
		top16 := uint16(mant >> 36)
		return e.writeUint16(top16)
	case tMediumFloat:
		flags := byte(0)
		if neg {
			flags = 1
		}
		if err := e.writeByte(flags); err != nil {
			return err
		}
		if err := e.writeByte(byte(int8(exp))); err != nil {
			return err
		}
		top32 := uint32(mant >> 20)
		return e.writeUint32(top32)
	default: // tLongFloat
		flags := byte(0)
		if neg {
			flags = 1
		}
		if err := e.writeByte(flags); err != nil {
			return err
		}
		if err := e.writeUint16(uint16(int16(exp))); err != nil {
			return err
		}
		shifted := mant << 4 // 52 -> 56 bits, left-justified into 7 bytes
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], shifted)
		return e.writeBytes(buf[1:]) // low 7 bytes of the 8-byte big-endian buffer
	}
}

// EncodeRequest writes a full request frame: 0xC0 (or 0xC3 with a leading
// domain), the method name, each argument in order, and the 0xFF
// terminator.
func (e *Encoder) EncodeRequest(domain, method string, args []*si.Info) error {
	if domain == "" {
		if err := e.writeByte(frameRequest); err != nil {
			return err
		}
	} else {
		if err := e.writeByte(frameRequestDomain); err != nil {
			return err
		}
		if err := e.writeLiteralName(domain); err != nil {
			return err
		}
	}
	if err := e.writeLiteralName(method); err != nil {
		return err
	}
	for _, a := range args {
		if err := e.EncodeValue(a); err != nil {
			return err
		}
	}
	if err := e.writeByte(frameEnd); err != nil {
		return err
	}
	return e.Flush()
}

// EncodeReplyOK writes a successful reply frame: 0xC1, the result value,
// 0xFF.
func (e *Encoder) EncodeReplyOK(result *si.Info) error {
	if err := e.writeByte(frameReplyOK); err != nil {
		return err
	}
	if result != nil {
		if err := e.EncodeValue(result); err != nil {
			return err
		}
	}
	if err := e.writeByte(frameEnd); err != nil {
		return err
	}
	return e.Flush()
}

// EncodeReplyError writes an error reply frame: 0xC2, a 4-byte big-endian
// error code, a NUL-terminated message, 0xFF.
func (e *Encoder) EncodeReplyError(code int32, message string) error {
	if err := e.writeByte(frameReplyErr); err != nil {
		return err
	}
	if err := e.writeUint32(uint32(code)); err != nil {
		return err
	}
	if err := e.writeLiteralName(message); err != nil {
		return err
	}
	if err := e.writeByte(frameEnd); err != nil {
		return err
	}
	return e.Flush()
}
