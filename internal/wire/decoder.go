package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

// FrameKind identifies the first byte of a frame.
type FrameKind byte

const (
	FrameUnknown     FrameKind = 0
	FrameRequest     FrameKind = FrameKind(frameRequest)
	FrameRequestDom  FrameKind = FrameKind(frameRequestDomain)
	FrameReplyOK     FrameKind = FrameKind(frameReplyOK)
	FrameReplyErr    FrameKind = FrameKind(frameReplyErr)
)

// MalformedFrameError reports a wire byte sequence that does not parse,
// mapping to the MalformedFrame error kind of §7.
type MalformedFrameError struct {
	Reason string
}

func (e *MalformedFrameError) Error() string { return "wire: malformed frame: " + e.Reason }

// Decoder reads si.Info trees and RPC frames off the wire. Like Encoder it
// is bound to one connection and keeps a name dictionary that must mirror
// the peer's Encoder exactly. Reads block on the underlying reader; each
// connection is expected to run its own goroutine driving a Decoder, which
// is the idiomatic Go rendition of the per-connection parser state machine.
type Decoder struct {
	r    *bufio.Reader
	dict *dictionary
}

// NewDecoder wraps r with a fresh dictionary.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), dict: newDictionary()}
}

// Reset rebinds the decoder to a new underlying reader and clears the name
// dictionary.
func (d *Decoder) Reset(r io.Reader) {
	d.r.Reset(r)
	d.dict.reset()
}

func (d *Decoder) readByte() (byte, error) { return d.r.ReadByte() }

func (d *Decoder) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := io.ReadFull(d.r, buf)
	return buf, err
}

func (d *Decoder) readUint16() (uint16, error) {
	b, err := d.readFull(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	b, err := d.readFull(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) readUint64() (uint64, error) {
	b, err := d.readFull(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// readLiteralName reads bytes up to and including the next NUL terminator,
// returning the bytes before it.
func (d *Decoder) readLiteralName() (string, error) {
	raw, err := d.r.ReadBytes(0x00)
	if err != nil {
		return "", err
	}
	return string(raw[:len(raw)-1]), nil
}

// readMemberName reads either a dictionary reference or a literal name,
// inserting newly seen literals into the dictionary so later references in
// the same stream resolve correctly.
func (d *Decoder) readMemberName() (string, error) {
	marker, err := d.readByte()
	if err != nil {
		return "", err
	}
	if marker == nameRefMarker {
		idx, err := d.readUint16()
		if err != nil {
			return "", err
		}
		name, ok := d.dict.byIndex(idx)
		if !ok {
			return "", &MalformedFrameError{Reason: fmt.Sprintf("dictionary index %d out of range", idx)}
		}
		return name, nil
	}
	// marker is the first byte of a literal name; read the rest up to NUL.
	rest, err := d.r.ReadBytes(0x00)
	if err != nil {
		return "", err
	}
	name := string(marker) + string(rest[:len(rest)-1])
	d.dict.insert(name)
	return name, nil
}

// DecodeValue reads one si.Info subtree.
func (d *Decoder) DecodeValue() (*si.Info, error) {
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	return d.decodeTagged(tag)
}

func (d *Decoder) decodeTagged(tag byte) (*si.Info, error) {
	n := si.New()
	named := isNamed(tag)
	base := baseTag(tag)

	if named {
		name, err := d.readMemberName()
		if err != nil {
			return nil, err
		}
		n.SetName(name)
	}
	typeName, err := d.readLiteralName()
	if err != nil {
		return nil, err
	}

	switch base {
	case tVoid:
		// Void: no value, no children; typeName may still promote to
		// Object per SetTypeName's rule, so apply it only if non-empty.
		if typeName != "" {
			n.SetTypeName(typeName)
		}
		return n, nil

	case tEmpty:
		n.ExplicitlyValue()
		applyTypeName(n, typeName)
		return n, nil

	case tBool:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		n.SetBool(b != 0)
		applyTypeName(n, typeName)
		return n, nil

	case tChar:
		c, err := d.readByte()
		if err != nil {
			return nil, err
		}
		n.SetChar(c)
		applyTypeName(n, typeName)
		return n, nil

	case tUInt8:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		n.SetUint(uint64(b))
		applyTypeName(n, typeName)
		return n, nil
	case tUInt16:
		v, err := d.readUint16()
		if err != nil {
			return nil, err
		}
		n.SetUint(uint64(v))
		applyTypeName(n, typeName)
		return n, nil
	case tUInt32:
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		n.SetUint(uint64(v))
		applyTypeName(n, typeName)
		return n, nil
	case tUInt64:
		v, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		n.SetUint(v)
		applyTypeName(n, typeName)
		return n, nil

	case tInt8:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		n.SetInt(int64(int8(b)))
		applyTypeName(n, typeName)
		return n, nil
	case tInt16:
		v, err := d.readUint16()
		if err != nil {
			return nil, err
		}
		n.SetInt(int64(int16(v)))
		applyTypeName(n, typeName)
		return n, nil
	case tInt32:
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		n.SetInt(int64(int32(v)))
		applyTypeName(n, typeName)
		return n, nil
	case tInt64:
		v, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		n.SetInt(int64(v))
		applyTypeName(n, typeName)
		return n, nil

	case tFloat32:
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		n.SetFloat(math.Float32frombits(v))
		applyTypeName(n, typeName)
		return n, nil

	case tShortFloat, tMediumFloat, tLongFloat:
		f, err := d.readFloatEnvelope(base)
		if err != nil {
			return nil, err
		}
		n.SetDouble(f)
		applyTypeName(n, typeName)
		return n, nil

	case tBcd, tBcdFloat:
		s, err := d.readBCDValue()
		if err != nil {
			return nil, err
		}
		n.SetString(s)
		applyTypeName(n, typeName)
		return n, nil

	case tString:
		s, err := d.readStringValue()
		if err != nil {
			return nil, err
		}
		n.SetString(s)
		applyTypeName(n, typeName)
		return n, nil

	case tBinary2:
		length, err := d.readUint16()
		if err != nil {
			return nil, err
		}
		raw, err := d.readFull(int(length))
		if err != nil {
			return nil, err
		}
		n.SetString(string(raw))
		applyTypeName(n, typeName)
		return n, nil

	case tBinary4:
		length, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		raw, err := d.readFull(int(length))
		if err != nil {
			return nil, err
		}
		n.SetString(string(raw))
		applyTypeName(n, typeName)
		return n, nil

	case tArray, tList, tDeque:
		n.SetArray()
		applyTypeName(n, typeName)
		if err := d.decodeChildren(n); err != nil {
			return nil, err
		}
		return n, nil

	case tObject, tPair, tSet, tMultiset, tMap, tMultimap, tOther:
		n.SetObject()
		applyTypeName(n, typeName)
		if err := d.decodeChildren(n); err != nil {
			return nil, err
		}
		return n, nil

	default:
		return nil, &MalformedFrameError{Reason: fmt.Sprintf("unknown tag 0x%02x", base)}
	}
}

// applyTypeName sets typeName on a node whose category (Value, Array or
// Object) is already set by this point, so SetTypeName's Void->Object
// promotion never triggers.
func applyTypeName(n *si.Info, typeName string) {
	if typeName != "" {
		n.SetTypeName(typeName)
	}
}

func (d *Decoder) decodeChildren(parent *si.Info) error {
	for {
		tag, err := d.readByte()
		if err != nil {
			return err
		}
		if tag == frameEnd {
			return nil
		}
		child, err := d.decodeTagged(tag)
		if err != nil {
			return err
		}
		parent.AdoptChild(child)
	}
}

func (d *Decoder) readStringValue() (string, error) {
	raw, err := d.r.ReadBytes(0x00)
	if err != nil {
		return "", err
	}
	term, err := d.readByte()
	if err != nil {
		return "", err
	}
	if term != frameEnd {
		return "", &MalformedFrameError{Reason: "string missing 0xFF terminator"}
	}
	return string(raw[:len(raw)-1]), nil
}

func (d *Decoder) readBCDValue() (string, error) {
	sign, err := d.readByte()
	if err != nil {
		return "", err
	}
	fracDigits, err := d.readByte()
	if err != nil {
		return "", err
	}
	var digits []byte
	for {
		b, err := d.readByte()
		if err != nil {
			return "", err
		}
		if b == bcdEnd {
			break
		}
		if b == bcdNaN || b == bcdPosInf || b == bcdNegInf {
			return bcdSpecialString(b)
		}
		digits = append(digits, b)
	}
	s := decodeBCDDigits(digits)
	if n := int(fracDigits); n > 0 && n <= len(s) {
		point := len(s) - n
		s = s[:point] + "." + s[point:]
	}
	if sign != 0 {
		s = "-" + s
	}
	return s, nil
}

func (d *Decoder) readFloatEnvelope(base byte) (float64, error) {
	switch base {
	case tShortFloat:
		flags, err := d.readByte()
		if err != nil {
			return 0, err
		}
		neg := flags&1 != 0
		special := floatSpecial(flags >> 1)
		if special != fsNormal {
			if _, err := d.readFull(3); err != nil {
				return 0, err
			}
			return composeDouble(neg, special, 0, 0), nil
		}
		expByte, err := d.readByte()
		if err != nil {
			return 0, err
		}
		top16, err := d.readUint16()
		if err != nil {
			return 0, err
		}
		mant := uint64(top16) << 36
		return composeDouble(neg, fsNormal, int32(int8(expByte)), mant), nil

	case tMediumFloat:
		flags, err := d.readByte()
		if err != nil {
			return 0, err
		}
		neg := flags&1 != 0
		expByte, err := d.readByte()
		if err != nil {
			return 0, err
		}
		top32, err := d.readUint32()
		if err != nil {
			return 0, err
		}
		mant := uint64(top32) << 20
		return composeDouble(neg, fsNormal, int32(int8(expByte)), mant), nil

	default: // tLongFloat
		flags, err := d.readByte()
		if err != nil {
			return 0, err
		}
		neg := flags&1 != 0
		expRaw, err := d.readUint16()
		if err != nil {
			return 0, err
		}
		lo, err := d.readFull(7)
		if err != nil {
			return 0, err
		}
		var buf [8]byte
		copy(buf[1:], lo)
		shifted := binary.BigEndian.Uint64(buf[:])
		mant := (shifted >> 4) & ((1 << 52) - 1)
		return composeDouble(neg, fsNormal, int32(int16(expRaw)), mant), nil
	}
}

// PeekFrameKind reports which frame the next unread byte starts, without
// consuming it.
func (d *Decoder) PeekFrameKind() (FrameKind, error) {
	b, err := d.r.Peek(1)
	if err != nil {
		return FrameUnknown, err
	}
	switch b[0] {
	case frameRequest:
		return FrameRequest, nil
	case frameRequestDomain:
		return FrameRequestDom, nil
	case frameReplyOK:
		return FrameReplyOK, nil
	case frameReplyErr:
		return FrameReplyErr, nil
	default:
		return FrameUnknown, &MalformedFrameError{Reason: fmt.Sprintf("unexpected frame byte 0x%02x", b[0])}
	}
}

// DecodeRequest reads a full request frame (0xC0/0xC3) and returns the
// domain (empty if none), method name, and argument list.
func (d *Decoder) DecodeRequest() (domain, method string, args []*si.Info, err error) {
	tag, err := d.readByte()
	if err != nil {
		return "", "", nil, err
	}
	switch tag {
	case frameRequestDomain:
		domain, err = d.readLiteralName()
		if err != nil {
			return "", "", nil, err
		}
	case frameRequest:
		// no domain
	default:
		return "", "", nil, &MalformedFrameError{Reason: fmt.Sprintf("expected request frame, got 0x%02x", tag)}
	}
	method, err = d.readLiteralName()
	if err != nil {
		return "", "", nil, err
	}
	for {
		next, err := d.readByte()
		if err != nil {
			return "", "", nil, err
		}
		if next == frameEnd {
			return domain, method, args, nil
		}
		arg, err := d.decodeTagged(next)
		if err != nil {
			return "", "", nil, err
		}
		args = append(args, arg)
	}
}

// DecodeReply reads a reply frame (0xC1/0xC2). On a success reply, err is
// nil and result holds the decoded value (nil if the reply carried none).
// On an error reply, err is a *RemoteError carrying the code and message.
func (d *Decoder) DecodeReply() (result *si.Info, err error) {
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case frameReplyOK:
		next, err := d.r.Peek(1)
		if err != nil {
			return nil, err
		}
		if next[0] == frameEnd {
			d.readByte()
			return nil, nil
		}
		result, err = d.DecodeValue()
		if err != nil {
			return nil, err
		}
		if _, err := d.readByte(); err != nil { // terminator
			return nil, err
		}
		return result, nil
	case frameReplyErr:
		code, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		msg, err := d.readLiteralName()
		if err != nil {
			return nil, err
		}
		if _, err := d.readByte(); err != nil { // terminator
			return nil, err
		}
		return nil, &RemoteError{Code: int32(code), Message: msg}
	default:
		return nil, &MalformedFrameError{Reason: fmt.Sprintf("expected reply frame, got 0x%02x", tag)}
	}
}

// RemoteError is the decoded form of an 0xC2 error reply (§7
// RemoteException).
type RemoteError struct {
	Code    int32
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("wire: remote error %d: %s", e.Code, e.Message)
}
