// Package wire implements the self-delimiting, dictionary-compressing,
// type-tagged binary RPC wire codec (§4.1). It encodes and decodes
// si.Info trees and the request/reply frames that carry them.
package wire

// Frame control bytes (§4.1, §4.2). These never appear as the first byte
// of a value tag.
const (
	frameRequest       byte = 0xC0 // request without domain
	frameReplyOK       byte = 0xC1
	frameReplyErr      byte = 0xC2
	frameRequestDomain byte = 0xC3 // request with a leading domain
	frameEnd           byte = 0xFF
)

// nameRefMarker, written in the position where a literal name's first byte
// would otherwise appear, introduces a 2-byte big-endian dictionary index
// instead of a literal UTF-8 name.
const nameRefMarker byte = 0x01

// namedBit marks a tag as carrying a name string immediately after it.
const namedBit byte = 0x80

// Base tag identifiers (low 7 bits of the tag byte). Combine with namedBit
// to obtain the "named" variant of the same tag.
const (
	tVoid byte = 0x10 + iota
	tUInt8
	tUInt16
	tUInt32
	tUInt64
	tInt8
	tInt16
	tInt32
	tInt64
	tFloat32 // exact 4-byte IEEE-754 binary32, used for si.KindFloat (single precision)
	tShortFloat
	tMediumFloat
	tLongFloat
	tBcd
	tBcdFloat
	tString
	tChar
	tBinary2
	tBinary4
	tBool
	tEmpty
	tArray
	tObject
	tPair
	tList
	tDeque
	tSet
	tMultiset
	tMap
	tMultimap
	tOther
)

func baseTag(tag byte) byte { return tag &^ namedBit }
func isNamed(tag byte) bool { return tag&namedBit != 0 }

// structuralTypeNames maps a free-form SI typeName to the wire tag that
// best documents the originating container, purely for fidelity with
// §4.1's enumerated tag table; the typeName string itself is always
// transmitted verbatim regardless of which tag is chosen, so round-trip
// correctness never depends on this mapping being exhaustive.
var structuralTypeNames = map[string]byte{
	"pair":      tPair,
	"list":      tList,
	"deque":     tDeque,
	"set":       tSet,
	"multiset":  tMultiset,
	"map":       tMap,
	"multimap":  tMultimap,
	"other":     tOther,
	"array":     tArray,
	"object":    tObject,
}

// arrayLikeTags are structural tags whose category is Array (positional,
// unnamed children).
var arrayLikeTags = map[byte]bool{
	tArray: true,
	tList:  true,
	tDeque: true,
}
