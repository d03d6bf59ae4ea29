// Package nbt reads and writes the named binary tag format used for item
// payloads. Decoded trees use plain Go values:
//
//	Byte      int8
//	Short     int16
//	Int       int32
//	Long      int64
//	Float     float32
//	Double    float64
//	ByteArray []byte
//	String    string
//	List      []any
//	Compound  map[string]any
//	IntArray  []int32
//	LongArray []int64
//
// Encoding accepts the same set, so a decoded tree re-encodes to an
// equivalent payload.
package nbt

import "errors"

// Tag type identifiers.
const (
	TagEnd byte = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

// maxDepth bounds compound/list nesting so hostile payloads cannot exhaust
// the stack.
const maxDepth = 512

var (
	ErrTruncated  = errors.New("nbt: truncated input")
	ErrUnknownTag = errors.New("nbt: unknown tag type")
	ErrTooDeep    = errors.New("nbt: nesting too deep")
	ErrBadLength  = errors.New("nbt: invalid length")
)
