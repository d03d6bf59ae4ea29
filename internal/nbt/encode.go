package nbt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Marshal encodes root as a single named compound, the layout of a
// standard payload. Compound keys are written in sorted order so the output
// is deterministic.
func Marshal(name string, root map[string]any) ([]byte, error) {
	e := &encoder{}
	e.u8(TagCompound)
	if err := e.str(name); err != nil {
		return nil, err
	}
	if err := e.payload(root, 0); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(b byte) { e.buf.WriteByte(b) }

func (e *encoder) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) str(s string) error {
	b := encodeMUTF8(s)
	if len(b) > math.MaxUint16 {
		return fmt.Errorf("nbt: string of %d bytes exceeds limit", len(b))
	}
	e.u16(uint16(len(b)))
	e.buf.Write(b)
	return nil
}

// tagOf maps a Go value to its tag type.
func tagOf(v any) (byte, error) {
	switch v.(type) {
	case int8:
		return TagByte, nil
	case int16:
		return TagShort, nil
	case int32:
		return TagInt, nil
	case int64:
		return TagLong, nil
	case float32:
		return TagFloat, nil
	case float64:
		return TagDouble, nil
	case []byte:
		return TagByteArray, nil
	case string:
		return TagString, nil
	case []any:
		return TagList, nil
	case map[string]any:
		return TagCompound, nil
	case []int32:
		return TagIntArray, nil
	case []int64:
		return TagLongArray, nil
	default:
		return 0, fmt.Errorf("nbt: unsupported value type %T", v)
	}
}

func (e *encoder) payload(v any, depth int) error {
	if depth > maxDepth {
		return ErrTooDeep
	}
	switch x := v.(type) {
	case int8:
		e.u8(byte(x))
	case int16:
		e.u16(uint16(x))
	case int32:
		e.u32(uint32(x))
	case int64:
		e.u64(uint64(x))
	case float32:
		e.u32(math.Float32bits(x))
	case float64:
		e.u64(math.Float64bits(x))
	case []byte:
		e.u32(uint32(len(x)))
		e.buf.Write(x)
	case string:
		return e.str(x)
	case []any:
		elem := TagEnd
		if len(x) > 0 {
			t, err := tagOf(x[0])
			if err != nil {
				return err
			}
			elem = t
		}
		e.u8(elem)
		e.u32(uint32(len(x)))
		for i, item := range x {
			t, err := tagOf(item)
			if err != nil {
				return err
			}
			if t != elem {
				return fmt.Errorf("nbt: list index %d has tag %d, want %d", i, t, elem)
			}
			if err := e.payload(item, depth+1); err != nil {
				return err
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t, err := tagOf(x[k])
			if err != nil {
				return fmt.Errorf("nbt: tag %q: %w", k, err)
			}
			e.u8(t)
			if err := e.str(k); err != nil {
				return err
			}
			if err := e.payload(x[k], depth+1); err != nil {
				return err
			}
		}
		e.u8(TagEnd)
	case []int32:
		e.u32(uint32(len(x)))
		for _, n := range x {
			e.u32(uint32(n))
		}
	case []int64:
		e.u32(uint32(len(x)))
		for _, n := range x {
			e.u64(uint64(n))
		}
	default:
		return fmt.Errorf("nbt: unsupported value type %T", v)
	}
	return nil
}
