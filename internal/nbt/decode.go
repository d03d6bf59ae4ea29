package nbt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Unmarshal parses data as the body of an implicit root compound: a
// sequence of named tags terminated by TagEnd or the end of input. A
// standard file (a single named root compound) therefore decodes to a map
// with one key, the root name.
func Unmarshal(data []byte) (map[string]any, error) {
	d := &decoder{buf: data}
	out := make(map[string]any)
	for d.off < len(d.buf) {
		typ, err := d.u8()
		if err != nil {
			return nil, err
		}
		if typ == TagEnd {
			break
		}
		name, err := d.str()
		if err != nil {
			return nil, err
		}
		v, err := d.payload(typ, 0)
		if err != nil {
			return nil, fmt.Errorf("nbt: tag %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrBadLength
	}
	if len(d.buf)-d.off < n {
		return nil, ErrTruncated
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) u8() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return decodeMUTF8(b), nil
}

// length reads a signed 32-bit element count and rejects counts that cannot
// fit in the remaining input given the element width.
func (d *decoder) length(width int) (int, error) {
	u, err := d.u32()
	if err != nil {
		return 0, err
	}
	n := int(int32(u))
	if n < 0 {
		return 0, ErrBadLength
	}
	if width > 0 && n > (len(d.buf)-d.off)/width {
		return 0, ErrTruncated
	}
	return n, nil
}

func (d *decoder) payload(typ byte, depth int) (any, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}
	switch typ {
	case TagByte:
		b, err := d.u8()
		return int8(b), err
	case TagShort:
		v, err := d.u16()
		return int16(v), err
	case TagInt:
		v, err := d.u32()
		return int32(v), err
	case TagLong:
		v, err := d.u64()
		return int64(v), err
	case TagFloat:
		v, err := d.u32()
		return math.Float32frombits(v), err
	case TagDouble:
		v, err := d.u64()
		return math.Float64frombits(v), err
	case TagByteArray:
		n, err := d.length(1)
		if err != nil {
			return nil, err
		}
		b, err := d.take(n)
		if err != nil {
			return nil, err
		}
		out := make([]byte, n)
		copy(out, b)
		return out, nil
	case TagString:
		return d.str()
	case TagList:
		elem, err := d.u8()
		if err != nil {
			return nil, err
		}
		if elem == TagEnd {
			// End-typed lists carry no payload, so only an empty one is valid.
			n, err := d.length(0)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				return nil, ErrBadLength
			}
			return []any{}, nil
		}
		n, err := d.length(1)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := d.payload(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case TagCompound:
		out := make(map[string]any)
		for {
			t, err := d.u8()
			if err != nil {
				return nil, err
			}
			if t == TagEnd {
				return out, nil
			}
			name, err := d.str()
			if err != nil {
				return nil, err
			}
			v, err := d.payload(t, depth+1)
			if err != nil {
				return nil, fmt.Errorf("tag %q: %w", name, err)
			}
			out[name] = v
		}
	case TagIntArray:
		n, err := d.length(4)
		if err != nil {
			return nil, err
		}
		out := make([]int32, n)
		for i := range out {
			v, err := d.u32()
			if err != nil {
				return nil, err
			}
			out[i] = int32(v)
		}
		return out, nil
	case TagLongArray:
		n, err := d.length(8)
		if err != nil {
			return nil, err
		}
		out := make([]int64, n)
		for i := range out {
			v, err := d.u64()
			if err != nil {
				return nil, err
			}
			out[i] = int64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, typ)
	}
}
