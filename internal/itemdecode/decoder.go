// Package itemdecode turns a listing's item payload (base64 of a gzip
// compressed NBT tree) into a flat domain.DecodedItem.
package itemdecode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/nbt"
)

// Decode stages reported by DecodeError.
const (
	StageBase64  = "base64"
	StageInflate = "inflate"
	StageParse   = "parse"
	StageShape   = "shape"
)

// defaultMaxInflated caps the decompressed size of one payload. Real item
// trees are a few KiB.
const defaultMaxInflated = 1 << 20

// DecodeError reports which stage of the pipeline rejected a payload.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("itemdecode: %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Stage returns the failing stage of err, or "" when err is not a
// DecodeError.
func Stage(err error) string {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Stage
	}
	return ""
}

// Decoder is stateless; one value may be shared by any number of goroutines.
type Decoder struct {
	maxInflated int64
}

// New returns a Decoder with the default inflate limit.
func New() *Decoder {
	return &Decoder{maxInflated: defaultMaxInflated}
}

// Decode runs the full pipeline on payload. A payload whose tree lacks the
// item descriptor path fails with StageShape; a descriptor without an
// extended id decodes successfully with a nil CanonicalID.
func (d *Decoder) Decode(payload string) (domain.DecodedItem, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return domain.DecodedItem{}, &DecodeError{Stage: StageBase64, Err: err}
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return domain.DecodedItem{}, &DecodeError{Stage: StageInflate, Err: err}
	}
	defer zr.Close()

	inflated, err := io.ReadAll(io.LimitReader(zr, d.maxInflated+1))
	if err != nil {
		return domain.DecodedItem{}, &DecodeError{Stage: StageInflate, Err: err}
	}
	if int64(len(inflated)) > d.maxInflated {
		return domain.DecodedItem{}, &DecodeError{
			Stage: StageInflate,
			Err:   fmt.Errorf("inflated payload exceeds %d bytes", d.maxInflated),
		}
	}

	tree, err := nbt.Unmarshal(inflated)
	if err != nil {
		return domain.DecodedItem{}, &DecodeError{Stage: StageParse, Err: err}
	}

	return extract(tree)
}

// extract descends root[""]["i"][0] and reads the display and
// ExtraAttributes compounds beneath its "tag".
func extract(tree map[string]any) (domain.DecodedItem, error) {
	root, ok := tree[""].(map[string]any)
	if !ok {
		return domain.DecodedItem{}, shapeErr(`missing root compound ""`)
	}
	items, ok := root["i"].([]any)
	if !ok {
		return domain.DecodedItem{}, shapeErr(`missing item list "i"`)
	}
	if len(items) == 0 {
		return domain.DecodedItem{}, shapeErr("empty item list")
	}
	item, ok := items[0].(map[string]any)
	if !ok {
		return domain.DecodedItem{}, shapeErr("item descriptor is not a compound")
	}

	tag := compound(item, "tag")
	display := compound(tag, "display")
	extra := compound(tag, "ExtraAttributes")

	return domain.DecodedItem{
		ItemTypeID:   intField(item, "id"),
		RawCount:     intField(item, "Count"),
		RawDamage:    intField(item, "Damage"),
		DisplayName:  stringField(display, "Name"),
		Lore:         stringList(display, "Lore"),
		CanonicalID:  stringField(extra, "id"),
		ExtendedUUID: stringField(extra, "uuid"),
		Timestamp:    scalarString(extra, "timestamp"),
	}, nil
}

func shapeErr(msg string) error {
	return &DecodeError{Stage: StageShape, Err: errors.New(msg)}
}

func compound(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	c, _ := m[key].(map[string]any)
	return c
}

func intField(m map[string]any, key string) *int {
	var n int
	switch v := m[key].(type) {
	case int8:
		n = int(v)
	case int16:
		n = int(v)
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	default:
		return nil
	}
	return &n
}

func stringField(m map[string]any, key string) *string {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// scalarString renders string or integer values; timestamps appear as
// either depending on when the item was created.
func scalarString(m map[string]any, key string) *string {
	if s := stringField(m, key); s != nil {
		return s
	}
	if n := intField(m, key); n != nil {
		s := strconv.Itoa(*n)
		return &s
	}
	return nil
}

func stringList(m map[string]any, key string) []string {
	list, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
