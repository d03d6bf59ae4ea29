package itemdecode

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/klauspost/compress/gzip"

	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/nbt"
)

// Encode reverses Decode: it lays item out in the payload tree, NBT encodes
// it, gzips and base64 encodes the result. Nil fields are omitted.
func Encode(item domain.DecodedItem) (string, error) {
	descriptor := map[string]any{}
	if item.ItemTypeID != nil {
		descriptor["id"] = int16(*item.ItemTypeID)
	}
	if item.RawCount != nil {
		descriptor["Count"] = int8(*item.RawCount)
	}
	if item.RawDamage != nil {
		descriptor["Damage"] = int16(*item.RawDamage)
	}

	display := map[string]any{}
	if item.DisplayName != nil {
		display["Name"] = *item.DisplayName
	}
	if item.Lore != nil {
		lore := make([]any, len(item.Lore))
		for i, l := range item.Lore {
			lore[i] = l
		}
		display["Lore"] = lore
	}

	extra := map[string]any{}
	if item.CanonicalID != nil {
		extra["id"] = *item.CanonicalID
	}
	if item.ExtendedUUID != nil {
		extra["uuid"] = *item.ExtendedUUID
	}
	if item.Timestamp != nil {
		extra["timestamp"] = *item.Timestamp
	}

	descriptor["tag"] = map[string]any{
		"display":         display,
		"ExtraAttributes": extra,
	}

	return EncodeTree(map[string]any{"i": []any{descriptor}})
}

// EncodeTree compresses and base64 encodes an arbitrary root compound.
func EncodeTree(root map[string]any) (string, error) {
	data, err := nbt.Marshal("", root)
	if err != nil {
		return "", fmt.Errorf("itemdecode: encode tree: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("itemdecode: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("itemdecode: compress: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
