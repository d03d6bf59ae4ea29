package domain

// DecodedItem is the flat record extracted from an item payload. Pointer
// fields are nil when the payload did not carry the value; CanonicalID nil
// means the payload is treated as unresolved.
type DecodedItem struct {
	ItemTypeID   *int     `json:"id"`
	RawCount     *int     `json:"count"`
	RawDamage    *int     `json:"damage"`
	DisplayName  *string  `json:"name"`
	Lore         []string `json:"lore,omitempty"`
	CanonicalID  *string  `json:"skyblock_id"`
	ExtendedUUID *string  `json:"uuid"`
	Timestamp    *string  `json:"timestamp"`
}
