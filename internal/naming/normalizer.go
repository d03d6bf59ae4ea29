// Package naming canonicalizes marketplace display names so that cosmetic
// variants of one item share a grouping key.
package naming

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// decorativeGlyphs are star and rarity markers appended to display names.
const decorativeGlyphs = "✪✿⚚✦➊➋➌➍➎"

var armorSlots = []string{"Helmet", "Chestplate", "Leggings", "Boots"}

// perfectHyphenIndex is the first rune position at which a hyphen marks a
// tiered armor piece.
const perfectHyphenIndex = 5

// Normalizer strips decorations and leading reforge tokens from display
// names. Results are memoized for the life of the value.
type Normalizer struct {
	reforges map[string]struct{}
	glyphs   *strings.Replacer

	mu   sync.RWMutex
	memo map[string]string
}

// NewNormalizer builds a Normalizer for the given reforge tokens.
func NewNormalizer(reforges []string) *Normalizer {
	set := make(map[string]struct{}, len(reforges))
	for _, r := range reforges {
		if r = strings.TrimSpace(r); r != "" {
			set[r] = struct{}{}
		}
	}
	pairs := make([]string, 0, 2*len(decorativeGlyphs))
	for _, g := range decorativeGlyphs {
		pairs = append(pairs, string(g), "")
	}
	return &Normalizer{
		reforges: set,
		glyphs:   strings.NewReplacer(pairs...),
		memo:     make(map[string]string),
	}
}

// Normalize returns the canonical form of raw.
func (n *Normalizer) Normalize(raw string) string {
	n.mu.RLock()
	out, ok := n.memo[raw]
	n.mu.RUnlock()
	if ok {
		return out
	}

	out = n.normalize(raw)

	n.mu.Lock()
	n.memo[raw] = out
	n.mu.Unlock()
	return out
}

func (n *Normalizer) normalize(raw string) string {
	trimmed := strings.TrimSpace(n.glyphs.Replace(raw))

	parts := strings.Fields(trimmed)
	i := 0
	for i < len(parts) {
		if _, ok := n.reforges[parts[i]]; !ok {
			break
		}
		i++
	}
	name := strings.Join(parts[i:], " ")

	if hasHyphenFrom(trimmed, perfectHyphenIndex) {
		for _, slot := range armorSlots {
			if strings.HasPrefix(name, slot) {
				return "Perfect " + name
			}
		}
	}
	return name
}

// hasHyphenFrom reports whether s holds '-' at rune index from or later.
func hasHyphenFrom(s string, from int) bool {
	idx := 0
	for _, r := range s {
		if idx >= from && r == '-' {
			return true
		}
		idx++
	}
	return false
}

// Len returns the number of memoized inputs.
func (n *Normalizer) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.memo)
}

// Snapshot serializes the memo table as a JSON object of raw -> normalized.
func (n *Normalizer) Snapshot() ([]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	data, err := json.Marshal(n.memo)
	if err != nil {
		return nil, fmt.Errorf("naming: snapshot: %w", err)
	}
	return data, nil
}

// Load merges a snapshot produced by Snapshot into the memo table. Entries
// are recomputed rather than trusted so that a changed reforge list takes
// effect on restart.
func (n *Normalizer) Load(data []byte) error {
	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("naming: load: %w", err)
	}
	fresh := make(map[string]string, len(stored))
	for raw := range stored {
		fresh[raw] = n.normalize(raw)
	}

	n.mu.Lock()
	for raw, out := range fresh {
		n.memo[raw] = out
	}
	n.mu.Unlock()
	return nil
}
