package naming

import (
	"testing"
)

var testReforges = []string{"Heroic", "Fabled", "Withered", "Ancient", "Spiritual", "Perfect"}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(testReforges)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hyperion", "Hyperion"},
		{"glyphs and whitespace", "  Hyperion ✪✪✪✪➎ ", "Hyperion"},
		{"single reforge", "Heroic Hyperion", "Hyperion"},
		{"reforge run", "Withered Fabled Livid Dagger", "Livid Dagger"},
		{"reforge only leading", "Livid Heroic Dagger", "Livid Heroic Dagger"},
		{"collapses spaces", "Fabled   Giant's   Sword", "Giant's Sword"},
		{"armor hyphen", "Helmet - 123", "Perfect Helmet - 123"},
		{"armor without hyphen", "Helmet of Foo", "Helmet of Foo"},
		{"armor hyphen at boundary", "Boots-X", "Perfect Boots-X"},
		{"armor after reforge", "Ancient Chestplate - Tier XII", "Perfect Chestplate - Tier XII"},
		{"hyphen but not armor", "Aspect of the End - Rare", "Aspect of the End - Rare"},
		{"all reforges", "Heroic Fabled", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Errorf("%s: Normalize(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestNormalizeHyphenIndexCountsRunes(t *testing.T) {
	n := NewNormalizer([]string{"ÑéÑ-x", "Ñ-x"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		// '-' sits at byte 6 but rune 3.
		{"multibyte before hyphen", "ÑéÑ-x Boots", "Boots"},
		// Glyphs are stripped before counting.
		{"glyphs before hyphen", "✪✪✪Ñ-x Boots", "Boots"},
		{"hyphen at rune five", "ÑéÑ-x Boots-1", "Perfect Boots-1"},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Errorf("%s: Normalize(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(testReforges)
	samples := []string{
		"Heroic Hyperion ✪✪✪✪✪",
		"Helmet - 123",
		"Perfect Leggings - Tier V",
		"Spiritual Juju Shortbow ➊",
		"Leggings  -  7",
		"  Fabled  ",
		"Boots of the Rising Sun",
	}
	for _, s := range samples {
		once := n.Normalize(s)
		if twice := n.Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", s, twice, once)
		}
	}
}

func TestNormalizeNoReforges(t *testing.T) {
	n := NewNormalizer(nil)
	if got := n.Normalize("Heroic Hyperion"); got != "Heroic Hyperion" {
		t.Errorf("Normalize = %q, want unchanged", got)
	}
}

func TestSnapshotLoad(t *testing.T) {
	src := NewNormalizer(testReforges)
	src.Normalize("Heroic Hyperion")
	src.Normalize("Helmet - 1")

	data, err := src.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	dst := NewNormalizer(testReforges)
	if err := dst.Load(data); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if dst.Len() != 2 {
		t.Fatalf("Len = %d, want 2", dst.Len())
	}
	if got := dst.Normalize("Heroic Hyperion"); got != "Hyperion" {
		t.Errorf("Normalize after Load = %q, want %q", got, "Hyperion")
	}

	if err := dst.Load([]byte("not json")); err == nil {
		t.Error("Load accepted malformed input")
	}
}

func TestLoadRecomputesWithCurrentReforges(t *testing.T) {
	dst := NewNormalizer([]string{"Heroic"})
	if err := dst.Load([]byte(`{"Heroic Hyperion":"Heroic Hyperion"}`)); err != nil {
		t.Fatal(err)
	}
	if got := dst.Normalize("Heroic Hyperion"); got != "Hyperion" {
		t.Errorf("Normalize = %q, want %q", got, "Hyperion")
	}
}
