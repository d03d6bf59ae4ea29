package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultReforges is used when neither flip.reforges nor
// flip.reforges_file supplies any tokens.
var DefaultReforges = []string{
	"Gentle", "Odd", "Fast", "Fair", "Epic", "Sharp", "Heroic", "Spicy",
	"Legendary", "Dirty", "Fabled", "Suspicious", "Gilded", "Warped",
	"Withered", "Bulky", "Fanged", "Deadly", "Fine", "Grand", "Hasty", "Neat",
	"Rapid", "Unreal", "Awkward", "Rich", "Precise", "Spiritual", "Headstrong",
	"Clean", "Fierce", "Heavy", "Light", "Mythic", "Pure", "Smart", "Titanic",
	"Wise", "Perfect", "Necrotic", "Ancient", "Spiked", "Renowned", "Cubic",
	"Reinforced", "Loving", "Ridiculous", "Empowered", "Giant", "Submerged",
	"Jaded", "Bizarre", "Itchy", "Ominous", "Pleasant", "Pretty", "Shiny",
	"Simple", "Strange", "Vivid", "Godly", "Demonic", "Forceful", "Hurtful",
	"Keen", "Strong", "Superior", "Unpleasant", "Zealous", "Silky", "Bloody",
	"Shaded", "Sweet", "Moil", "Toil", "Blessed", "Bountiful", "Magnetic",
	"Fruitful", "Refined", "Stellar", "Mithraic", "Auspicious", "Fleet",
	"Heated", "Ambered", "Undead", "Salty", "Treacherous", "Lucky", "Stiff",
	"Chomp", "Pitchin", "Lush", "Glistening", "Strengthened", "Waxed",
	"Fortified", "Rooted", "Blooming", "Earthy", "Squeaky", "Festive",
	"Snowy", "Hyper", "Coldfused", "Mossy", "Stained", "Bustling", "Robust",
	"Zooming", "Peasant",
}

// reforgeFile is the object form of a reforges file.
type reforgeFile struct {
	Reforges []string `yaml:"Reforges"`
}

// LoadReforges reads reforge tokens from a JSON or YAML file shaped either
// as {"Reforges": [...]} or as a bare list.
func LoadReforges(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read reforges file: %w", err)
	}
	return parseReforges(data)
}

func parseReforges(data []byte) ([]string, error) {
	var obj reforgeFile
	if err := yaml.Unmarshal(data, &obj); err == nil && obj.Reforges != nil {
		return cleanTokens(obj.Reforges), nil
	}
	var list []string
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("config: parse reforges file: %w", err)
	}
	return cleanTokens(list), nil
}

// cleanTokens trims tokens and drops blanks and duplicates, keeping order.
func cleanTokens(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
