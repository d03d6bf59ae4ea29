package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coins is a coin amount. In TOML it may be an integer or a string with
// thousands separators such as "1,000,000".
type Coins int64

// ParseCoins parses s, ignoring commas, underscores and surrounding space.
func ParseCoins(s string) (Coins, error) {
	clean := strings.NewReplacer(",", "", "_", "", " ", "").Replace(strings.TrimSpace(s))
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid coin amount %q", s)
	}
	return Coins(n), nil
}

// UnmarshalTOML implements toml.Unmarshaler.
func (c *Coins) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case int64:
		*c = Coins(t)
	case float64:
		if t != math.Trunc(t) || t > math.MaxInt64 || t < math.MinInt64 {
			return fmt.Errorf("config: coin amount %v is not a whole number", t)
		}
		*c = Coins(t)
	case string:
		n, err := ParseCoins(t)
		if err != nil {
			return err
		}
		*c = n
	default:
		return fmt.Errorf("config: unsupported coin amount type %T", v)
	}
	return nil
}

// UnmarshalText parses the textual form used by environment overrides.
func (c *Coins) UnmarshalText(text []byte) error {
	n, err := ParseCoins(string(text))
	if err != nil {
		return err
	}
	*c = n
	return nil
}

// MarshalText renders the amount as a plain integer.
func (c Coins) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(c), 10)), nil
}
