package itemdecode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/nbt"
)

// glaciteHelmet is a payload captured from the live auction feed.
const glaciteHelmet = "H4sIAAAAAAAA/01RzU7bQBCehFASS9DSA/RULRIHUJRiwPmBGw1OghQQUiIuCKGNPXZXrNfRehfRN+gLVEJ9gfQCZ855FB4EMQ4IuH37/cw3q3EAKlAQDgAUilAUIdwXYL6dWmUKDswZHs9BpSdC7EgeZ+R6cmAhFNlY8t8VKPVTjWViF+HrdNI8xAhVhvtsOuHVpgsrxA21RfZBiKp1WCX+WCihYjYYI4Y536huu/DtXeik2liFL1IdvpDy5o1y73cCrXOiHx/+Erp4fbYeb2/zJy21QdGOlZIN0LCfqbLZPvNvxqgNoxLUlGhuuFveJtQIdTVXJpvV7dBI9nHB3Em5V2625uBK0GSJ1yiZVTINrjD8QaW5lfqHv0TGhMGEBVyxETKNUapjDNdgeTqpTyfSPz1qs57fP/aHZSid8ARnSlfygHKshzJBAw589m+M5gfGaDGyBrPy7EpL3f5B+2joX75NsJbo9agVBPVgd7fmNoJRzQsJ7UXIa5EXeN5eY9sdNcMSVIxIMDM8GdPZ//3/c3YHUIRPhzzhMdIn4BnIpiTBFwIAAA=="

func ptr[T any](v T) *T { return &v }

func TestDecodeCapturedPayload(t *testing.T) {
	item, err := New().Decode(glaciteHelmet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	checks := []struct {
		field string
		got   any
		want  any
	}{
		{"CanonicalID", deref(item.CanonicalID), "GLACITE_HELMET"},
		{"DisplayName", deref(item.DisplayName), "§5Glacite Helmet"},
		{"ExtendedUUID", deref(item.ExtendedUUID), "f8cc5c33-06cb-4d33-9fea-f4c449610b7d"},
		{"Timestamp", deref(item.Timestamp), "1763764098733"},
		{"ItemTypeID", derefInt(item.ItemTypeID), 174},
		{"RawCount", derefInt(item.RawCount), 1},
		{"RawDamage", derefInt(item.RawDamage), 0},
		{"len(Lore)", len(item.Lore), 13},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.field, c.got, c.want)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	tests := []domain.DecodedItem{
		{
			ItemTypeID:   ptr(276),
			RawCount:     ptr(1),
			RawDamage:    ptr(3),
			DisplayName:  ptr("§dHeroic Hyperion ✪✪✪✪✪"),
			Lore:         []string{"§7Gear Score: §d1058", ""},
			CanonicalID:  ptr("HYPERION"),
			ExtendedUUID: ptr("0b7c1f1e-92a3-4e9a-9b71-0c9c6f0a1a2b"),
			Timestamp:    ptr("1/2/21 3:04 PM"),
		},
		{
			DisplayName: ptr("Enchanted Book"),
			CanonicalID: ptr("ENCHANTED_BOOK"),
		},
	}
	for _, want := range tests {
		payload, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := New().Decode(payload)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if deref(got.CanonicalID) != deref(want.CanonicalID) {
			t.Errorf("CanonicalID = %q, want %q", deref(got.CanonicalID), deref(want.CanonicalID))
		}
		if deref(got.DisplayName) != deref(want.DisplayName) {
			t.Errorf("DisplayName = %q, want %q", deref(got.DisplayName), deref(want.DisplayName))
		}
		if deref(got.Timestamp) != deref(want.Timestamp) {
			t.Errorf("Timestamp = %q, want %q", deref(got.Timestamp), deref(want.Timestamp))
		}
		if derefInt(got.RawDamage) != derefInt(want.RawDamage) {
			t.Errorf("RawDamage = %d, want %d", derefInt(got.RawDamage), derefInt(want.RawDamage))
		}
		if len(got.Lore) != len(want.Lore) {
			t.Errorf("len(Lore) = %d, want %d", len(got.Lore), len(want.Lore))
		}
	}
}

func TestDecodeMissingExtendedID(t *testing.T) {
	payload, err := Encode(domain.DecodedItem{DisplayName: ptr("Stick")})
	if err != nil {
		t.Fatal(err)
	}
	item, err := New().Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if item.CanonicalID != nil {
		t.Errorf("CanonicalID = %q, want nil", *item.CanonicalID)
	}
}

func gzipBase64(t *testing.T, data []byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeStages(t *testing.T) {
	noItems, err := EncodeTree(map[string]any{"x": int32(1)})
	if err != nil {
		t.Fatal(err)
	}
	emptyItems, err := EncodeTree(map[string]any{"i": []any{}})
	if err != nil {
		t.Fatal(err)
	}
	wrongShape, err := EncodeTree(map[string]any{"i": []any{"not a compound"}})
	if err != nil {
		t.Fatal(err)
	}
	otherRoot, err := nbt.Marshal("named", map[string]any{"i": []any{map[string]any{}}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"not base64", "%%%not-base64%%%", StageBase64},
		{"not gzip", base64.StdEncoding.EncodeToString([]byte("plain bytes")), StageInflate},
		{"gzip garbage", gzipBase64(t, []byte{0x63, 0x00}), StageParse},
		{"no item list", noItems, StageShape},
		{"empty item list", emptyItems, StageShape},
		{"item not compound", wrongShape, StageShape},
		{"root not empty-named", gzipBase64(t, otherRoot), StageShape},
	}
	for _, tt := range tests {
		_, err := New().Decode(tt.payload)
		if err == nil {
			t.Errorf("%s: Decode succeeded, want %s failure", tt.name, tt.want)
			continue
		}
		if got := Stage(err); got != tt.want {
			t.Errorf("%s: stage = %q, want %q (err=%v)", tt.name, got, tt.want, err)
		}
	}
}

func TestDecodeInflateLimit(t *testing.T) {
	big := bytes.Repeat([]byte{0}, 4096)
	d := &Decoder{maxInflated: 1024}
	_, err := d.Decode(gzipBase64(t, big))
	if Stage(err) != StageInflate {
		t.Errorf("stage = %q, want %q", Stage(err), StageInflate)
	}
}

func TestDecodeConcurrent(t *testing.T) {
	d := New()
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := d.Decode(glaciteHelmet)
			if err != nil {
				errs <- err
				return
			}
			if deref(item.CanonicalID) != "GLACITE_HELMET" {
				errs <- fmt.Errorf("CanonicalID = %q", deref(item.CanonicalID))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent decode: %v", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return -1
	}
	return *n
}
