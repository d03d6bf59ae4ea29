package coflnet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAverageDailyVolume(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    float64
		wantNil bool
	}{
		{"average", http.StatusOK, `[{"volume":10,"min":1},{"volume":20},{"volume":30}]`, 20, false},
		{"empty history", http.StatusOK, `[]`, 0, false},
		{"missing volume field", http.StatusOK, `[{"min":5},{"volume":4}]`, 2, false},
		{"unknown item", http.StatusNotFound, `{}`, 0, false},
		{"bad request", http.StatusBadRequest, `{}`, 0, false},
		{"rate limited", http.StatusTooManyRequests, ``, 0, true},
		{"server error", http.StatusBadGateway, ``, 0, true},
		{"malformed", http.StatusOK, `{"volume":1}`, 0, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/item/price/HYPERION/history/day" {
				t.Errorf("%s: path = %s", tt.name, r.URL.Path)
			}
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		}))

		got, err := NewClient(srv.URL, time.Second).AverageDailyVolume(context.Background(), "HYPERION")
		srv.Close()

		if tt.wantNil {
			if got != nil || err == nil {
				t.Errorf("%s: got (%v, %v), want (nil, error)", tt.name, got, err)
			}
			continue
		}
		if err != nil || got == nil {
			t.Errorf("%s: got (%v, %v), want %v", tt.name, got, err, tt.want)
			continue
		}
		if *got != tt.want {
			t.Errorf("%s: volume = %v, want %v", tt.name, *got, tt.want)
		}
	}
}

func TestAverageDailyVolumeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	got, err := NewClient(url, time.Second).AverageDailyVolume(context.Background(), "X")
	if got != nil || err == nil {
		t.Errorf("got (%v, %v), want (nil, error)", got, err)
	}
}

func TestAverageDailyVolumeEscapesIdentifier(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, time.Second).AverageDailyVolume(context.Background(), "UNKNOWN::Old Sword"); err != nil {
		t.Fatal(err)
	}
	if want := "/api/item/price/UNKNOWN::Old%20Sword/history/day"; gotPath != want {
		t.Errorf("path = %s, want %s", gotPath, want)
	}
}
