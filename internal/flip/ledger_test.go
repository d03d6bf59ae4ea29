package flip

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestLedgerFIFOEviction(t *testing.T) {
	const capacity = 5
	l := NewLedger(capacity)
	for i := 0; i <= capacity; i++ {
		l.MarkReported(fmt.Sprintf("id-%d", i))
	}

	if !l.ShouldReport("id-0") {
		t.Error("first-inserted id was not evicted")
	}
	for i := 1; i <= capacity; i++ {
		if l.ShouldReport(fmt.Sprintf("id-%d", i)) {
			t.Errorf("id-%d evicted, want retained", i)
		}
	}
	if l.Len() != capacity {
		t.Errorf("Len = %d, want %d", l.Len(), capacity)
	}
}

func TestLedgerRemarkDoesNotRefresh(t *testing.T) {
	l := NewLedger(3)
	l.MarkReported("a")
	l.MarkReported("b")
	l.MarkReported("c")

	l.ShouldReport("a")
	l.MarkReported("a")
	l.MarkReported("d")

	if !l.ShouldReport("a") {
		t.Error("re-marked id kept its slot; want strict FIFO eviction")
	}
	want := []string{"b", "c", "d"}
	if got := l.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}
}

func TestLedgerSnapshotLoad(t *testing.T) {
	src := NewLedger(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		src.MarkReported(id)
	}
	data, err := src.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["b","c","d"]` {
		t.Errorf("Snapshot = %s", data)
	}

	dst := NewLedger(3)
	if err := dst.Load(data); err != nil {
		t.Fatal(err)
	}
	dst.MarkReported("e")
	if want := []string{"c", "d", "e"}; !reflect.DeepEqual(dst.IDs(), want) {
		t.Errorf("IDs = %v, want %v", dst.IDs(), want)
	}

	if err := dst.Load([]byte(`{"not":"a list"}`)); err == nil {
		t.Error("Load accepted an object")
	}
}

func TestLedgerLoadIntoSmallerCapacity(t *testing.T) {
	l := NewLedger(2)
	if err := l.Load([]byte(`["a","b","c"]`)); err != nil {
		t.Fatal(err)
	}
	if want := []string{"b", "c"}; !reflect.DeepEqual(l.IDs(), want) {
		t.Errorf("IDs = %v, want %v", l.IDs(), want)
	}
}

func TestLedgerConcurrent(t *testing.T) {
	l := NewLedger(100)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("%d-%d", w, i)
				if l.ShouldReport(id) {
					l.MarkReported(id)
				}
			}
		}(w)
	}
	wg.Wait()
	if l.Len() != 100 {
		t.Errorf("Len = %d, want 100", l.Len())
	}
}
