package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hazyhaar/alphasearch/pkg/index"
)

func numberedCorpus(t *testing.T, n int) *fakeIndex {
	t.Helper()
	var cs []company
	for i := 0; i < n; i++ {
		cs = append(cs, company{fmt.Sprintf("COMPANY %02d LTD", i), fmt.Sprintf("%08d", i)})
	}
	return fakeCorpus(t, cs...)
}

func assembleAt(t *testing.T, f *fakeIndex, i int) (*Window, error) {
	t.Helper()
	hit := f.entries[i].hit
	anchor, err := MapHit(hit)
	if err != nil {
		t.Fatalf("MapHit: %v", err)
	}
	return NewAssembler(f).Assemble(context.Background(), TypeAlphabetical, anchor, hit.Key)
}

func anchorPosition(w *Window) int {
	for i, r := range w.Results {
		if r.CorporateName == w.BestMatchName {
			return i
		}
	}
	return -1
}

func TestAssemble_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		anchor    int
		wantRows  int
		wantIndex int
	}{
		{"middle", 25, MaxRows, RowsAbove},
		{"corpus head", 0, 1 + RowsBelow, 0},
		{"near head", 3, 3 + 1 + RowsBelow, 3},
		{"corpus tail", 49, RowsAbove + 1, RowsAbove},
		{"near tail", 45, RowsAbove + 1 + 4, RowsAbove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := numberedCorpus(t, 50)
			w, err := assembleAt(t, f, tt.anchor)
			if err != nil {
				t.Fatal(err)
			}
			if len(w.Results) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(w.Results), tt.wantRows)
			}
			if got := anchorPosition(w); got != tt.wantIndex {
				t.Errorf("anchor at %d, want %d", got, tt.wantIndex)
			}
			if w.BestMatchName != fmt.Sprintf("COMPANY %02d LTD", tt.anchor) {
				t.Errorf("best match = %q", w.BestMatchName)
			}
			if w.SearchType != TypeAlphabetical {
				t.Errorf("search type = %q", w.SearchType)
			}
			assertAscending(t, w.Results)
		})
	}
}

func TestAssemble_FetchesBothSides(t *testing.T) {
	f := numberedCorpus(t, 5)
	if _, err := assembleAt(t, f, 2); err != nil {
		t.Fatal(err)
	}
	if f.callCount(index.OpAbove) != 1 || f.callCount(index.OpBelow) != 1 {
		t.Errorf("calls = %v", f.calls)
	}
}

func TestAssemble_AnchorNeverDuplicated(t *testing.T) {
	f := numberedCorpus(t, 30)
	f.inclusive = true

	w, err := assembleAt(t, f, 15)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]int{}
	for _, r := range w.Results {
		seen[r.OrderedAlphaKeyWithID]++
	}
	for k, n := range seen {
		if n > 1 {
			t.Errorf("%q appears %d times", k, n)
		}
	}
	// dropping the pivot from an inclusive range costs one row on each side
	if len(w.Results) != RowsAbove-1+1+RowsBelow-1 {
		t.Errorf("rows = %d", len(w.Results))
	}
	assertAscending(t, w.Results)
}

func TestAssemble_SingleEntryCorpus(t *testing.T) {
	f := numberedCorpus(t, 1)
	w, err := assembleAt(t, f, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Results) != 1 {
		t.Errorf("rows = %v", names(w.Results))
	}
}

func TestAssemble_Failures(t *testing.T) {
	t.Run("index unavailable", func(t *testing.T) {
		f := numberedCorpus(t, 20)
		f.failOn = index.OpBelow
		w, err := assembleAt(t, f, 10)
		if !errors.Is(err, index.ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
		if w != nil {
			t.Error("window returned alongside error")
		}
	})

	t.Run("corrupt neighbour", func(t *testing.T) {
		f := numberedCorpus(t, 5)
		f.add("company02", "company02:zz", `{"ID":"broken"}`)
		w, err := assembleAt(t, f, 0)
		var me *MappingError
		if !errors.As(err, &me) {
			t.Fatalf("err = %v, want *MappingError", err)
		}
		if me.Key != "company02:zz" {
			t.Errorf("key = %q", me.Key)
		}
		if w != nil {
			t.Error("window returned alongside error")
		}
	})
}
