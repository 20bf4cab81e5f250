package pagination

import (
	"encoding/json"
	"math"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestSliceThirdPageOfTwelve(t *testing.T) {
	p := Slice(seq(12), Params{PageNumber: 3, PageSize: 5})
	if len(p.Items) != 2 || p.Items[0] != 11 || p.Items[1] != 12 {
		t.Fatalf("items = %v, want [11 12]", p.Items)
	}
	if p.TotalPages != 3 {
		t.Fatalf("total pages = %d, want 3", p.TotalPages)
	}
	if p.HasNextPage {
		t.Fatal("last page reports a next page")
	}
	if !p.HasPreviousPage {
		t.Fatal("third page reports no previous page")
	}
	if p.TotalCount != 12 {
		t.Fatalf("total count = %d, want 12", p.TotalCount)
	}
}

func TestSliceRoundTrip(t *testing.T) {
	for _, tc := range []struct{ n, size int }{{0, 5}, {1, 5}, {12, 5}, {15, 5}, {49, 7}, {100, 50}} {
		all := seq(tc.n)
		first := Slice(all, Params{PageNumber: 1, PageSize: tc.size})
		var got []int
		for page := 1; page <= first.TotalPages; page++ {
			p := Slice(all, Params{PageNumber: page, PageSize: tc.size})
			got = append(got, p.Items...)
			if page == first.TotalPages {
				want := tc.n % tc.size
				if want == 0 {
					want = tc.size
				}
				if len(p.Items) != want {
					t.Fatalf("n=%d size=%d: last page has %d items, want %d", tc.n, tc.size, len(p.Items), want)
				}
			}
		}
		if len(got) != tc.n {
			t.Fatalf("n=%d size=%d: concatenated %d items", tc.n, tc.size, len(got))
		}
		for i, v := range got {
			if v != i+1 {
				t.Fatalf("n=%d size=%d: item %d = %d, want %d", tc.n, tc.size, i, v, i+1)
			}
		}
	}
}

func TestSliceBeyondLastPage(t *testing.T) {
	p := Slice(seq(3), Params{PageNumber: 9, PageSize: 2})
	if len(p.Items) != 0 {
		t.Fatalf("items = %v, want none", p.Items)
	}
	if p.Items == nil {
		t.Fatal("items must be an empty slice, not nil")
	}
	if p.TotalPages != 2 || p.HasNextPage || !p.HasPreviousPage {
		t.Fatalf("unexpected metadata %+v", p)
	}
}

func TestParamsNormalize(t *testing.T) {
	p := Params{}.Normalize()
	if p.PageNumber != DefaultPageNumber || p.PageSize != DefaultPageSize {
		t.Fatalf("defaults = %+v", p)
	}
	p = Params{PageNumber: 2, PageSize: 500}.Normalize()
	if p.PageSize != MaxPageSize {
		t.Fatalf("page size = %d, want cap %d", p.PageSize, MaxPageSize)
	}
	if off := (Params{PageNumber: 3, PageSize: 5}).Offset(); off != 10 {
		t.Fatalf("offset = %d, want 10", off)
	}
}

func TestHeader(t *testing.T) {
	p := New([]string{"a"}, 11, Params{PageNumber: 2, PageSize: 5})
	var m map[string]any
	if err := json.Unmarshal([]byte(p.Header()), &m); err != nil {
		t.Fatalf("header is not JSON: %v", err)
	}
	if m["TotalPages"].(float64) != 3 || m["HasNextPage"] != true || m["HasPreviousPage"] != true {
		t.Fatalf("unexpected header %v", m)
	}
}

func TestHugePageNumberIsAnEmptyPage(t *testing.T) {
	params := Params{PageNumber: math.MaxInt, PageSize: 10}
	if off := params.Offset(); off < 0 {
		t.Fatalf("offset = %d, want non-negative", off)
	}
	if n := params.Normalize().PageNumber; n != MaxPageNumber {
		t.Fatalf("page number = %d, want %d", n, MaxPageNumber)
	}

	p := Slice(seq(12), params)
	if len(p.Items) != 0 || p.Items == nil {
		t.Fatalf("items = %v, want an empty page", p.Items)
	}
	if p.TotalCount != 12 || p.TotalPages != 2 || p.HasNextPage || !p.HasPreviousPage {
		t.Fatalf("unexpected metadata %+v", p)
	}
}
