package model

import (
	"testing"
	"time"
)

func ts(minute int) time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).Add(time.Duration(minute) * time.Minute)
}

func TestOverlaps_Boundaries(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{"disjoint before", 0, 10, 20, 30, false},
		{"disjoint after", 20, 30, 0, 10, false},
		{"touching end-to-start", 0, 10, 10, 20, false},
		{"touching start-to-end", 10, 20, 0, 10, false},
		{"partial left", 0, 15, 10, 20, true},
		{"partial right", 10, 20, 0, 15, true},
		{"candidate inside existing", 5, 8, 0, 10, true},
		{"existing inside candidate", 0, 10, 2, 8, true},
		{"identical", 0, 10, 0, 10, true},
		{"shared start", 0, 5, 0, 10, true},
		{"shared end", 5, 10, 0, 10, true},
	}

	for _, tc := range cases {
		got := Overlaps(ts(tc.aStart), ts(tc.aEnd), ts(tc.bStart), ts(tc.bEnd))
		if got != tc.want {
			t.Errorf("%s: Overlaps([%d,%d),[%d,%d)) = %v, want %v",
				tc.name, tc.aStart, tc.aEnd, tc.bStart, tc.bEnd, got, tc.want)
		}
	}
}

// The storage predicate inherited from the previous system tested three
// disjuncts: partial overlap in either direction plus full containment of the
// existing interval inside the candidate. This exhaustively checks every
// interval pair on a small grid and shows the third disjunct is implied by the
// first two, so Overlaps can stay with the canonical two-term form.
func TestOverlaps_ThirdDisjunctRedundant(t *testing.T) {
	const grid = 8

	legacy := func(aStart, aEnd, bStart, bEnd time.Time) bool {
		partialLeft := !bStart.After(aStart) && bEnd.After(aStart)
		partialRight := bStart.Before(aEnd) && !bEnd.Before(aEnd)
		containment := !aStart.After(bStart) && !aEnd.Before(bEnd)
		return partialLeft || partialRight || containment
	}

	for as := 0; as < grid; as++ {
		for ae := as + 1; ae <= grid; ae++ {
			for bs := 0; bs < grid; bs++ {
				for be := bs + 1; be <= grid; be++ {
					want := legacy(ts(as), ts(ae), ts(bs), ts(be))
					got := Overlaps(ts(as), ts(ae), ts(bs), ts(be))
					if got != want {
						t.Fatalf("predicates disagree for candidate [%d,%d) vs existing [%d,%d): two-term=%v three-term=%v",
							as, ae, bs, be, got, want)
					}
				}
			}
		}
	}
}

func TestReservationActiveAt_HalfOpen(t *testing.T) {
	r := &Reservation{
		Status:    ReservationActive,
		TimeStart: ts(60),
		TimeEnd:   ts(120),
	}

	if !r.ActiveAt(ts(60)) {
		t.Error("expected reservation active exactly at TimeStart")
	}
	if !r.ActiveAt(ts(119)) {
		t.Error("expected reservation active just before TimeEnd")
	}
	if r.ActiveAt(ts(120)) {
		t.Error("expected reservation inactive exactly at TimeEnd")
	}
	if r.ActiveAt(ts(59)) {
		t.Error("expected reservation inactive before TimeStart")
	}

	r.Status = ReservationReturned
	if r.ActiveAt(ts(90)) {
		t.Error("returned reservation must never be active")
	}
}
