package timeutil

import (
	"testing"
	"time"
)

func TestTimestamp_Sub_Borrow(t *testing.T) {
	// End nanoseconds smaller than start nanoseconds forces the borrow.
	end := Timestamp{Sec: 5, Nsec: 100}
	start := Timestamp{Sec: 3, Nsec: 900_000_000}
	d := end.Sub(start)

	if d.Sec != 1 {
		t.Errorf("Sec = %d, want 1", d.Sec)
	}
	if d.Nsec != 100_000_100 {
		t.Errorf("Nsec = %d, want 100000100", d.Nsec)
	}
}

func TestTimestamp_Sub_NoBorrow(t *testing.T) {
	end := Timestamp{Sec: 5, Nsec: 900}
	start := Timestamp{Sec: 2, Nsec: 400}
	d := end.Sub(start)

	if d.Sec != 3 || d.Nsec != 500 {
		t.Errorf("got {%d %d}, want {3 500}", d.Sec, d.Nsec)
	}
}

func TestTimestamp_Add_Carry(t *testing.T) {
	a := Timestamp{Sec: 1, Nsec: 600_000_000}
	b := Timestamp{Sec: 2, Nsec: 700_000_000}
	s := a.Add(b)

	if s.Sec != 4 || s.Nsec != 300_000_000 {
		t.Errorf("got {%d %d}, want {4 300000000}", s.Sec, s.Nsec)
	}
}

func TestTimestamp_SubAddRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		s, u Timestamp
	}{
		{"no borrow", Timestamp{Sec: 10, Nsec: 500}, Timestamp{Sec: 3, Nsec: 100}},
		{"borrow", Timestamp{Sec: 10, Nsec: 100}, Timestamp{Sec: 3, Nsec: 900_000_000}},
		{"equal", Timestamp{Sec: 7, Nsec: 123}, Timestamp{Sec: 7, Nsec: 123}},
		{"nsec edge", Timestamp{Sec: 2, Nsec: 999_999_999}, Timestamp{Sec: 1, Nsec: 0}},
		{"zero", Timestamp{}, Timestamp{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.s.Sub(tc.u)
			if d.Nsec < 0 || d.Nsec >= 1_000_000_000 {
				t.Fatalf("Sub result not normalized: Nsec = %d", d.Nsec)
			}
			if back := d.Add(tc.u); back != tc.s {
				t.Errorf("Add(Sub(s,u), u) = %+v, want %+v", back, tc.s)
			}
		})
	}
}

func TestTimestamp_After(t *testing.T) {
	cases := []struct {
		a, b Timestamp
		want bool
	}{
		{Timestamp{Sec: 2, Nsec: 0}, Timestamp{Sec: 1, Nsec: 999_999_999}, true},
		{Timestamp{Sec: 1, Nsec: 500}, Timestamp{Sec: 1, Nsec: 499}, true},
		{Timestamp{Sec: 1, Nsec: 499}, Timestamp{Sec: 1, Nsec: 500}, false},
		{Timestamp{Sec: 3, Nsec: 7}, Timestamp{Sec: 3, Nsec: 7}, false},
	}

	for _, tc := range cases {
		if got := tc.a.After(tc.b); got != tc.want {
			t.Errorf("(%+v).After(%+v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFromDuration(t *testing.T) {
	ts := FromDuration(1500 * time.Millisecond)
	if ts.Sec != 1 || ts.Nsec != 500_000_000 {
		t.Errorf("got {%d %d}, want {1 500000000}", ts.Sec, ts.Nsec)
	}

	if neg := FromDuration(-time.Second); !neg.IsZero() {
		t.Errorf("negative duration: got %+v, want zero", neg)
	}
}

func TestTimestamp_Nanoseconds(t *testing.T) {
	ts := Timestamp{Sec: 2, Nsec: 34}
	if got := ts.Nanoseconds(); got != 2_000_000_034 {
		t.Errorf("got %d, want 2000000034", got)
	}
}
