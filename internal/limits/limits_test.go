package limits

import (
	"testing"

	"pgregory.net/rapid"
)

func TestPreviewEffective(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		requested int
		want      int
	}{
		{"absent resolves to default", 0, 10},
		{"negative resolves to default", -5, 10},
		{"minimum honored", 1, 1},
		{"default honored", 10, 10},
		{"cap honored", 100, 100},
		{"over cap resolves to default, not cap", 101, 10},
		{"far over cap resolves to default", 100000, 10},
	}
	for _, tc := range cases {
		if got := Preview.Effective(tc.requested); got != tc.want {
			t.Fatalf("%s: Preview.Effective(%d) = %d, want %d", tc.name, tc.requested, got, tc.want)
		}
	}
}

func TestQueryEffective(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		requested int
		want      int
	}{
		{"absent resolves to default", 0, 1000},
		{"negative resolves to default", -1, 1000},
		{"minimum honored", 1, 1},
		{"mid-range honored", 2500, 2500},
		{"cap honored", 5000, 5000},
		{"over cap resolves to default, not cap", 5001, 1000},
	}
	for _, tc := range cases {
		if got := Query.Effective(tc.requested); got != tc.want {
			t.Fatalf("%s: Query.Effective(%d) = %d, want %d", tc.name, tc.requested, got, tc.want)
		}
	}
}

func TestEffectiveAlwaysInRange(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		class := rapid.SampledFrom([]Class{Preview, Query}).Draw(t, "class")
		requested := rapid.Int().Draw(t, "requested")
		got := class.Effective(requested)
		if got < 1 || got > class.Max {
			t.Fatalf("Effective(%d) = %d outside [1, %d]", requested, got, class.Max)
		}
		// Resolution is stable: resolving an already-resolved limit is
		// a no-op.
		if again := class.Effective(got); again != got {
			t.Fatalf("Effective not stable: %d -> %d -> %d", requested, got, again)
		}
	})
}
