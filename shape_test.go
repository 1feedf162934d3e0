package mysqlmcp

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func TestShapeRows_TruncatesLongStrings(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 500)
	rows := []map[string]interface{}{
		{"bio": long, "id": int64(1)},
		{"bio": "short", "id": int64(2)},
	}

	names := shapeRows(rows)
	if len(names) != 1 || names[0] != "bio" {
		t.Fatalf("expected [bio], got %v", names)
	}
	got := rows[0]["bio"].(string)
	if utf8.RuneCountInString(got) != 203 {
		t.Fatalf("expected 203 runes, got %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if rows[1]["bio"] != "short" {
		t.Fatalf("short value must pass through, got %v", rows[1]["bio"])
	}
	if rows[0]["id"] != int64(1) {
		t.Fatalf("non-string value must pass through, got %v", rows[0]["id"])
	}
}

func TestShapeRows_NoTruncationReturnsNil(t *testing.T) {
	t.Parallel()
	rows := []map[string]interface{}{
		{"name": "alice", "age": int64(40)},
	}
	if names := shapeRows(rows); names != nil {
		t.Fatalf("expected nil, got %v", names)
	}
}

func TestShapeRows_DeduplicatesAndSortsColumns(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("y", 300)
	rows := []map[string]interface{}{
		{"zeta": long, "alpha": long},
		{"zeta": long},
	}
	names := shapeRows(rows)
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("expected [alpha zeta], got %v", names)
	}
}

func TestTruncateText_ExactThresholdUntouched(t *testing.T) {
	t.Parallel()
	s := strings.Repeat("a", 200)
	got, cut := truncateText(s)
	if cut || got != s {
		t.Fatalf("200-rune string must pass through, got cut=%v", cut)
	}
}

func TestTruncateText_CountsRunesNotBytes(t *testing.T) {
	t.Parallel()
	// 200 two-byte runes: 400 bytes but exactly at the rune threshold.
	s := strings.Repeat("é", 200)
	got, cut := truncateText(s)
	if cut || got != s {
		t.Fatalf("200-rune multibyte string must pass through, got cut=%v", cut)
	}

	got, cut = truncateText(s + "é")
	if !cut {
		t.Fatal("201-rune string must be cut")
	}
	if utf8.RuneCountInString(got) != 203 {
		t.Fatalf("expected 203 runes, got %d", utf8.RuneCountInString(got))
	}
}

func TestTruncateText_CutLengthInvariant(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		got, cut := truncateText(s)
		if cut {
			if utf8.RuneCountInString(got) != textDisplayLimit+len(ellipsisMarker) {
				t.Fatalf("cut value has %d runes", utf8.RuneCountInString(got))
			}
			if !strings.HasPrefix(s, strings.TrimSuffix(got, ellipsisMarker)) {
				t.Fatalf("cut value is not a prefix of the input")
			}
		} else if got != s {
			t.Fatalf("uncut value changed: %q != %q", got, s)
		}
	})
}
