package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintBanner(t *testing.T) {
	t.Parallel()

	render := func(useColor bool) string {
		var buf bytes.Buffer
		printBanner(&buf, useColor)
		return buf.String()
	}

	t.Run("colored", func(t *testing.T) {
		out := render(true)
		for _, want := range []string{"\033[1;36m", "\033[0m"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in colored banner:\n%s", want, out)
			}
		}
	})

	t.Run("plain", func(t *testing.T) {
		out := render(false)
		if strings.Contains(out, "\033[") {
			t.Errorf("plain banner must carry no escape codes:\n%s", out)
		}
		if got := strings.Count(out, "\n"); got != len(bannerLines) {
			t.Errorf("expected %d lines, got %d", len(bannerLines), got)
		}
	})

	t.Run("same art either way", func(t *testing.T) {
		stripped := render(true)
		for _, code := range bannerColors {
			stripped = strings.ReplaceAll(stripped, code, "")
		}
		stripped = strings.ReplaceAll(stripped, "\033[0m", "")
		if plain := render(false); stripped != plain {
			t.Errorf("colored banner wraps different art:\n%q\nvs\n%q", stripped, plain)
		}
	})
}
