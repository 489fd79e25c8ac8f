package utils

import (
	"strings"
	"testing"
)

func TestHighResImageURL(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", ""},
		{"Abyssal whip", "https://oldschool.runescape.wiki/images/Abyssal_whip.png"},
		{"dragon scimitar", "https://oldschool.runescape.wiki/images/Dragon_scimitar.png"},
		{"Saradomin's tear", "https://oldschool.runescape.wiki/images/Saradomin%27s_tear.png"},
		{"Amethyst arrow(p++)", "https://oldschool.runescape.wiki/images/Amethyst_arrow(p%2B%2B).png"},
	}

	for _, tt := range tests {
		if got := HighResImageURL(tt.name); got != tt.want {
			t.Errorf("HighResImageURL(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	if got := HighResImageURL("Saradomin's tear"); !strings.HasSuffix(got, "Saradomin%27s_tear.png") {
		t.Errorf("apostrophe not encoded: %q", got)
	}
	if got := HighResImageURL("Amethyst arrow(p++)"); strings.Count(got, "%2B") != 2 {
		t.Errorf("expected both '+' encoded: %q", got)
	}
}

func TestIconDataURL(t *testing.T) {
	if got := IconDataURL(""); got != "" {
		t.Errorf("empty input: got %q, want empty", got)
	}

	passthrough := "data:image/png;base64,iVBORw0KGgo="
	if got := IconDataURL(passthrough); got != passthrough {
		t.Errorf("data URI not passed through: %q", got)
	}

	if got := IconDataURL("iVBORw0KGgo="); got != "data:image/png;base64,iVBORw0KGgo=" {
		t.Errorf("raw base64 not wrapped: %q", got)
	}
}
