package util

import "testing"

func TestExpandPattern(t *testing.T) {
	toks := map[string]string{
		"mod_slug": "jei",
		"game_id":  "432",
		"file_id":  "4712866",
	}
	if got := ExpandPattern("{game_id}/{mod_slug}", toks); got != "432/jei" {
		t.Fatalf("got %q", got)
	}
	if got := ExpandPattern("{unknown}-{file_id}", toks); got != "{unknown}-4712866" {
		t.Fatalf("unknown tokens should survive, got %q", got)
	}
	if ExpandPattern("  ", toks) != "" {
		t.Fatalf("expected empty for blank pattern")
	}
}
