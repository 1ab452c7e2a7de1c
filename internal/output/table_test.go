package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/output"
	"github.com/platops/status-reports/internal/verdict"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func renderToString(cards []models.Card, colored bool) string {
	var buf bytes.Buffer
	output.RenderCards(&buf, cards, colored)
	return buf.String()
}

func oneCard(overrides ...func(*models.Card)) models.Card {
	c := models.Card{
		Name:    "cft-sbox-00-aks",
		Color:   verdict.ColorRed,
		Verdict: "Update",
		Detail:  "1.29.4 -> 1.30.1",
	}
	for _, fn := range overrides {
		fn(&c)
	}
	return c
}

// ── RenderCards ───────────────────────────────────────────────────────────────

func TestRenderCards_Empty(t *testing.T) {
	if out := renderToString(nil, false); out != "No documents.\n" {
		t.Errorf("got %q", out)
	}
}

func TestRenderCards_Plain(t *testing.T) {
	out := renderToString([]models.Card{oneCard()}, false)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines; want header, separator, row\n%s", len(lines), out)
	}
	for _, want := range []string{"NAME", "COLOUR", "VERDICT", "DETAIL"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("header missing %q: %q", want, lines[0])
		}
	}
	for _, want := range []string{"cft-sbox-00-aks", "red", "Update", "1.29.4 -> 1.30.1"} {
		if !strings.Contains(lines[2], want) {
			t.Errorf("row missing %q: %q", want, lines[2])
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("ANSI codes must not appear when colored=false")
	}
}

func TestRenderCards_ColoredKeepsAlignment(t *testing.T) {
	cards := []models.Card{
		oneCard(),
		oneCard(func(c *models.Card) { c.Color = verdict.ColorGreen; c.Name = "ss-prod-00-aks" }),
	}
	plain := strings.Split(renderToString(cards, false), "\n")
	colored := strings.Split(renderToString(cards, true), "\n")

	if !strings.Contains(colored[2], "\033[0;31mred\033[0m") {
		t.Errorf("red not wrapped: %q", colored[2])
	}
	strip := strings.NewReplacer("\033[0;31m", "", "\033[0;32m", "", "\033[0m", "")
	for i := range plain {
		if strip.Replace(colored[i]) != plain[i] {
			t.Errorf("line %d differs once codes are stripped:\n%q\n%q", i, colored[i], plain[i])
		}
	}
}

func TestRenderCards_LongFieldsShortened(t *testing.T) {
	long := strings.Repeat("x", 100)
	out := renderToString([]models.Card{oneCard(func(c *models.Card) { c.Detail = long; c.Name = long })}, false)
	if strings.Contains(out, long) {
		t.Error("long fields should be truncated")
	}
	if !strings.Contains(out, "...") {
		t.Error("expected an ellipsis")
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func TestShorten(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 1, "a..."},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tt := range tests {
		if got := output.Shorten(tt.in, tt.max); got != tt.want {
			t.Errorf("Shorten(%q, %d) = %q; want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestColorLabel(t *testing.T) {
	if got := output.ColorLabel(verdict.ColorOrange, false); got != "orange" {
		t.Errorf("plain = %q", got)
	}
	if got := output.ColorLabel(verdict.ColorOrange, true); got != "\033[0;33morange\033[0m" {
		t.Errorf("colored = %q", got)
	}
	if got := output.ColorLabel("purple", true); got != "purple" {
		t.Errorf("unknown colour = %q", got)
	}
}

func TestRenderSummary(t *testing.T) {
	cards := []models.Card{
		oneCard(),
		oneCard(func(c *models.Card) { c.Color = verdict.ColorGreen }),
		oneCard(func(c *models.Card) { c.Color = verdict.ColorGreen }),
	}
	var buf bytes.Buffer
	output.RenderSummary(&buf, "aksversions", cards)
	want := "aksversions: 3 documents  red: 1  orange: 0  green: 2\n"
	if buf.String() != want {
		t.Errorf("got %q; want %q", buf.String(), want)
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := output.RenderJSON(&buf, map[string]int{"b": 2, "a": 1}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"a\": 1,\n  \"b\": 2\n}\n" {
		t.Errorf("got %q", buf.String())
	}
	var back map[string]int
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil || back["b"] != 2 {
		t.Errorf("round trip: %v %v", back, err)
	}
}
