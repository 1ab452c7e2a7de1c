// Package output renders job results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/platops/status-reports/internal/models"
	"github.com/platops/status-reports/internal/verdict"
)

// ANSI color codes for the traffic-light column (used when colored is true).
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[0;31m"
	ansiYellow = "\033[0;33m"
	ansiGreen  = "\033[0;32m"
)

// Column widths.
const (
	wName    = 40
	wColor   = 8
	wVerdict = 28
	wDetail  = 60
)

// ColorLabel wraps a colour name with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorLabel(c verdict.Color, colored bool) string {
	s := string(c)
	if code := ansiFor(c); colored && code != "" {
		return code + s + ansiReset
	}
	return s
}

func ansiFor(c verdict.Color) string {
	switch c {
	case verdict.ColorRed:
		return ansiRed
	case verdict.ColorOrange:
		return ansiYellow
	case verdict.ColorGreen:
		return ansiGreen
	default:
		return ""
	}
}

// colorCell returns the colour padded to width characters. ANSI codes wrap
// only the text so later columns stay aligned.
func colorCell(c verdict.Color, width int, colored bool) string {
	text := string(c)
	code := ansiFor(c)
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// Shorten truncates s to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to leave room for the ellipsis.
func Shorten(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// RenderCards writes one row per card to w.
//
// Column order:
//
//	NAME  COLOUR  VERDICT  DETAIL
func RenderCards(w io.Writer, cards []models.Card, colored bool) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No documents.")
		return
	}

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %s", wName, "NAME", wColor, "COLOUR", wVerdict, "VERDICT", "DETAIL")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)+wDetail-len("DETAIL")))

	for _, c := range cards {
		fmt.Fprintf(w, "%-*s  %s  %-*s  %s\n",
			wName, Shorten(c.Name, wName),
			colorCell(c.Color, wColor, colored),
			wVerdict, Shorten(c.Verdict, wVerdict),
			Shorten(c.Detail, wDetail))
	}
}

// Tally counts cards per colour.
func Tally(cards []models.Card) map[verdict.Color]int {
	out := make(map[verdict.Color]int)
	for _, c := range cards {
		out[c.Color]++
	}
	return out
}

// RenderSummary writes a one-line count of cards per colour.
func RenderSummary(w io.Writer, job string, cards []models.Card) {
	t := Tally(cards)
	fmt.Fprintf(w, "%s: %d documents  red: %d  orange: %d  green: %d\n",
		job, len(cards), t[verdict.ColorRed], t[verdict.ColorOrange], t[verdict.ColorGreen])
}

// RenderJSON writes v as indented JSON.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
