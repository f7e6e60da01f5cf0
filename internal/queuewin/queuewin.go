// Package queuewin maps a queue of rendered rows onto a fixed number of
// terminal lines, keeping the current row centered where possible.
package queuewin

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Marker starts the row of the current song.
const (
	Marker      = '>'
	markerStyle = "\x1b[7m"
	styleReset  = "\x1b[0m"
)

// CenteredIndex returns the first visible index of a window of display rows
// over total rows that keeps focus centered.
func CenteredIndex(display, total, focus int) int {
	if display < 0 {
		display = 0
	}
	if total <= display {
		return 0
	}

	half := (display - 1) / 2
	head := focus - half
	tail := focus + half
	if display%2 == 0 {
		tail++
	}

	switch {
	case head < 0:
		return 0
	case tail >= total:
		return total - display
	default:
		return head
	}
}

// Crop returns the visible window of rows.
func Crop[T any](rows []T, display, focus int) []T {
	if display < 0 {
		display = 0
	}
	head := CenteredIndex(display, len(rows), focus)
	tail := min(len(rows), head+display)
	if head > tail {
		return nil
	}
	return rows[head:tail]
}

// Row styles one queue entry. index is 1-based and right-aligned to width.
func Row(index, width int, fields []string, current bool) string {
	var sb strings.Builder
	if current {
		sb.WriteString(markerStyle)
		sb.WriteRune(Marker)
	} else {
		sb.WriteByte(' ')
	}
	sb.WriteByte(' ')
	idx := strconv.Itoa(index)
	if pad := width - len(idx); pad > 0 {
		sb.WriteString(strings.Repeat(" ", pad))
	}
	sb.WriteString(idx)
	sb.WriteString("  ")
	sb.WriteString(strings.Join(fields, "  *  "))
	if current {
		sb.WriteString(styleReset)
	}
	return sb.String()
}

// IndexWidth is the number of digits needed for the largest index.
func IndexWidth(n int) int {
	return len(strconv.Itoa(max(n, 1)))
}

// Render crops rows around focus, wraps the survivors to width and crops
// again around the wrapped current row, then pads to exactly height lines.
func Render(rows []string, height, width, focus int) []string {
	if height < 0 {
		height = 0
	}

	// The first crop keeps at least height rows, which is never fewer
	// than the lines that survive the second crop.
	cropped := Crop(rows, height, focus)

	var wrapped []string
	for _, row := range cropped {
		if width > 0 {
			row = ansi.Wrap(row, width, "")
		}
		wrapped = append(wrapped, strings.Split(row, "\n")...)
	}

	marker := FindMarker(wrapped)
	head := CenteredIndex(height, len(wrapped), marker)
	out := Crop(wrapped, height, marker)
	lines := make([]string, 0, height)
	lines = append(lines, out...)
	// The current row's reset may have been cropped off the bottom.
	if n := len(out); n > 0 && styleOpen(wrapped[:head+n]) {
		lines[n-1] += styleReset
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}

// styleOpen reports whether the inverse video of the current row is still
// in effect after lines.
func styleOpen(lines []string) bool {
	text := strings.Join(lines, "\n")
	return strings.LastIndex(text, markerStyle) > strings.LastIndex(text, styleReset)
}

// FindMarker returns the first line that starts the current row, or 0.
func FindMarker(lines []string) int {
	for i, line := range lines {
		if strings.HasPrefix(line, string(Marker)) || strings.HasPrefix(line, "\x1b") {
			return i
		}
	}
	return 0
}
