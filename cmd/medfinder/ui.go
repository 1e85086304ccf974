// Package main provides UI utilities for the medicine finder CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// UI provides user-friendly output utilities.
type UI struct {
	out      io.Writer
	progress *mpb.Progress
	noColor  bool
	jsonMode bool
}

// NewUI creates a new UI writing to stdout.
func NewUI(jsonMode, noColor bool) *UI {
	return newUI(os.Stdout, jsonMode, noColor)
}

func newUI(out io.Writer, jsonMode, noColor bool) *UI {
	var progress *mpb.Progress
	if !jsonMode && IsTerminal() {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	}
	return &UI{
		out:      out,
		progress: progress,
		noColor:  noColor,
		jsonMode: jsonMode,
	}
}

// Close waits for any progress bars to finish rendering.
func (ui *UI) Close() {
	if ui.progress != nil {
		ui.progress.Wait()
	}
}

func (ui *UI) line(attr color.Attribute, symbol, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if ui.noColor {
		fmt.Fprintf(ui.out, "%s %s\n", symbol, msg)
		return
	}
	color.New(attr).Fprintf(ui.out, "%s %s\n", symbol, msg)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.line(color.FgGreen, "✓", format, args...)
}

// Error prints an error message to stderr, even in JSON mode.
func (ui *UI) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if ui.noColor || ui.jsonMode {
		fmt.Fprintf(os.Stderr, "✗ %s\n", msg)
		return
	}
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", msg)
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.line(color.FgYellow, "⚠", format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.line(color.FgCyan, "ℹ", format, args...)
}

// Step prints a step message.
func (ui *UI) Step(format string, args ...interface{}) {
	ui.line(color.FgBlue, "→", format, args...)
}

// ProgressBar creates a new progress bar, or nil when output is not a
// terminal.
func (ui *UI) ProgressBar(name string, total int64) *mpb.Bar {
	if ui.progress == nil || ui.jsonMode {
		return nil
	}

	return ui.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12}),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 12}),
				" done",
			),
		),
	)
}

// Table prints a formatted table.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode || len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len([]rune(cell)) > widths[i] {
				widths[i] = len([]rune(cell))
			}
		}
	}

	border := func(left, mid, right string) {
		var b strings.Builder
		b.WriteString(left)
		for i, width := range widths {
			b.WriteString(strings.Repeat(ui.glyph("─", "-"), width+2))
			if i < len(widths)-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		ui.frame(b.String())
	}
	row := func(cells []string, frameColor bool) {
		sep := ui.glyph("│", "|")
		if frameColor {
			ui.frameInline(sep)
		} else {
			fmt.Fprint(ui.out, sep)
		}
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(ui.out, " %s%s ", cell, strings.Repeat(" ", widths[i]-len([]rune(cell))))
			if frameColor {
				ui.frameInline(sep)
			} else {
				fmt.Fprint(ui.out, sep)
			}
		}
		fmt.Fprintln(ui.out)
	}

	border(ui.glyph("┌", "+"), ui.glyph("┬", "+"), ui.glyph("┐", "+"))
	row(headers, true)
	border(ui.glyph("├", "+"), ui.glyph("┼", "+"), ui.glyph("┤", "+"))
	for _, r := range rows {
		row(r, false)
	}
	border(ui.glyph("└", "+"), ui.glyph("┴", "+"), ui.glyph("┘", "+"))
}

func (ui *UI) glyph(fancy, plain string) string {
	if ui.noColor {
		return plain
	}
	return fancy
}

func (ui *UI) frame(s string) {
	ui.frameInline(s)
	fmt.Fprintln(ui.out)
}

func (ui *UI) frameInline(s string) {
	if ui.noColor {
		fmt.Fprint(ui.out, s)
		return
	}
	color.New(color.FgCyan, color.Bold).Fprint(ui.out, s)
}

// Section prints a section header.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintln(ui.out)
	if ui.noColor {
		fmt.Fprintf(ui.out, "━━━ %s ━━━\n", strings.ToUpper(title))
	} else {
		color.New(color.FgMagenta, color.Bold).Fprintf(ui.out, "━━━ %s ━━━\n", strings.ToUpper(title))
	}
	fmt.Fprintln(ui.out)
}

// KeyValue prints a key-value pair.
func (ui *UI) KeyValue(key string, value interface{}) {
	if ui.jsonMode {
		return
	}
	if ui.noColor {
		fmt.Fprintf(ui.out, "  %s: %v\n", key, value)
		return
	}
	color.New(color.FgYellow).Fprintf(ui.out, "  %s: ", key)
	fmt.Fprintf(ui.out, "%v\n", value)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
