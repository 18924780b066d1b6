// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders CLI output either styled, for terminals, or as
// plain tab-separated text, for pipes and scripts.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// Aleutian color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // headers
	ColorTealDeep    = lipgloss.Color("#16858E") // borders
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text
	ColorWarning     = lipgloss.Color("#F4D03F")
	ColorError       = lipgloss.Color("#E74C3C")
)

// Mode selects how Output renders.
type Mode int

const (
	// ModePlain writes unstyled, tab-separated text.
	ModePlain Mode = iota

	// ModeStyled writes colors and bordered tables.
	ModeStyled
)

// String returns "plain" or "styled".
func (m Mode) String() string {
	if m == ModeStyled {
		return "styled"
	}
	return "plain"
}

// DetectMode returns ModeStyled when w is a terminal.
func DetectMode(w io.Writer) Mode {
	if IsTerminal(w) {
		return ModeStyled
	}
	return ModePlain
}

// IsTerminal reports whether w is an *os.File attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	key     lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(ColorTealBright),
		muted:   r.NewStyle().Foreground(ColorSlate),
		success: r.NewStyle().Foreground(ColorTealBright),
		warning: r.NewStyle().Foreground(ColorWarning),
		err:     r.NewStyle().Foreground(ColorError),
		key:     r.NewStyle().Bold(true).Foreground(ColorTealPrimary),
		header:  r.NewStyle().Bold(true).Foreground(ColorTealPrimary).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		border:  r.NewStyle().Foreground(ColorTealDeep),
	}
}

// Output writes styled or plain text to a single writer.
//
// Thread Safety: Not safe for concurrent use.
type Output struct {
	w      io.Writer
	mode   Mode
	styles styles
}

// NewOutput creates an Output. The lipgloss renderer is bound to w, so
// colors are dropped when w does not support them even in ModeStyled.
func NewOutput(w io.Writer, mode Mode) *Output {
	return &Output{
		w:      w,
		mode:   mode,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// Mode returns the rendering mode.
func (o *Output) Mode() Mode { return o.mode }

// Title prints a heading. Plain mode omits it.
func (o *Output) Title(text string) {
	if o.mode == ModePlain {
		return
	}
	fmt.Fprintln(o.w, o.styles.title.Render(text))
}

// Success prints a confirmation line.
func (o *Output) Success(text string) {
	o.status("✓", o.styles.success, text)
}

// Warning prints a warning line.
func (o *Output) Warning(text string) {
	o.status("⚠", o.styles.warning, text)
}

// Error prints an error line.
func (o *Output) Error(text string) {
	o.status("✗", o.styles.err, text)
}

// Muted prints secondary information. Plain mode omits it.
func (o *Output) Muted(text string) {
	if o.mode == ModePlain {
		return
	}
	fmt.Fprintln(o.w, o.styles.muted.Render(text))
}

func (o *Output) status(icon string, style lipgloss.Style, text string) {
	if o.mode == ModePlain {
		fmt.Fprintln(o.w, text)
		return
	}
	fmt.Fprintf(o.w, "%s %s\n", style.Render(icon), text)
}

// KeyValue is one row of a KeyValues listing.
type KeyValue struct {
	Key   string
	Value string
}

// KeyValues prints aligned "key: value" lines, or "key\tvalue" in plain
// mode.
func (o *Output) KeyValues(pairs []KeyValue) {
	if o.mode == ModePlain {
		for _, p := range pairs {
			fmt.Fprintf(o.w, "%s\t%s\n", p.Key, p.Value)
		}
		return
	}

	width := 0
	for _, p := range pairs {
		width = max(width, len(p.Key))
	}
	for _, p := range pairs {
		key := o.styles.key.Render(p.Key + ":")
		fmt.Fprintf(o.w, "%s%s %s\n", key, strings.Repeat(" ", width-len(p.Key)), p.Value)
	}
}

// Table prints rows under headers. Plain mode writes a tab-separated
// header line followed by one line per row, with tabs and newlines in
// cells replaced by spaces.
func (o *Output) Table(headers []string, rows [][]string) {
	if o.mode == ModePlain {
		fmt.Fprintln(o.w, strings.Join(headers, "\t"))
		for _, row := range rows {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = strings.NewReplacer("\t", " ", "\n", " ").Replace(c)
			}
			fmt.Fprintln(o.w, strings.Join(cells, "\t"))
		}
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(o.styles.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return o.styles.header
			}
			return o.styles.cell
		})
	fmt.Fprintln(o.w, t.Render())
}
