package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/zjrosen/suanpan/internal/abacus"
	"github.com/zjrosen/suanpan/internal/carry"
)

// Border characters (rounded)
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// Bead glyphs.
const (
	glyphActive   = "●"
	glyphInactive = "○"
)

// Palette
var (
	accent = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
)

type palette struct {
	border   lipgloss.Style
	title    lipgloss.Style
	active   lipgloss.Style
	inactive lipgloss.Style
	label    lipgloss.Style
	carry    lipgloss.Style
	alert    lipgloss.Style
}

func newPalette(w io.Writer, color bool) palette {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return palette{
		border:   r.NewStyle().Foreground(dim),
		title:    r.NewStyle().Foreground(accent).Bold(true),
		active:   r.NewStyle().Foreground(green),
		inactive: r.NewStyle().Foreground(dim),
		label:    r.NewStyle().Foreground(dim),
		carry:    r.NewStyle().Foreground(yellow),
		alert:    r.NewStyle().Foreground(red).Bold(true),
	}
}

func renderText(w io.Writer, s Snapshot, opts Options) string {
	p := newPalette(w, opts.Color)

	labelWidth := len(strconv.Itoa(max(len(s.Rods)-1, 0)))
	lines := make([]string, 0, len(s.Rods))
	for _, rod := range s.Rods {
		lines = append(lines, fmt.Sprintf("%s  %s  %s  %d",
			p.label.Render(fmt.Sprintf("rod %*d", labelWidth, rod.Index)),
			p.beads(rod.Heaven[:]),
			p.beads(rod.Earth[:]),
			rod.Digit,
		))
	}

	var sb strings.Builder
	sb.WriteString(p.box("abacus", strconv.FormatInt(s.Value, 10), lines))
	sb.WriteString("\n")

	if s.Session != "" {
		fmt.Fprintf(&sb, "%s %s\n", p.label.Render("session:"), s.Session)
	}
	if s.Gestures > 0 {
		fmt.Fprintf(&sb, "%s %d  %s %d\n", p.label.Render("gestures:"), s.Gestures, p.label.Render("carries:"), s.Carries)
	}
	if s.Overflowed {
		fmt.Fprintf(&sb, "%s carry left the leftmost rod (policy %s)\n", p.alert.Render("overflow:"), s.Policy)
	}
	if len(s.Steps) > 0 {
		sb.WriteString(p.label.Render("steps:"))
		sb.WriteString("\n")
		for i, step := range s.Steps {
			sb.WriteString(p.step(i+1, step))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (p palette) beads(positions []abacus.Position) string {
	var sb strings.Builder
	for _, pos := range positions {
		if pos == abacus.Active {
			sb.WriteString(p.active.Render(glyphActive))
		} else {
			sb.WriteString(p.inactive.Render(glyphInactive))
		}
	}
	return sb.String()
}

func (p palette) step(n int, s carry.Step) string {
	changes := make([]string, len(s.Changes))
	for i, c := range s.Changes {
		changes[i] = c.String()
	}
	line := fmt.Sprintf("%3d. %-8s rod %d %s[%d]  value %d", n, s.Kind, s.Rod, s.Class, s.Index, s.Value)
	if len(changes) > 0 {
		line += "  " + p.label.Render(strings.Join(changes, " "))
	}
	if s.Carry != nil {
		line += "  " + p.carry.Render(fmt.Sprintf("carry -> rod %d", s.Carry.TargetRod))
	}
	return line
}

// box frames lines with a rounded border carrying leftTitle and rightTitle in
// the top edge: ╭─ Left ───── Right ─╮
func (p palette) box(leftTitle, rightTitle string, lines []string) string {
	innerWidth := 0
	for _, l := range lines {
		innerWidth = max(innerWidth, lipgloss.Width(l)+2)
	}
	// "─ " + left + " " + at least one dash + " " + right + " ─"
	innerWidth = max(innerWidth, lipgloss.Width(leftTitle)+lipgloss.Width(rightTitle)+7)

	middle := innerWidth - lipgloss.Width(leftTitle) - lipgloss.Width(rightTitle) - 6

	var sb strings.Builder
	sb.WriteString(p.border.Render(borderTopLeft + borderHorizontal + " "))
	sb.WriteString(p.title.Render(leftTitle))
	sb.WriteString(p.border.Render(" " + strings.Repeat(borderHorizontal, middle) + " "))
	sb.WriteString(p.title.Render(rightTitle))
	sb.WriteString(p.border.Render(" " + borderHorizontal + borderTopRight))
	sb.WriteString("\n")

	for _, l := range lines {
		pad := innerWidth - 2 - lipgloss.Width(l)
		sb.WriteString(p.border.Render(borderVertical))
		sb.WriteString(" " + l + strings.Repeat(" ", pad) + " ")
		sb.WriteString(p.border.Render(borderVertical))
		sb.WriteString("\n")
	}

	sb.WriteString(p.border.Render(borderBottomLeft + strings.Repeat(borderHorizontal, innerWidth) + borderBottomRight))
	return sb.String()
}
