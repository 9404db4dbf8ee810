package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/VictorEijkhout/hdf5-with-predictable-naming-sub000/hdf5"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98")).
			Width(12)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer, styled bool) *printer {
	return &printer{w: w, styled: styled}
}

func (p *printer) render(st lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return st.Render(s)
}

func (p *printer) title(s string) {
	fmt.Fprintln(p.w, p.render(titleStyle, s))
	fmt.Fprintln(p.w)
}

func (p *printer) result(name, typ string, o outcome) {
	label := name
	if !p.styled {
		label = fmt.Sprintf("%-12s", name)
	}
	fmt.Fprintf(p.w, "%s %s\n", p.render(nameStyle, label), p.render(typeStyle, typ))
	fmt.Fprintf(p.w, "  wrote  %s\n", o.wrote)
	if o.err != nil {
		fmt.Fprintf(p.w, "  %s\n", p.render(errorStyle, "error  "+o.err.Error()))
	} else {
		fmt.Fprintf(p.w, "  read   %s\n", p.render(okStyle, o.read))
	}
	leak := fmt.Sprintf("  leaked %d blocks", o.leaked)
	if o.leaked != 0 {
		fmt.Fprintln(p.w, p.render(errorStyle, leak))
	} else {
		fmt.Fprintln(p.w, p.render(dimStyle, leak))
	}
}

func (p *printer) stats(st hdf5.Stats) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.render(dimStyle, fmt.Sprintf(
		"heap: %d live blocks (%d bytes), %d allocations, %d frees, %d open handles",
		st.LiveBlocks, st.LiveBytes, st.Allocations, st.Frees, st.OpenHandles)))
}
