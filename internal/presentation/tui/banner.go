// Package tui holds the terminal presentation helpers of the CLI.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`     _                                  _                  _ `, "#34d399"},
	{` ___| |_ ___  _ __ _____      _(_)______ _ _ __ __| |`, "#2dd4bf"},
	{`/ __| __/ _ \| '__/ _ \ \ /\ / / |_  / _' | '__/ _' |`, "#22d3ee"},
	{`\__ \ || (_) | | |  __/\ V  V /| |/ / (_| | | | (_| |`, "#38bdf8"},
	{`|___/\__\___/|_|  \___| \_/\_/ |_/___\__,_|_|  \__,_|`, "#60a5fa"},
}

// PrintBanner writes the colored banner followed by the wizard title.
func PrintBanner(w io.Writer, title string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(p.Color(line.color)))
	}
	if title != "" {
		fmt.Fprintln(w, out.String("  "+title).Bold())
	}
	fmt.Fprintln(w)
}
