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
	{"  _   _ ___ ___ ___    __ _              ", "#34d399"},
	{" | | | / __/ __|   \\  / _| |_____ __ __ ", "#2dd4bf"},
	{" | |_| \\__ \\__ \\ |) || _| / _ \\ V  V / ", "#22d3ee"},
	{"  \\___/|___/___/___/ |_| |_\\___/\\_/\\_/  ", "#38bdf8"},
}

// PrintBanner writes the ussdflow banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  flow builder "+version).Faint())
	fmt.Fprintln(w)
}
