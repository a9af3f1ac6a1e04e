package ui

import (
	"fmt"
	"io"
	"os"
)

// Banner is printed once at startup
const Banner = "ANIMEDL :: chia-anime episode downloader"

var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects console output; tests pass a buffer
func SetOutput(w io.Writer) {
	out = w
}

// SetErrorOutput redirects the stream PrintError writes to
func SetErrorOutput(w io.Writer) {
	errOut = w
}

// Color helpers for inline use
var (
	Cyan    = colorize(labelStyle.Render)
	Yellow  = colorize(valueStyle.Render)
	Red     = colorize(errorStyle.Render)
	Green   = colorize(successStyle.Render)
	Magenta = colorize(highlightStyle.Render)
	Dim     = colorize(dimStyle.Render)
)

func colorize(render func(...string) string) func(string) string {
	return func(text string) string {
		return render(text)
	}
}

// PrintBanner prints the application banner
func PrintBanner() {
	fmt.Fprintln(out, bannerStyle.Render(Banner))
}

// PrintError prints an error message in red on the error stream
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(errOut, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(errOut, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(out, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in orange
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, warningStyle.Render(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, warningStyle.Render(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(out, Magenta(msg))
}
