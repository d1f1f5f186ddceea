package main

import (
	"fmt"
	"io"
	"os"
)

var (
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

func init() {
	// Check if output is a terminal
	if stat, err := os.Stdout.Stat(); err == nil {
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			// Not a terminal, disable colors
			colorGreen = ""
			colorRed = ""
			colorYellow = ""
			colorReset = ""
		}
	}
}

// printSuccess prints a line with an OK marker
func printSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "%-70s%s[OK]%s\n", msg, colorGreen, colorReset)
}

// printFail prints a line with a FAIL marker
func printFail(w io.Writer, msg string) {
	fmt.Fprintf(w, "%-70s%s[FAIL]%s\n", msg, colorRed, colorReset)
}

// printWarn prints a line with a WARN marker
func printWarn(w io.Writer, msg string) {
	fmt.Fprintf(w, "%-70s%s[WARN]%s\n", msg, colorYellow, colorReset)
}
