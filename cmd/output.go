package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"thoreinstein.com/designcheck/pkg/compare"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

var (
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
)

func printSuccess(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func printWarning(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func printInfo(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

// printError writes the user-facing form of err to stderr.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorPrefix, rigerrors.FormatUserError(err))
}

// printStatus prints the overall comparison status line.
func printStatus(w io.Writer, status compare.Status, format string, a ...any) {
	switch status {
	case compare.StatusPass:
		printSuccess(w, format, a...)
	case compare.StatusWarning:
		printWarning(w, format, a...)
	default:
		fmt.Fprintf(w, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
	}
}
