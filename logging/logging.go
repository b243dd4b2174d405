// Package logging provides the colored, level-gated logger used across
// ringstore's core packages. It never receives secret material: callers
// pass identifiers (secret ids, block ids, identity ids), never plaintext.
package logging

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Logger is a cheap-to-copy leveled logger. The zero value is silent except
// for Warnf/Errorf.
type Logger struct {
	Verbose bool
	Debug   bool
}

func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose {
		fmt.Fprintf(os.Stdout, color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(os.Stdout, color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (l Logger) Warnf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l Logger) Errorf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, color.RedString("[error] ")+msg+"\n", args...)
}

// Nop is the zero Logger, for tests and callers that want quiet output:
// Infof and Debugf print nothing, while Warnf and Errorf still print to
// stderr.
var Nop = Logger{}
