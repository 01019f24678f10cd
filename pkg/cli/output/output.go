// Package output formats colored status lines for the CLI, grounded in the
// teacher's pkg/cli/output color-by-severity convention.
package output

import "github.com/fatih/color"

// Success prints a green status line.
func Success(format string, args ...interface{}) {
	color.New(color.FgGreen, color.Bold).Printf(format+"\n", args...)
}

// Error prints a red status line.
func Error(format string, args ...interface{}) {
	color.New(color.FgRed, color.Bold).Printf(format+"\n", args...)
}

// Info prints a cyan status line.
func Info(format string, args ...interface{}) {
	color.New(color.FgCyan).Printf(format+"\n", args...)
}

// Warning prints a yellow status line.
func Warning(format string, args ...interface{}) {
	color.New(color.FgYellow).Printf(format+"\n", args...)
}
