package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// StatusKind classifies a status line.
type StatusKind string

// Known status kinds.
const (
	StatusKindInfo    StatusKind = StatusKind("info")
	StatusKindSuccess StatusKind = StatusKind("success")
	StatusKindWarning StatusKind = StatusKind("warning")
	StatusKindFailure StatusKind = StatusKind("failure")
	StatusKindSkipped StatusKind = StatusKind("skipped")
)

const (
	statusLineTemplateConstant = "%s %s\n"
	infoMarkerConstant         = "•"
	successMarkerConstant      = "✓"
	warningMarkerConstant      = "!"
	failureMarkerConstant      = "✗"
	skippedMarkerConstant      = "-"
	infoColorConstant          = "12"
	successColorConstant       = "10"
	warningColorConstant       = "11"
	failureColorConstant       = "9"
	skippedColorConstant       = "8"
)

var statusMarkers = map[StatusKind]string{
	StatusKindInfo:    infoMarkerConstant,
	StatusKindSuccess: successMarkerConstant,
	StatusKindWarning: warningMarkerConstant,
	StatusKindFailure: failureMarkerConstant,
	StatusKindSkipped: skippedMarkerConstant,
}

var statusColors = map[StatusKind]lipgloss.Color{
	StatusKindInfo:    lipgloss.Color(infoColorConstant),
	StatusKindSuccess: lipgloss.Color(successColorConstant),
	StatusKindWarning: lipgloss.Color(warningColorConstant),
	StatusKindFailure: lipgloss.Color(failureColorConstant),
	StatusKindSkipped: lipgloss.Color(skippedColorConstant),
}

// ConsoleOptions overrides terminal detection.
type ConsoleOptions struct {
	// Interactive enables the animated spinner.
	Interactive bool
	// ColorsEnabled renders status lines with ANSI colors.
	ColorsEnabled bool
}

// Console writes status lines and spinners to a single writer.
type Console struct {
	writer      io.Writer
	interactive bool
	styles      map[StatusKind]lipgloss.Style
	writeMutex  sync.Mutex
}

// NewConsole constructs a Console, enabling colors and the spinner only when writer is a terminal.
func NewConsole(writer io.Writer) *Console {
	terminal := IsTerminal(writer)
	return NewConsoleWithOptions(writer, ConsoleOptions{Interactive: terminal, ColorsEnabled: terminal})
}

// NewConsoleWithOptions constructs a Console with explicit terminal capabilities.
func NewConsoleWithOptions(writer io.Writer, options ConsoleOptions) *Console {
	if writer == nil {
		writer = io.Discard
	}

	renderer := lipgloss.NewRenderer(writer)
	if options.ColorsEnabled {
		renderer.SetColorProfile(termenv.ANSI)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}

	styles := make(map[StatusKind]lipgloss.Style, len(statusColors))
	for kind, color := range statusColors {
		styles[kind] = renderer.NewStyle().Foreground(color)
	}
	styles[StatusKindFailure] = styles[StatusKindFailure].Bold(true)

	return &Console{writer: writer, interactive: options.Interactive, styles: styles}
}

// IsTerminal reports whether writer is attached to a terminal.
func IsTerminal(writer io.Writer) bool {
	file, isFile := writer.(*os.File)
	if !isFile {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// Interactive reports whether the console animates spinners.
func (console *Console) Interactive() bool {
	return console.interactive
}

// Writer exposes the underlying writer, for prompts sharing the same stream.
func (console *Console) Writer() io.Writer {
	return console.writer
}

// Report writes one status line of the given kind.
func (console *Console) Report(kind StatusKind, message string) {
	marker, known := statusMarkers[kind]
	if !known {
		marker = infoMarkerConstant
	}
	style, styled := console.styles[kind]
	if !styled {
		style = console.styles[StatusKindInfo]
	}

	console.writeMutex.Lock()
	defer console.writeMutex.Unlock()
	fmt.Fprintf(console.writer, statusLineTemplateConstant, style.Render(marker), style.Render(message))
}

// Info reports neutral progress.
func (console *Console) Info(message string) {
	console.Report(StatusKindInfo, message)
}

// Success reports a completed step.
func (console *Console) Success(message string) {
	console.Report(StatusKindSuccess, message)
}

// Warning reports a condition that needs the user's attention.
func (console *Console) Warning(message string) {
	console.Report(StatusKindWarning, message)
}

// Failure reports an error.
func (console *Console) Failure(message string) {
	console.Report(StatusKindFailure, message)
}

// Skipped reports a step that was intentionally not performed.
func (console *Console) Skipped(message string) {
	console.Report(StatusKindSkipped, message)
}
