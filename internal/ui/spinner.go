package ui

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
)

const (
	spinnerTickIntervalConstant     = 120 * time.Millisecond
	spinnerCharacterSetConstant     = 11
	spinnerSuffixTemplateConstant   = " %s"
	spinnerFallbackTemplateConstant = "%s..."
)

// newSpinner builds a stopped spinner that animates on the console writer.
func (console *Console) newSpinner(label string) *spinner.Spinner {
	indicator := spinner.New(
		spinner.CharSets[spinnerCharacterSetConstant],
		spinnerTickIntervalConstant,
		spinner.WithWriter(console.writer),
	)
	indicator.Suffix = fmt.Sprintf(spinnerSuffixTemplateConstant, label)
	return indicator
}

// RunWithSpinner runs operation while a spinner labelled label animates.
// The spinner is stopped before RunWithSpinner returns, so status lines and
// prompts that follow never interleave with it. Non-interactive consoles
// print the label once instead.
func (console *Console) RunWithSpinner(label string, operation func() error) error {
	if !console.interactive {
		console.Info(fmt.Sprintf(spinnerFallbackTemplateConstant, label))
		return operation()
	}

	indicator := console.newSpinner(label)
	indicator.Start()
	defer indicator.Stop()
	return operation()
}
