// Package clipboard copies the final commit message to the system clipboard
// for --copy. Thin wrapper so the CLI does not import the driver directly.
package clipboard

import (
	"github.com/atotto/clipboard"

	"rcommit/cli/internal/erruser"
)

// Write places text on the system clipboard. Headless environments without a
// clipboard report a configuration error with the driver's cause attached.
func Write(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return erruser.New(erruser.KindConfiguration, "Could not copy the message to the clipboard.", err)
	}
	return nil
}
