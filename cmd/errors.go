/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/josephgoksu/wbsplan/types"
)

// PrintError writes a command error. Engine errors list their details; the
// underlying cause is only shown with --verbose.
func PrintError(w io.Writer, err error) {
	var e *types.Error
	if !errors.As(err, &e) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Error (%s): %s\n", e.Kind, e.Message)
	for _, d := range e.Details {
		fmt.Fprintf(w, "  - %s\n", d)
	}
	if verbose && e.Cause != nil {
		fmt.Fprintf(w, "  cause: %v\n", e.Cause)
	}
}
