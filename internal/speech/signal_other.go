//go:build !unix

package speech

import (
	"errors"
	"os"
)

var errNoSignals = errors.New("pause is not supported on this platform")

func suspend(*os.Process) error { return errNoSignals }

func resume(*os.Process) error { return errNoSignals }
