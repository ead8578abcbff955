package logger

import (
	"log"
	"os"
)

// New returns the process-wide stdout logger the tracker components share.
// Plain text with timestamps is enough here; cycle outcomes already land in
// metrics.
func New() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags)
}
