// Package ui provides terminal UI components and styling for sitechat.
package ui

import (
	"os"

	"github.com/charmbracelet/log"
)

// Init configures the process-wide logger. Debug mode lowers the level
// and turns on timestamps, which are noise in normal CLI output but
// useful when tracing a crawl.
func Init(debug bool) {
	log.SetOutput(os.Stderr)
	log.SetReportCaller(false)
	log.SetReportTimestamp(debug)
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
