// Package logging contains the structured logger shared by the ccstats
// tools and the access log wrapper for the dataset HTTP endpoint.
package logging

import (
	golog "log"
	"net/http"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/gorilla/handlers"
)

// Logger emits JSON log entries on the standard error, so that summaries
// written on the standard output or to files stay machine readable.
var Logger = log.Logger{
	Handler: json.New(os.Stderr),
	Level:   log.DebugLevel,
}

// SetLevel changes the level of Logger. Unknown level names are reported as
// an error and leave the level unchanged.
func SetLevel(name string) error {
	level, err := log.ParseLevel(name)
	if err != nil {
		return err
	}
	Logger.Level = level
	return nil
}

// MakeAccessLogHandler wraps |handler| with another handler that logs
// access to each resource in the common log format.
func MakeAccessLogHandler(handler http.Handler) http.Handler {
	return handlers.LoggingHandler(golog.Writer(), handler)
}
