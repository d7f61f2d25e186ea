// Package log builds the logrus loggers microtest components share.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Properties configures New. Zero values select a text formatter on stderr at
// warn level, which keeps passing test runs quiet. Level zero (panic) is
// treated as unset.
type Properties struct {
	Formatter logrus.Formatter
	Level     logrus.Level
	Output    io.Writer
	Verbose   bool
}

// New creates a logger from properties
func New(properties Properties) *logrus.Logger {
	log := logrus.New()

	if properties.Formatter == nil {
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	} else {
		log.SetFormatter(properties.Formatter)
	}

	level := properties.Level
	if level == 0 {
		level = logrus.WarnLevel
	}
	if properties.Verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	if properties.Output == nil {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(properties.Output)
	}

	return log
}

// Discard returns a logger that drops everything
func Discard() *logrus.Logger {
	log := New(Properties{Output: io.Discard})
	log.SetLevel(logrus.PanicLevel)
	return log
}

// ForComponent scopes a logger to a named component
func ForComponent(l logrus.FieldLogger, component string) *logrus.Entry {
	return l.WithField("component", component)
}
