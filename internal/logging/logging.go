// Package logging configures the process-wide logger: JSON lines to a
// rotated file when one is configured, plain text to stderr otherwise.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a logger at the given level. A non-empty file path turns
// on rotation: 50 MB per file, five backups, 30 days.
func New(level, file string) *logrus.Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if file != "" {
		log.SetFormatter(&logrus.JSONFormatter{})
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, rotated))
	}
	return log
}
