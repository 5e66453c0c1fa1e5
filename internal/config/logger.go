package config

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger: JSON outside development, text inside.
// Unknown levels fall back to info.
func NewLogger(env, level string) *logrus.Logger {
	return newLogger(os.Stderr, env, level)
}

func newLogger(out io.Writer, env, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	if env == "development" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}
