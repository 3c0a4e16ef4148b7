package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogInit builds the shared logger: JSON lines to a size-rotated file plus
// plain text on stdout. An empty path logs to stdout only.
func LogInit(path, service string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if path == "" {
		logger.SetOutput(os.Stdout)
		return logger
	}

	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, rotated))
	logger.WithField("service", service).Info("logger initialized")
	return logger
}
