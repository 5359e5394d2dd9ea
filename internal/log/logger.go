package log

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func NewLogger(level, format string, disableTimestamp bool) *logrus.Logger {
	var log = logrus.New()
	switch strings.ToUpper(format) {
	case "JSON":
		log.Formatter = &logrus.JSONFormatter{DisableTimestamp: disableTimestamp}
	default:
		log.Formatter = &logrus.TextFormatter{
			DisableTimestamp: disableTimestamp,
			FullTimestamp:    !disableTimestamp,
		}
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.Level = lvl
	log.Out = os.Stdout
	return log
}
