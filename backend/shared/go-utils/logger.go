package utils

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook interface.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook interface.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.appName + "] " + entry.Message
	return nil
}

// InitLogger configures the shared Logger. LOG_LEVEL picks the level
// (default info); LOG_FORMAT=json switches to the JSON formatter for
// hosted log collectors.
func InitLogger(appName string) {
	initLogger(appName, os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func initLogger(appName string, out io.Writer, levelStr, format string) {
	Logger.SetOutput(out)

	levelStr = strings.ToLower(strings.TrimSpace(levelStr))
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		Logger.Warnf("Invalid LOG_LEVEL '%s', defaulting to INFO", levelStr)
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)

	if strings.EqualFold(format, "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	Logger.ReplaceHooks(make(logrus.LevelHooks))
	if appName != "" {
		Logger.AddHook(&appNameHook{appName})
	}
}
