package logger

import (
	"fmt"
	"log"
	"strings"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarning
	levelError
)

var minLevel = levelInfo

func parseLevel(name string) level {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return levelDebug
	case "WARNING", "WARN":
		return levelWarning
	case "ERROR":
		return levelError
	default:
		return levelInfo
	}
}

// output writes through the standard logger so the rotating multiwriter
// configured in Setup is reused. Calldepth 3 attributes the line to the caller
// of the exported helper.
func output(l level, tag, msg string) {
	if l < minLevel {
		return
	}
	log.Output(3, fmt.Sprintf("[%s] %s", tag, msg))
}

func Debugf(format string, args ...any) {
	output(levelDebug, "DEBUG", fmt.Sprintf(format, args...))
}

func Infof(format string, args ...any) {
	output(levelInfo, "INFO", fmt.Sprintf(format, args...))
}

func Warningf(format string, args ...any) {
	output(levelWarning, "WARNING", fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	output(levelError, "ERROR", fmt.Sprintf(format, args...))
}

func Error(args ...any) {
	output(levelError, "ERROR", fmt.Sprint(args...))
}
