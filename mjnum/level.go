// Package mjnum provides the severity levels that events carry.
package mjnum

import (
	"strings"

	"github.com/pkg/errors"
)

type Level int32

// The numbers follow Open Telemetry's severity numbers so that
// levels compare the same way across the ecosystem.
const (
	TraceLevel Level = 1  // TRACE
	DebugLevel Level = 5  // DEBUG
	InfoLevel  Level = 9  // INFO
	WarnLevel  Level = 13 // WARN
	ErrorLevel Level = 17 // ERROR
)

const MaxLevel = ErrorLevel

var ErrUnknownLevel = errors.New("unknown level")

func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	}
	return l.Round().String()
}

// Round maps numbers in between the named levels down to the
// nearest named level.
func (l Level) Round() Level {
	switch {
	case l >= ErrorLevel:
		return ErrorLevel
	case l >= WarnLevel:
		return WarnLevel
	case l >= InfoLevel:
		return InfoLevel
	case l >= DebugLevel:
		return DebugLevel
	}
	return TraceLevel
}

// LevelString parses a level name, case insensitive.
func LevelString(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TraceLevel, nil
	case "DEBUG":
		return DebugLevel, nil
	case "INFO":
		return InfoLevel, nil
	case "WARN", "WARNING":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	}
	return 0, errors.Wrapf(ErrUnknownLevel, "%q", s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	v, err := LevelString(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
