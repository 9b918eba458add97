package logger

import (
	"fmt"
	"strings"
	"time"
)

const (
	_defaultPath     = "./log"
	_defaultSaveDays = 3
)

const (
	JsonFormat    = "json"
	ConsoleFormat = "console"
)

var (
	PathDeep = 4
)

type Level int8

const (
	NoneLevel Level = iota - 1
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case NoneLevel:
		return ""
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}

// ParseLevel 未知级别按debug处理
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	}
	return DebugLevel
}

func (l Level) enabled(dst Level) bool {
	return l == NoneLevel || l <= dst
}

const (
	RotationDay  Rotation = "day"
	RotationHour Rotation = "hour"
)

type Rotation string

func (r Rotation) Duration() time.Duration {
	if r == RotationHour {
		return time.Hour
	}
	return time.Hour * 24
}

func (r Rotation) Format() string {
	if r == RotationHour {
		return "-%Y%m%d%H.log"
	}
	return "-%Y%m%d.log"
}
