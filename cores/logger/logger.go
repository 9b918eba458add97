package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	rotate "github.com/lestrrat-go/file-rotatelogs"
)

type Option func(*Logger)

type Logger struct {
	path     string
	name     string
	rotation Rotation
	saveDays int
	level    Level
	// 格式控制
	consoleSeparator string
	format           string
	// 格式函数
	EncodeTime    TimeEncoder
	EncodeCaller  CallerEncoder
	EncoderLevel  LevelEncoder
	EncoderCustom []CustomJsonEncoder
	// 输出 为空时按path/name生成滚动文件
	out    io.Writer
	writer Writer
	once   sync.Once
}

func newLogger(name string, level Level, opts ...Option) *Logger {
	lgr := &Logger{
		name:             name,
		path:             _defaultPath,
		rotation:         RotationDay,
		saveDays:         _defaultSaveDays,
		format:           ConsoleFormat,
		level:            level,
		EncodeCaller:     defaultCallEncoder,
		EncodeTime:       defaultTimeEncoder,
		EncoderLevel:     defaultLevelEncoder,
		EncoderCustom:    []CustomJsonEncoder{ServiceEncoder, IndexEncoder},
		consoleSeparator: " ",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(lgr)
		}
	}
	return lgr
}

// New 单文件日志 不区分级别
func New(name string, opts ...Option) *Logger {
	return newLogger(name, NoneLevel, opts...)
}

// NewGroup 按级别分文件 低于level的日志丢弃
func NewGroup(level Level, opts ...Option) *Logger {
	return newLogger("", level, opts...)
}

func (l *Logger) fullName() string {
	if !strings.HasSuffix(l.path, "/") {
		l.path += "/"
	}
	name := l.name
	if !strings.HasSuffix(name, ".log") {
		name = strings.TrimSuffix(name, ".") + ".log"
	}
	return l.path + name
}

func (l *Logger) levelName(level Level) string {
	if !strings.HasSuffix(l.path, "/") {
		l.path += "/"
	}
	return l.path + strings.ToLower(level.String()) + ".log"
}

func (l *Logger) rotateWriter(link string) io.Writer {
	r, err := rotate.New(
		strings.TrimSuffix(link, ".log")+l.rotation.Format(),
		rotate.WithLinkName(link),
		rotate.WithMaxAge(time.Hour*24*time.Duration(l.saveDays)),
		rotate.WithRotationTime(l.rotation.Duration()),
	)
	if err != nil {
		panic(fmt.Sprintf("init logger new rotate_log err:%v", err))
	}
	return r
}

func (l *Logger) build() {
	l.once.Do(func() {
		if l.out != nil {
			l.writer = SingleWriter{w: l.out, level: l.level}
			return
		}
		if l.level == NoneLevel {
			l.writer = SingleWriter{w: l.rotateWriter(l.fullName()), level: l.level}
			return
		}
		writer := GroupWriter{}
		for lv := l.level; lv <= ErrorLevel; lv++ {
			writer = append(writer, &SingleWriter{w: l.rotateWriter(l.levelName(lv)), level: lv})
		}
		l.writer = writer
	})
}

// Write use setting level
func (l *Logger) Write(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, l.level, format, args...)
}

func (l *Logger) Debug(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, DebugLevel, format, args...)
}

func (l *Logger) Info(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, InfoLevel, format, args...)
}

func (l *Logger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, WarnLevel, format, args...)
}

func (l *Logger) Error(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, ErrorLevel, format, args...)
}

func (l *Logger) Fatal(ctx context.Context, format string, args ...interface{}) {
	l.write(ctx, ErrorLevel, format, args...)
	os.Exit(-1)
}

func message(format string, args ...interface{}) string {
	if format == "" {
		return fmt.Sprint(args...)
	}
	return fmt.Sprintf(format, args...)
}

func (l *Logger) write(ctx context.Context, level Level, format string, args ...interface{}) {
	l.build()
	w := l.writer.check(level)
	if w == nil {
		return
	}

	var buf bytes.Buffer
	// 根据格式不同写入
	switch l.format {
	case JsonFormat:
		data := make(map[string]string)
		if d := l.EncodeTime(time.Now()); d != "" {
			data["time"] = d
		}
		if c := l.EncodeCaller(); c != "" {
			data["caller"] = c
		}
		if lv := level.String(); lv != "" {
			data["level"] = lv
		}
		data["message"] = message(format, args...)
		if traceID := traceEncoder(ctx); traceID != "" {
			data["trace_id"] = traceID
		}
		for _, ce := range l.EncoderCustom {
			if k, v := ce(ctx); k != "" && v != "" {
				data[k] = v
			}
		}
		bs, err := json.Marshal(data)
		if err != nil {
			return
		}
		buf.Write(bs)
	default:
		if d := l.EncodeTime(time.Now()); d != "" {
			buf.WriteString(d + l.consoleSeparator)
		}
		if c := l.EncodeCaller(); c != "" {
			buf.WriteString(c + l.consoleSeparator)
		}
		if lvl := l.EncoderLevel(level); lvl != "" {
			buf.WriteString(lvl + l.consoleSeparator)
		}
		for _, ce := range l.EncoderCustom {
			if k, v := ce(ctx); k != "" && v != "" {
				buf.WriteString(k + "=" + v + l.consoleSeparator)
			}
		}
		buf.WriteString(message(format, args...))
		if traceID := traceEncoder(ctx); traceID != "" {
			buf.WriteString(l.consoleSeparator + "(" + traceID + ")")
		}
	}
	buf.WriteString("\n")
	_, _ = w.Write(buf.Bytes())
}

func SetPath(path string) Option {
	return func(logger *Logger) {
		logger.path = path
	}
}

func SetRotation(r Rotation) Option {
	return func(logger *Logger) {
		logger.rotation = r
	}
}

func SetSaveDays(days int) Option {
	return func(logger *Logger) {
		logger.saveDays = days
	}
}

func SetFormat(format string) Option {
	return func(logger *Logger) {
		logger.format = format
	}
}

// SetWriter 直接输出到writer(如stdout) 不再生成滚动文件
func SetWriter(w io.Writer) Option {
	return func(logger *Logger) {
		logger.out = w
	}
}
