package logger

import (
	"io"
)

type Writer interface {
	check(Level) Writer
	Write(p []byte) (n int, err error)
}

// SingleWriter 单一输出 级别为NoneLevel时接收所有级别
type SingleWriter struct {
	w     io.Writer
	level Level
}

func (sw SingleWriter) check(dst Level) Writer {
	if sw.level.enabled(dst) {
		return sw
	}
	return nil
}

func (sw SingleWriter) Write(p []byte) (n int, err error) {
	return sw.w.Write(p)
}

// GroupWriter 按级别分文件 每个文件接收不低于自身级别的日志
type GroupWriter []*SingleWriter

func (gw GroupWriter) check(dst Level) Writer {
	g := GroupWriter{}
	for _, sw := range gw {
		if sw.level.enabled(dst) {
			g = append(g, sw)
		}
	}
	return g
}

func (gw GroupWriter) Write(p []byte) (n int, err error) {
	for _, sw := range gw {
		n, err = sw.w.Write(p)
	}
	return
}
