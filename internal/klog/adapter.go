package klog

import "fmt"

// Adapter presents a klog.Logger as the narrower Debugf/Infof surface
// package sched accepts, so sched never needs to import klog directly.
type Adapter struct {
	Logger   Logger
	Category string
}

func (a Adapter) Debugf(format string, args ...any) {
	a.log(LevelDebug, format, args...)
}

func (a Adapter) Infof(format string, args ...any) {
	a.log(LevelInfo, format, args...)
}

func (a Adapter) log(level Level, format string, args ...any) {
	if a.Logger == nil || !a.Logger.IsEnabled(level) {
		return
	}
	a.Logger.Log(Entry{
		Level:    level,
		Category: a.Category,
		Message:  fmt.Sprintf(format, args...),
	})
}
