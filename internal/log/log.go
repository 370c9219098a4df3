// Package log builds the debug logger. The CLI is silent unless --debug is
// set; components receive a sugared logger and never log above debug on
// their own (user-facing messages go through the status reporter).
package log

import "go.uber.org/zap"

// New returns a development logger when debug is enabled, otherwise a nop
// logger.
func New(debug bool) *zap.SugaredLogger {
	if !debug {
		return zap.NewNop().Sugar()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
