package app

import (
	"go.uber.org/zap"
)

// gocronLogger пишет логи планировщика через zap
type gocronLogger struct {
	logger *zap.Logger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.logger.Sugar().Debugw(msg, args...) }
func (l gocronLogger) Info(msg string, args ...any)  { l.logger.Sugar().Infow(msg, args...) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.logger.Sugar().Warnw(msg, args...) }
func (l gocronLogger) Error(msg string, args ...any) { l.logger.Sugar().Errorw(msg, args...) }
