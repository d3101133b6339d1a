package engine

import "go.uber.org/zap"

// Log is an engine that only records commands to a logger. It stands in
// when no output is available so the instrument degrades to silence.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log.Named("engine")}
}

func (e *Log) Attack(slot int, pitch, velocity float64) {
	e.log.Debug("attack", zap.Int("slot", slot), zap.Float64("pitch", pitch), zap.Float64("velocity", velocity))
}

func (e *Log) Release(slot int) {
	e.log.Debug("release", zap.Int("slot", slot))
}

func (e *Log) SetParameter(slot int, name string, value float64) {
	e.log.Debug("set parameter", zap.Int("slot", slot), zap.String("name", name), zap.Float64("value", value))
}

func (e *Log) Connect(stage string) {
	e.log.Debug("connect", zap.String("stage", stage))
}

func (e *Log) Disconnect(stage string) {
	e.log.Debug("disconnect", zap.String("stage", stage))
}
