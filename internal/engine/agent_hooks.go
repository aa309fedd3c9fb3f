package engine

import "go.uber.org/zap"

// DefaultHooks returns default hooks for an agent.
func DefaultHooks(l *zap.SugaredLogger) Hooks {
	if l == nil {
		l = zap.S()
	}
	return Hooks{LoggerHook{L: l}}
}
