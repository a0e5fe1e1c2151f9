package application

import "log/slog"

// ModuleName tags every log line emitted by this bounded context.
const ModuleName = "competition-judging/evaluation-engine"

// ResolveLogger guarantees a non-nil logger for application/worker code paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
