package testutil

import (
	"io"
	"log/slog"

	"github.com/dtroode/keybox/internal/logger"
)

func MakeNoopLogger() *logger.Logger {
	return logger.NewWithWriter(int(slog.LevelDebug), io.Discard)
}
