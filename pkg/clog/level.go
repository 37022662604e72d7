package clog

import (
	"log/slog"

	"connectrpc.com/connect"
)

// HTTPStatusLevel picks the level a finished HTTP request is logged at.
// Client disconnects (499) are not failures.
func HTTPStatusLevel(status int) slog.Level {
	switch {
	case status == 499:
		return slog.LevelInfo
	case status >= 500 || status < 100:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// connectLevels lists the codes that indicate a caller mistake rather than a
// server fault.
var connectLevels = map[connect.Code]slog.Level{
	connect.CodeCanceled:           slog.LevelInfo,
	connect.CodeInvalidArgument:    slog.LevelInfo,
	connect.CodeDeadlineExceeded:   slog.LevelInfo,
	connect.CodeNotFound:           slog.LevelInfo,
	connect.CodeAlreadyExists:      slog.LevelInfo,
	connect.CodeFailedPrecondition: slog.LevelInfo,
	connect.CodeAborted:            slog.LevelInfo,
	connect.CodeOutOfRange:         slog.LevelInfo,
	connect.CodePermissionDenied:   slog.LevelWarn,
	connect.CodeUnauthenticated:    slog.LevelWarn,
}

// ConnectCodeLevel picks the level a failed RPC is logged at. Unlisted codes
// are server faults.
func ConnectCodeLevel(code connect.Code) slog.Level {
	if l, ok := connectLevels[code]; ok {
		return l
	}
	return slog.LevelError
}
