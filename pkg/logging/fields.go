package logging

import "log/slog"

// Domain identifiers

func Deal(id int64) slog.Attr {
	return slog.Int64("deal_id", id)
}

func User(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

func Role(role string) slog.Attr {
	return slog.String("role", role)
}

func Connection(id string) slog.Attr {
	return slog.String("connection_id", id)
}

func Version(v int64) slog.Attr {
	return slog.Int64("deal_version", v)
}

// Request / tracing

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func TraceID(id string) slog.Attr {
	return slog.String("trace_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
