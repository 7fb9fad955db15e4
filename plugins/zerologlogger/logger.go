package zerologlogger

import (
	"github.com/hugolhafner/go-consumer/logger"
	"github.com/rs/zerolog"
)

var _ logger.Base = (*ZerologLogger)(nil)

type ZerologLogger struct {
	l zerolog.Logger
}

func New(l zerolog.Logger) logger.Logger {
	return logger.WrapLogger(&ZerologLogger{l: l})
}

func (z *ZerologLogger) Level() logger.LogLevel {
	return mapFromZerologLevel(z.l.GetLevel())
}

func (z *ZerologLogger) Log(level logger.LogLevel, msg string, kv ...any) {
	ev := z.l.WithLevel(mapToZerologLevel(level))
	if ev == nil {
		return
	}

	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}

		if err, ok := kv[i+1].(error); ok {
			ev = ev.AnErr(key, err)
			continue
		}

		ev = ev.Interface(key, kv[i+1])
	}

	ev.Msg(msg)
}

func mapToZerologLevel(level logger.LogLevel) zerolog.Level {
	switch level {
	case logger.DebugLevel:
		return zerolog.DebugLevel
	case logger.InfoLevel:
		return zerolog.InfoLevel
	case logger.WarnLevel:
		return zerolog.WarnLevel
	case logger.ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func mapFromZerologLevel(level zerolog.Level) logger.LogLevel {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return logger.DebugLevel
	case zerolog.InfoLevel:
		return logger.InfoLevel
	case zerolog.WarnLevel:
		return logger.WarnLevel
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return logger.ErrorLevel
	default:
		return logger.DebugLevel
	}
}
