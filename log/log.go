package log

import (
	"errors"
	"log"
)

var (
	ErrKvsNotInPaired = errors.New("kvs must appear in pairs")
)

var (
	defaultLogger, _ = With(NewStdLogger(log.Writer()))
	DefaultMsgKey    = "msg"
)

// Logger defines logger interface
// inspired by https://github.com/go-kratos/kratos/blob/main/log
type Logger interface {
	Log(level Level, kvs ...interface{})
}

var _ Logger = (*logger)(nil)

type logger struct {
	l        Logger
	prefixes []interface{}
}

// Log implements Logger
func (l logger) Log(level Level, kvs ...interface{}) {
	// filter not logging level
	if _, ok := filterLevels[level]; ok {
		return
	}
	keyvals := make([]interface{}, 0, len(l.prefixes)+len(kvs))
	keyvals = append(keyvals, l.prefixes...)
	keyvals = append(keyvals, kvs...)
	l.l.Log(level, keyvals...)
}

// With returns a Logger that prepends kvs to every record.
func With(l Logger, kvs ...interface{}) (Logger, error) {
	if len(kvs)&1 != 0 {
		return l, ErrKvsNotInPaired
	}
	d, ok := l.(*logger)
	if !ok {
		return &logger{
			l:        l,
			prefixes: kvs,
		}, nil
	}

	prefix := make([]interface{}, 0, len(d.prefixes)+len(kvs))
	prefix = append(prefix, d.prefixes...)
	prefix = append(prefix, kvs...)

	return &logger{
		l:        d.l,
		prefixes: prefix,
	}, nil
}
