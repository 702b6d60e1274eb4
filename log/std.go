package log

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

var _ Logger = (*stdLogger)(nil)

type stdLogger struct {
	log  *log.Logger
	pool *sync.Pool
}

// NewStdLogger returns a Logger writing key-value records to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{
		log: log.New(w, "", 0),
		pool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Log prints the kv pairs to the underlying writer.
func (l *stdLogger) Log(level Level, kvs ...interface{}) {
	if len(kvs) == 0 {
		return
	}
	if len(kvs)&1 == 1 {
		kvs = append(kvs, "KEY VALUES UNPAIRED")
	}
	buf := l.pool.Get().(*bytes.Buffer)
	buf.WriteString(time.Now().Format("2006-01-02T15:04:05.000"))
	buf.WriteString(" " + level.String())
	for i := 0; i < len(kvs); i += 2 {
		_, _ = fmt.Fprintf(buf, " %s=%v", kvs[i], kvs[i+1])
	}
	_ = l.log.Output(4, buf.String()) //nolint:gomnd
	buf.Reset()
	l.pool.Put(buf)
}
