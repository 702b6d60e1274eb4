package log

import (
	"fmt"
	"strings"
	"testing"
)

type mockLogger struct {
	t       *testing.T
	records []string
}

func (l *mockLogger) Log(level Level, kvs ...interface{}) {
	builder := strings.Builder{}
	builder.WriteString(level.String() + " ")
	for i := 0; i < len(kvs); i += 2 {
		builder.WriteString(fmt.Sprintf("%v=%v ", kvs[i], kvs[i+1]))
	}
	l.records = append(l.records, builder.String())
	l.t.Log(builder.String())
}

func TestWith(t *testing.T) {
	mock := &mockLogger{t: t}
	logger, err := With(Logger(mock), "conn", "c1")
	if err != nil {
		t.Fatalf("expect: %v, got: %v", nil, err)
	}
	logger.Log(LevelDebug, "msg", "test1")
	logger.Log(LevelInfo, "msg", "test2")
	logger.Log(LevelError, "msg", "test3")

	for _, record := range mock.records {
		if !strings.Contains(record, "conn=c1") {
			t.Errorf("expect prefix conn=c1, got: %v", record)
		}
	}

	if _, err = With(logger, "singular"); err == nil {
		t.Fatalf("expect: %v, got: %v", ErrKvsNotInPaired, nil)
	}
}

func TestWithNested(t *testing.T) {
	mock := &mockLogger{t: t}
	logger, _ := With(Logger(mock), "conn", "c1")
	logger, _ = With(logger, "state", "handshake")
	logger.Log(LevelDebug, "msg", "step")

	if got := mock.records[0]; !strings.Contains(got, "conn=c1") || !strings.Contains(got, "state=handshake") {
		t.Errorf("expect both prefixes, got: %v", got)
	}
}
