package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestNewEngine_RejectsBadDescriptor(t *testing.T) {
	_, err := NewEngine(-1, Config{ServerName: "example.com"})
	assert.NotNil(t, err)
}

func TestEngine_FirstStepSendsClientHello(t *testing.T) {
	a, b := socketpair(t)

	eng, err := NewEngine(a, Config{ServerName: "localhost", Insecure: true})
	assert.Nil(t, err)

	// the first step dispatches the ClientHello and then blocks on the
	// missing ServerHello
	v := eng.Handshake()
	assert.Equal(t, WantRead, v)
	assert.Nil(t, eng.Err())

	buf := make([]byte, 4096)
	n, rerr := unix.Read(b, buf)
	assert.Nil(t, rerr)
	assert.True(t, n > 0, "expected a ClientHello on the wire")
	// TLS handshake records carry content type 22
	assert.Equal(t, byte(22), buf[0])
}

func TestEngine_HandshakeStepIsRepeatable(t *testing.T) {
	a, _ := socketpair(t)

	eng, err := NewEngine(a, Config{ServerName: "localhost", Insecure: true})
	assert.Nil(t, err)

	// with no peer traffic every step keeps asking for readability
	assert.Equal(t, WantRead, eng.Handshake())
	assert.Equal(t, WantRead, eng.Handshake())
	assert.Nil(t, eng.Err())
}
