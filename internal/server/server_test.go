package server

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bader/internal/clock"
	"bader/internal/config"
	"bader/internal/storage"
)

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"

	store := storage.New(clock.New(), nil)
	srv := New(cfg, store)

	go srv.Start()
	require.Eventually(t, func() bool {
		return srv.listener != nil
	}, time.Second, time.Millisecond)

	return srv, func() { srv.Shutdown() }
}

// testConn is a minimal hand-rolled RESP client used only to exercise the
// server from outside, independent of internal/resp's own implementation.
type testConn struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *testConn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	return &testConn{conn: conn, r: bufio.NewReader(conn)}
}

func (c *testConn) send(args ...string) {
	buf := fmt.Sprintf("*%d\r\n", len(args))
	for _, a := range args {
		buf += fmt.Sprintf("$%d\r\n%s\r\n", len(a), a)
	}
	c.conn.Write([]byte(buf))
}

// sendRaw writes bytes verbatim, for malformed-frame tests.
func (c *testConn) sendRaw(raw string) {
	c.conn.Write([]byte(raw))
}

func (c *testConn) readLine() string {
	line, _ := c.r.ReadString('\n')
	if len(line) >= 2 {
		return line[:len(line)-2]
	}
	return line
}

// readBulk reads a "$len\r\n...\r\n" or "$-1\r\n" reply.
func (c *testConn) readBulk() (string, bool) {
	header := c.readLine()
	if header == "$-1" {
		return "", false
	}
	n, _ := strconv.Atoi(header[1:])
	buf := make([]byte, n+2)
	for read := 0; read < len(buf); {
		m, _ := c.r.Read(buf[read:])
		read += m
	}
	return string(buf[:n]), true
}

func TestServer_SetGetDel(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	c := dial(t, srv.Addr())
	defer c.conn.Close()

	c.send("SET", "hello", "world")
	assert.Equal(t, "+OK", c.readLine())

	c.send("GET", "hello")
	val, ok := c.readBulk()
	require.True(t, ok)
	assert.Equal(t, "world", val)

	c.send("DEL", "hello")
	assert.Equal(t, ":1", c.readLine())

	c.send("GET", "hello")
	_, ok = c.readBulk()
	assert.False(t, ok)
}

func TestServer_SetWithPXExpires(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	c := dial(t, srv.Addr())
	defer c.conn.Close()

	c.send("SET", "k", "v", "PX", "20")
	assert.Equal(t, "+OK", c.readLine())

	time.Sleep(60 * time.Millisecond)

	c.send("GET", "k")
	_, ok := c.readBulk()
	assert.False(t, ok)

	c.send("EXISTS", "k")
	existsVal, _ := c.readBulk()
	assert.Equal(t, "false", existsVal)
}

func TestServer_ExistsRepliesTrueFalse(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	c := dial(t, srv.Addr())
	defer c.conn.Close()

	c.send("SET", "k", "v")
	c.readLine()

	c.send("EXISTS", "k")
	v, _ := c.readBulk()
	assert.Equal(t, "true", v)

	c.send("EXISTS", "missing")
	v, _ = c.readBulk()
	assert.Equal(t, "false", v)
}

func TestServer_UnknownCommandRepliesError(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	c := dial(t, srv.Addr())
	defer c.conn.Close()

	c.send("FROBNICATE", "x")
	reply := c.readLine()
	assert.Contains(t, reply, "-ERR")

	c.send("PING")
	assert.Equal(t, "+PONG", c.readLine())
}

func TestServer_ProtocolErrorKeepsConnectionOpen(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	c := dial(t, srv.Addr())
	defer c.conn.Close()

	// Second array element uses the wrong type marker (':' instead of
	// '$'), which is a protocol error detectable without more bytes.
	c.sendRaw("*2\r\n$3\r\nGET\r\n:5\r\n")
	reply := c.readLine()
	assert.Contains(t, reply, "-ERR")

	c.send("PING")
	assert.Equal(t, "+PONG", c.readLine())
}
