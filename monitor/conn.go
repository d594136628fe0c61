package monitor

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// streamConn is the server side of a stream connection. Data frames and
// control replies are written under one mutex so frames never interleave.
type streamConn struct {
	conn    net.Conn
	r       io.Reader
	writeMu sync.Mutex
}

func newStreamConn(conn net.Conn, br *bufio.Reader) *streamConn {
	c := &streamConn{conn: conn, r: conn}
	if br != nil && br.Buffered() > 0 {
		c.r = io.MultiReader(br, conn)
	}
	return c
}

func (c *streamConn) writeText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerText(c.conn, data)
}

func (c *streamConn) writeFrame(f ws.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteFrame(c.conn, f)
}

// readLoop consumes client frames, answering pings, until the client
// closes the connection or a read fails.
func (c *streamConn) readLoop() error {
	for {
		f, err := ws.ReadFrame(c.r)
		if err != nil {
			return err
		}
		if f.Header.Masked {
			f = ws.UnmaskFrameInPlace(f)
		}

		switch f.Header.OpCode {
		case ws.OpPing:
			if err := c.writeFrame(ws.NewPongFrame(f.Payload)); err != nil {
				return err
			}
		case ws.OpClose:
			body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
			_ = c.writeFrame(ws.NewCloseFrame(body))
			return io.EOF
		}
	}
}

// clientConn is the client side of a stream connection. Bytes the server
// sent together with the handshake response are buffered in br and read
// before the socket.
type clientConn struct {
	net.Conn
	r io.Reader
}

func newClientConn(conn net.Conn, br *bufio.Reader) *clientConn {
	c := &clientConn{Conn: conn, r: conn}
	if br != nil {
		c.r = io.MultiReader(br, conn)
	}
	return c
}

func (c *clientConn) Read(p []byte) (int, error) { return c.r.Read(p) }
