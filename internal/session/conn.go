package session

import "net"

// bufferedConn wraps a net.Conn with the arena's raw socket regions.
// Writes accumulate in the write region and reach the wire when the
// region fills, when Flush is called, or before any read -- the
// flush-before-read rule is what lets TLS handshake flights drain even
// though the handshake never calls Flush itself.
//
// The wrapper is not safe for concurrent use. One session, one owner.
type bufferedConn struct {
	net.Conn

	rbuf       []byte
	rpos, rlen int

	wbuf []byte
	wlen int
}

func newBufferedConn(c net.Conn, rbuf, wbuf []byte) *bufferedConn {
	return &bufferedConn{Conn: c, rbuf: rbuf, wbuf: wbuf}
}

// Read returns buffered bytes when available and refills the read region
// with a single underlying read otherwise. Pending writes are flushed
// first so the peer has something to respond to.
func (c *bufferedConn) Read(p []byte) (int, error) {
	if c.wlen > 0 {
		if err := c.Flush(); err != nil {
			return 0, err
		}
	}

	if c.rpos == c.rlen {
		n, err := c.Conn.Read(c.rbuf)
		if n == 0 {
			return 0, err
		}
		// Deliver the bytes; a non-nil err resurfaces on the next read.
		c.rpos, c.rlen = 0, n
	}

	n := copy(p, c.rbuf[c.rpos:c.rlen])
	c.rpos += n
	return n, nil
}

// Write accumulates p in the write region, draining to the wire whenever
// the region fills.
func (c *bufferedConn) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if c.wlen == len(c.wbuf) {
			if err := c.Flush(); err != nil {
				return total, err
			}
		}
		n := copy(c.wbuf[c.wlen:], p)
		c.wlen += n
		p = p[n:]
		total += n
	}
	return total, nil
}

// Flush writes all accumulated bytes to the wire.
func (c *bufferedConn) Flush() error {
	for pos := 0; pos < c.wlen; {
		n, err := c.Conn.Write(c.wbuf[pos:c.wlen])
		pos += n
		if err != nil {
			// Keep the unwritten tail for a retry by the caller.
			c.wlen = copy(c.wbuf, c.wbuf[pos:c.wlen])
			return err
		}
	}
	c.wlen = 0
	return nil
}
