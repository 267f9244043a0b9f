// Package client provides a single-connection RESP session against
// one key-value server endpoint.
package client

import (
	"bufio"
	"fmt"
	"net"
	"strconv"

	"github.com/Jiyang-Wu/makobench/resp"
)

// Conn is one blocking session over a TCP stream. Commands and replies
// alternate strictly: every command written has exactly one reply read
// before the next command is sent. A Conn must not be shared between
// concurrent callers.
type Conn struct {
	nc net.Conn
	br *bufio.Reader
}

// Dial opens a TCP stream to host:port. There is no retry, no backoff,
// and no timeout; failure is surfaced to the caller immediately.
func Dial(host string, port int) (*Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	return &Conn{
		nc: nc,
		br: bufio.NewReader(nc),
	}, nil
}

// Do encodes one command, writes it in full, and reads exactly one
// reply. Transport and framing failures come back as errors; an error
// reply from the server comes back as a Reply for the caller to
// escalate.
func (c *Conn) Do(args ...any) (resp.Reply, error) {
	buf, err := resp.EncodeCommand(args...)
	if err != nil {
		return resp.Reply{}, err
	}

	if _, err := c.nc.Write(buf); err != nil {
		return resp.Reply{}, fmt.Errorf("write command: %w", err)
	}

	return resp.ReadReply(c.br)
}

// Close releases the underlying stream. Call at most once per Conn.
func (c *Conn) Close() error {
	return c.nc.Close()
}
