// Package resp implements the subset of the Redis serialization
// protocol needed to drive a key-value benchmark over a raw TCP
// stream: array-of-bulk-string requests, and simple string, bulk
// string, and error replies.
package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrConnClosed reports that the peer closed the stream before a
	// reply header could be read.
	ErrConnClosed = errors.New("resp: connection closed")

	// ErrProtocol reports malformed reply framing or a payload that
	// cannot be interpreted as requested.
	ErrProtocol = errors.New("resp: protocol error")
)

// ServerError is an error reply ("-..." on the wire) surfaced as a Go
// error. The server rejected the command's semantics, not its framing,
// so callers decide whether it is fatal.
type ServerError string

func (e ServerError) Error() string {
	return "resp: server error: " + string(e)
}

// Type identifies a reply variant by its wire prefix byte.
type Type byte

const (
	TypeSimple Type = '+'
	TypeBulk   Type = '$'
	TypeError  Type = '-'
)

// Reply is one decoded server reply. Replies with a prefix this codec
// does not model (arrays, integers) are carried through with their raw
// type byte and payload line so callers can ignore them instead of
// failing the read.
type Reply struct {
	Type  Type
	Value []byte // payload bytes; nil for a null bulk string
	Null  bool   // true when the server sent $-1
}

// Opaque reports whether the reply carries an unrecognized prefix.
func (r Reply) Opaque() bool {
	switch r.Type {
	case TypeSimple, TypeBulk, TypeError:
		return false
	}

	return true
}

// OK reports whether the reply is the server's standard
// acknowledgement for a write.
func (r Reply) OK() bool {
	return r.Type == TypeSimple && string(r.Value) == "OK"
}

// Err returns the reply as a ServerError if it is an error reply,
// nil otherwise.
func (r Reply) Err() error {
	if r.Type == TypeError {
		return ServerError(r.Value)
	}

	return nil
}

// Int interprets the reply payload as a base-10 counter value. A null
// bulk string reads as 0; an error reply is never usable as a value.
func (r Reply) Int() (int64, error) {
	if r.Type == TypeError {
		return 0, ServerError(r.Value)
	}

	if r.Null {
		return 0, nil
	}

	n, err := strconv.ParseInt(string(r.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric value %q", ErrProtocol, r.Value)
	}

	return n, nil
}

// EncodeCommand serializes one command as a RESP array of bulk
// strings. Arguments may be string, []byte, int, or int64; integers
// are written in their decimal text form, and every length field is
// the byte length of the payload actually written.
func EncodeCommand(args ...any) ([]byte, error) {
	buf := make([]byte, 0, 32)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, '\r', '\n')

	for _, arg := range args {
		var payload []byte

		switch v := arg.(type) {
		case string:
			payload = []byte(v)
		case []byte:
			payload = v
		case int:
			payload = strconv.AppendInt(nil, int64(v), 10)
		case int64:
			payload = strconv.AppendInt(nil, v, 10)
		default:
			return nil, fmt.Errorf(
				"resp: unsupported argument type %T", arg,
			)
		}

		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(payload)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, payload...)
		buf = append(buf, '\r', '\n')
	}

	return buf, nil
}

// ReadReply reads exactly one reply from br. A stream that ends (or
// fails) before any header byte yields ErrConnClosed; a malformed
// length field yields ErrProtocol.
func ReadReply(br *bufio.Reader) (Reply, error) {
	line, err := readLine(br)
	if err != nil {
		return Reply{}, err
	}

	if len(line) == 0 {
		return Reply{}, fmt.Errorf("%w: empty reply header", ErrProtocol)
	}

	prefix := line[0]
	payload := line[1:]

	switch prefix {
	case byte(TypeSimple):
		return Reply{Type: TypeSimple, Value: payload}, nil

	case byte(TypeBulk):
		return readBulk(br, payload)

	case byte(TypeError):
		// Error text is for humans; replace undecodable bytes
		// instead of failing the read.
		msg := strings.ToValidUTF8(string(payload), string(utf8Replacement))

		return Reply{Type: TypeError, Value: []byte(msg)}, nil

	default:
		return Reply{Type: Type(prefix), Value: payload}, nil
	}
}

const utf8Replacement = '\uFFFD'

// maxBulkLen bounds the declared bulk payload size so a broken or
// hostile peer cannot force an arbitrary allocation. Matches the Redis
// proto-max-bulk-len default of 512MB.
const maxBulkLen = 512 << 20

func readBulk(br *bufio.Reader, header []byte) (Reply, error) {
	length, err := strconv.ParseInt(string(header), 10, 64)
	if err != nil {
		return Reply{}, fmt.Errorf(
			"%w: bad bulk length %q", ErrProtocol, header,
		)
	}

	if length == -1 {
		return Reply{Type: TypeBulk, Null: true}, nil
	}

	if length < 0 {
		return Reply{}, fmt.Errorf(
			"%w: negative bulk length %d", ErrProtocol, length,
		)
	}

	if length > maxBulkLen {
		return Reply{}, fmt.Errorf(
			"%w: bulk length %d exceeds limit", ErrProtocol, length,
		)
	}

	// Body plus its trailing CRLF terminator.
	buf := make([]byte, length+2)
	if _, err := io.ReadFull(br, buf); err != nil {
		return Reply{}, fmt.Errorf("%w: truncated bulk body", ErrProtocol)
	}

	return Reply{Type: TypeBulk, Value: buf[:length]}, nil
}

func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	if err != nil {
		if len(line) == 0 {
			return nil, ErrConnClosed
		}

		return nil, fmt.Errorf("%w: truncated reply header", ErrProtocol)
	}

	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}

	return line, nil
}
