package resp

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readCommand parses one request array of bulk strings. The codec
// itself never decodes arrays; this reader exists only so the tests
// can round-trip encoded commands.
func readCommand(t *testing.T, br *bufio.Reader) [][]byte {
	t.Helper()

	header, err := readLine(br)
	require.NoError(t, err)
	require.Equal(t, byte('*'), header[0])

	argc, err := strconv.Atoi(string(header[1:]))
	require.NoError(t, err)

	args := make([][]byte, 0, argc)
	for i := 0; i < argc; i++ {
		reply, err := ReadReply(br)
		require.NoError(t, err)
		require.Equal(t, TypeBulk, reply.Type)
		args = append(args, reply.Value)
	}

	return args
}

func TestEncodeCommandWire(t *testing.T) {
	buf, err := EncodeCommand("SET", "key", "0")
	require.NoError(t, err)
	assert.Equal(t,
		"*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$1\r\n0\r\n",
		string(buf),
	)
}

func TestEncodeCommandIntegerArgs(t *testing.T) {
	buf, err := EncodeCommand("SET", "bench_counter", 1234)
	require.NoError(t, err)

	// Integer length is computed after decimal conversion.
	assert.Contains(t, string(buf), "$4\r\n1234\r\n")
}

func TestEncodeCommandUnsupportedType(t *testing.T) {
	_, err := EncodeCommand("SET", "key", 3.14)
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]any{
		{"GET", "bench_counter"},
		{"SET", "bench_counter", 0},
		{"SET", "k", int64(9007199254740993)},
		{"SET", []byte{0x00, 0x0d, 0x0a, 0xff}, "binary\r\nsafe"},
		{"PING"},
		{"SET", "", ""},
	}

	for _, args := range cases {
		buf, err := EncodeCommand(args...)
		require.NoError(t, err)

		got := readCommand(t, bufio.NewReader(bytes.NewReader(buf)))
		require.Len(t, got, len(args))

		for i, arg := range args {
			var want []byte
			switch v := arg.(type) {
			case string:
				want = []byte(v)
			case []byte:
				want = v
			case int:
				want = []byte(strconv.Itoa(v))
			case int64:
				want = []byte(strconv.FormatInt(v, 10))
			}
			assert.Equal(t, want, got[i])
		}
	}
}

func TestReadReplySimpleString(t *testing.T) {
	reply, err := ReadReply(reader("+OK\r\n"))
	require.NoError(t, err)
	assert.Equal(t, TypeSimple, reply.Type)
	assert.Equal(t, "OK", string(reply.Value))
	assert.True(t, reply.OK())
	assert.False(t, reply.Opaque())
}

func TestReadReplyBulkString(t *testing.T) {
	reply, err := ReadReply(reader("$5\r\nhello\r\n"))
	require.NoError(t, err)
	assert.Equal(t, TypeBulk, reply.Type)
	assert.Equal(t, "hello", string(reply.Value))
	assert.False(t, reply.Null)
}

func TestReadReplyBinaryBulk(t *testing.T) {
	// Bulk payloads are length-delimited, so embedded CRLF must
	// survive the read.
	reply, err := ReadReply(reader("$7\r\na\r\nb\r\nc\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "a\r\nb\r\nc", string(reply.Value))
}

func TestReadReplyNullBulk(t *testing.T) {
	reply, err := ReadReply(reader("$-1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, TypeBulk, reply.Type)
	assert.True(t, reply.Null)
	assert.Nil(t, reply.Value)

	// Null is absence, not the empty string.
	empty, err := ReadReply(reader("$0\r\n\r\n"))
	require.NoError(t, err)
	assert.False(t, empty.Null)
	assert.Equal(t, "", string(empty.Value))
}

func TestReadReplyError(t *testing.T) {
	reply, err := ReadReply(reader("-ERR unknown command\r\n"))
	require.NoError(t, err)
	assert.Equal(t, TypeError, reply.Type)

	var serverErr ServerError
	require.ErrorAs(t, reply.Err(), &serverErr)
	assert.Contains(t, serverErr.Error(), "ERR unknown command")

	// An error reply is never usable as a counter.
	_, intErr := reply.Int()
	assert.ErrorAs(t, intErr, &serverErr)
}

func TestReadReplyErrorInvalidUTF8(t *testing.T) {
	reply, err := ReadReply(reader("-ERR bad \xff\xfe byte\r\n"))
	require.NoError(t, err)
	assert.Equal(t, TypeError, reply.Type)
	assert.True(t, strings.ContainsRune(string(reply.Value), utf8Replacement))
}

func TestReadReplyOpaquePrefixes(t *testing.T) {
	for _, raw := range []string{":42\r\n", "*2\r\n"} {
		reply, err := ReadReply(reader(raw))
		require.NoError(t, err, raw)
		assert.True(t, reply.Opaque(), raw)
	}
}

func TestReadReplyClosedStream(t *testing.T) {
	_, err := ReadReply(reader(""))
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestReadReplyTruncatedHeader(t *testing.T) {
	_, err := ReadReply(reader("+OK"))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestReadReplyMalformedLength(t *testing.T) {
	for _, raw := range []string{"$abc\r\n", "$\r\n", "$-2\r\n"} {
		_, err := ReadReply(reader(raw))
		assert.ErrorIs(t, err, ErrProtocol, raw)
	}
}

func TestReadReplyOversizedBulkLength(t *testing.T) {
	// Declared lengths are attacker-controlled; anything past the
	// bulk limit must fail the read, not drive an allocation.
	oversized := []string{
		"$9223372036854775807\r\n",
		"$536870913\r\n", // one byte past the 512MB limit
	}

	for _, raw := range oversized {
		_, err := ReadReply(reader(raw))
		assert.ErrorIs(t, err, ErrProtocol, raw)
	}
}

func TestReadReplyTruncatedBulkBody(t *testing.T) {
	_, err := ReadReply(reader("$10\r\nshort\r\n"))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestReplyInt(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr error
	}{
		{"$3\r\n123\r\n", 123, nil},
		{"$1\r\n0\r\n", 0, nil},
		{"$-1\r\n", 0, nil}, // absent reads as zero
		{"$2\r\n-7\r\n", -7, nil},
		{"$3\r\nabc\r\n", 0, ErrProtocol},
		{"$0\r\n\r\n", 0, ErrProtocol},
	}

	for _, tt := range tests {
		reply, err := ReadReply(reader(tt.raw))
		require.NoError(t, err, tt.raw)

		got, err := reply.Int()
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, tt.raw)

			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}
