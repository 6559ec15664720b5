package resp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteValue(v))
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	got, err := r.ReadValue()
	require.NoError(t, err)
	return got
}

func TestRoundTripSimpleKinds(t *testing.T) {
	require.Equal(t, NewSimple("OK"), roundTrip(t, NewSimple("OK")))
	require.Equal(t, NewError("ERR boom"), roundTrip(t, NewError("ERR boom")))
	require.Equal(t, NewInt(42), roundTrip(t, NewInt(42)))
	require.Equal(t, NewInt(-7), roundTrip(t, NewInt(-7)))
	require.Equal(t, NewBulk("hello"), roundTrip(t, NewBulk("hello")))
	require.Equal(t, NullBulk(), roundTrip(t, NullBulk()))
}

func TestRoundTripArray(t *testing.T) {
	in := NewArray([]Value{NewBulk("SET"), NewBulk("k"), NewBulk("v")})
	require.Equal(t, in, roundTrip(t, in))
}

func TestRoundTripNullArray(t *testing.T) {
	require.Equal(t, NullArray(), roundTrip(t, NullArray()))
}

func TestRoundTripEmptyArray(t *testing.T) {
	got := roundTrip(t, EmptyArray())
	require.Equal(t, Array, got.Kind)
	require.False(t, got.IsNull)
	require.Len(t, got.Array, 0)
}

func TestReadCommand(t *testing.T) {
	raw := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"
	r := NewReader(strings.NewReader(raw))
	cmd, err := r.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, []string{"SET", "k", "v"}, cmd)
}

func TestReadCommandPipelined(t *testing.T) {
	raw := "*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n"
	r := NewReader(strings.NewReader(raw))
	cmd1, err := r.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, []string{"PING"}, cmd1)
	cmd2, err := r.ReadCommand()
	require.NoError(t, err)
	require.Equal(t, []string{"PING"}, cmd2)
}

func TestNegativeLengthOtherThanMinusOneRejected(t *testing.T) {
	raw := "$-5\r\n"
	r := NewReader(strings.NewReader(raw))
	_, err := r.ReadValue()
	require.ErrorIs(t, err, ErrProtocol)
}

func TestBulkMissingCRLFRejected(t *testing.T) {
	raw := "$3\r\nabcXX"
	r := NewReader(strings.NewReader(raw))
	_, err := r.ReadValue()
	require.ErrorIs(t, err, ErrProtocol)
}

func TestNonDigitLengthRejected(t *testing.T) {
	raw := "$1٢\r\nx\r\n" // arabic-indic digit two byte sequence, not ASCII
	r := NewReader(strings.NewReader(raw))
	_, err := r.ReadValue()
	require.Error(t, err)
}

func TestOversizedBulkRejected(t *testing.T) {
	raw := "$600000000\r\n"
	r := NewReader(strings.NewReader(raw))
	_, err := r.ReadValue()
	require.ErrorIs(t, err, ErrProtocol)
}

func TestEncodeCommandLength(t *testing.T) {
	b := EncodeCommand([]string{"SET", "k", "v"})
	require.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n", string(b))
}
