package disasm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"softpal/internal/sv20"
	"softpal/internal/sv20/sv20test"
)

func dump(t *testing.T, data []byte) (string, error) {
	t.Helper()
	d, err := New(bytes.NewReader(data))
	require.NoError(t, err)
	var out bytes.Buffer
	n, err := d.WriteTo(&out)
	assert.Equal(t, int64(out.Len()), n)
	return out.String(), err
}

func TestDumpNopExit(t *testing.T) {
	b := sv20test.New()
	b.Op(0x0016)
	b.Op(0x0016)
	b.Op(0x0015)

	out, err := dump(t, b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "0000000C nop\n00000010 nop\n00000014 exit\n", out)
}

func TestDumpOperands(t *testing.T) {
	tests := []struct {
		name     string
		code     uint16
		operands []uint32
		want     string
	}{
		{
			name:     "pointer pair",
			code:     0x0001,
			operands: []uint32{0x10, 0xABCDEF01},
			want:     "0000000C mov [0x00000010] [0xABCDEF01]",
		},
		{
			name:     "immediate then pointer",
			code:     0x000A,
			operands: []uint32{0x0, 0x2A},
			want:     "0000000C jz 0x0 [0x0000002A]",
		},
		{
			name:     "syscall",
			code:     sv20.OpSyscall,
			operands: []uint32{0x20002, 0xFFFFFFFF},
			want:     "0000000C syscall 0x20002 0xFFFFFFFF",
		},
		{
			name:     "negative pointer",
			code:     sv20.OpPush,
			operands: []uint32{0x80000000},
			want:     "0000000C push [0x80000000]",
		},
		{
			name: "unnamed opcode",
			code: 0x004B,
			want: "0000000C 004B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sv20test.New()
			b.Op(tt.code, tt.operands...)
			out, err := dump(t, b.Bytes())
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestDumpStopsAtCorruption(t *testing.T) {
	b := sv20test.New()
	b.Op(0x0016)
	bad := b.Word(0x00000016)
	b.Op(0x0015)

	out, err := dump(t, b.Bytes())
	assert.Equal(t, "0000000C nop\n", out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sv20.ErrBadInstruction))
	var de *sv20.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, bad, de.Offset)
}

func TestNewRejectsMagic(t *testing.T) {
	_, err := New(strings.NewReader("MZ\x90\x00\x00\x00\x00\x00\x00\x00\x00\x00"))
	assert.True(t, errors.Is(err, sv20.ErrFormat))
}

func TestStreamIndex(t *testing.T) {
	b := sv20test.New()
	b.Op(0x0016)
	pushOff := b.Push(0x44)
	b.Op(0x0001, 1, 2)

	d, err := New(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	s, err := d.Stream()
	require.NoError(t, err)
	require.Len(t, s, 3)

	assert.Equal(t, "push", s[1].Op)
	assert.Equal(t, 1, s.Index(pushOff))
	assert.Equal(t, 0, s.Index(sv20.HeaderSize))
	assert.Equal(t, 2, s.Index(s[2].Offset+8))
	assert.Equal(t, -1, s.Index(0))
	assert.Equal(t, -1, s.Index(s[2].Offset+12))
}

var errDiskFull = errors.New("disk full")

type fullWriter struct{}

func (fullWriter) Write([]byte) (int, error) { return 0, errDiskFull }

func TestWriteToReportsFlushError(t *testing.T) {
	b := sv20test.New()
	b.Op(0x0016)

	d, err := New(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	_, err = d.WriteTo(fullWriter{})
	assert.ErrorIs(t, err, errDiskFull)

	b.Word(0x00000016)
	d, err = New(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	_, err = d.WriteTo(fullWriter{})
	assert.ErrorIs(t, err, errDiskFull)
	assert.ErrorIs(t, err, sv20.ErrBadInstruction)
}

func TestStreamIndexGaps(t *testing.T) {
	s := Stream{
		{Offset: 0x0C},
		{Offset: 0x10, Operands: make([]sv20.Operand, 2)},
		{Offset: 0x20},
	}
	tests := []struct {
		offset int64
		want   int
	}{
		{0x0B, -1},
		{0x0C, 0},
		{0x0F, 0},
		{0x10, 1},
		{0x18, 1},
		{0x1B, 1},
		{0x1C, -1},
		{0x20, 2},
		{0x24, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Index(tt.offset), "offset %X", tt.offset)
	}
}
