// Package sv20test assembles Sv20 scripts in memory for tests.
package sv20test

import (
	"bytes"
	"encoding/binary"

	"softpal/internal/sv20"
)

// Builder appends instructions to a script image. Offsets returned by its
// methods are absolute positions in the final image.
type Builder struct {
	buf bytes.Buffer
}

// New starts a script with a valid magic tag and a zeroed header.
func New() *Builder {
	b := &Builder{}
	b.buf.WriteString(sv20.Magic)
	b.buf.Write(make([]byte, sv20.HeaderSize-len(sv20.Magic)))
	return b
}

// Offset returns the position the next word will be written at.
func (b *Builder) Offset() int64 { return int64(b.buf.Len()) }

// Word appends a raw little-endian word and returns its offset.
func (b *Builder) Word(w uint32) int64 {
	off := b.Offset()
	var tmp [sv20.WordSize]byte
	binary.LittleEndian.PutUint32(tmp[:], w)
	b.buf.Write(tmp[:])
	return off
}

// Op appends an instruction with the given operand values. It returns the
// offsets of the operand words.
func (b *Builder) Op(code uint16, operands ...uint32) []int64 {
	b.Word(1<<16 | uint32(code))
	offs := make([]int64, 0, len(operands))
	for _, v := range operands {
		offs = append(offs, b.Word(v))
	}
	return offs
}

// Push appends a push instruction and returns the operand offset.
func (b *Builder) Push(v uint32) int64 {
	return b.Op(sv20.OpPush, v)[0]
}

// Syscall appends a syscall with the given dispatch code and argument.
func (b *Builder) Syscall(code, arg uint32) {
	b.Op(sv20.OpSyscall, code, arg)
}

// Raw appends arbitrary bytes.
func (b *Builder) Raw(p []byte) {
	b.buf.Write(p)
}

// Bytes returns the script image.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}
