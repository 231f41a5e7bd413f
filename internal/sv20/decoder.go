// Package sv20 reads the Softpal "Sv20" compiled script format: the magic
// tag, the fixed header and the stream of tagged 32-bit instruction words.
package sv20

import (
	"bufio"
	"encoding/binary"
	"io"
	"iter"

	"github.com/cockroachdb/errors"
)

const (
	// Magic is the tag at offset 0 of every script.
	Magic = "Sv20"

	// HeaderSize is the offset of the first instruction word.
	HeaderSize = 0x0C

	// WordSize is the size of an instruction or operand word.
	WordSize = 4

	instructionTag = 1
)

// Operand is one decoded operand word.
type Operand struct {
	Offset int64 // stream position of the operand word
	Value  int32
	Kind   OperandKind
}

// Instruction is a decoded opcode word plus its operands.
type Instruction struct {
	Offset   int64 // stream position of the opcode word
	Opcode   Opcode
	Operands []Operand
}

// Decoder reads instructions front to back. Each byte of the underlying
// reader is consumed once; a Decoder is not safe for concurrent use.
type Decoder struct {
	r   *bufio.Reader
	pos int64
	buf [WordSize]byte
}

// NewDecoder checks the magic tag and consumes the header. The returned
// Decoder is positioned at the first instruction.
func NewDecoder(r io.Reader) (*Decoder, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	d := &Decoder{r: br}

	var hdr [HeaderSize]byte
	n, err := io.ReadFull(br, hdr[:])
	d.pos = int64(n)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, errors.Wrap(err, "read script header")
	}
	if n < len(Magic) || string(hdr[:len(Magic)]) != Magic {
		return nil, formatError(errors.Wrapf(ErrInvalidMagic, "found %q", hdr[:min(n, len(Magic))]))
	}
	if n < HeaderSize {
		return nil, formatError(errors.Wrapf(ErrTruncatedHeader, "%d of %d bytes", n, HeaderSize))
	}
	return d, nil
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 { return d.pos }

func (d *Decoder) readWord() (word uint32, offset int64, err error) {
	offset = d.pos
	n, err := io.ReadFull(d.r, d.buf[:])
	d.pos += int64(n)
	if err != nil {
		return 0, offset, err
	}
	return binary.LittleEndian.Uint32(d.buf[:]), offset, nil
}

// Next decodes one instruction. It returns io.EOF when the stream ends
// exactly on an instruction boundary; any other failure is final.
func (d *Decoder) Next() (Instruction, error) {
	word, off, err := d.readWord()
	switch {
	case err == io.EOF:
		return Instruction{}, io.EOF
	case err == io.ErrUnexpectedEOF:
		return Instruction{}, structuralError(off, ErrTruncated)
	case err != nil:
		return Instruction{}, errors.Wrapf(err, "read instruction at %08X", off)
	}

	if word>>16 != instructionTag {
		return Instruction{}, structuralError(off, errors.Wrapf(ErrBadInstruction, "word %08X", word))
	}
	opcode, err := LookupOpcode(uint16(word))
	if err != nil {
		return Instruction{}, structuralError(off, err)
	}

	inst := Instruction{
		Offset:   off,
		Opcode:   opcode,
		Operands: make([]Operand, 0, len(opcode.Signature)),
	}
	for _, kind := range opcode.Signature {
		value, voff, err := d.readWord()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Instruction{}, structuralError(voff, errors.Wrapf(ErrTruncated, "%s operand %d", opcode.Name(), len(inst.Operands)))
		}
		if err != nil {
			return Instruction{}, errors.Wrapf(err, "read operand at %08X", voff)
		}
		inst.Operands = append(inst.Operands, Operand{Offset: voff, Value: int32(value), Kind: kind})
	}
	return inst, nil
}

// All yields instructions until the end of the stream. A decode failure is
// yielded once, with a zero Instruction, and ends the sequence.
func (d *Decoder) All() iter.Seq2[Instruction, error] {
	return func(yield func(Instruction, error) bool) {
		for {
			inst, err := d.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Instruction{}, err)
				return
			}
			if !yield(inst, nil) {
				return
			}
		}
	}
}
