// Package disasm renders Sv20 instruction streams as text, one line per
// instruction. It shares the opcode table with the analysis but tracks no
// stack and reports nothing.
package disasm

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"softpal/internal/sv20"
)

// Inst is a formatted instruction.
type Inst struct {
	Offset   int64  // byte offset of the opcode word
	Op       string // mnemonic, or the opcode in hex when unnamed
	Text     string // full dump line
	Operands []sv20.Operand
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Index returns the position of the instruction that contains offset, or -1.
// The stream must be in offset order, as Stream() returns it.
func (s Stream) Index(offset int64) int {
	i := sort.Search(len(s), func(i int) bool { return s[i].Offset > offset }) - 1
	if i < 0 {
		return -1
	}
	end := s[i].Offset + int64(sv20.WordSize*(1+len(s[i].Operands)))
	if offset >= end {
		return -1
	}
	return i
}

// Disassembler formats a single script stream.
type Disassembler struct {
	dec *sv20.Decoder
}

// New validates the script header.
func New(r io.Reader) (*Disassembler, error) {
	dec, err := sv20.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &Disassembler{dec: dec}, nil
}

// Insts yields formatted instructions. A decode error is yielded last.
func (d *Disassembler) Insts() iter.Seq2[Inst, error] {
	return func(yield func(Inst, error) bool) {
		for inst, err := range d.dec.All() {
			if err != nil {
				yield(Inst{}, err)
				return
			}
			if !yield(Format(inst), nil) {
				return
			}
		}
	}
}

// Stream decodes the rest of the script. On error the instructions decoded
// before the failure are returned with it.
func (d *Disassembler) Stream() (Stream, error) {
	var s Stream
	for inst, err := range d.Insts() {
		if err != nil {
			return s, err
		}
		s = append(s, inst)
	}
	return s, nil
}

// WriteTo writes the dump to w. Lines already written stay written if the
// stream turns out to be corrupt.
func (d *Disassembler) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for inst, err := range d.Insts() {
		if err != nil {
			if ferr := bw.Flush(); ferr != nil {
				return n, errors.Join(err, ferr)
			}
			return n, err
		}
		m, err := bw.WriteString(inst.Text + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Format renders one instruction:
//
//	0000000C push [0x00000010]
//	00000014 syscall 0x20002 0x0
//	0000001C 0019
func Format(inst sv20.Instruction) Inst {
	var sb strings.Builder
	name := inst.Opcode.Name()
	fmt.Fprintf(&sb, "%08X %s", inst.Offset, name)
	for _, op := range inst.Operands {
		sb.WriteByte(' ')
		sb.WriteString(FormatOperand(op))
	}
	return Inst{
		Offset:   inst.Offset,
		Op:       name,
		Text:     sb.String(),
		Operands: inst.Operands,
	}
}

// FormatOperand renders a pointer as [0x%08X] and an immediate as 0x%X.
// Values print as unsigned 32-bit.
func FormatOperand(op sv20.Operand) string {
	v := uint32(op.Value)
	if op.Kind == sv20.Pointer {
		return fmt.Sprintf("[0x%08X]", v)
	}
	return fmt.Sprintf("0x%X", v)
}
