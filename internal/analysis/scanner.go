package analysis

import (
	"io"
	"iter"

	"github.com/cockroachdb/errors"

	"softpal/internal/sv20"
)

// ErrScannerUsed is returned when a Scanner is run a second time.
var ErrScannerUsed = errors.New("scanner has already been run")

// Scanner walks an Sv20 instruction stream once, tracking literal pushes and
// reporting the operands consumed by message and choice instructions.
//
// The scan is linear: jumps are not followed. Any instruction whose stack
// effect is not modelled resets the shadow stack, so a reference is either
// attributed from an unbroken push sequence or not reported at all.
type Scanner struct {
	dec   *sv20.Decoder
	stack evalStack
	stats Stats

	emit   func(TextRef) bool
	halted bool
}

// NewScanner validates the script header. The reader is consumed by the
// scan and stays owned by the caller.
func NewScanner(r io.Reader) (*Scanner, error) {
	dec, err := sv20.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &Scanner{dec: dec}, nil
}

// Scan runs to the end of the stream, calling fn for each reference in
// stream order.
func (s *Scanner) Scan(fn func(TextRef)) error {
	return s.run(func(ref TextRef) bool {
		fn(ref)
		return true
	})
}

// Refs returns the references as a lazy sequence. Breaking out of the loop
// stops decoding. A decode error is yielded last with a zero TextRef.
func (s *Scanner) Refs() iter.Seq2[TextRef, error] {
	return func(yield func(TextRef, error) bool) {
		if err := s.run(func(ref TextRef) bool { return yield(ref, nil) }); err != nil {
			yield(TextRef{}, err)
		}
	}
}

// Stats returns the counters gathered so far.
func (s *Scanner) Stats() Stats { return s.stats }

// Offset returns the number of input bytes consumed.
func (s *Scanner) Offset() int64 { return s.dec.Offset() }

func (s *Scanner) run(emit func(TextRef) bool) error {
	if s.emit != nil {
		return ErrScannerUsed
	}
	s.emit = emit

	for inst, err := range s.dec.All() {
		if err != nil {
			return err
		}
		s.stats.Instructions++

		if h, ok := handlers[inst.Opcode.Code]; ok {
			h(s, inst.Operands)
		} else {
			s.clear()
		}
		if s.halted {
			return nil
		}
	}
	return nil
}

func (s *Scanner) report(op sv20.Operand, kind TextKind) {
	if s.halted {
		return
	}
	switch kind {
	case CharacterName:
		s.stats.Names++
	case Message:
		s.stats.Messages++
	}
	if !s.emit(TextRef{Offset: op.Offset, Kind: kind, Value: op.Value}) {
		s.halted = true
	}
}

func (s *Scanner) clear() {
	if s.stack.reset() {
		s.stats.Clears++
	}
}

// Analyze scans a whole script and collects its references.
func Analyze(r io.Reader) ([]TextRef, Stats, error) {
	s, err := NewScanner(r)
	if err != nil {
		return nil, Stats{}, err
	}
	var refs []TextRef
	err = s.Scan(func(ref TextRef) {
		refs = append(refs, ref)
	})
	return refs, s.Stats(), err
}
