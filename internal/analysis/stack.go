package analysis

import "softpal/internal/sv20"

// evalStack mirrors what the engine's value stack is believed to hold. It
// only ever contains operands of literal pushes.
type evalStack []sv20.Operand

func (s *evalStack) push(op sv20.Operand) {
	*s = append(*s, op)
}

// pop removes the top entry. Callers check len first.
func (s *evalStack) pop() sv20.Operand {
	old := *s
	op := old[len(old)-1]
	*s = old[:len(old)-1]
	return op
}

// reset empties the stack, keeping its storage. It reports whether anything
// was discarded.
func (s *evalStack) reset() bool {
	n := len(*s)
	*s = (*s)[:0]
	return n > 0
}
