package analysis

import "softpal/internal/sv20"

type handler func(s *Scanner, operands []sv20.Operand)

// handlers lists the opcodes whose stack effect is modelled. Everything
// else clears the stack.
var handlers = map[uint16]handler{
	sv20.OpSyscall:         (*Scanner).handleSyscall,
	sv20.OpPush:            (*Scanner).handlePush,
	sv20.OpSelectAddChoice: (*Scanner).handleChoice,
	sv20.OpText:            (*Scanner).handleMessage,
	sv20.OpTextW:           (*Scanner).handleMessage,
	sv20.OpTextA:           (*Scanner).handleMessage,
	sv20.OpTextWA:          (*Scanner).handleMessage,
	sv20.OpTextN:           (*Scanner).handleMessage,
	sv20.OpTextCat:         (*Scanner).handleMessage,
}

func (s *Scanner) handlePush(operands []sv20.Operand) {
	if uint32(operands[0].Value)&literalMask == 0 {
		s.stack.push(operands[0])
		return
	}
	s.clear()
}

func (s *Scanner) handleSyscall(operands []sv20.Operand) {
	switch code := operands[0].Value; {
	case messageSyscalls[code]:
		s.handleMessage(nil)
	case code == choiceSyscall:
		s.handleChoice(nil)
	default:
		s.clear()
	}
}

// handleMessage pops, from the top: a parameter that is ignored, the
// speaker name and the message text.
func (s *Scanner) handleMessage([]sv20.Operand) {
	if len(s.stack) < messageDepth {
		s.stats.Misses++
		return
	}

	s.stack.pop()
	name := s.stack.pop()
	text := s.stack.pop()

	if name.Value != NoName {
		s.report(name, CharacterName)
	}
	s.report(text, Message)
	s.clear()
}

// handleChoice reports the choice label on top of the stack.
func (s *Scanner) handleChoice([]sv20.Operand) {
	if len(s.stack) < choiceDepth {
		s.stats.Misses++
		return
	}

	choice := s.stack.pop()
	s.report(choice, Message)
	s.clear()
}
