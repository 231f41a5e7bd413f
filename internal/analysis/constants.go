// Package analysis locates text references in Sv20 scripts by replaying the
// instruction stream against a shadow copy of the engine's value stack.
package analysis

// Constants for the message and choice calling conventions
const (
	// NoName is pushed in the name slot of a message without a speaker.
	NoName int32 = 0x0FFFFFFF

	// The message logic pops three entries but only trusts a stack at least
	// four deep.
	messageDepth = 4

	choiceDepth = 1

	// literalMask selects the high nibble of a pushed value. Non-zero means
	// the engine encodes some other kind of reference.
	literalMask = 0xF0000000
)

// Syscall dispatch codes routed to the message logic.
var messageSyscalls = map[int32]bool{
	0x20002: true,
	0x2000F: true,
	0x20010: true,
	0x20011: true,
	0x20012: true,
	0x20013: true,
}

const choiceSyscall int32 = 0x60002
