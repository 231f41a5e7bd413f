package analysis

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// TextKind classifies a text reference.
type TextKind int

const (
	CharacterName TextKind = iota
	Message
)

func (k TextKind) String() string {
	switch k {
	case CharacterName:
		return "name"
	case Message:
		return "message"
	default:
		return fmt.Sprintf("TextKind(%d)", int(k))
	}
}

func (k TextKind) MarshalText() ([]byte, error) {
	switch k {
	case CharacterName, Message:
		return []byte(k.String()), nil
	}
	return nil, errors.Newf("invalid text kind %d", int(k))
}

func (k *TextKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "name":
		*k = CharacterName
	case "message":
		*k = Message
	default:
		return errors.Newf("unknown text kind %q (want name or message)", b)
	}
	return nil
}

// TextRef is a located string-table reference.
type TextRef struct {
	Offset int64    `json:"offset"` // stream position of the pushed operand word
	Kind   TextKind `json:"kind"`
	Value  int32    `json:"value"` // raw pushed value, the string-table offset
}

func (r TextRef) String() string {
	return fmt.Sprintf("%08X %s 0x%08X", r.Offset, r.Kind, uint32(r.Value))
}

// Stats counts what a scan saw. Only diagnostic; the reported refs do not
// depend on it.
type Stats struct {
	Instructions int `json:"instructions"`
	Names        int `json:"names"`
	Messages     int `json:"messages"`
	// Misses counts message or choice instructions that found too few
	// stack entries to correlate.
	Misses int `json:"misses"`
	// Clears counts resets that discarded at least one stack entry.
	Clears int `json:"clears"`
}
