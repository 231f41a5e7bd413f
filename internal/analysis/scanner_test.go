package analysis

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"softpal/internal/sv20"
	"softpal/internal/sv20/sv20test"
)

const nop = 0x0016

func scanAll(t *testing.T, data []byte) ([]TextRef, Stats) {
	t.Helper()
	refs, stats, err := Analyze(bytes.NewReader(data))
	require.NoError(t, err)
	return refs, stats
}

// pushMessage pushes an unrelated entry, the text, the name and the ignored
// parameter, returning the text and name operand offsets.
func pushMessage(b *sv20test.Builder, text, name uint32) (textOff, nameOff int64) {
	b.Push(0x1)
	textOff = b.Push(text)
	nameOff = b.Push(name)
	b.Push(0x2)
	return textOff, nameOff
}

func TestMessageOpcodes(t *testing.T) {
	opcodes := []uint16{sv20.OpText, sv20.OpTextW, sv20.OpTextA, sv20.OpTextWA, sv20.OpTextN, sv20.OpTextCat}
	for _, code := range opcodes {
		o, err := sv20.LookupOpcode(code)
		require.NoError(t, err)
		t.Run(o.Name(), func(t *testing.T) {
			b := sv20test.New()
			textOff, nameOff := pushMessage(b, 0x100, 0x200)
			b.Op(code)

			refs, stats := scanAll(t, b.Bytes())
			assert.Equal(t, []TextRef{
				{Offset: nameOff, Kind: CharacterName, Value: 0x200},
				{Offset: textOff, Kind: Message, Value: 0x100},
			}, refs)
			assert.Equal(t, 1, stats.Names)
			assert.Equal(t, 1, stats.Messages)
		})
	}
}

func TestMessageWithoutName(t *testing.T) {
	b := sv20test.New()
	textOff, _ := pushMessage(b, 0x40, uint32(NoName))
	b.Op(sv20.OpText)

	refs, _ := scanAll(t, b.Bytes())
	assert.Equal(t, []TextRef{{Offset: textOff, Kind: Message, Value: 0x40}}, refs)
}

func TestMessageSyscalls(t *testing.T) {
	for code := range messageSyscalls {
		b := sv20test.New()
		textOff, nameOff := pushMessage(b, 0x10, 0x20)
		b.Syscall(uint32(code), 0)

		refs, _ := scanAll(t, b.Bytes())
		assert.Equal(t, []TextRef{
			{Offset: nameOff, Kind: CharacterName, Value: 0x20},
			{Offset: textOff, Kind: Message, Value: 0x10},
		}, refs, "syscall %X", code)
	}
}

func TestOtherSyscallClears(t *testing.T) {
	b := sv20test.New()
	pushMessage(b, 0x10, 0x20)
	b.Syscall(0x20003, 0)
	b.Op(sv20.OpText)

	refs, stats := scanAll(t, b.Bytes())
	assert.Empty(t, refs)
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Clears)
}

func TestUnmodelledOpcodeClears(t *testing.T) {
	tests := []struct {
		name     string
		operands []uint32
		code     uint16
	}{
		{name: "nop", code: nop},
		{name: "mov", code: 0x0001, operands: []uint32{1, 2}},
		{name: "unnamed", code: 0x0019},
		{name: "pop", code: 0x001E, operands: []uint32{3}},
		{name: "select", code: 0x0039},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sv20test.New()
			pushMessage(b, 0x10, 0x20)
			b.Op(tt.code, tt.operands...)
			b.Op(sv20.OpText)

			refs, stats := scanAll(t, b.Bytes())
			assert.Empty(t, refs)
			assert.Equal(t, 1, stats.Misses)
		})
	}
}

func TestShallowStackIsMiss(t *testing.T) {
	b := sv20test.New()
	b.Push(0xA)
	textOff := b.Push(0xB)
	nameOff := b.Push(0xC)
	b.Op(sv20.OpText) // depth 3: nothing, stack untouched
	b.Push(0xD)
	b.Op(sv20.OpText)

	refs, stats := scanAll(t, b.Bytes())
	assert.Equal(t, []TextRef{
		{Offset: nameOff, Kind: CharacterName, Value: 0xC},
		{Offset: textOff, Kind: Message, Value: 0xB},
	}, refs)
	assert.Equal(t, 1, stats.Misses)
}

func TestMessageClearsRemainingStack(t *testing.T) {
	b := sv20test.New()
	b.Push(0x5)
	b.Push(0x6)
	pushMessage(b, 0x10, 0x20)
	b.Op(sv20.OpText)
	b.Push(0x7)
	b.Push(0x8)
	b.Op(sv20.OpTextN)

	refs, stats := scanAll(t, b.Bytes())
	assert.Len(t, refs, 2)
	assert.Equal(t, 1, stats.Misses)
}

func TestNonLiteralPushClears(t *testing.T) {
	for _, v := range []uint32{0x10000000, 0x80000000, 0xFFFFFFFF, 0xF0000001} {
		b := sv20test.New()
		b.Push(0x1)
		b.Push(0x2)
		b.Push(0x3)
		b.Push(v)
		b.Op(sv20.OpText)

		refs, stats := scanAll(t, b.Bytes())
		assert.Empty(t, refs, "push %08X", v)
		assert.Equal(t, 1, stats.Clears)
	}
}

func TestLiteralPushBoundary(t *testing.T) {
	b := sv20test.New()
	textOff, nameOff := pushMessage(b, 0x0FFFFFFE, 0x00000000)
	b.Op(sv20.OpText)

	refs, _ := scanAll(t, b.Bytes())
	assert.Equal(t, []TextRef{
		{Offset: nameOff, Kind: CharacterName, Value: 0},
		{Offset: textOff, Kind: Message, Value: 0x0FFFFFFE},
	}, refs)
}

func TestChoice(t *testing.T) {
	tests := []struct {
		name string
		emit func(b *sv20test.Builder)
	}{
		{name: "select_add_choice", emit: func(b *sv20test.Builder) { b.Op(sv20.OpSelectAddChoice) }},
		{name: "syscall", emit: func(b *sv20test.Builder) { b.Syscall(uint32(choiceSyscall), 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/empty", func(t *testing.T) {
			b := sv20test.New()
			tt.emit(b)
			refs, stats := scanAll(t, b.Bytes())
			assert.Empty(t, refs)
			assert.Equal(t, 1, stats.Misses)
		})

		t.Run(tt.name+"/pops one", func(t *testing.T) {
			b := sv20test.New()
			b.Push(0x1)
			off := b.Push(uint32(NoName))
			tt.emit(b)
			tt.emit(b) // stack was cleared by the first choice

			refs, stats := scanAll(t, b.Bytes())
			assert.Equal(t, []TextRef{{Offset: off, Kind: Message, Value: NoName}}, refs)
			assert.Equal(t, 1, stats.Misses)
		})
	}
}

func TestReportsInStreamOrder(t *testing.T) {
	b := sv20test.New()
	var want []TextRef
	for i := uint32(0); i < 3; i++ {
		textOff, nameOff := pushMessage(b, 0x100+i, 0x200+i)
		b.Op(sv20.OpTextWA)
		want = append(want,
			TextRef{Offset: nameOff, Kind: CharacterName, Value: int32(0x200 + i)},
			TextRef{Offset: textOff, Kind: Message, Value: int32(0x100 + i)},
		)
		choiceOff := b.Push(0x300 + i)
		b.Op(sv20.OpSelectAddChoice)
		want = append(want, TextRef{Offset: choiceOff, Kind: Message, Value: int32(0x300 + i)})
		b.Op(0x0009, 7) // jmp
	}
	data := b.Bytes()

	s, err := NewScanner(bytes.NewReader(data))
	require.NoError(t, err)
	var got []TextRef
	require.NoError(t, s.Scan(func(ref TextRef) { got = append(got, ref) }))
	assert.Equal(t, want, got)
	assert.Equal(t, int64(len(data)), s.Offset())

	operandOffsets := map[int64]bool{}
	dec, err := sv20.NewDecoder(bytes.NewReader(data))
	require.NoError(t, err)
	for inst, err := range dec.All() {
		require.NoError(t, err)
		for _, op := range inst.Operands {
			operandOffsets[op.Offset] = true
		}
	}
	for _, ref := range got {
		assert.Zero(t, ref.Offset%sv20.WordSize)
		assert.True(t, operandOffsets[ref.Offset], "offset %08X is not an operand", ref.Offset)
	}

	st := s.Stats()
	assert.Equal(t, 3*(4+1+1+1+1), st.Instructions)
	assert.Equal(t, 3, st.Names)
	assert.Equal(t, 6, st.Messages)
}

func TestRefsStopsEarly(t *testing.T) {
	b := sv20test.New()
	pushMessage(b, 0x10, 0x20)
	b.Op(sv20.OpText)
	pushMessage(b, 0x30, 0x40)
	b.Op(sv20.OpText)
	data := b.Bytes()

	s, err := NewScanner(bytes.NewReader(data))
	require.NoError(t, err)

	var got []TextRef
	for ref, err := range s.Refs() {
		require.NoError(t, err)
		got = append(got, ref)
		break
	}
	require.Len(t, got, 1)
	assert.Equal(t, CharacterName, got[0].Kind)
	assert.Less(t, s.Offset(), int64(len(data)))
}

func TestScanErrorAfterReports(t *testing.T) {
	b := sv20test.New()
	textOff, _ := pushMessage(b, 0x10, uint32(NoName))
	b.Op(sv20.OpText)
	badOff := b.Word(0x00020016)
	pushMessage(b, 0x30, 0x40)
	b.Op(sv20.OpText)

	s, err := NewScanner(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)

	var got []TextRef
	var scanErr error
	for ref, err := range s.Refs() {
		if err != nil {
			scanErr = err
			continue
		}
		got = append(got, ref)
	}
	assert.Equal(t, []TextRef{{Offset: textOff, Kind: Message, Value: 0x10}}, got)
	require.Error(t, scanErr)
	assert.True(t, errors.Is(scanErr, sv20.ErrBadInstruction))

	var de *sv20.DecodeError
	require.True(t, errors.As(scanErr, &de))
	assert.Equal(t, badOff, de.Offset)
}

func TestAnalyzeRejectsMagic(t *testing.T) {
	data := sv20test.New().Bytes()
	copy(data, "Sv21")
	refs, _, err := Analyze(bytes.NewReader(data))
	assert.Nil(t, refs)
	assert.True(t, errors.Is(err, sv20.ErrInvalidMagic))
	assert.True(t, errors.Is(err, sv20.ErrFormat))
}

func TestScannerRunsOnce(t *testing.T) {
	s, err := NewScanner(bytes.NewReader(sv20test.New().Bytes()))
	require.NoError(t, err)
	require.NoError(t, s.Scan(func(TextRef) {}))
	assert.ErrorIs(t, s.Scan(func(TextRef) {}), ErrScannerUsed)
}

func TestKindFilter(t *testing.T) {
	b := sv20test.New()
	textOff, _ := pushMessage(b, 0x10, 0x20)
	b.Op(sv20.OpText)

	s, err := NewScanner(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)

	chain := NewFilterChain(KindFilter{Message})
	var got []TextRef
	require.NoError(t, s.Scan(chain.Apply(func(ref TextRef) { got = append(got, ref) })))
	assert.Equal(t, []TextRef{{Offset: textOff, Kind: Message, Value: 0x10}}, got)

	assert.True(t, KindFilter(nil).Keep(TextRef{Kind: CharacterName}))
}

func TestTextKindText(t *testing.T) {
	for _, k := range []TextKind{CharacterName, Message} {
		b, err := k.MarshalText()
		require.NoError(t, err)
		var back TextKind
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, k, back)
	}
	var k TextKind
	assert.Error(t, k.UnmarshalText([]byte("choice")))
	_, err := TextKind(7).MarshalText()
	assert.Error(t, err)
}
