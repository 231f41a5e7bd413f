package sv20

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// OperandKind tells how an operand word is interpreted by the engine.
type OperandKind byte

const (
	// Pointer operands address a variable slot, a label or a string-table entry.
	Pointer OperandKind = 'p'
	// Immediate operands are plain constants.
	Immediate OperandKind = 'i'
)

func (k OperandKind) String() string {
	switch k {
	case Pointer:
		return "pointer"
	case Immediate:
		return "immediate"
	default:
		return fmt.Sprintf("OperandKind(%q)", byte(k))
	}
}

// Signature lists the operands that follow an opcode word, in stream order.
type Signature []OperandKind

// ParseSignature converts the compact table notation ("pp", "ip", "") into a
// Signature. It panics on characters other than 'p' and 'i'; the table is
// static so a bad entry is a programming error.
func ParseSignature(s string) Signature {
	sig := make(Signature, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch k := OperandKind(s[i]); k {
		case Pointer, Immediate:
			sig = append(sig, k)
		default:
			panic(fmt.Sprintf("sv20: bad operand signature %q", s))
		}
	}
	return sig
}

func (s Signature) String() string {
	var sb strings.Builder
	for _, k := range s {
		sb.WriteByte(byte(k))
	}
	return sb.String()
}

// Opcode is one entry of the instruction table.
type Opcode struct {
	Code      uint16
	Signature Signature

	mnemonic string
	named    bool
}

// Mnemonic returns the instruction name. ok is false for opcodes the engine
// implements but whose purpose is not known; such opcodes still decode.
func (o Opcode) Mnemonic() (name string, ok bool) {
	return o.mnemonic, o.named
}

// Name returns the mnemonic, or the opcode as four hex digits when the
// opcode is unnamed.
func (o Opcode) Name() string {
	if o.named {
		return o.mnemonic
	}
	return fmt.Sprintf("%04X", o.Code)
}

// Handled opcodes.
const (
	OpSyscall         uint16 = 0x0017
	OpPush            uint16 = 0x001F
	OpSelectAddChoice uint16 = 0x003A
	OpText            uint16 = 0x0088
	OpTextW           uint16 = 0x0095
	OpTextA           uint16 = 0x0096
	OpTextWA          uint16 = 0x0097
	OpTextN           uint16 = 0x0098
	OpTextCat         uint16 = 0x0099
)

func op(code uint16, mnemonic, signature string) Opcode {
	return Opcode{Code: code, Signature: ParseSignature(signature), mnemonic: mnemonic, named: true}
}

func anon(code uint16) Opcode {
	return Opcode{Code: code, Signature: Signature{}}
}

var opcodeTable = newOpcodeTable(
	op(0x0001, "mov", "pp"),
	op(0x0002, "add", "pp"),
	op(0x0003, "sub", "pp"),
	op(0x0004, "mul", "pp"),
	op(0x0005, "div", "pp"),
	op(0x0006, "binand", "pp"),
	op(0x0007, "binor", "pp"),
	op(0x0008, "binxor", "pp"),
	// Branch targets are label indices into point.dat.
	op(0x0009, "jmp", "p"),
	op(0x000A, "jz", "ip"),
	op(0x000B, "call", "p"),
	op(0x000C, "eq", "pp"),
	op(0x000D, "neq", "pp"),
	op(0x000E, "le", "pp"),
	op(0x000F, "ge", "pp"),
	op(0x0010, "lt", "pp"),
	op(0x0011, "gt", "pp"),
	op(0x0012, "logor", "pp"),
	op(0x0013, "logand", "pp"),
	op(0x0014, "not", "i"),
	op(0x0015, "exit", ""),
	op(0x0016, "nop", ""),
	op(0x0017, "syscall", "ii"),
	op(0x0018, "ret", ""),
	anon(0x0019),
	op(0x001A, "mod", "pp"),
	op(0x001B, "shl", "pp"),
	op(0x001C, "sar", "pp"),
	op(0x001D, "neg", "i"),
	op(0x001E, "pop", "p"),
	op(0x001F, "push", "p"),
	op(0x0020, "enter", "p"),
	op(0x0021, "leave", "p"),

	// Engine built-ins. These take their arguments from the runtime stack.
	op(0x0023, "create_message", ""),
	op(0x0024, "get_message", ""),
	op(0x0025, "get_message_param", ""),
	op(0x0028, "se_load", ""),
	op(0x0029, "se_play", ""),
	op(0x002A, "se_play_ex", ""),
	op(0x002B, "se_stop", ""),
	op(0x002C, "se_set_volume", ""),
	op(0x002D, "se_get_volume", ""),
	op(0x002E, "se_unload", ""),
	op(0x002F, "se_wait", ""),
	op(0x0030, "set_se_info", ""),
	op(0x0031, "get_se_ex_volume", ""),
	op(0x0032, "set_se_ex_volume", ""),
	op(0x0033, "se_enable", ""),
	op(0x0034, "is_se_enable", ""),
	op(0x0035, "se_set_pan", ""),
	op(0x0036, "se_mute", ""),

	op(0x0038, "select_init", ""),
	op(0x0039, "select", ""),
	op(0x003A, "select_add_choice", ""),
	op(0x003B, "end_select", ""),
	op(0x003C, "select_clear", ""),
	op(0x003D, "select_set_offset", ""),
	op(0x003E, "select_set_process", ""),
	op(0x003F, "select_lock", ""),
	op(0x0040, "get_select_on_key", ""),
	op(0x0041, "get_select_pull_key", ""),
	op(0x0042, "get_select_push_key", ""),
	op(0x0044, "skip_set", ""),
	op(0x0045, "skip_is", ""),
	op(0x0046, "auto_set", ""),
	op(0x0047, "auto_is", ""),
	op(0x0048, "auto_set_time", ""),
	op(0x0049, "auto_get_time", ""),
	op(0x004A, "window_set_mode", ""),
	anon(0x004B),
	anon(0x004C),
	anon(0x004D),
	anon(0x004E),
	op(0x004F, "effect_enable_is", ""),
	op(0x0050, "cursor_pos_get", ""),
	op(0x0051, "time_get", ""),
	anon(0x0052),
	op(0x0053, "load_font", ""),
	op(0x0054, "unload_font", ""),
	op(0x0055, "set_font_type", ""),
	op(0x0056, "key_cancel", ""),
	op(0x0057, "set_font_color", ""),
	op(0x0058, "load_font_ex", ""),
	anon(0x0059),
	anon(0x005A),
	op(0x005B, "lpush", ""), // push label onto the call stack
	op(0x005C, "lpop", ""),
	anon(0x005D),
	anon(0x005E),
	op(0x005F, "set_font_size", ""),
	op(0x0060, "get_font_size", ""),
	op(0x0061, "get_font_type", ""),
	op(0x0062, "set_font_effect", ""),
	op(0x0063, "get_font_effect", ""),
	op(0x0064, "get_pull_key", ""),
	op(0x0065, "get_on_key", ""),
	op(0x0066, "get_push_key", ""),
	op(0x0067, "input_clear", ""),
	op(0x0068, "change_window_size", ""),
	op(0x0069, "change_aspect_mode", ""),
	op(0x006A, "aspect_position_enable", ""),
	anon(0x006B),
	op(0x006C, "get_aspect_mode", ""),
	op(0x006D, "get_monitor_size", ""),
	op(0x006E, "get_window_pos", ""),
	op(0x006F, "get_system_metrics", ""),
	op(0x0070, "set_system_path", ""),
	op(0x0071, "set_allmosaicthumbnail", ""),
	op(0x0072, "enable_window_change", ""),
	op(0x0073, "is_enable_window_change", ""),
	op(0x0074, "set_cursor", ""),
	op(0x0075, "set_hide_cursor_time", ""),
	op(0x0076, "get_hide_cursor_time", ""),
	op(0x0077, "scene_skip", ""),
	op(0x0078, "cancel_scene_skip", ""),
	op(0x0079, "lsize", ""), // call stack depth
	op(0x007A, "get_async_key", ""),
	op(0x007B, "get_font_color", ""),
	op(0x007C, "get_current_date", ""),
	op(0x007D, "history_skip", ""),
	op(0x007E, "cancel_history_skip", ""),
	anon(0x007F),
	op(0x0081, "system_btn_set", ""),
	op(0x0082, "system_btn_release", ""),
	op(0x0083, "system_btn_enable", ""),

	op(0x0086, "text_init", ""),
	op(0x0087, "text_set_icon", ""),
	op(0x0088, "text", ""),
	op(0x0089, "text_hide", ""),
	op(0x008A, "text_show", ""),
	op(0x008B, "text_set_btn", ""),
	op(0x008C, "text_uninit", ""),
	op(0x008D, "text_set_rect", ""),
	op(0x008E, "text_clear", ""),
	anon(0x008F),
	op(0x0090, "text_get_time", ""),
	op(0x0091, "text_window_set_alpha", ""),
	op(0x0092, "text_voice_play", ""),
	anon(0x0093),
	op(0x0094, "text_set_icon_animation_time", ""),
	op(0x0095, "text_w", ""),
	op(0x0096, "text_a", ""),
	op(0x0097, "text_wa", ""),
	op(0x0098, "text_n", ""),
	op(0x0099, "text_cat", ""),
	op(0x009A, "set_history", ""),
	op(0x009B, "is_text_visible", ""),
	op(0x009C, "text_set_base", ""),
	op(0x009D, "enable_voice_cut", ""),
	op(0x009E, "is_voice_cut", ""),
	anon(0x009F),
	anon(0x00A0),
	anon(0x00A1),
	op(0x00A2, "text_set_color", ""),
	op(0x00A3, "text_redraw", ""),
	op(0x00A4, "set_text_mode", ""),
	op(0x00A5, "text_init_visualnovelmode", ""),
	op(0x00A6, "text_set_icon_mode", ""),
	op(0x00A7, "text_vn_br", ""),
	anon(0x00A8),
	anon(0x00A9),
	anon(0x00AA),
	anon(0x00AB),
	op(0x00AC, "tips_get_str", ""),
	op(0x00AD, "tips_get_param", ""),
	op(0x00AE, "tips_reset", ""),
	op(0x00AF, "tips_search", ""),
	op(0x00B0, "tips_set_color", ""),
	op(0x00B1, "tips_stop", ""),
	op(0x00B2, "tips_get_flag", ""),
	op(0x00B3, "tips_init", ""),
	op(0x00B4, "tips_pause", ""),

	op(0x00B6, "voice_play", ""),
	op(0x00B7, "voice_stop", ""),
	op(0x00B8, "voice_set_volume", ""),
	op(0x00B9, "voice_get_volume", ""),
	op(0x00BA, "set_voice_info", ""),
	op(0x00BB, "voice_enable", ""),
	op(0x00BC, "is_voice_enable", ""),
	anon(0x00BD),
	op(0x00BE, "bgv_play", ""),
	op(0x00BF, "bgv_stop", ""),
	op(0x00C0, "bgv_enable", ""),
	op(0x00C1, "get_voice_ex_volume", ""),
	op(0x00C2, "set_voice_ex_volume", ""),
	op(0x00C3, "voice_check_enable", ""),
	op(0x00C4, "voice_autopan_initialize", ""),
	op(0x00C5, "voice_autopan_enable", ""),
	op(0x00C6, "set_voice_autopan", ""),
	op(0x00C7, "is_voice_autopan_enable", ""),
	op(0x00C8, "voice_wait", ""),
	op(0x00C9, "bgv_pause", ""),
	op(0x00CA, "bgv_mute", ""),
	op(0x00CB, "set_bgv_volume", ""),
	op(0x00CC, "get_bgv_volume", ""),
	op(0x00CD, "set_bgv_auto_volume", ""),
	op(0x00CE, "voice_mute", ""),
	op(0x00CF, "voice_call", ""),
	op(0x00D0, "voice_call_clear", ""),

	op(0x00D2, "wait", ""),
	op(0x00D3, "wait_click", ""),
	op(0x00D4, "wait_sync_begin", ""),
	op(0x00D5, "wait_sync", ""),
	op(0x00D6, "wait_sync_end", ""),
	anon(0x00D7),
	op(0x00D8, "wait_clear", ""),
	op(0x00D9, "wait_click_no_anim", ""),
	op(0x00DA, "wait_sync_get_time", ""),
	op(0x00DB, "wait_time_push", ""),
	op(0x00DC, "wait_time_pop", ""),
)

func newOpcodeTable(entries ...Opcode) map[uint16]Opcode {
	table := make(map[uint16]Opcode, len(entries))
	for _, e := range entries {
		if _, dup := table[e.Code]; dup {
			panic(fmt.Sprintf("sv20: duplicate opcode %04X", e.Code))
		}
		table[e.Code] = e
	}
	return table
}

// LookupOpcode returns the table entry for code. An opcode missing from the
// table cannot be decoded because its operand count is unknown.
func LookupOpcode(code uint16) (Opcode, error) {
	o, ok := opcodeTable[code]
	if !ok {
		return Opcode{}, errors.Wrapf(ErrUnknownOpcode, "opcode %04X", code)
	}
	return o, nil
}

// Opcodes returns the whole table ordered by opcode value.
func Opcodes() []Opcode {
	all := make([]Opcode, 0, len(opcodeTable))
	for _, o := range opcodeTable {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all
}
