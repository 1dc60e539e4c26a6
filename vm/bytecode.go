package vm

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction. Operands follow the
// opcode inline, big-endian: constant and global-name indices are u16,
// local/upvalue slots and argument counts are u8, jump offsets are u16.
type Opcode byte

// Stack operations
const (
	OpPop Opcode = 0x01 // discard top of stack
	OpDup Opcode = 0x02 // duplicate top of stack
)

// Constants
const (
	OpConst Opcode = 0x10 // push constant from pool (u16 index)
	OpNil   Opcode = 0x11 // push nil
	OpTrue  Opcode = 0x12 // push waar
	OpFalse Opcode = 0x13 // push vals
)

// Variables
const (
	OpGetLocal   Opcode = 0x20 // push local (u8 slot, frame-relative)
	OpSetLocal   Opcode = 0x21 // pop into local (u8 slot)
	OpGetUpvalue Opcode = 0x22 // push upvalue (u8 index)
	OpSetUpvalue Opcode = 0x23 // pop into upvalue (u8 index)
	OpGetGlobal  Opcode = 0x24 // push global (u16 name constant)
	OpSetGlobal  Opcode = 0x25 // pop into existing global (u16 name constant)
	OpDefGlobal  Opcode = 0x26 // pop and define global (u16 name constant)
)

// Arithmetic
const (
	OpAdd Opcode = 0x30 // pop two, push sum (numbers or strings)
	OpSub Opcode = 0x31
	OpMul Opcode = 0x32
	OpDiv Opcode = 0x33
	OpMod Opcode = 0x34
	OpNeg Opcode = 0x35 // negate top of stack
)

// Comparison and logic
const (
	OpEq  Opcode = 0x40
	OpNe  Opcode = 0x41
	OpLt  Opcode = 0x42
	OpLe  Opcode = 0x43
	OpGt  Opcode = 0x44
	OpGe  Opcode = 0x45
	OpNot Opcode = 0x46
)

// Control flow. && and || lower to jump sequences; there are no dedicated
// logical opcodes.
const (
	OpJump        Opcode = 0x50 // ip += offset (u16)
	OpJumpIfFalse Opcode = 0x51 // pop condition; ip += offset (u16) when falsy
	OpLoop        Opcode = 0x52 // ip -= offset (u16)
)

// Calls
const (
	OpCall     Opcode = 0x60 // call with u8 argument count
	OpTailCall Opcode = 0x61 // call reusing the current frame (u8 argc)
	OpReturn   Opcode = 0x62 // pop frame, push result over its slots
)

// Lists
const (
	OpMakeList Opcode = 0x70 // pop u16 elements, push list
	OpIndex    Opcode = 0x71 // pop index and container, push element
)

// Closures
const (
	OpMakeClosure  Opcode = 0x80 // u16 function constant + per-upvalue (isLocal u8, index u8)
	OpCloseUpvalue Opcode = 0x81 // close the upvalue for the top slot, then pop
)

// Algebraic data types and pattern matching
const (
	OpMakeConstructor Opcode = 0x90 // u16 type const, u16 variant const, u8 arity; push constructor
	OpMatchTag        Opcode = 0x91 // u16 variant const, u8 arity; pop value, push match bool
	OpField           Opcode = 0x92 // u8 index; pop constructor instance, push field
	OpMatchFail       Opcode = 0x93 // raise MatchError
)

// Output
const (
	OpPrint Opcode = 0xA0 // pop and print
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode, used by the disassembler and by
// bytecode sanity checks.
type OpcodeInfo struct {
	Name         string
	OperandBytes int // -1 when variable (OpMakeClosure)
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpPop: {"POP", 0},
	OpDup: {"DUP", 0},

	OpConst: {"CONST", 2},
	OpNil:   {"NIL", 0},
	OpTrue:  {"TRUE", 0},
	OpFalse: {"FALSE", 0},

	OpGetLocal:   {"GET_LOCAL", 1},
	OpSetLocal:   {"SET_LOCAL", 1},
	OpGetUpvalue: {"GET_UPVALUE", 1},
	OpSetUpvalue: {"SET_UPVALUE", 1},
	OpGetGlobal:  {"GET_GLOBAL", 2},
	OpSetGlobal:  {"SET_GLOBAL", 2},
	OpDefGlobal:  {"DEF_GLOBAL", 2},

	OpAdd: {"ADD", 0},
	OpSub: {"SUB", 0},
	OpMul: {"MUL", 0},
	OpDiv: {"DIV", 0},
	OpMod: {"MOD", 0},
	OpNeg: {"NEG", 0},

	OpEq:  {"EQ", 0},
	OpNe:  {"NE", 0},
	OpLt:  {"LT", 0},
	OpLe:  {"LE", 0},
	OpGt:  {"GT", 0},
	OpGe:  {"GE", 0},
	OpNot: {"NOT", 0},

	OpJump:        {"JUMP", 2},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 2},
	OpLoop:        {"LOOP", 2},

	OpCall:     {"CALL", 1},
	OpTailCall: {"TAIL_CALL", 1},
	OpReturn:   {"RETURN", 0},

	OpMakeList: {"MAKE_LIST", 2},
	OpIndex:    {"INDEX", 0},

	OpMakeClosure:  {"MAKE_CLOSURE", -1},
	OpCloseUpvalue: {"CLOSE_UPVALUE", 0},

	OpMakeConstructor: {"MAKE_CONSTRUCTOR", 5},
	OpMatchTag:        {"MATCH_TAG", 3},
	OpField:           {"FIELD", 1},
	OpMatchFail:       {"MATCH_FAIL", 0},

	OpPrint: {"PRINT", 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() (OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

func (op Opcode) String() string {
	if info, ok := opcodeTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(op))
}

// ---------------------------------------------------------------------------
// Chunk: a compiled unit
// ---------------------------------------------------------------------------

// MaxConstants bounds a chunk's constant pool; indices travel as u16.
const MaxConstants = 1 << 16

// Chunk is bytecode plus its constant pool and a per-byte line table for
// error reporting.
type Chunk struct {
	Code      []byte
	Constants []Value
	Lines     []int // parallel to Code
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends one opcode byte.
func (c *Chunk) Write(op Opcode, line int) {
	c.WriteByte(byte(op), line)
}

// WriteByte appends a raw operand byte.
func (c *Chunk) WriteByte(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteU16 appends a big-endian 16-bit operand.
func (c *Chunk) WriteU16(v uint16, line int) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	c.WriteByte(buf[0], line)
	c.WriteByte(buf[1], line)
}

// AddConstant appends a value to the constant pool and returns its index.
// Equal primitive constants are shared.
func (c *Chunk) AddConstant(v Value) (int, error) {
	switch v.(type) {
	case Int, Float, String, Bool, Nil:
		for i, existing := range c.Constants {
			if sameKind(existing, v) && Equal(existing, v) {
				return i, nil
			}
		}
	}
	if len(c.Constants) >= MaxConstants {
		return 0, fmt.Errorf("te veel konstantes in een stuk (maksimum %d)", MaxConstants)
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, nil
}

// sameKind guards constant sharing against Int/Float cross-equality.
func sameKind(a, b Value) bool {
	switch a.(type) {
	case Int:
		_, ok := b.(Int)
		return ok
	case Float:
		_, ok := b.(Float)
		return ok
	default:
		return true
	}
}

// Len returns the current code length.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// PatchJump back-fills a forward jump's u16 operand at operandPos so it
// lands on the current end of code.
func (c *Chunk) PatchJump(operandPos int) error {
	jump := len(c.Code) - operandPos - 2
	if jump > 0xFFFF {
		return fmt.Errorf("sprong te ver (%d bytes)", jump)
	}
	binary.BigEndian.PutUint16(c.Code[operandPos:], uint16(jump))
	return nil
}

// LineAt returns the source line for a code offset, or 0 out of range.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}
