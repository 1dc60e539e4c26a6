package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembler
// ---------------------------------------------------------------------------

// Disassemble returns a human-readable listing of the chunk. Function
// constants are listed recursively after the main code.
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	c.disassembleInto(&sb, name)
	return sb.String()
}

func (c *Chunk) disassembleInto(sb *strings.Builder, name string) {
	fmt.Fprintf(sb, "== %s ==\n", name)

	offset := 0
	for offset < len(c.Code) {
		offset = c.disassembleInstruction(sb, offset)
	}

	for i, konst := range c.Constants {
		if fn, ok := konst.(*Function); ok {
			sb.WriteByte('\n')
			fn.Chunk.disassembleInto(sb, fmt.Sprintf("%s [konstante %d]", fn, i))
		}
	}
}

func (c *Chunk) disassembleInstruction(sb *strings.Builder, offset int) int {
	fmt.Fprintf(sb, "%04d ", offset)
	if offset > 0 && c.LineAt(offset) == c.LineAt(offset-1) {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", c.LineAt(offset))
	}

	op := Opcode(c.Code[offset])
	info, ok := op.Info()
	if !ok {
		fmt.Fprintf(sb, "onbekende opkode 0x%02X\n", c.Code[offset])
		return offset + 1
	}

	switch op {
	case OpConst, OpGetGlobal, OpSetGlobal, OpDefGlobal:
		idx := binary.BigEndian.Uint16(c.Code[offset+1:])
		fmt.Fprintf(sb, "%-16s %4d  ; %s\n", info.Name, idx, c.constantString(int(idx)))
		return offset + 3

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall, OpTailCall, OpField:
		fmt.Fprintf(sb, "%-16s %4d\n", info.Name, c.Code[offset+1])
		return offset + 2

	case OpJump, OpJumpIfFalse:
		jump := int(binary.BigEndian.Uint16(c.Code[offset+1:]))
		fmt.Fprintf(sb, "%-16s %4d  ; -> %04d\n", info.Name, jump, offset+3+jump)
		return offset + 3

	case OpLoop:
		jump := int(binary.BigEndian.Uint16(c.Code[offset+1:]))
		fmt.Fprintf(sb, "%-16s %4d  ; -> %04d\n", info.Name, jump, offset+3-jump)
		return offset + 3

	case OpMakeList:
		count := binary.BigEndian.Uint16(c.Code[offset+1:])
		fmt.Fprintf(sb, "%-16s %4d\n", info.Name, count)
		return offset + 3

	case OpMakeClosure:
		idx := binary.BigEndian.Uint16(c.Code[offset+1:])
		fmt.Fprintf(sb, "%-16s %4d  ; %s\n", info.Name, idx, c.constantString(int(idx)))
		next := offset + 3
		if fn, ok := c.Constants[idx].(*Function); ok {
			for range fn.Upvalues {
				isLocal := c.Code[next] == 1
				index := c.Code[next+1]
				kind := "upvalue"
				if isLocal {
					kind = "lokaal"
				}
				fmt.Fprintf(sb, "%04d    |                        %s %d\n", next, kind, index)
				next += 2
			}
		}
		return next

	case OpMakeConstructor:
		typeIdx := binary.BigEndian.Uint16(c.Code[offset+1:])
		variantIdx := binary.BigEndian.Uint16(c.Code[offset+3:])
		arity := c.Code[offset+5]
		fmt.Fprintf(sb, "%-16s %s.%s/%d\n", info.Name, c.constantString(int(typeIdx)), c.constantString(int(variantIdx)), arity)
		return offset + 6

	case OpMatchTag:
		idx := binary.BigEndian.Uint16(c.Code[offset+1:])
		arity := c.Code[offset+3]
		fmt.Fprintf(sb, "%-16s %s/%d\n", info.Name, c.constantString(int(idx)), arity)
		return offset + 4

	default:
		fmt.Fprintf(sb, "%s\n", info.Name)
		return offset + 1
	}
}

func (c *Chunk) constantString(idx int) string {
	if idx < 0 || idx >= len(c.Constants) {
		return "???"
	}
	v := c.Constants[idx]
	if s, ok := v.(String); ok {
		return fmt.Sprintf("%q", string(s))
	}
	return v.String()
}
