package compiler

import (
	"fmt"

	"github.com/arkaan-lang/arkaan/vm"
)

// ---------------------------------------------------------------------------
// Codegen: compile the AST to bytecode
// ---------------------------------------------------------------------------

// maxLocals bounds a function's local slots; slots travel in one byte and
// slot 0 is reserved for the callee.
const maxLocals = 256

// Hidden local names for expression lowering. A '$' cannot appear in an
// identifier, so these never collide with user bindings.
const (
	matchSlotName = "$pas"
	blockSlotName = "$blok"
)

type funcKind int

const (
	scriptKind funcKind = iota
	functionKind
)

// local is one live local-variable slot in a compilation scope. A local is
// uninitialized between its declaration and the end of its initializer; a
// direct read in that window is a compile error, but an inner function may
// still capture it (that open upvalue is how a laat-bound lambda reaches its
// own forward reference).
type local struct {
	name        string
	slot        int // physical frame slot (base-relative)
	depth       int
	mutable     bool
	captured    bool
	initialized bool
}

// upvalue is a captured variable recorded while compiling a function.
type upvalue struct {
	index   int
	isLocal bool
	mutable bool
}

// funcCompiler is the per-function compilation scope.
type funcCompiler struct {
	enclosing  *funcCompiler
	name       string
	kind       funcKind
	chunk      *vm.Chunk
	locals     []local
	upvalues   []upvalue
	scopeDepth int
	arity      int

	// temps counts expression operands currently parked on the stack above
	// the locals. Locals declared mid-expression (the hidden pas/block
	// slots and pattern bindings) land above them, so slot assignment has
	// to account for it.
	temps int
}

func newFuncCompiler(name string, kind funcKind, arity int, enclosing *funcCompiler) *funcCompiler {
	fc := &funcCompiler{
		enclosing: enclosing,
		name:      name,
		kind:      kind,
		chunk:     vm.NewChunk(),
		arity:     arity,
	}
	// Slot 0 holds the callee.
	fc.locals = append(fc.locals, local{})
	return fc
}

// GlobalInfo records the mutability of known global bindings. A REPL shares
// one table across lines so laat-immutability holds for the whole session.
type GlobalInfo map[string]bool

// Compiler lowers a parsed program to a chunk.
type Compiler struct {
	current *funcCompiler
	globals GlobalInfo
	types   map[string]int // declared constructor name -> arity
	repl    bool
	line    int
}

// NewCompiler creates a compiler with a fresh global table.
func NewCompiler() *Compiler {
	return &Compiler{
		globals: make(GlobalInfo),
		types:   make(map[string]int),
	}
}

// SetGlobalInfo shares a persistent global-mutability table (REPL sessions).
func (c *Compiler) SetGlobalInfo(info GlobalInfo) {
	c.globals = info
}

// SetREPLMode makes the script chunk return the value of its final
// expression statement instead of discarding it.
func (c *Compiler) SetREPLMode(on bool) {
	c.repl = on
}

// Compile is the one-call pipeline: source to chunk.
func Compile(source string) (*vm.Chunk, error) {
	prog, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	return NewCompiler().CompileProgram(prog)
}

// CompileProgram lowers a program to a top-level chunk.
func (c *Compiler) CompileProgram(prog *Program) (*vm.Chunk, error) {
	c.current = newFuncCompiler("<skrip>", scriptKind, 0, nil)

	for i, stmt := range prog.Statements {
		if c.repl && i == len(prog.Statements)-1 {
			if es, ok := stmt.(*ExprStmt); ok {
				if err := c.compileExpr(es.Expr); err != nil {
					return nil, err
				}
				c.emitOp(vm.OpReturn)
				return c.current.chunk, nil
			}
		}
		if err := c.compileStmt(stmt); err != nil {
			return nil, err
		}
	}

	c.emitOp(vm.OpNil)
	c.emitOp(vm.OpReturn)
	return c.current.chunk, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *Compiler) compileStmt(stmt Stmt) error {
	c.line = stmt.Line()

	switch s := stmt.(type) {
	case *ExprStmt:
		if err := c.compileExpr(s.Expr); err != nil {
			return err
		}
		c.emitOp(vm.OpPop)
		return nil

	case *PrintStmt:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emitOp(vm.OpPrint)
		return nil

	case *VarDecl:
		return c.compileVarDecl(s)

	case *FunDecl:
		return c.compileFunDecl(s)

	case *TypeDecl:
		return c.compileTypeDecl(s)

	case *BlockStmt:
		c.beginScope()
		for _, inner := range s.Statements {
			if err := c.compileStmt(inner); err != nil {
				return err
			}
		}
		c.endScope()
		return nil

	case *IfStmt:
		return c.compileIfStmt(s)

	case *WhileStmt:
		return c.compileWhileStmt(s)

	case *ReturnStmt:
		return c.compileReturnStmt(s)
	}

	return c.errorf("onbekende stelling")
}

func (c *Compiler) compileVarDecl(s *VarDecl) error {
	if c.current.scopeDepth > 0 {
		// Reserve the slot before the initializer so a lambda on the right
		// side can capture its own binding; the initializer's value on the
		// stack IS the local's slot.
		if err := c.declareLocal(s.Name, s.Mutable); err != nil {
			return err
		}
		// The declared slot has no value yet; the initializer's first push
		// is what fills it, so it must not count as occupied while the
		// initializer compiles.
		if err := c.withTemps(-1, func() error { return c.compileExpr(s.Initializer) }); err != nil {
			return err
		}
		c.markInitialized()
		return nil
	}

	if err := c.compileExpr(s.Initializer); err != nil {
		return err
	}
	c.line = s.Line()

	// Global binding. stel mutates-or-declares; reassigning a laat global
	// with stel is caught here.
	if mutable, known := c.globals[s.Name]; known && s.Mutable && !mutable {
		return c.errorf("kan nie onveranderlike binding '%s' hertoewys nie", s.Name)
	}
	c.globals[s.Name] = s.Mutable
	return c.emitNameOp(vm.OpDefGlobal, s.Name)
}

func (c *Compiler) compileFunDecl(s *FunDecl) error {
	if c.current.scopeDepth > 0 {
		// Reserve the slot before compiling the body so the function can
		// capture a forward reference to itself.
		if err := c.declareLocal(s.Name, false); err != nil {
			return err
		}
		c.markInitialized()
		return c.compileFunction(s.Name, s.Params, nil, s.Body, s.Line())
	}

	if err := c.compileFunction(s.Name, s.Params, nil, s.Body, s.Line()); err != nil {
		return err
	}
	c.globals[s.Name] = false
	return c.emitNameOp(vm.OpDefGlobal, s.Name)
}

func (c *Compiler) compileTypeDecl(s *TypeDecl) error {
	seen := make(map[string]bool)
	for _, variant := range s.Variants {
		if seen[variant.Name] {
			return c.errorf("konstruktor '%s' is reeds in tipe '%s' gedefinieer", variant.Name, s.Name)
		}
		seen[variant.Name] = true
		c.types[variant.Name] = len(variant.Fields)

		typeIdx, err := c.constant(vm.String(s.Name))
		if err != nil {
			return err
		}
		variantIdx, err := c.constant(vm.String(variant.Name))
		if err != nil {
			return err
		}
		if len(variant.Fields) > 255 {
			return c.errorf("konstruktor '%s' het te veel velde", variant.Name)
		}
		c.emitOp(vm.OpMakeConstructor)
		c.emitU16(uint16(typeIdx))
		c.emitU16(uint16(variantIdx))
		c.emitByte(byte(len(variant.Fields)))

		// Constructors bind like laat: immutable, global even from a block.
		c.globals[variant.Name] = false
		if err := c.emitNameOp(vm.OpDefGlobal, variant.Name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileIfStmt(s *IfStmt) error {
	if err := c.compileExpr(s.Condition); err != nil {
		return err
	}
	elseJump := c.emitJump(vm.OpJumpIfFalse)

	if err := c.compileStmt(s.ThenBranch); err != nil {
		return err
	}

	if s.ElseBranch == nil {
		return c.patchJump(elseJump)
	}

	endJump := c.emitJump(vm.OpJump)
	if err := c.patchJump(elseJump); err != nil {
		return err
	}
	if err := c.compileStmt(s.ElseBranch); err != nil {
		return err
	}
	return c.patchJump(endJump)
}

func (c *Compiler) compileWhileStmt(s *WhileStmt) error {
	loopStart := c.current.chunk.Len()

	if err := c.compileExpr(s.Condition); err != nil {
		return err
	}
	exitJump := c.emitJump(vm.OpJumpIfFalse)

	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	if err := c.emitLoop(loopStart); err != nil {
		return err
	}
	return c.patchJump(exitJump)
}

func (c *Compiler) compileReturnStmt(s *ReturnStmt) error {
	if c.current.kind == scriptKind {
		return c.errorf("kan nie buite 'n funksie terugkeer nie")
	}

	if s.Condition == nil {
		return c.compileReturnValue(s.Value)
	}

	// Guard form: gee waarde as voorwaarde [anders waarde2]
	if err := c.compileExpr(s.Condition); err != nil {
		return err
	}
	skipJump := c.emitJump(vm.OpJumpIfFalse)
	if err := c.compileReturnValue(s.Value); err != nil {
		return err
	}
	if err := c.patchJump(skipJump); err != nil {
		return err
	}
	if s.ElseValue != nil {
		return c.compileReturnValue(s.ElseValue)
	}
	return nil
}

// compileReturnValue emits value-then-return, turning a directly returned
// call into a tail call.
func (c *Compiler) compileReturnValue(value Expr) error {
	if value == nil {
		c.emitOp(vm.OpNil)
		c.emitOp(vm.OpReturn)
		return nil
	}
	if call, ok := value.(*Call); ok {
		return c.compileTailCall(call)
	}
	if err := c.compileExpr(value); err != nil {
		return err
	}
	c.emitOp(vm.OpReturn)
	return nil
}

func (c *Compiler) compileTailCall(call *Call) error {
	if err := c.compileExpr(call.Callee); err != nil {
		return err
	}
	for i, arg := range call.Arguments {
		arg := arg
		if err := c.withTemps(i+1, func() error { return c.compileExpr(arg) }); err != nil {
			return err
		}
	}
	c.line = call.Line()
	c.emitOp(vm.OpTailCall)
	c.emitByte(byte(len(call.Arguments)))
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Compiler) compileExpr(expr Expr) error {
	c.line = expr.Line()

	switch e := expr.(type) {
	case *IntLiteral:
		return c.emitConstant(vm.Int(e.Value))

	case *FloatLiteral:
		return c.emitConstant(vm.Float(e.Value))

	case *StringLiteral:
		return c.emitConstant(vm.String(e.Value))

	case *BoolLiteral:
		if e.Value {
			c.emitOp(vm.OpTrue)
		} else {
			c.emitOp(vm.OpFalse)
		}
		return nil

	case *NilLiteral:
		c.emitOp(vm.OpNil)
		return nil

	case *Variable:
		return c.compileVariable(e)

	case *Assign:
		return c.compileAssign(e)

	case *Grouping:
		return c.compileExpr(e.Inner)

	case *Unary:
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		c.line = e.Line()
		switch e.Operator {
		case TokenMinus:
			c.emitOp(vm.OpNeg)
		case TokenBang:
			c.emitOp(vm.OpNot)
		default:
			return c.errorf("onbekende unêre operator")
		}
		return nil

	case *Binary:
		return c.compileBinary(e)

	case *Call:
		if err := c.compileExpr(e.Callee); err != nil {
			return err
		}
		for i, arg := range e.Arguments {
			arg := arg
			if err := c.withTemps(i+1, func() error { return c.compileExpr(arg) }); err != nil {
				return err
			}
		}
		c.line = e.Line()
		c.emitOp(vm.OpCall)
		c.emitByte(byte(len(e.Arguments)))
		return nil

	case *Index:
		if err := c.compileExpr(e.Object); err != nil {
			return err
		}
		if err := c.withTemps(1, func() error { return c.compileExpr(e.Idx) }); err != nil {
			return err
		}
		c.line = e.Line()
		c.emitOp(vm.OpIndex)
		return nil

	case *ListLiteral:
		if len(e.Elements) > 0xFFFF {
			return c.errorf("lys-literaal het te veel elemente")
		}
		for i, el := range e.Elements {
			el := el
			if err := c.withTemps(i, func() error { return c.compileExpr(el) }); err != nil {
				return err
			}
		}
		c.line = e.Line()
		c.emitOp(vm.OpMakeList)
		c.emitU16(uint16(len(e.Elements)))
		return nil

	case *Lambda:
		if e.IsBlock {
			return c.compileFunction("", e.Params, nil, e.BlockBody, e.Line())
		}
		return c.compileFunction("", e.Params, e.ExprBody, nil, e.Line())

	case *BlockExpr:
		return c.compileBlockExpr(e)

	case *IfExpr:
		return c.compileIfExpr(e)

	case *MatchExpr:
		return c.compileMatch(e)
	}

	return c.errorf("onbekende uitdrukking")
}

func (c *Compiler) compileVariable(e *Variable) error {
	if idx, ok := c.resolveLocal(c.current, e.Name); ok {
		l := c.current.locals[idx]
		if !l.initialized {
			return c.errorf("kan nie '%s' in sy eie initialiseerder lees nie", e.Name)
		}
		c.emitOp(vm.OpGetLocal)
		c.emitByte(byte(l.slot))
		return nil
	}
	if idx, _, ok, err := c.resolveUpvalue(c.current, e.Name); err != nil {
		return err
	} else if ok {
		c.emitOp(vm.OpGetUpvalue)
		c.emitByte(byte(idx))
		return nil
	}
	return c.emitNameOp(vm.OpGetGlobal, e.Name)
}

func (c *Compiler) compileAssign(e *Assign) error {
	if err := c.compileExpr(e.Value); err != nil {
		return err
	}
	c.line = e.Line()

	// The assignment's own value stays on the stack.
	c.emitOp(vm.OpDup)

	if idx, ok := c.resolveLocal(c.current, e.Name); ok {
		l := c.current.locals[idx]
		if !l.initialized {
			return c.errorf("kan nie '%s' in sy eie initialiseerder toewys nie", e.Name)
		}
		if !l.mutable {
			return c.errorf("kan nie onveranderlike binding '%s' hertoewys nie", e.Name)
		}
		c.emitOp(vm.OpSetLocal)
		c.emitByte(byte(l.slot))
		return nil
	}

	if idx, mutable, ok, err := c.resolveUpvalue(c.current, e.Name); err != nil {
		return err
	} else if ok {
		if !mutable {
			return c.errorf("kan nie onveranderlike binding '%s' hertoewys nie", e.Name)
		}
		c.emitOp(vm.OpSetUpvalue)
		c.emitByte(byte(idx))
		return nil
	}

	if mutable, known := c.globals[e.Name]; known && !mutable {
		return c.errorf("kan nie onveranderlike binding '%s' hertoewys nie", e.Name)
	}
	return c.emitNameOp(vm.OpSetGlobal, e.Name)
}

func (c *Compiler) compileBinary(e *Binary) error {
	switch e.Operator {
	case TokenAnd:
		// a && b keeps a when it is falsy, else yields b.
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		c.emitOp(vm.OpDup)
		endJump := c.emitJump(vm.OpJumpIfFalse)
		c.emitOp(vm.OpPop)
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		return c.patchJump(endJump)

	case TokenOr:
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		c.emitOp(vm.OpDup)
		elseJump := c.emitJump(vm.OpJumpIfFalse)
		endJump := c.emitJump(vm.OpJump)
		if err := c.patchJump(elseJump); err != nil {
			return err
		}
		c.emitOp(vm.OpPop)
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		return c.patchJump(endJump)
	}

	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	if err := c.withTemps(1, func() error { return c.compileExpr(e.Right) }); err != nil {
		return err
	}
	c.line = e.Line()

	switch e.Operator {
	case TokenPlus:
		c.emitOp(vm.OpAdd)
	case TokenMinus:
		c.emitOp(vm.OpSub)
	case TokenStar:
		c.emitOp(vm.OpMul)
	case TokenSlash:
		c.emitOp(vm.OpDiv)
	case TokenPercent:
		c.emitOp(vm.OpMod)
	case TokenEqualEqual:
		c.emitOp(vm.OpEq)
	case TokenBangEqual:
		c.emitOp(vm.OpNe)
	case TokenLess:
		c.emitOp(vm.OpLt)
	case TokenLessEqual:
		c.emitOp(vm.OpLe)
	case TokenGreater:
		c.emitOp(vm.OpGt)
	case TokenGreaterEqual:
		c.emitOp(vm.OpGe)
	default:
		return c.errorf("onbekende binêre operator")
	}
	return nil
}

func (c *Compiler) compileIfExpr(e *IfExpr) error {
	if err := c.compileExpr(e.Condition); err != nil {
		return err
	}
	elseJump := c.emitJump(vm.OpJumpIfFalse)

	if err := c.compileExpr(e.ThenBranch); err != nil {
		return err
	}
	endJump := c.emitJump(vm.OpJump)

	if err := c.patchJump(elseJump); err != nil {
		return err
	}
	if err := c.compileExpr(e.ElseBranch); err != nil {
		return err
	}
	return c.patchJump(endJump)
}

// compileBlockExpr lowers a braced block in value position. A slot is
// reserved below the block's locals; the final expression's value is written
// into it before the locals pop, so the value survives the scope.
func (c *Compiler) compileBlockExpr(e *BlockExpr) error {
	c.beginScope()
	c.emitOp(vm.OpNil)
	if err := c.declareLocal(blockSlotName, true); err != nil {
		return err
	}
	c.markInitialized()
	resultIdx := len(c.current.locals) - 1
	resultSlot := c.current.locals[resultIdx].slot

	// Statements run below at temp depth zero relative to the new local.
	temps := c.current.temps
	c.current.temps = 0

	for i, stmt := range e.Statements {
		if i == len(e.Statements)-1 {
			if es, ok := stmt.(*ExprStmt); ok {
				if err := c.compileExpr(es.Expr); err != nil {
					return err
				}
				c.emitOp(vm.OpSetLocal)
				c.emitByte(byte(resultSlot))
				break
			}
		}
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}

	c.current.temps = temps
	c.endScopeKeepingSlot(resultIdx)
	return nil
}

// ---------------------------------------------------------------------------
// Pattern matching
// ---------------------------------------------------------------------------

// compileMatch lowers pas(waarde) { geval ... }. The scrutinee lives in a
// hidden local; each arm emits a test phase (navigate + check, short-circuit
// jumps to the next arm) and then a bind phase that declares the pattern's
// variables, so a failed nested check never leaves partial bindings behind.
func (c *Compiler) compileMatch(e *MatchExpr) error {
	c.beginScope()
	if err := c.compileExpr(e.Value); err != nil {
		return err
	}
	if err := c.declareLocal(matchSlotName, true); err != nil {
		return err
	}
	c.markInitialized()
	scrutSlot := c.current.locals[len(c.current.locals)-1].slot

	// Arms run at temp depth zero relative to the scrutinee slot.
	temps := c.current.temps
	c.current.temps = 0

	var endJumps []int
	for _, arm := range e.Arms {
		c.line = arm.LineNo

		var failJumps []int
		if err := c.compilePatternTest(arm.Pattern, scrutSlot, nil, &failJumps); err != nil {
			return err
		}

		c.beginScope()
		if err := c.compilePatternBind(arm.Pattern, scrutSlot, nil); err != nil {
			return err
		}

		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}

		// Park the result in the scrutinee slot, drop the bindings, and
		// leave the arm.
		c.emitOp(vm.OpSetLocal)
		c.emitByte(byte(scrutSlot))
		c.endScope()
		endJumps = append(endJumps, c.emitJump(vm.OpJump))

		for _, jump := range failJumps {
			if err := c.patchJump(jump); err != nil {
				return err
			}
		}
	}

	c.emitOp(vm.OpMatchFail)

	for _, jump := range endJumps {
		if err := c.patchJump(jump); err != nil {
			return err
		}
	}

	// The result now occupies the scrutinee slot; release the hidden local
	// without popping the value.
	c.current.temps = temps
	c.current.locals = c.current.locals[:len(c.current.locals)-1]
	c.current.scopeDepth--
	return nil
}

// compilePatternTest emits the checks for one pattern, outer before inner so
// field navigation only runs on values whose tag already matched. Each check
// ends in a JumpIfFalse recorded in failJumps; at every jump the stack holds
// nothing beyond the enclosing expression's slots.
func (c *Compiler) compilePatternTest(p Pattern, scrutSlot int, path []int, failJumps *[]int) error {
	switch pat := p.(type) {
	case *WildcardPattern, *BindPattern:
		return nil

	case *LiteralPattern:
		c.emitNavigate(scrutSlot, path)
		if err := c.compileExpr(pat.Value); err != nil {
			return err
		}
		c.emitOp(vm.OpEq)
		*failJumps = append(*failJumps, c.emitJump(vm.OpJumpIfFalse))
		return nil

	case *ConstructorPattern:
		if arity, known := c.types[pat.Name]; known && arity != len(pat.Fields) {
			return &CompileError{
				Line:    pat.LineNo,
				Message: fmt.Sprintf("konstruktor '%s' verwag %d velde maar die patroon het %d", pat.Name, arity, len(pat.Fields)),
			}
		}
		variantIdx, err := c.constant(vm.String(pat.Name))
		if err != nil {
			return err
		}
		c.emitNavigate(scrutSlot, path)
		c.emitOp(vm.OpMatchTag)
		c.emitU16(uint16(variantIdx))
		c.emitByte(byte(len(pat.Fields)))
		*failJumps = append(*failJumps, c.emitJump(vm.OpJumpIfFalse))

		for i, field := range pat.Fields {
			if err := c.compilePatternTest(field, scrutSlot, append(path, i), failJumps); err != nil {
				return err
			}
		}
		return nil
	}

	return c.errorf("onbekende patroon")
}

// compilePatternBind declares one local per pattern variable, in declaration
// order.
func (c *Compiler) compilePatternBind(p Pattern, scrutSlot int, path []int) error {
	switch pat := p.(type) {
	case *WildcardPattern, *LiteralPattern:
		return nil

	case *BindPattern:
		c.emitNavigate(scrutSlot, path)
		if err := c.declareLocal(pat.Name, false); err != nil {
			return err
		}
		c.markInitialized()
		return nil

	case *ConstructorPattern:
		for i, field := range pat.Fields {
			if err := c.compilePatternBind(field, scrutSlot, append(path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	return c.errorf("onbekende patroon")
}

// emitNavigate pushes the sub-value of the scrutinee addressed by a field
// path.
func (c *Compiler) emitNavigate(scrutSlot int, path []int) {
	c.emitOp(vm.OpGetLocal)
	c.emitByte(byte(scrutSlot))
	for _, idx := range path {
		c.emitOp(vm.OpField)
		c.emitByte(byte(idx))
	}
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// compileFunction compiles a funksie declaration or fn lambda into a
// Function constant and emits MAKE_CLOSURE. Exactly one of exprBody and
// blockBody is used.
func (c *Compiler) compileFunction(name string, params []string, exprBody Expr, blockBody []Stmt, line int) error {
	if len(params) > maxCallArgs {
		return &CompileError{Line: line, Message: "te veel parameters"}
	}

	fc := newFuncCompiler(name, functionKind, len(params), c.current)
	c.current = fc
	c.beginScope()

	for _, param := range params {
		if err := c.declareLocal(param, true); err != nil {
			return err
		}
		c.markInitialized()
	}

	if exprBody != nil {
		// Single-expression body: implicit return, tail-call aware.
		if call, ok := exprBody.(*Call); ok {
			if err := c.compileTailCall(call); err != nil {
				return err
			}
		} else {
			if err := c.compileExpr(exprBody); err != nil {
				return err
			}
			c.emitOp(vm.OpReturn)
		}
	} else {
		for _, stmt := range blockBody {
			if err := c.compileStmt(stmt); err != nil {
				return err
			}
		}
		c.emitOp(vm.OpNil)
		c.emitOp(vm.OpReturn)
	}

	upvalues := fc.upvalues
	c.current = fc.enclosing

	descs := make([]vm.UpvalueDesc, len(upvalues))
	for i, uv := range upvalues {
		descs[i] = vm.UpvalueDesc{Index: uv.index, IsLocal: uv.isLocal}
	}

	fn := &vm.Function{
		Name:     name,
		Arity:    len(params),
		Chunk:    fc.chunk,
		Upvalues: descs,
	}

	c.line = line
	idx, err := c.constant(fn)
	if err != nil {
		return err
	}
	c.emitOp(vm.OpMakeClosure)
	c.emitU16(uint16(idx))
	for _, uv := range upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(byte(uv.index))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scopes and name resolution
// ---------------------------------------------------------------------------

func (c *Compiler) beginScope() {
	c.current.scopeDepth++
}

// endScope pops the locals of the closing scope, closing captured slots.
func (c *Compiler) endScope() {
	c.current.scopeDepth--
	for len(c.current.locals) > 1 {
		l := c.current.locals[len(c.current.locals)-1]
		if l.depth <= c.current.scopeDepth {
			break
		}
		if l.captured {
			c.emitOp(vm.OpCloseUpvalue)
		} else {
			c.emitOp(vm.OpPop)
		}
		c.current.locals = c.current.locals[:len(c.current.locals)-1]
	}
}

// endScopeKeepingSlot pops the scope's locals above the local at table
// index keepIdx, then releases that entry without popping its value off the
// stack: the value stays behind as the expression result.
func (c *Compiler) endScopeKeepingSlot(keepIdx int) {
	c.current.scopeDepth--
	for len(c.current.locals) > keepIdx+1 {
		l := c.current.locals[len(c.current.locals)-1]
		if l.captured {
			c.emitOp(vm.OpCloseUpvalue)
		} else {
			c.emitOp(vm.OpPop)
		}
		c.current.locals = c.current.locals[:len(c.current.locals)-1]
	}
	c.current.locals = c.current.locals[:len(c.current.locals)-1]
}

func (c *Compiler) declareLocal(name string, mutable bool) error {
	slot := c.nextSlot()
	if slot >= maxLocals {
		return c.errorf("te veel lokale veranderlikes in een funksie")
	}
	for i := len(c.current.locals) - 1; i >= 1; i-- {
		l := c.current.locals[i]
		if l.depth < c.current.scopeDepth {
			break
		}
		if l.name == name {
			return c.errorf("'%s' is reeds in hierdie omvang gedefinieer", name)
		}
	}
	c.current.locals = append(c.current.locals, local{
		name:    name,
		slot:    slot,
		depth:   c.current.scopeDepth,
		mutable: mutable,
	})
	return nil
}

// nextSlot is the physical frame slot the next declared local will occupy:
// one past the newest local, plus any expression operands beneath it.
func (c *Compiler) nextSlot() int {
	top := c.current.locals[len(c.current.locals)-1].slot
	return top + 1 + c.current.temps
}

// withTemps compiles a sub-expression with n extra operands counted on the
// stack beneath it.
func (c *Compiler) withTemps(n int, f func() error) error {
	c.current.temps += n
	err := f()
	c.current.temps -= n
	return err
}

// markInitialized closes the declaration window of the newest local.
func (c *Compiler) markInitialized() {
	c.current.locals[len(c.current.locals)-1].initialized = true
}

// resolveLocal finds a name in a scope's locals, returning its table index.
func (c *Compiler) resolveLocal(fc *funcCompiler, name string) (int, bool) {
	for i := len(fc.locals) - 1; i >= 1; i-- {
		if fc.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue walks the enclosing scope chain. Finding the name as a
// local there marks it captured and threads an upvalue descriptor through
// every intermediate function.
func (c *Compiler) resolveUpvalue(fc *funcCompiler, name string) (idx int, mutable bool, found bool, err error) {
	if fc.enclosing == nil {
		return 0, false, false, nil
	}

	if localIdx, ok := c.resolveLocal(fc.enclosing, name); ok {
		fc.enclosing.locals[localIdx].captured = true
		l := fc.enclosing.locals[localIdx]
		idx, err := c.addUpvalue(fc, l.slot, true, l.mutable)
		return idx, l.mutable, true, err
	}

	if upIdx, mut, ok, err := c.resolveUpvalue(fc.enclosing, name); err != nil {
		return 0, false, false, err
	} else if ok {
		idx, err := c.addUpvalue(fc, upIdx, false, mut)
		return idx, mut, true, err
	}

	return 0, false, false, nil
}

func (c *Compiler) addUpvalue(fc *funcCompiler, index int, isLocal, mutable bool) (int, error) {
	for i, uv := range fc.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i, nil
		}
	}
	if len(fc.upvalues) >= maxLocals {
		return 0, c.errorf("te veel gevangde veranderlikes in een funksie")
	}
	fc.upvalues = append(fc.upvalues, upvalue{index: index, isLocal: isLocal, mutable: mutable})
	return len(fc.upvalues) - 1, nil
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (c *Compiler) emitOp(op vm.Opcode) {
	c.current.chunk.Write(op, c.line)
}

func (c *Compiler) emitByte(b byte) {
	c.current.chunk.WriteByte(b, c.line)
}

func (c *Compiler) emitU16(v uint16) {
	c.current.chunk.WriteU16(v, c.line)
}

func (c *Compiler) constant(v vm.Value) (int, error) {
	idx, err := c.current.chunk.AddConstant(v)
	if err != nil {
		return 0, &CompileError{Line: c.line, Message: err.Error()}
	}
	return idx, nil
}

func (c *Compiler) emitConstant(v vm.Value) error {
	idx, err := c.constant(v)
	if err != nil {
		return err
	}
	c.emitOp(vm.OpConst)
	c.emitU16(uint16(idx))
	return nil
}

func (c *Compiler) emitNameOp(op vm.Opcode, name string) error {
	idx, err := c.constant(vm.String(name))
	if err != nil {
		return err
	}
	c.emitOp(op)
	c.emitU16(uint16(idx))
	return nil
}

// emitJump writes a jump with a placeholder offset and returns the operand
// position for patching.
func (c *Compiler) emitJump(op vm.Opcode) int {
	c.emitOp(op)
	pos := c.current.chunk.Len()
	c.emitU16(0xFFFF)
	return pos
}

func (c *Compiler) patchJump(operandPos int) error {
	if err := c.current.chunk.PatchJump(operandPos); err != nil {
		return &CompileError{Line: c.line, Message: err.Error()}
	}
	return nil
}

func (c *Compiler) emitLoop(loopStart int) error {
	c.emitOp(vm.OpLoop)
	offset := c.current.chunk.Len() - loopStart + 2
	if offset > 0xFFFF {
		return c.errorf("lus-liggaam te groot")
	}
	c.emitU16(uint16(offset))
	return nil
}

func (c *Compiler) errorf(format string, args ...interface{}) error {
	return &CompileError{Line: c.line, Message: fmt.Sprintf(format, args...)}
}
