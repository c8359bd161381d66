package classfile

import (
	"fmt"
	"sort"
	"strings"
)

// SuperResolver answers the class hierarchy questions needed to merge
// reference types at control-flow joins.
type SuperResolver interface {
	// SuperClass returns the direct superclass of an internal class name. It
	// reports false when the class cannot be found.
	SuperClass(name string) (string, bool)
	// IsInterface reports whether name is a known interface.
	IsInterface(name string) bool
}

type vkind uint8

const (
	vTop vkind = iota
	vInt
	vFloat
	vLong
	vDouble
	vNull
	vUninitThis
	vUninit
	vObject
	vRetAddr
)

// vtype is a verification type. Long and double values take one stack entry
// and two local slots, the second one holding vTop.
type vtype struct {
	kind vkind
	name string
	pc   int
}

var (
	topType    = vtype{kind: vTop}
	intType    = vtype{kind: vInt}
	floatType  = vtype{kind: vFloat}
	longType   = vtype{kind: vLong}
	doubleType = vtype{kind: vDouble}
	nullType   = vtype{kind: vNull}
)

func objectType(name string) vtype {
	return vtype{kind: vObject, name: name}
}

func (t vtype) size() int {
	if t.kind == vLong || t.kind == vDouble {
		return 2
	}

	return 1
}

func (t vtype) isReference() bool {
	return t.kind == vObject || t.kind == vNull
}

func valueOf(t Type) vtype {
	switch t.Sort() {
	case SortBoolean, SortByte, SortChar, SortShort, SortInt:
		return intType
	case SortFloat:
		return floatType
	case SortLong:
		return longType
	case SortDouble:
		return doubleType
	case SortArray, SortObject:
		return objectType(t.InternalName())
	default:
		return topType
	}
}

type frame struct {
	locals []vtype
	stack  []vtype
}

func (f *frame) clone() *frame {
	return &frame{
		locals: append([]vtype(nil), f.locals...),
		stack:  append([]vtype(nil), f.stack...),
	}
}

func (f *frame) depth() int {
	n := 0
	for _, v := range f.stack {
		n += v.size()
	}

	return n
}

func (f *frame) push(v vtype) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (vtype, error) {
	if len(f.stack) == 0 {
		return topType, fmt.Errorf("%w: operand stack underflow", ErrMalformed)
	}

	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]

	return v, nil
}

func (f *frame) popN(n int) error {
	for range n {
		if _, err := f.pop(); err != nil {
			return err
		}
	}

	return nil
}

func (f *frame) local(slot int) (vtype, error) {
	if slot < 0 || slot >= len(f.locals) {
		return topType, fmt.Errorf("%w: local %d out of range", ErrMalformed, slot)
	}

	return f.locals[slot], nil
}

func (f *frame) setLocal(slot int, v vtype) error {
	if slot < 0 || slot+v.size() > len(f.locals) {
		return fmt.Errorf("%w: local %d out of range", ErrMalformed, slot)
	}

	if slot > 0 && f.locals[slot-1].size() == 2 {
		f.locals[slot-1] = topType
	}

	f.locals[slot] = v
	if v.size() == 2 {
		f.locals[slot+1] = topType
	}

	return nil
}

type stackFrame struct {
	offset int
	frame  *frame
}

type analysis struct {
	code     []byte
	handlers []Handler
	maxStack int
	frames   []stackFrame
}

type analyzer struct {
	class    *Class
	insns    []insn
	index    map[int]int
	handlers []Handler
	resolver SuperResolver
	in       []*frame
	work     []int
	queued   []bool
}

// analyze runs a type-flow pass over assembled code, computing max_stack and
// the frames required at branch targets, handlers and after unconditional jumps.
// Unreachable code is replaced by NOPs ending in ATHROW and cut out of handler ranges.
func analyze(c *Class, m *Member, code []byte, handlers []Handler, maxLocals int, resolver SuperResolver) (*analysis, error) {
	insns, err := decodeCode(code)
	if err != nil {
		return nil, err
	}

	a := &analyzer{
		class:    c,
		insns:    insns,
		index:    make(map[int]int, len(insns)),
		handlers: handlers,
		resolver: resolver,
		in:       make([]*frame, len(insns)),
		queued:   make([]bool, len(insns)),
	}

	for i := range insns {
		a.index[insns[i].offset] = i
	}

	for _, h := range handlers {
		if _, ok := a.index[h.HandlerPC]; !ok {
			return nil, fmt.Errorf("%w: handler at %d is not an instruction", ErrMalformed, h.HandlerPC)
		}
	}

	initial, err := a.initialFrame(m, maxLocals)
	if err != nil {
		return nil, err
	}

	if err := a.merge(0, initial); err != nil {
		return nil, err
	}

	maxStack := 0

	for len(a.work) > 0 {
		i := a.work[len(a.work)-1]
		a.work = a.work[:len(a.work)-1]
		a.queued[i] = false

		in := &a.insns[i]
		before := a.in[i]
		maxStack = max(maxStack, before.depth())

		after := before.clone()
		if err := a.execute(in, after); err != nil {
			return nil, fmt.Errorf("at offset %d (%s): %w", in.offset, in.op, err)
		}

		if err := a.mergeHandlers(in, before, after); err != nil {
			return nil, err
		}

		if len(a.handlers) > 0 {
			maxStack = max(maxStack, 1)
		}

		maxStack = max(maxStack, after.depth())

		if err := a.successors(i, before, after); err != nil {
			return nil, err
		}
	}

	res := &analysis{maxStack: maxStack}
	res.code, res.handlers, res.frames = a.finish(code)

	return res, nil
}

// mergeHandlers propagates the locals around in to every handler covering it.
// Stores contribute their outgoing locals as well.
func (a *analyzer) mergeHandlers(in *insn, before, after *frame) error {
	for _, h := range a.handlers {
		if in.offset < h.StartPC || in.offset >= h.EndPC {
			continue
		}

		catchType := h.CatchType
		if catchType == "" {
			catchType = ThrowableClass
		}

		target := a.index[h.HandlerPC]
		exc := []vtype{objectType(catchType)}

		if err := a.merge(target, &frame{locals: before.locals, stack: exc}); err != nil {
			return err
		}

		if in.op.IsStore() || in.op == IINC {
			if err := a.merge(target, &frame{locals: after.locals, stack: exc}); err != nil {
				return err
			}
		}
	}

	return nil
}

func (a *analyzer) initialFrame(m *Member, maxLocals int) (*frame, error) {
	f := &frame{locals: make([]vtype, maxLocals)}
	slot := 0

	if !m.Is(AccStatic) {
		this := objectType(a.class.Name)
		if m.Name == ConstructorName && a.class.Name != ObjectClass {
			this = vtype{kind: vUninitThis}
		}

		if err := f.setLocal(0, this); err != nil {
			return nil, err
		}

		slot = 1
	}

	for _, arg := range ArgumentTypes(m.Desc) {
		if err := f.setLocal(slot, valueOf(arg)); err != nil {
			return nil, err
		}

		slot += arg.Size()
	}

	return f, nil
}

func (a *analyzer) successors(i int, before, after *frame) error {
	in := &a.insns[i]

	switch {
	case in.op == JSR:
		if err := a.mergeAt(in.target, after); err != nil {
			return err
		}

		return a.mergeNext(i, before)
	case in.op.IsJump():
		if err := a.mergeAt(in.target, after); err != nil {
			return err
		}
	case in.op == TABLESWITCH || in.op == LOOKUPSWITCH:
		if err := a.mergeAt(in.dflt, after); err != nil {
			return err
		}

		for _, t := range in.targets {
			if err := a.mergeAt(t, after); err != nil {
				return err
			}
		}
	}

	if in.isUnconditional() {
		return nil
	}

	return a.mergeNext(i, after)
}

func (a *analyzer) mergeNext(i int, f *frame) error {
	if i+1 >= len(a.insns) {
		return fmt.Errorf("%w: execution falls off the end of the code", ErrMalformed)
	}

	return a.merge(i+1, f)
}

func (a *analyzer) mergeAt(offset int, f *frame) error {
	i, ok := a.index[offset]
	if !ok {
		return fmt.Errorf("%w: branch to %d is not an instruction", ErrMalformed, offset)
	}

	return a.merge(i, f)
}

func (a *analyzer) merge(i int, f *frame) error {
	old := a.in[i]
	if old == nil {
		a.in[i] = f.clone()
		a.enqueue(i)

		return nil
	}

	if len(old.stack) != len(f.stack) {
		return fmt.Errorf("%w: inconsistent stack height at offset %d", ErrMalformed, a.insns[i].offset)
	}

	changed := false

	for j := range old.locals {
		if v := a.mergeType(old.locals[j], f.locals[j]); v != old.locals[j] {
			old.locals[j] = v
			changed = true
		}
	}

	for j := range old.stack {
		if v := a.mergeType(old.stack[j], f.stack[j]); v != old.stack[j] {
			old.stack[j] = v
			changed = true
		}
	}

	if changed {
		a.enqueue(i)
	}

	return nil
}

func (a *analyzer) enqueue(i int) {
	if !a.queued[i] {
		a.queued[i] = true
		a.work = append(a.work, i)
	}
}

func (a *analyzer) mergeType(old, incoming vtype) vtype {
	if old == incoming {
		return old
	}

	if !old.isReference() || !incoming.isReference() {
		return topType
	}

	if old.kind == vNull {
		return incoming
	}

	if incoming.kind == vNull {
		return old
	}

	return objectType(a.commonSuper(old.name, incoming.name))
}

func (a *analyzer) commonSuper(x, y string) string {
	if x == y {
		return x
	}

	xArray, yArray := strings.HasPrefix(x, "["), strings.HasPrefix(y, "[")

	switch {
	case xArray && yArray:
		ex, ey := TypeOf(x[1:]), TypeOf(y[1:])
		if !ex.IsReference() || !ey.IsReference() {
			return ObjectClass
		}

		return "[" + ObjectType(a.commonSuper(ex.InternalName(), ey.InternalName())).Descriptor()
	case xArray || yArray:
		return ObjectClass
	}

	if a.resolver == nil || x == ObjectClass || y == ObjectClass {
		return ObjectClass
	}

	if a.resolver.IsInterface(x) || a.resolver.IsInterface(y) {
		return ObjectClass
	}

	seen := make(map[string]bool)
	for cur := x; cur != "" && !seen[cur]; {
		seen[cur] = true

		sup, ok := a.resolver.SuperClass(cur)
		if !ok {
			break
		}

		cur = sup
	}

	visited := make(map[string]bool)
	for cur := y; cur != "" && !visited[cur]; {
		if seen[cur] {
			return cur
		}

		visited[cur] = true

		sup, ok := a.resolver.SuperClass(cur)
		if !ok {
			break
		}

		cur = sup
	}

	return ObjectClass
}

func (a *analyzer) constType(index uint16) (vtype, error) {
	cst, err := a.class.Pool.Constant(index)
	if err != nil {
		return topType, err
	}

	switch cst.Tag {
	case TagInteger:
		return intType, nil
	case TagFloat:
		return floatType, nil
	case TagLong:
		return longType, nil
	case TagDouble:
		return doubleType, nil
	case TagString:
		return objectType("java/lang/String"), nil
	case TagClass:
		return objectType("java/lang/Class"), nil
	case TagMethodType:
		return objectType("java/lang/invoke/MethodType"), nil
	case TagMethodHandle:
		return objectType("java/lang/invoke/MethodHandle"), nil
	default:
		return valueOf(TypeOf(cst.Value)), nil
	}
}

func primitiveArray(code int) string {
	switch code {
	case TBoolean:
		return "[Z"
	case TChar:
		return "[C"
	case TFloat:
		return "[F"
	case TDouble:
		return "[D"
	case TByte:
		return "[B"
	case TShort:
		return "[S"
	case TLong:
		return "[J"
	default:
		return "[I"
	}
}

//nolint:gocyclo,cyclop,funlen // one case per opcode family
func (a *analyzer) execute(in *insn, f *frame) error {
	op := in.op

	pushPop := func(pops int, v vtype) error {
		if err := f.popN(pops); err != nil {
			return err
		}

		f.push(v)

		return nil
	}

	switch {
	case op == NOP, op == GOTO, op == RET, op == RETURN:
		return nil
	case op == ACONST_NULL:
		f.push(nullType)
	case (op >= ICONST_M1 && op <= ICONST_5) || op == BIPUSH || op == SIPUSH:
		f.push(intType)
	case op == LCONST_0 || op == LCONST_1:
		f.push(longType)
	case op >= FCONST_0 && op <= FCONST_2:
		f.push(floatType)
	case op == DCONST_0 || op == DCONST_1:
		f.push(doubleType)
	case op == LDC:
		v, err := a.constType(in.index)
		if err != nil {
			return err
		}

		f.push(v)
	case op == ILOAD:
		f.push(intType)
	case op == LLOAD:
		f.push(longType)
	case op == FLOAD:
		f.push(floatType)
	case op == DLOAD:
		f.push(doubleType)
	case op == ALOAD:
		v, err := f.local(in.slot)
		if err != nil {
			return err
		}

		f.push(v)
	case op == IALOAD || op == BALOAD || op == CALOAD || op == SALOAD:
		return pushPop(2, intType)
	case op == LALOAD:
		return pushPop(2, longType)
	case op == FALOAD:
		return pushPop(2, floatType)
	case op == DALOAD:
		return pushPop(2, doubleType)
	case op == AALOAD:
		if err := f.popN(1); err != nil {
			return err
		}

		arr, err := f.pop()
		if err != nil {
			return err
		}

		switch {
		case arr.kind == vNull:
			f.push(nullType)
		case arr.kind == vObject && strings.HasPrefix(arr.name, "["):
			f.push(valueOf(TypeOf(arr.name[1:])))
		default:
			f.push(objectType(ObjectClass))
		}
	case op >= ISTORE && op <= ASTORE:
		v, err := f.pop()
		if err != nil {
			return err
		}

		return f.setLocal(in.slot, v)
	case op >= IASTORE && op <= SASTORE:
		return f.popN(3)
	case op == POP:
		return f.popN(1)
	case op == POP2:
		v, err := f.pop()
		if err != nil {
			return err
		}

		if v.size() == 1 {
			return f.popN(1)
		}
	case op >= DUP && op <= SWAP:
		return stackShuffle(op, f)
	case op == IADD || op == ISUB || op == IMUL || op == IDIV || op == IREM ||
		op == ISHL || op == ISHR || op == IUSHR || op == IAND || op == IOR || op == IXOR:
		return pushPop(2, intType)
	case op == LADD || op == LSUB || op == LMUL || op == LDIV || op == LREM ||
		op == LSHL || op == LSHR || op == LUSHR || op == LAND || op == LOR || op == LXOR:
		return pushPop(2, longType)
	case op == FADD || op == FSUB || op == FMUL || op == FDIV || op == FREM:
		return pushPop(2, floatType)
	case op == DADD || op == DSUB || op == DMUL || op == DDIV || op == DREM:
		return pushPop(2, doubleType)
	case op == INEG || op == L2I || op == F2I || op == D2I || op == I2B || op == I2C || op == I2S ||
		op == ARRAYLENGTH || op == INSTANCEOF:
		return pushPop(1, intType)
	case op == LNEG || op == I2L || op == F2L || op == D2L:
		return pushPop(1, longType)
	case op == FNEG || op == I2F || op == L2F || op == D2F:
		return pushPop(1, floatType)
	case op == DNEG || op == I2D || op == L2D || op == F2D:
		return pushPop(1, doubleType)
	case op == IINC:
		return f.setLocal(in.slot, intType)
	case op >= LCMP && op <= DCMPG:
		return pushPop(2, intType)
	case (op >= IFEQ && op <= IFLE) || op == IFNULL || op == IFNONNULL:
		return f.popN(1)
	case op >= IF_ICMPEQ && op <= IF_ACMPNE:
		return f.popN(2)
	case op == JSR:
		f.push(vtype{kind: vRetAddr, pc: in.offset})
	case op == TABLESWITCH || op == LOOKUPSWITCH || (op >= IRETURN && op <= ARETURN) ||
		op == ATHROW || op == MONITORENTER || op == MONITOREXIT || op == PUTSTATIC:
		return f.popN(1)
	case op == GETSTATIC || op == GETFIELD || op == PUTFIELD:
		_, _, desc, err := a.class.Pool.MemberRef(in.index)
		if err != nil {
			return err
		}

		switch op {
		case GETSTATIC:
			f.push(valueOf(TypeOf(desc)))
		case GETFIELD:
			return pushPop(1, valueOf(TypeOf(desc)))
		default:
			return f.popN(2)
		}
	case op >= INVOKEVIRTUAL && op <= INVOKEINTERFACE:
		return a.invoke(in, f)
	case op == INVOKEDYNAMIC:
		_, desc, err := a.class.Pool.DynamicRef(in.index)
		if err != nil {
			return err
		}

		if err := f.popN(len(ArgumentTypes(desc))); err != nil {
			return err
		}

		if ret := ReturnType(desc); ret.Sort() != SortVoid {
			f.push(valueOf(ret))
		}
	case op == NEW:
		f.push(vtype{kind: vUninit, pc: in.offset})
	case op == NEWARRAY:
		return pushPop(1, objectType(primitiveArray(in.operand)))
	case op == ANEWARRAY || op == CHECKCAST:
		name, err := a.class.Pool.ClassName(in.index)
		if err != nil {
			return err
		}

		if op == ANEWARRAY {
			name = "[" + ObjectType(name).Descriptor()
		}

		return pushPop(1, objectType(name))
	case op == MULTIANEWARRAY:
		name, err := a.class.Pool.ClassName(in.index)
		if err != nil {
			return err
		}

		return pushPop(in.dims, objectType(name))
	default:
		return fmt.Errorf("%w: unsupported opcode %s", ErrMalformed, op)
	}

	return nil
}

func (a *analyzer) invoke(in *insn, f *frame) error {
	_, name, desc, err := a.class.Pool.MemberRef(in.index)
	if err != nil {
		return err
	}

	if err := f.popN(len(ArgumentTypes(desc))); err != nil {
		return err
	}

	if in.op != INVOKESTATIC {
		recv, err := f.pop()
		if err != nil {
			return err
		}

		if in.op == INVOKESPECIAL && name == ConstructorName {
			if err := a.initialize(recv, f); err != nil {
				return err
			}
		}
	}

	if ret := ReturnType(desc); ret.Sort() != SortVoid {
		f.push(valueOf(ret))
	}

	return nil
}

func (a *analyzer) initialize(recv vtype, f *frame) error {
	var replacement vtype

	switch recv.kind {
	case vUninitThis:
		replacement = objectType(a.class.Name)
	case vUninit:
		i, ok := a.index[recv.pc]
		if !ok {
			return fmt.Errorf("%w: uninitialized value without NEW", ErrMalformed)
		}

		name, err := a.class.Pool.ClassName(a.insns[i].index)
		if err != nil {
			return err
		}

		replacement = objectType(name)
	default:
		return nil
	}

	for j := range f.locals {
		if f.locals[j] == recv {
			f.locals[j] = replacement
		}
	}

	for j := range f.stack {
		if f.stack[j] == recv {
			f.stack[j] = replacement
		}
	}

	return nil
}

func stackShuffle(op Opcode, f *frame) error {
	n := len(f.stack)
	at := func(k int) (vtype, error) {
		if k > n {
			return topType, fmt.Errorf("%w: operand stack underflow", ErrMalformed)
		}

		return f.stack[n-k], nil
	}

	v1, err := at(1)
	if err != nil {
		return err
	}

	switch op {
	case DUP:
		f.push(v1)
	case DUP_X1:
		v2, err := at(2)
		if err != nil {
			return err
		}

		f.stack = append(f.stack[:n-2], v1, v2, v1)
	case DUP_X2:
		v2, err := at(2)
		if err != nil {
			return err
		}

		if v2.size() == 2 {
			f.stack = append(f.stack[:n-2], v1, v2, v1)
			return nil
		}

		v3, err := at(3)
		if err != nil {
			return err
		}

		f.stack = append(f.stack[:n-3], v1, v3, v2, v1)
	case DUP2:
		if v1.size() == 2 {
			f.push(v1)
			return nil
		}

		v2, err := at(2)
		if err != nil {
			return err
		}

		f.stack = append(f.stack, v2, v1)
	case DUP2_X1:
		v2, err := at(2)
		if err != nil {
			return err
		}

		if v1.size() == 2 {
			f.stack = append(f.stack[:n-2], v1, v2, v1)
			return nil
		}

		v3, err := at(3)
		if err != nil {
			return err
		}

		f.stack = append(f.stack[:n-3], v2, v1, v3, v2, v1)
	case DUP2_X2:
		return dup2x2(f, v1, at)
	case SWAP:
		v2, err := at(2)
		if err != nil {
			return err
		}

		f.stack[n-1], f.stack[n-2] = v2, v1
	}

	return nil
}

func dup2x2(f *frame, v1 vtype, at func(int) (vtype, error)) error {
	n := len(f.stack)

	v2, err := at(2)
	if err != nil {
		return err
	}

	if v1.size() == 2 {
		if v2.size() == 2 {
			f.stack = append(f.stack[:n-2], v1, v2, v1)
			return nil
		}

		v3, err := at(3)
		if err != nil {
			return err
		}

		f.stack = append(f.stack[:n-3], v1, v3, v2, v1)

		return nil
	}

	v3, err := at(3)
	if err != nil {
		return err
	}

	if v3.size() == 2 {
		f.stack = append(f.stack[:n-3], v2, v1, v3, v2, v1)
		return nil
	}

	v4, err := at(4)
	if err != nil {
		return err
	}

	f.stack = append(f.stack[:n-4], v2, v1, v4, v3, v2, v1)

	return nil
}

// finish patches unreachable code and collects the frames to emit.
func (a *analyzer) finish(code []byte) ([]byte, []Handler, []stackFrame) {
	need := make(map[int]bool)

	for i := range a.insns {
		in := &a.insns[i]
		if a.in[i] == nil {
			continue
		}

		switch {
		case in.op.IsJump():
			need[in.target] = true
		case in.op == TABLESWITCH || in.op == LOOKUPSWITCH:
			need[in.dflt] = true
			for _, t := range in.targets {
				need[t] = true
			}
		}

		if in.isUnconditional() && i+1 < len(a.insns) {
			need[a.insns[i+1].offset] = true
		}
	}

	for _, h := range a.handlers {
		need[h.HandlerPC] = true
	}

	patched := code
	handlers := a.handlers

	var dead [][2]int

	for i := 0; i < len(a.insns); {
		if a.in[i] != nil {
			i++
			continue
		}

		j := i
		for j < len(a.insns) && a.in[j] == nil {
			j++
		}

		start := a.insns[i].offset

		end := len(code)
		if j < len(a.insns) {
			end = a.insns[j].offset
		}

		dead = append(dead, [2]int{start, end})
		i = j
	}

	deadFrames := make(map[int]*frame)

	if len(dead) > 0 {
		patched = append([]byte(nil), code...)

		for _, d := range dead {
			for pc := d[0]; pc < d[1]-1; pc++ {
				patched[pc] = byte(NOP)
			}

			patched[d[1]-1] = byte(ATHROW)
			deadFrames[d[0]] = &frame{stack: []vtype{objectType(ThrowableClass)}}
			need[d[0]] = true
		}

		handlers = cutHandlers(a.handlers, dead)
	}

	offsets := make([]int, 0, len(need))
	for pc := range need {
		offsets = append(offsets, pc)
	}

	sort.Ints(offsets)

	frames := make([]stackFrame, 0, len(offsets))

	for _, pc := range offsets {
		if f, ok := deadFrames[pc]; ok {
			frames = append(frames, stackFrame{offset: pc, frame: f})
			continue
		}

		i, ok := a.index[pc]
		if !ok || a.in[i] == nil {
			continue
		}

		frames = append(frames, stackFrame{offset: pc, frame: a.in[i]})
	}

	return patched, handlers, frames
}

func cutHandlers(handlers []Handler, dead [][2]int) []Handler {
	var out []Handler

	for _, h := range handlers {
		ranges := [][2]int{{h.StartPC, h.EndPC}}

		for _, d := range dead {
			var next [][2]int

			for _, r := range ranges {
				if d[1] <= r[0] || d[0] >= r[1] {
					next = append(next, r)
					continue
				}

				if r[0] < d[0] {
					next = append(next, [2]int{r[0], d[0]})
				}

				if d[1] < r[1] {
					next = append(next, [2]int{d[1], r[1]})
				}
			}

			ranges = next
		}

		for _, r := range ranges {
			out = append(out, Handler{StartPC: r[0], EndPC: r[1], HandlerPC: h.HandlerPC, CatchType: h.CatchType})
		}
	}

	return out
}

func (res *analysis) encodeFrames(pool *Pool) []byte {
	out := &writer{}
	out.u2(uint16(len(res.frames)))

	prev := -1

	for _, sf := range res.frames {
		delta := sf.offset
		if prev >= 0 {
			delta = sf.offset - prev - 1
		}

		prev = sf.offset

		locals := frameLocals(sf.frame.locals)

		out.u1(255)
		out.u2(uint16(delta))
		out.u2(uint16(len(locals)))

		for _, v := range locals {
			writeVType(out, pool, v)
		}

		out.u2(uint16(len(sf.frame.stack)))

		for _, v := range sf.frame.stack {
			writeVType(out, pool, v)
		}
	}

	return out.buf
}

func frameLocals(slots []vtype) []vtype {
	var out []vtype

	for i := 0; i < len(slots); {
		v := slots[i]
		out = append(out, v)
		i += v.size()
	}

	for len(out) > 0 && out[len(out)-1].kind == vTop {
		out = out[:len(out)-1]
	}

	return out
}

func writeVType(out *writer, pool *Pool, v vtype) {
	switch v.kind {
	case vInt:
		out.u1(1)
	case vFloat:
		out.u1(2)
	case vDouble:
		out.u1(3)
	case vLong:
		out.u1(4)
	case vNull:
		out.u1(5)
	case vUninitThis:
		out.u1(6)
	case vObject:
		out.u1(7)
		out.u2(pool.AddClass(v.name))
	case vUninit:
		out.u1(8)
		out.u2(uint16(v.pc))
	default:
		out.u1(0)
	}
}
