package domain

import (
	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
	"mutafix.dev/pkg/mutafix/internal/domain/mutagens"
	m "mutafix.dev/pkg/mutafix/internal/model"
)

// site is the position of a walk inside one method body.
type site struct {
	index int // node index: instructions, labels and line numbers all count
	line  int
	block int

	// suppressed counts the filters currently hiding the region being walked.
	suppressed int
}

// registrar turns the candidates found by the mutators of one method into
// model candidates, and recognizes the target when materializing.
type registrar struct {
	class, method, desc, file string

	at     *site
	target *m.MutationID

	candidates []m.Candidate
	hit        *m.Candidate
}

var _ mutagens.Registrar = (*registrar)(nil)

func (r *registrar) Register(mu mutagens.Mutator, description string) bool {
	index := r.at.index
	if r.at.suppressed > 0 {
		index = -1
	}

	c := m.Candidate{
		ID: m.MutationID{
			Class:   r.class,
			Method:  r.method,
			Desc:    r.desc,
			Index:   index,
			Mutator: mu.UniqueID(),
		},
		Name:        mu.Name(),
		Description: description,
		File:        r.file,
		Line:        r.at.line,
		Block:       r.at.block,
	}

	r.candidates = append(r.candidates, c)

	if r.target == nil || r.hit != nil || index < 0 || c.ID != *r.target {
		return false
	}

	r.hit = &c

	return true
}

// effective drops the candidates found inside suppressed regions.
func (r *registrar) effective() []m.Candidate {
	out := make([]m.Candidate, 0, len(r.candidates))

	for _, c := range r.candidates {
		if c.ID.Index >= 0 {
			out = append(out, c)
		}
	}

	return out
}

// tracker is the outermost visitor of a walk. It numbers nodes, follows the
// source line and basic block, and moves the scope across labels before
// anything downstream sees them.
type tracker struct {
	classfile.MethodAdapter

	at       *site
	scope    *classinfo.ScopeTracker
	handlers map[*classfile.Label]bool
	// ended is set after an instruction that never falls through to the next one.
	ended bool
}

func newTracker(next classfile.MethodVisitor, at *site, scope *classinfo.ScopeTracker) *tracker {
	return &tracker{
		MethodAdapter: classfile.MethodAdapter{Next: next},
		at:            at,
		scope:         scope,
		handlers:      make(map[*classfile.Label]bool),
	}
}

func (t *tracker) insn() {
	t.at.index++

	if t.ended {
		t.ended = false
		t.at.block++
	}
}

func (t *tracker) endBlock() {
	t.ended = true
}

func (t *tracker) VisitTryCatchBlock(start, end, handler *classfile.Label, typ string) {
	t.handlers[handler] = true
	t.Next.VisitTryCatchBlock(start, end, handler, typ)
}

func (t *tracker) VisitLabel(l *classfile.Label) {
	t.at.index++

	if t.handlers[l] && !t.ended {
		t.at.block++
	}

	t.scope.Transfer(l.Ordinal)
	t.Next.VisitLabel(l)
}

func (t *tracker) VisitLineNumber(line int, start *classfile.Label) {
	t.at.index++
	t.at.line = line
	t.Next.VisitLineNumber(line, start)
}

func (t *tracker) VisitInsn(op classfile.Opcode) {
	t.insn()
	t.Next.VisitInsn(op)

	if op.IsReturn() || op == classfile.ATHROW {
		t.endBlock()
	}
}

func (t *tracker) VisitIntInsn(op classfile.Opcode, operand int) {
	t.insn()
	t.Next.VisitIntInsn(op, operand)
}

func (t *tracker) VisitVarInsn(op classfile.Opcode, slot int) {
	t.insn()
	t.Next.VisitVarInsn(op, slot)

	if op == classfile.RET {
		t.endBlock()
	}
}

func (t *tracker) VisitTypeInsn(op classfile.Opcode, typ string) {
	t.insn()
	t.Next.VisitTypeInsn(op, typ)
}

func (t *tracker) VisitFieldInsn(op classfile.Opcode, owner, name, desc string) {
	t.insn()
	t.Next.VisitFieldInsn(op, owner, name, desc)
}

func (t *tracker) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	t.insn()
	t.Next.VisitMethodInsn(op, owner, name, desc, itf)
}

func (t *tracker) VisitInvokeDynamicInsn(index uint16, name, desc string) {
	t.insn()
	t.Next.VisitInvokeDynamicInsn(index, name, desc)
}

func (t *tracker) VisitJumpInsn(op classfile.Opcode, target *classfile.Label) {
	t.insn()
	t.Next.VisitJumpInsn(op, target)
	t.endBlock()
}

func (t *tracker) VisitLdcInsn(c classfile.Constant) {
	t.insn()
	t.Next.VisitLdcInsn(c)
}

func (t *tracker) VisitIincInsn(slot, incr int) {
	t.insn()
	t.Next.VisitIincInsn(slot, incr)
}

func (t *tracker) VisitTableSwitchInsn(low, high int, dflt *classfile.Label, labels []*classfile.Label) {
	t.insn()
	t.Next.VisitTableSwitchInsn(low, high, dflt, labels)
	t.endBlock()
}

func (t *tracker) VisitLookupSwitchInsn(dflt *classfile.Label, keys []int, labels []*classfile.Label) {
	t.insn()
	t.Next.VisitLookupSwitchInsn(dflt, keys, labels)
	t.endBlock()
}

func (t *tracker) VisitMultiANewArrayInsn(desc string, dims int) {
	t.insn()
	t.Next.VisitMultiANewArrayInsn(desc, dims)
}

const assertionsDisabled = "$assertionsDisabled"

// assertFilter suppresses the region guarded by an assertion: from the
// $assertionsDisabled check to the label its branch jumps to.
type assertFilter struct {
	classfile.MethodAdapter

	at      *site
	pending bool
	resume  *classfile.Label
}

func (f *assertFilter) VisitFieldInsn(op classfile.Opcode, owner, name, desc string) {
	f.pending = op == classfile.GETSTATIC && name == assertionsDisabled
	f.Next.VisitFieldInsn(op, owner, name, desc)
}

func (f *assertFilter) VisitJumpInsn(op classfile.Opcode, target *classfile.Label) {
	if f.pending && op == classfile.IFNE && f.resume == nil {
		f.resume = target
		f.at.suppressed++
	}

	f.pending = false
	f.Next.VisitJumpInsn(op, target)
}

func (f *assertFilter) VisitLabel(l *classfile.Label) {
	if f.resume != nil && l == f.resume {
		f.resume = nil
		f.at.suppressed--
	}

	f.Next.VisitLabel(l)
}

// stringSwitchFilter suppresses the dispatch code a compiler generates for
// a switch on strings: a String.hashCode call feeding a lookup switch, up to
// the default label of that switch.
type stringSwitchFilter struct {
	classfile.MethodAdapter

	at       *site
	hashCode bool
	resume   *classfile.Label
}

func (f *stringSwitchFilter) VisitInsn(op classfile.Opcode) {
	f.hashCode = false
	f.Next.VisitInsn(op)
}

func (f *stringSwitchFilter) VisitVarInsn(op classfile.Opcode, slot int) {
	f.hashCode = false
	f.Next.VisitVarInsn(op, slot)
}

func (f *stringSwitchFilter) VisitMethodInsn(op classfile.Opcode, owner, name, desc string, itf bool) {
	f.hashCode = owner == "java/lang/String" && name == "hashCode" && desc == "()I"
	f.Next.VisitMethodInsn(op, owner, name, desc, itf)
}

func (f *stringSwitchFilter) VisitLookupSwitchInsn(dflt *classfile.Label, keys []int, labels []*classfile.Label) {
	if f.hashCode && f.resume == nil {
		f.resume = dflt
		f.at.suppressed++
	}

	f.hashCode = false
	f.Next.VisitLookupSwitchInsn(dflt, keys, labels)
}

func (f *stringSwitchFilter) VisitLabel(l *classfile.Label) {
	if f.resume != nil && l == f.resume {
		f.resume = nil
		f.at.suppressed--
	}

	f.Next.VisitLabel(l)
}
