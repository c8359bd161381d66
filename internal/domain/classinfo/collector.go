package classinfo

import (
	"errors"
	"fmt"

	"mutafix.dev/pkg/mutafix/internal/classfile"
)

// ErrParse is returned when class bytes cannot be decoded. The unit returned
// alongside it is empty and usable.
var ErrParse = errors.New("failed to parse class")

// Collect builds the CodeUnit of one class file.
func Collect(data []byte) (*CodeUnit, error) {
	c, err := classfile.Parse(data)
	if err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrParse, err)
	}

	return CollectClass(c)
}

// CollectClass builds the CodeUnit of an already parsed class.
func CollectClass(c *classfile.Class) (*CodeUnit, error) {
	u := newCodeUnit()

	for _, f := range c.Fields {
		u.addField(&FieldInfo{
			Name:   f.Name,
			Desc:   f.Desc,
			Owner:  c.Name,
			Static: f.Is(classfile.AccStatic),
			Public: f.Is(classfile.AccPublic),
			Final:  f.Is(classfile.AccFinal),
		})
	}

	for _, m := range c.Methods {
		mi := &MethodInfo{
			Name:      m.Name,
			Desc:      m.Desc,
			Owner:     c.Name,
			Static:    m.Is(classfile.AccStatic),
			Public:    m.Is(classfile.AccPublic),
			Private:   m.Is(classfile.AccPrivate),
			Protected: m.Is(classfile.AccProtected),
			Synthetic: m.Is(classfile.AccSynthetic),
		}

		mi.NullableParams = nullableParams(m.Desc, mi.Static)

		locals := &localsCollector{}
		if err := c.AcceptMethod(m, locals); err != nil {
			return Empty(), fmt.Errorf("%w: %s: %w", ErrParse, c.Name, err)
		}

		mi.Locals = locals.vars
		u.addMethod(mi)
	}

	u.Name = c.Name
	u.Super = c.Super
	u.Interfaces = c.Interfaces
	u.itf = c.IsInterface()
	u.SourceFile = sourceFile(c)

	return u, nil
}

func nullableParams(desc string, static bool) []int {
	var (
		out  []int
		slot int
	)

	if !static {
		slot = 1
	}

	for _, t := range classfile.ArgumentTypes(desc) {
		if t.IsReference() {
			out = append(out, slot)
		}

		slot += t.Size()
	}

	return out
}

func sourceFile(c *classfile.Class) string {
	a, ok := c.Attribute("SourceFile")
	if !ok || len(a.Data) != 2 {
		return ""
	}

	name, err := c.Pool.Utf8(uint16(a.Data[0])<<8 | uint16(a.Data[1]))
	if err != nil {
		return ""
	}

	return name
}

// localsCollector transcribes the local variable table, keyed by label ordinals.
type localsCollector struct {
	classfile.MethodAdapter

	vars []LocalVarInfo
}

func (l *localsCollector) VisitLocalVariable(name, desc, _ string, start, end *classfile.Label, slot int) {
	if start == nil || end == nil || start.Ordinal < 0 || end.Ordinal < 0 {
		return
	}

	l.vars = append(l.vars, LocalVarInfo{
		Name:  name,
		Desc:  desc,
		Slot:  slot,
		Start: start.Ordinal,
		End:   end.Ordinal,
	})
}
