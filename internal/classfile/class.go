// Package classfile reads, rewrites and writes JVM class files.
//
// Parsing keeps every constant pool index stable, so attributes that are not
// rewritten are carried over verbatim. Method bodies are exposed as a stream of
// MethodVisitor events and can be replaced by the output of a CodeWriter.
package classfile

import (
	"errors"
	"fmt"
)

// ErrMalformed reports class-file data that cannot be decoded.
var ErrMalformed = errors.New("malformed class file")

const classMagic = 0xCAFEBABE

// Attribute is an undecoded attribute.
type Attribute struct {
	Name string
	Data []byte

	nameIndex uint16
}

// Member is a field or a method.
type Member struct {
	Access     uint16
	Name       string
	Desc       string
	Attributes []Attribute

	// Code is the decoded Code attribute of a method, nil for fields and
	// abstract or native methods.
	Code *Code

	nameIndex uint16
	descIndex uint16
}

// Is reports whether every bit of flag is set on m.
func (m *Member) Is(flag uint16) bool {
	return m.Access&flag == flag
}

// Handler is an exception table entry. CatchType is empty for catch-all handlers.
type Handler struct {
	StartPC, EndPC, HandlerPC int
	CatchType                 string
}

// LineNumber maps a bytecode offset to a source line.
type LineNumber struct {
	PC, Line int
}

// LocalVariable is a LocalVariableTable entry with its generic signature, if any.
type LocalVariable struct {
	StartPC, Length int
	Name, Desc      string
	Signature       string
	Slot            int
}

// Code is a decoded Code attribute.
type Code struct {
	MaxStack  int
	MaxLocals int
	Bytecode  []byte
	Handlers  []Handler
	Lines     []LineNumber
	Locals    []LocalVariable
}

// Class is a parsed class file.
type Class struct {
	Minor, Major uint16
	Pool         *Pool
	Access       uint16
	Name         string
	Super        string
	Interfaces   []string
	Fields       []*Member
	Methods      []*Member
	Attributes   []Attribute

	thisIndex       uint16
	superIndex      uint16
	interfaceIndexs []uint16
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.Access&AccInterface != 0
}

// Method looks up a method by name and descriptor.
func (c *Class) Method(name, desc string) *Member {
	for _, mth := range c.Methods {
		if mth.Name == name && mth.Desc == desc {
			return mth
		}
	}

	return nil
}

// Attribute returns the first class attribute called name.
func (c *Class) Attribute(name string) (Attribute, bool) {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a, true
		}
	}

	return Attribute{}, false
}

// Parse decodes a class file.
func Parse(data []byte) (*Class, error) {
	r := &reader{data: data}

	if r.u4() != classMagic {
		if r.err != nil {
			return nil, r.err
		}

		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}

	c := &Class{}
	c.Minor = r.u2()
	c.Major = r.u2()

	pool, err := parsePool(r)
	if err != nil {
		return nil, err
	}

	c.Pool = pool
	c.Access = r.u2()
	c.thisIndex = r.u2()
	c.superIndex = r.u2()

	if r.err != nil {
		return nil, r.err
	}

	if c.Name, err = pool.ClassName(c.thisIndex); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}

	if c.superIndex != 0 {
		if c.Super, err = pool.ClassName(c.superIndex); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	n := int(r.u2())
	for range n {
		idx := r.u2()

		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("interfaces: %w", err)
		}

		c.interfaceIndexs = append(c.interfaceIndexs, idx)
		c.Interfaces = append(c.Interfaces, name)
	}

	if c.Fields, err = parseMembers(r, pool, false); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}

	if c.Methods, err = parseMembers(r, pool, true); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}

	if c.Attributes, err = parseAttributes(r, pool); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}

	return c, nil
}

func parseMembers(r *reader, pool *Pool, methods bool) ([]*Member, error) {
	n := int(r.u2())
	members := make([]*Member, 0, n)

	for range n {
		mb := &Member{Access: r.u2(), nameIndex: r.u2(), descIndex: r.u2()}
		if r.err != nil {
			return nil, r.err
		}

		var err error
		if mb.Name, err = pool.Utf8(mb.nameIndex); err != nil {
			return nil, err
		}

		if mb.Desc, err = pool.Utf8(mb.descIndex); err != nil {
			return nil, err
		}

		if mb.Attributes, err = parseAttributes(r, pool); err != nil {
			return nil, fmt.Errorf("%s%s: %w", mb.Name, mb.Desc, err)
		}

		if methods {
			for _, a := range mb.Attributes {
				if a.Name != "Code" {
					continue
				}

				if mb.Code, err = parseCode(a.Data, pool); err != nil {
					return nil, fmt.Errorf("%s%s: %w", mb.Name, mb.Desc, err)
				}

				break
			}
		}

		members = append(members, mb)
	}

	return members, nil
}

func parseAttributes(r *reader, pool *Pool) ([]Attribute, error) {
	n := int(r.u2())
	attrs := make([]Attribute, 0, n)

	for range n {
		a := Attribute{nameIndex: r.u2()}
		size := int(r.u4())
		a.Data = r.bytes(size)

		if r.err != nil {
			return nil, r.err
		}

		var err error
		if a.Name, err = pool.Utf8(a.nameIndex); err != nil {
			return nil, err
		}

		attrs = append(attrs, a)
	}

	return attrs, nil
}

func parseCode(data []byte, pool *Pool) (*Code, error) {
	r := &reader{data: data}
	code := &Code{MaxStack: int(r.u2()), MaxLocals: int(r.u2())}
	length := int(r.u4())
	code.Bytecode = r.bytes(length)

	handlers := int(r.u2())
	for range handlers {
		h := Handler{StartPC: int(r.u2()), EndPC: int(r.u2()), HandlerPC: int(r.u2())}

		if typeIndex := r.u2(); typeIndex != 0 {
			name, err := pool.ClassName(typeIndex)
			if err != nil {
				return nil, fmt.Errorf("exception table: %w", err)
			}

			h.CatchType = name
		}

		code.Handlers = append(code.Handlers, h)
	}

	attrs, err := parseAttributes(r, pool)
	if err != nil {
		return nil, err
	}

	var signatures []LocalVariable

	for _, a := range attrs {
		switch a.Name {
		case "LineNumberTable":
			ar := &reader{data: a.Data}
			for range int(ar.u2()) {
				code.Lines = append(code.Lines, LineNumber{PC: int(ar.u2()), Line: int(ar.u2())})
			}

			if ar.err != nil {
				return nil, ar.err
			}
		case "LocalVariableTable", "LocalVariableTypeTable":
			vars, err := parseLocals(a.Data, pool)
			if err != nil {
				return nil, err
			}

			if a.Name == "LocalVariableTable" {
				code.Locals = append(code.Locals, vars...)
			} else {
				signatures = append(signatures, vars...)
			}
		}
	}

	for _, sig := range signatures {
		for i := range code.Locals {
			lv := &code.Locals[i]
			if lv.Slot == sig.Slot && lv.StartPC == sig.StartPC && lv.Name == sig.Name {
				lv.Signature = sig.Desc
			}
		}
	}

	if r.err != nil {
		return nil, r.err
	}

	return code, nil
}

func parseLocals(data []byte, pool *Pool) ([]LocalVariable, error) {
	r := &reader{data: data}
	n := int(r.u2())
	vars := make([]LocalVariable, 0, n)

	for range n {
		lv := LocalVariable{StartPC: int(r.u2()), Length: int(r.u2())}
		nameIndex, descIndex := r.u2(), r.u2()
		lv.Slot = int(r.u2())

		if r.err != nil {
			return nil, r.err
		}

		var err error
		if lv.Name, err = pool.Utf8(nameIndex); err != nil {
			return nil, err
		}

		if lv.Desc, err = pool.Utf8(descIndex); err != nil {
			return nil, err
		}

		vars = append(vars, lv)
	}

	return vars, nil
}

// SetCode replaces the Code attribute of m with a body produced by a CodeWriter.
func (c *Class) SetCode(m *Member, body []byte) error {
	for i := range m.Attributes {
		if m.Attributes[i].Name == "Code" {
			m.Attributes[i].Data = body

			code, err := parseCode(body, c.Pool)
			if err != nil {
				return fmt.Errorf("re-read code of %s%s: %w", m.Name, m.Desc, err)
			}

			m.Code = code

			return nil
		}
	}

	return fmt.Errorf("%w: method %s%s has no code", ErrMalformed, m.Name, m.Desc)
}

// Bytes serializes the class.
func (c *Class) Bytes() ([]byte, error) {
	body := &writer{}
	body.u2(c.Access)
	body.u2(c.thisIndex)
	body.u2(c.superIndex)
	body.u2(uint16(len(c.interfaceIndexs)))

	for _, idx := range c.interfaceIndexs {
		body.u2(idx)
	}

	for _, members := range [][]*Member{c.Fields, c.Methods} {
		body.u2(uint16(len(members)))

		for _, mb := range members {
			body.u2(mb.Access)
			body.u2(mb.nameIndex)
			body.u2(mb.descIndex)
			c.writeAttributes(body, mb.Attributes)
		}
	}

	c.writeAttributes(body, c.Attributes)

	// Attribute names may have been interned while writing, so the pool goes last.
	out := &writer{}
	out.u4(classMagic)
	out.u2(c.Minor)
	out.u2(c.Major)

	if err := c.Pool.write(out); err != nil {
		return nil, err
	}

	out.bytes(body.buf)

	return out.buf, nil
}

func (c *Class) writeAttributes(w *writer, attrs []Attribute) {
	w.u2(uint16(len(attrs)))

	for _, a := range attrs {
		idx := a.nameIndex
		if idx == 0 {
			idx = c.Pool.AddUtf8(a.Name)
		}

		w.u2(idx)
		w.u4(uint32(len(a.Data)))
		w.bytes(a.Data)
	}
}
