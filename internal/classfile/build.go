package classfile

// New creates an empty class. The pool starts with the entries for this_class
// and super_class; super may be empty for java/lang/Object.
func New(major, access uint16, name, super string, interfaces ...string) *Class {
	c := &Class{
		Major:  major,
		Pool:   &Pool{entries: []poolEntry{{}}},
		Access: access,
		Name:   name,
		Super:  super,
	}

	c.thisIndex = c.Pool.AddClass(name)
	if super != "" {
		c.superIndex = c.Pool.AddClass(super)
	}

	for _, itf := range interfaces {
		c.Interfaces = append(c.Interfaces, itf)
		c.interfaceIndexs = append(c.interfaceIndexs, c.Pool.AddClass(itf))
	}

	return c
}

// AddField declares a field.
func (c *Class) AddField(access uint16, name, desc string) *Member {
	f := &Member{
		Access:    access,
		Name:      name,
		Desc:      desc,
		nameIndex: c.Pool.AddUtf8(name),
		descIndex: c.Pool.AddUtf8(desc),
	}

	c.Fields = append(c.Fields, f)

	return f
}

// AddMethod declares a method and assembles its body from the events body
// sends. A nil body declares a method without code.
func (c *Class) AddMethod(access uint16, name, desc string, resolver SuperResolver, body func(MethodVisitor)) (*Member, error) {
	m := &Member{
		Access:    access,
		Name:      name,
		Desc:      desc,
		nameIndex: c.Pool.AddUtf8(name),
		descIndex: c.Pool.AddUtf8(desc),
	}

	if body != nil {
		m.Attributes = append(m.Attributes, Attribute{Name: "Code"})

		err := c.ReplaceMethod(m, resolver, func(v MethodVisitor) error {
			v.VisitCode()
			body(v)
			v.VisitEnd()

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	c.Methods = append(c.Methods, m)

	return m, nil
}

// AddAttribute appends a raw class attribute, such as SourceFile.
func (c *Class) AddAttribute(name string, data []byte) {
	c.Attributes = append(c.Attributes, Attribute{Name: name, Data: data})
}

// SourceFile builds the data of a SourceFile attribute naming file.
func (c *Class) SourceFile(file string) []byte {
	w := &writer{}
	w.u2(c.Pool.AddUtf8(file))

	return w.buf
}
