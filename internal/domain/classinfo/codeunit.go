// Package classinfo collects the field and method metadata of classes and
// tracks which local variables are live while a method body is walked.
package classinfo

// FieldInfo describes one declared field.
type FieldInfo struct {
	Name   string
	Desc   string
	Owner  string
	Static bool
	Public bool
	Final  bool
}

// LocalVarInfo is one entry of a method's local variable table. Start and
// End are label ordinals, never bytecode offsets.
type LocalVarInfo struct {
	Name  string
	Desc  string
	Slot  int
	Start int
	End   int
}

// MethodInfo describes one declared method.
type MethodInfo struct {
	Name      string
	Desc      string
	Owner     string
	Static    bool
	Public    bool
	Private   bool
	Protected bool
	Synthetic bool

	// Locals is the declared local variable table, in table order.
	Locals []LocalVarInfo
	// NullableParams holds the slot of every reference or array parameter.
	NullableParams []int
}

// CodeUnit is the metadata of one class. Fields and methods are bucketed by
// descriptor; the order inside a bucket is the declaration order.
type CodeUnit struct {
	Name       string
	Super      string
	Interfaces []string
	SourceFile string

	itf         bool
	fields      map[string][]*FieldInfo
	fieldDescs  []string
	methods     map[string][]*MethodInfo
	methodDescs []string
}

func newCodeUnit() *CodeUnit {
	return &CodeUnit{
		fields:  make(map[string][]*FieldInfo),
		methods: make(map[string][]*MethodInfo),
	}
}

// Empty returns a unit with no fields and no methods.
func Empty() *CodeUnit {
	return newCodeUnit()
}

// Resolved reports whether the unit was built from class bytes.
func (u *CodeUnit) Resolved() bool {
	return u.Name != ""
}

// IsInterface reports whether the class is an interface.
func (u *CodeUnit) IsInterface() bool {
	return u.itf
}

// Fields returns the fields of type desc in declaration order.
func (u *CodeUnit) Fields(desc string) []*FieldInfo {
	return u.fields[desc]
}

// Methods returns the methods with descriptor desc in declaration order.
func (u *CodeUnit) Methods(desc string) []*MethodInfo {
	return u.methods[desc]
}

// FieldDescs lists field descriptors in first-declared order.
func (u *CodeUnit) FieldDescs() []string {
	return u.fieldDescs
}

// MethodDescs lists method descriptors in first-declared order.
func (u *CodeUnit) MethodDescs() []string {
	return u.methodDescs
}

// FindMethod returns the method called name with descriptor desc.
func (u *CodeUnit) FindMethod(name, desc string) *MethodInfo {
	for _, mi := range u.methods[desc] {
		if mi.Name == name {
			return mi
		}
	}

	return nil
}

// FindField returns the field called name of type desc.
func (u *CodeUnit) FindField(name, desc string) *FieldInfo {
	for _, fi := range u.fields[desc] {
		if fi.Name == name {
			return fi
		}
	}

	return nil
}

func (u *CodeUnit) addField(fi *FieldInfo) {
	if _, ok := u.fields[fi.Desc]; !ok {
		u.fieldDescs = append(u.fieldDescs, fi.Desc)
	}

	u.fields[fi.Desc] = append(u.fields[fi.Desc], fi)
}

func (u *CodeUnit) addMethod(mi *MethodInfo) {
	if _, ok := u.methods[mi.Desc]; !ok {
		u.methodDescs = append(u.methodDescs, mi.Desc)
	}

	u.methods[mi.Desc] = append(u.methods[mi.Desc], mi)
}
