// Package mutagens holds the mutator families. Each family is a closed set
// of variants; a variant decorates the instruction stream of one method,
// registers every candidate it finds and rewrites the site only when the
// candidate is the one being materialized.
package mutagens

import (
	"errors"
	"strconv"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
	"mutafix.dev/pkg/mutafix/internal/domain/hierarchy"
)

var (
	// ErrUnknownMutator is returned when an activation list names no known group.
	ErrUnknownMutator = errors.New("unknown mutator")
	// ErrUnsupportedOperation is returned by CreateVisitorPartial.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// Mutator is one variant of a mutator family.
type Mutator interface {
	// Name is the variant name, e.g. LOCAL_NAME_MUTATOR_2.
	Name() string
	// Family is the name shared by every variant of the family.
	Family() string
	// UniqueID keys the variant inside mutation identifiers.
	UniqueID() string
	// CreateVisitor decorates next for one walk of ctx.Method.
	CreateVisitor(ctx *Context, next classfile.MethodVisitor) classfile.MethodVisitor
	// CreateVisitorPartial always fails: variants need the full context.
	CreateVisitorPartial(next classfile.MethodVisitor) (classfile.MethodVisitor, error)
}

// Registrar records candidates. Register reports whether the candidate just
// registered is the one to materialize.
type Registrar interface {
	Register(mu Mutator, description string) bool
}

// ClassLookup answers questions about classes other than the one mutated.
type ClassLookup interface {
	Get(className string) *classinfo.CodeUnit
	Supertypes(className string) []string
}

// Context is what a variant sees of the method it decorates. A Context
// belongs to one walk and is never shared.
type Context struct {
	Unit      *classinfo.CodeUnit
	Method    *classinfo.MethodInfo
	Scope     *classinfo.ScopeTracker
	Classes   ClassLookup
	Hierarchy *hierarchy.Index
	Registrar Registrar

	// MaxLocals is the first slot free for temporaries.
	MaxLocals int
}

// Register records a candidate found by mu.
func (c *Context) Register(mu Mutator, description string) bool {
	return c.Registrar.Register(mu, description)
}

// NewLocal reserves a temporary slot for a value of type t.
func (c *Context) NewLocal(t classfile.Type) int {
	slot := c.MaxLocals
	c.MaxLocals += t.Size()

	return slot
}

// ClassName is the internal name of the mutated class.
func (c *Context) ClassName() string {
	return c.Unit.Name
}

// IsStatic reports whether the mutated method is static.
func (c *Context) IsStatic() bool {
	return c.Method.Static
}

// InConstructor reports whether the mutated method is an instance initializer.
func (c *Context) InConstructor() bool {
	return c.Method.Name == classfile.ConstructorName
}

// InClassInit reports whether the mutated method is the static initializer.
func (c *Context) InClassInit() bool {
	return c.Method.Name == classfile.ClassInitName
}

// ReturnType is the return type of the mutated method.
func (c *Context) ReturnType() classfile.Type {
	return classfile.ReturnType(c.Method.Desc)
}

func (c *Context) unitOf(owner string) *classinfo.CodeUnit {
	if owner == c.Unit.Name {
		return c.Unit
	}

	if c.Classes == nil {
		return classinfo.Empty()
	}

	if u := c.Classes.Get(owner); u != nil {
		return u
	}

	return classinfo.Empty()
}

func (c *Context) supertypes(name string) []string {
	if c.Classes == nil {
		return nil
	}

	return c.Classes.Supertypes(name)
}

func (c *Context) subclassesOf(name string) []string {
	if c.Hierarchy == nil {
		return nil
	}

	return c.Hierarchy.SubclassesOf(name)
}

// variant carries the identity every family shares.
type variant struct {
	family  string
	name    string
	ordinal int
}

func newVariant(family string, ordinal int) variant {
	return variant{family: family, name: family + "_" + strconv.Itoa(ordinal), ordinal: ordinal}
}

func namedVariant(family, name string, ordinal int) variant {
	return variant{family: family, name: name, ordinal: ordinal}
}

// singleVariant is the identity of a family with exactly one variant.
func singleVariant(family string) variant {
	return variant{family: family, name: family, ordinal: -1}
}

func (v variant) Name() string {
	return v.name
}

func (v variant) Family() string {
	return v.family
}

func (v variant) UniqueID() string {
	if v.ordinal < 0 {
		return v.family
	}

	return v.family + "_" + strconv.Itoa(v.ordinal)
}

func (v variant) CreateVisitorPartial(classfile.MethodVisitor) (classfile.MethodVisitor, error) {
	return nil, ErrUnsupportedOperation
}
