// Package hierarchy indexes a whole codebase: the direct subtypes of every
// type and the static factory-shaped methods returning every type.
package hierarchy

import (
	"fmt"
	"slices"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	m "mutafix.dev/pkg/mutafix/internal/model"
)

// FactoryMethod is a static method returning a non-array reference type.
type FactoryMethod struct {
	Owner            string
	Name             string
	Desc             string
	OwnerIsInterface bool
}

// ReturnType is the internal name of the type the method returns.
func (f FactoryMethod) ReturnType() string {
	return classfile.ReturnType(f.Desc).InternalName()
}

func (f FactoryMethod) String() string {
	return fmt.Sprintf("%s.%s%s", classfile.ObjectType(f.Owner).ClassName(), f.Name, f.Desc)
}

type summary struct {
	name      string
	supers    []string
	factories []FactoryMethod
}

func summarize(data []byte) (*summary, error) {
	c, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}

	s := &summary{name: c.Name}

	if c.Super != "" {
		s.supers = append(s.supers, c.Super)
	}

	s.supers = append(s.supers, c.Interfaces...)

	for _, mth := range c.Methods {
		if !mth.Is(classfile.AccStatic) || classfile.ReturnType(mth.Desc).Sort() != classfile.SortObject {
			continue
		}

		s.factories = append(s.factories, FactoryMethod{
			Owner:            c.Name,
			Name:             mth.Name,
			Desc:             mth.Desc,
			OwnerIsInterface: c.IsInterface(),
		})
	}

	return s, nil
}

// Builder accumulates subtype edges and factory methods in discovery order.
// It is not safe for concurrent use; Freeze it before sharing.
type Builder struct {
	subclasses map[string][]string
	factories  map[string][]FactoryMethod
	classes    int
	skipped    int
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		subclasses: make(map[string][]string),
		factories:  make(map[string][]FactoryMethod),
	}
}

// AddClass records one class file.
func (b *Builder) AddClass(data []byte) error {
	s, err := summarize(data)
	if err != nil {
		b.skipped++
		return fmt.Errorf("failed to index class: %w", err)
	}

	b.add(s)

	return nil
}

func (b *Builder) add(s *summary) {
	b.classes++

	for _, sup := range s.supers {
		b.subclasses[sup] = append(b.subclasses[sup], s.name)
	}

	for _, f := range s.factories {
		rt := f.ReturnType()
		b.factories[rt] = append(b.factories[rt], f)
	}
}

// Freeze hands the accumulated maps to a read-only Index. The builder must
// not be used afterwards.
func (b *Builder) Freeze() *Index {
	idx := &Index{
		subclasses: b.subclasses,
		factories:  b.factories,
		classes:    b.classes,
		skipped:    b.skipped,
	}

	b.subclasses, b.factories = nil, nil

	return idx
}

// Index is the frozen hierarchy; safe for concurrent readers.
type Index struct {
	subclasses map[string][]string
	factories  map[string][]FactoryMethod
	classes    int
	skipped    int
}

// Empty returns an index with no classes.
func Empty() *Index {
	return NewBuilder().Freeze()
}

// SubclassesOf lists the direct subtypes of an internal type name.
func (x *Index) SubclassesOf(name string) []string {
	return slices.Clone(x.subclasses[name])
}

// FactoryMethodsOf lists the static methods returning name.
func (x *Index) FactoryMethodsOf(name string) []FactoryMethod {
	return slices.Clone(x.factories[name])
}

// Stats summarizes the index.
func (x *Index) Stats() m.HierarchyStats {
	st := m.HierarchyStats{
		Classes:        x.classes,
		Supertypes:     len(x.subclasses),
		FactoryTypes:   len(x.factories),
		SkippedEntries: x.skipped,
	}

	for _, subs := range x.subclasses {
		st.SubtypeEdges += len(subs)
	}

	for _, fs := range x.factories {
		st.FactoryMethods += len(fs)
	}

	return st
}
