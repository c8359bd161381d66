package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/classinfo"
	"mutafix.dev/pkg/mutafix/internal/domain/hierarchy"
	"mutafix.dev/pkg/mutafix/internal/domain/mutagens"
	"mutafix.dev/pkg/mutafix/internal/domain/susp"
	m "mutafix.dev/pkg/mutafix/internal/model"
)

// ErrInconsistentEnumeration is returned when the candidate to materialize
// is not rediscovered by the walk of its method.
var ErrInconsistentEnumeration = errors.New("mutation id not produced by enumeration")

// EngineConfig holds everything an Engine shares between calls. All of it is
// read-only once the engine is built.
type EngineConfig struct {
	Source    classinfo.ByteSource
	Susp      susp.Index
	Hierarchy *hierarchy.Index
	Classes   *classinfo.Cache
	Mutators  []mutagens.Mutator

	// ExcludeMethods holds glob patterns of method names never mutated.
	ExcludeMethods []string
}

// Engine enumerates and materializes the candidates of single classes.
// Calls are synchronous and may run concurrently.
type Engine interface {
	Enumerate(ctx context.Context, className string) ([]m.Candidate, error)
	Materialize(ctx context.Context, id m.MutationID) (*m.Mutant, error)
}

type engine struct {
	source    classinfo.ByteSource
	susp      susp.Index
	hierarchy *hierarchy.Index
	classes   *classinfo.Cache
	mutators  []mutagens.Mutator
	filter    *methodFilter
}

// NewEngine creates an engine. A nil hierarchy is replaced by an empty index;
// a nil cache is created over the byte source.
func NewEngine(cfg EngineConfig) (Engine, error) {
	if cfg.Source == nil {
		return nil, errors.New("engine requires a byte source")
	}

	if cfg.Susp == nil {
		cfg.Susp = susp.NewDummy(nil)
	}

	if cfg.Hierarchy == nil {
		cfg.Hierarchy = hierarchy.Empty()
	}

	if cfg.Classes == nil {
		cache, err := classinfo.NewCache(cfg.Source, classinfo.DefaultCacheSize)
		if err != nil {
			return nil, err
		}

		cfg.Classes = cache
	}

	return &engine{
		source:    cfg.Source,
		susp:      cfg.Susp,
		hierarchy: cfg.Hierarchy,
		classes:   cfg.Classes,
		mutators:  cfg.Mutators,
		filter:    newMethodFilter(cfg.ExcludeMethods, cfg.Susp),
	}, nil
}

func (e *engine) load(className string) (*classfile.Class, *classinfo.CodeUnit, error) {
	data, err := e.source.Bytes(className)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read class %s: %w", className, err)
	}

	c, err := classfile.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", classinfo.ErrParse, className, err)
	}

	unit, err := classinfo.CollectClass(c)
	if err != nil {
		return nil, nil, err
	}

	return c, unit, nil
}

// Enumerate walks every eligible method of className with every activated
// mutator and returns the candidates in walk order.
func (e *engine) Enumerate(ctx context.Context, className string) ([]m.Candidate, error) {
	if !e.susp.IsClassHit(className) {
		slog.Info("class left unmutated", "class", className)
		return nil, nil
	}

	c, unit, err := e.load(className)
	if err != nil {
		return nil, err
	}

	var out []m.Candidate

	for _, mth := range c.Methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !e.filter.accept(c, mth) {
			continue
		}

		reg, err := e.traverse(c, unit, mth, e.mutators, nil, &classfile.MethodAdapter{})
		if err != nil {
			return nil, err
		}

		out = append(out, reg.effective()...)
	}

	slog.Debug("enumerated class", "class", className, "candidates", len(out))

	return out, nil
}

// Materialize rewalks the method of id with the single mutator it names and
// returns the class file with that one site rewritten.
func (e *engine) Materialize(ctx context.Context, id m.MutationID) (*m.Mutant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu, ok := mutagens.Lookup(e.mutators, id.Mutator)
	if !ok {
		return nil, fmt.Errorf("%w: mutator %s is not active", ErrInconsistentEnumeration, id.Mutator)
	}

	c, unit, err := e.load(id.Class)
	if err != nil {
		return nil, err
	}

	mth := c.Method(id.Method, id.Desc)
	if mth == nil || !e.filter.accept(c, mth) {
		return nil, fmt.Errorf("%w: %s", ErrInconsistentEnumeration, id)
	}

	var reg *registrar

	err = c.ReplaceMethod(mth, e.classes, func(w classfile.MethodVisitor) error {
		var err error
		reg, err = e.traverse(c, unit, mth, []mutagens.Mutator{mu}, &id, w)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite %s: %w", id.Location(), err)
	}

	if reg.hit == nil {
		return nil, fmt.Errorf("%w: %s", ErrInconsistentEnumeration, id)
	}

	data, err := c.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", id.Class, err)
	}

	return &m.Mutant{Candidate: *reg.hit, Bytes: data}, nil
}

// traverse replays one method through the filters and the given mutators
// into sink. With a nil target nothing is rewritten.
func (e *engine) traverse(
	c *classfile.Class,
	unit *classinfo.CodeUnit,
	mth *classfile.Member,
	mus []mutagens.Mutator,
	target *m.MutationID,
	sink classfile.MethodVisitor,
) (*registrar, error) {
	mi := unit.FindMethod(mth.Name, mth.Desc)
	if mi == nil {
		return nil, fmt.Errorf("method %s.%s%s missing from code unit", c.Name, mth.Name, mth.Desc)
	}

	at := &site{}
	reg := &registrar{
		class:  c.Name,
		method: mth.Name,
		desc:   mth.Desc,
		file:   unit.SourceFile,
		at:     at,
		target: target,
	}

	scope := classinfo.NewScopeTracker(mi.Locals)

	params := classfile.ArgumentsSize(mth.Desc)
	if !mi.Static {
		params++
	}

	maxLocals := max(mth.Code.MaxLocals, params)

	next := sink
	for i := len(mus) - 1; i >= 0; i-- {
		next = mus[i].CreateVisitor(&mutagens.Context{
			Unit:      unit,
			Method:    mi,
			Scope:     scope,
			Classes:   e.classes,
			Hierarchy: e.hierarchy,
			Registrar: reg,
			MaxLocals: maxLocals,
		}, next)
	}

	next = &assertFilter{MethodAdapter: classfile.MethodAdapter{Next: next}, at: at}
	next = &stringSwitchFilter{MethodAdapter: classfile.MethodAdapter{Next: next}, at: at}

	if err := c.AcceptMethod(mth, newTracker(next, at, scope)); err != nil {
		return nil, fmt.Errorf("failed to walk %s.%s%s: %w", c.Name, mth.Name, mth.Desc, err)
	}

	return reg, nil
}
