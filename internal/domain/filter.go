package domain

import (
	"log/slog"
	"path"
	"slices"
	"strings"

	"mutafix.dev/pkg/mutafix/internal/classfile"
	"mutafix.dev/pkg/mutafix/internal/domain/susp"
)

const (
	enumClass        = "java/lang/Enum"
	groovyObject     = "groovy/lang/GroovyObject"
	lambdaPrefix     = "lambda$"
	enumValues       = "values"
	enumValueOf      = "valueOf"
	enumValueOfFirst = "(Ljava/lang/String;)"
)

// methodFilter decides which methods of a class are offered to mutators.
type methodFilter struct {
	exclude []string
	susp    susp.Index
}

func newMethodFilter(exclude []string, index susp.Index) *methodFilter {
	valid := make([]string, 0, len(exclude))

	for _, pattern := range exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			slog.Warn("ignoring malformed exclude pattern", "pattern", pattern, "error", err)
			continue
		}

		valid = append(valid, pattern)
	}

	return &methodFilter{exclude: valid, susp: index}
}

func (f *methodFilter) excluded(name string) bool {
	for _, pattern := range f.exclude {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}

	return false
}

// accept reports whether mth of c may be mutated.
func (f *methodFilter) accept(c *classfile.Class, mth *classfile.Member) bool {
	if mth.Code == nil || f.excluded(mth.Name) {
		return false
	}

	if mth.Is(classfile.AccSynthetic) && !strings.HasPrefix(mth.Name, lambdaPrefix) {
		return false
	}

	if isGeneratedEnumMethod(c, mth) || isGroovyClass(c) {
		return false
	}

	return f.susp.IsMethodHit(c.Name, mth.Name, mth.Desc)
}

func isGeneratedEnumMethod(c *classfile.Class, mth *classfile.Member) bool {
	if c.Access&classfile.AccEnum == 0 || c.Super != enumClass {
		return false
	}

	self := classfile.ObjectType(c.Name).Descriptor()

	switch mth.Name {
	case enumValues:
		return mth.Desc == "()["+self
	case enumValueOf:
		return mth.Desc == enumValueOfFirst+self
	case classfile.ClassInitName:
		return true
	}

	return false
}

func isGroovyClass(c *classfile.Class) bool {
	return slices.Contains(c.Interfaces, groovyObject)
}
