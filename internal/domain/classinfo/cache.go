package classinfo

import (
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"mutafix.dev/pkg/mutafix/internal/classfile"
)

// DefaultCacheSize bounds the number of CodeUnits a Cache keeps.
const DefaultCacheSize = 4096

// ByteSource returns the class file of an internal class name.
type ByteSource interface {
	Bytes(className string) ([]byte, error)
}

// Cache is a read-through memo of CodeUnits shared by concurrent mutation
// calls. Concurrent first lookups of one class parse it once; lookups of
// different classes do not wait for each other.
type Cache struct {
	source ByteSource
	units  *lru.Cache[string, *CodeUnit]
	group  singleflight.Group
}

// NewCache creates a cache holding at most size units.
func NewCache(source ByteSource, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	units, err := lru.New[string, *CodeUnit](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create code unit cache: %w", err)
	}

	return &Cache{source: source, units: units}, nil
}

// Get returns the CodeUnit of className. Array types, missing classes and
// unparsable classes all give an empty unit; the last two are logged.
func (c *Cache) Get(className string) *CodeUnit {
	if strings.HasPrefix(className, "[") {
		return Empty()
	}

	if u, ok := c.units.Get(className); ok {
		return u
	}

	v, _, _ := c.group.Do(className, func() (any, error) {
		if u, ok := c.units.Get(className); ok {
			return u, nil
		}

		u := c.load(className)
		c.units.Add(className, u)

		return u, nil
	})

	return v.(*CodeUnit)
}

func (c *Cache) load(className string) *CodeUnit {
	data, err := c.source.Bytes(className)
	if err != nil {
		slog.Warn("class not found", "class", className, "error", err)
		return Empty()
	}

	u, err := Collect(data)
	if err != nil {
		slog.Warn("failed to collect class metadata", "class", className, "error", err)
	}

	return u
}

// Len is the number of cached units.
func (c *Cache) Len() int {
	return c.units.Len()
}

// SuperClass implements classfile.SuperResolver. Platform classes missing
// from the classpath fall back to a built-in table.
func (c *Cache) SuperClass(name string) (string, bool) {
	if sup, ok := jdkSupers[name]; ok {
		return sup, true
	}

	u := c.Get(name)
	if !u.Resolved() || u.Super == "" {
		return "", false
	}

	return u.Super, true
}

// IsInterface implements classfile.SuperResolver.
func (c *Cache) IsInterface(name string) bool {
	if jdkInterfaces[name] {
		return true
	}

	return c.Get(name).IsInterface()
}

var _ classfile.SuperResolver = (*Cache)(nil)

// Supertypes walks the superclass chain of name, starting with its direct
// superclass. The walk stops at the first class that cannot be resolved.
func (c *Cache) Supertypes(name string) []string {
	var (
		out  []string
		seen = map[string]bool{name: true}
	)

	for cur := name; ; {
		sup, ok := c.SuperClass(cur)
		if !ok || seen[sup] {
			return out
		}

		seen[sup] = true
		out = append(out, sup)
		cur = sup
	}
}
