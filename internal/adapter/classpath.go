// Package adapter contains the filesystem, archive and YAML adapters the
// mutafix workflow reads classes, coverage and reports through.
package adapter

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrClassNotFound is returned when no classpath entry holds a class.
var ErrClassNotFound = errors.New("class not found")

const classSuffix = ".class"

// ClassEntry is one classpath element: a class directory or a jar.
type ClassEntry interface {
	// Name is the path the entry was opened from.
	Name() string
	// Classes lists the internal names of every class in the entry, sorted.
	Classes() ([]string, error)
	// Bytes reads the class file of an internal class name.
	Bytes(className string) ([]byte, error)
}

// ClassPath is an ordered list of entries. The first entry holding a class wins.
type ClassPath interface {
	ClassEntry
	Entries() []ClassEntry
	Close() error
}

// skipClass reports whether a class file carries no code worth mutating.
func skipClass(name string) bool {
	base := name[strings.LastIndexByte(name, '/')+1:]
	return base == "module-info" || base == "package-info"
}

type dirEntry struct {
	root string
}

// NewDirEntry opens a directory of class files laid out by package.
func NewDirEntry(root string) ClassEntry {
	return &dirEntry{root: root}
}

func (d *dirEntry) Name() string {
	return d.root
}

func (d *dirEntry) Bytes(className string) ([]byte, error) {
	path := filepath.Join(d.root, filepath.FromSlash(className)+classSuffix)

	// #nosec G304 - path is built from a configured classpath entry
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrClassNotFound, className, d.root)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

func (d *dirEntry) Classes() ([]string, error) {
	var out []string

	err := filepath.WalkDir(d.root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if e.IsDir() || !strings.HasSuffix(path, classSuffix) {
			return nil
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}

		name := strings.TrimSuffix(filepath.ToSlash(rel), classSuffix)
		if !skipClass(name) {
			out = append(out, name)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", d.root, err)
	}

	slices.Sort(out)

	return out, nil
}

type jarEntry struct {
	path string

	once    sync.Once
	reader  *zip.ReadCloser
	files   map[string]*zip.File
	openErr error
}

// NewJarEntry opens a jar lazily, on first use.
func NewJarEntry(path string) ClassEntry {
	return &jarEntry{path: path}
}

func (j *jarEntry) Name() string {
	return j.path
}

func (j *jarEntry) open() error {
	j.once.Do(func() {
		r, err := zip.OpenReader(j.path)
		if err != nil {
			j.openErr = fmt.Errorf("failed to open jar %s: %w", j.path, err)
			return
		}

		j.reader = r
		j.files = make(map[string]*zip.File)

		for _, f := range r.File {
			if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, classSuffix) {
				continue
			}

			// Multi-release and shaded copies are never the class the path resolves.
			if strings.HasPrefix(f.Name, "META-INF/") {
				continue
			}

			j.files[strings.TrimSuffix(f.Name, classSuffix)] = f
		}

		slog.Debug("opened jar", "path", j.path, "classes", len(j.files))
	})

	return j.openErr
}

func (j *jarEntry) Bytes(className string) ([]byte, error) {
	if err := j.open(); err != nil {
		return nil, err
	}

	f, ok := j.files[className]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrClassNotFound, className, j.path)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in %s: %w", f.Name, j.path, err)
	}

	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s in %s: %w", f.Name, j.path, err)
	}

	return data, nil
}

func (j *jarEntry) Classes() ([]string, error) {
	if err := j.open(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(j.files))

	for name := range j.files {
		if !skipClass(name) {
			out = append(out, name)
		}
	}

	slices.Sort(out)

	return out, nil
}

func (j *jarEntry) Close() error {
	if j.reader == nil {
		return nil
	}

	return j.reader.Close()
}

type classPath struct {
	entries []ClassEntry
}

// NewClassPath opens every path as a jar (.jar or .zip) or a class directory.
func NewClassPath(paths []string) (ClassPath, error) {
	cp := &classPath{}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("classpath entry %s: %w", p, err)
		}

		switch ext := strings.ToLower(filepath.Ext(p)); {
		case info.IsDir():
			cp.entries = append(cp.entries, NewDirEntry(p))
		case ext == ".jar" || ext == ".zip":
			cp.entries = append(cp.entries, NewJarEntry(p))
		default:
			return nil, fmt.Errorf("classpath entry %s is neither a directory nor a jar", p)
		}
	}

	return cp, nil
}

// NewClassPathOf chains already opened entries.
func NewClassPathOf(entries ...ClassEntry) ClassPath {
	return &classPath{entries: entries}
}

func (c *classPath) Name() string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name()
	}

	return strings.Join(names, string(os.PathListSeparator))
}

func (c *classPath) Entries() []ClassEntry {
	return slices.Clone(c.entries)
}

func (c *classPath) Bytes(className string) ([]byte, error) {
	for _, e := range c.entries {
		data, err := e.Bytes(className)
		if err == nil {
			return data, nil
		}

		if !errors.Is(err, ErrClassNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, className)
}

// Classes lists every class once, in sorted order; a class shadowed by an
// earlier entry is reported once.
func (c *classPath) Classes() ([]string, error) {
	seen := make(map[string]struct{})

	var out []string

	for _, e := range c.entries {
		names, err := e.Classes()
		if err != nil {
			return nil, err
		}

		for _, n := range names {
			if _, ok := seen[n]; ok {
				continue
			}

			seen[n] = struct{}{}
			out = append(out, n)
		}
	}

	slices.Sort(out)

	return out, nil
}

func (c *classPath) Close() error {
	var errs []error

	for _, e := range c.entries {
		if closer, ok := e.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}

	return errors.Join(errs...)
}
