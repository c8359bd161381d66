package adapter

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func writeJar(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)

		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestDirEntry(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "demo", "Calc.class"), []byte("calc"))
	writeTestFile(t, filepath.Join(root, "demo", "util", "Box.class"), []byte("box"))
	writeTestFile(t, filepath.Join(root, "demo", "package-info.class"), []byte("info"))
	writeTestFile(t, filepath.Join(root, "demo", "notes.txt"), []byte("notes"))

	e := NewDirEntry(root)

	classes, err := e.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/Calc", "demo/util/Box"}, classes)

	data, err := e.Bytes("demo/util/Box")
	require.NoError(t, err)
	assert.Equal(t, "box", string(data))

	_, err = e.Bytes("demo/Missing")
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestJarEntry(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "lib.jar")
	writeJar(t, jar, map[string]string{
		"demo/Calc.class":                      "calc",
		"demo/":                                "",
		"META-INF/MANIFEST.MF":                 "Manifest-Version: 1.0\n",
		"META-INF/versions/11/demo/Calc.class": "calc11",
		"module-info.class":                    "module",
		"demo/inner/Calc$Helper.class":         "helper",
	})

	e := NewJarEntry(jar)
	t.Cleanup(func() { _ = e.(*jarEntry).Close() })

	classes, err := e.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/Calc", "demo/inner/Calc$Helper"}, classes)

	data, err := e.Bytes("demo/Calc")
	require.NoError(t, err)
	assert.Equal(t, "calc", string(data))

	_, err = e.Bytes("demo/Missing")
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestJarEntry_Unreadable(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "broken.jar")
	writeTestFile(t, jar, []byte("not a zip"))

	e := NewJarEntry(jar)

	_, err := e.Classes()
	require.Error(t, err)

	_, err = e.Bytes("demo/Calc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrClassNotFound)
}

func TestClassPath(t *testing.T) {
	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	writeTestFile(t, filepath.Join(classes, "demo", "Calc.class"), []byte("from dir"))

	jar := filepath.Join(dir, "lib.jar")
	writeJar(t, jar, map[string]string{
		"demo/Calc.class": "from jar",
		"demo/Util.class": "util",
	})

	cp, err := NewClassPath([]string{classes, jar})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, cp.Close()) })

	names, err := cp.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/Calc", "demo/Util"}, names)

	data, err := cp.Bytes("demo/Calc")
	require.NoError(t, err)
	assert.Equal(t, "from dir", string(data))

	data, err = cp.Bytes("demo/Util")
	require.NoError(t, err)
	assert.Equal(t, "util", string(data))

	_, err = cp.Bytes("demo/Missing")
	require.ErrorIs(t, err, ErrClassNotFound)

	assert.Len(t, cp.Entries(), 2)
	assert.Equal(t, classes+string(os.PathListSeparator)+jar, cp.Name())
}

func TestNewClassPath_Errors(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "notes.txt")
	writeTestFile(t, text, []byte("notes"))

	tests := []struct {
		name  string
		paths []string
	}{
		{"missing entry", []string{filepath.Join(dir, "nope")}},
		{"plain file", []string{text}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassPath(tt.paths)
			require.Error(t, err)
		})
	}
}
