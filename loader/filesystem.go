package loader

import (
	"io"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/liquidgo/liquid/lexer"
	"github.com/liquidgo/liquid/parser"
)

// FileSystemLoader reads template sources from a billy.Filesystem instead
// of talking to `os` directly, so the same loader works against a real
// directory (osfs) in production and an in-memory tree (memfs) in tests.
type FileSystemLoader struct {
	fs       billy.Filesystem
	cfg      lexer.Config
	registry *parser.Registry
	ext      string // appended when name has no extension of its own, "" to disable
}

// NewFileSystemLoader builds a loader rooted at fs. ext, if non-empty, is
// tried as a suffix when a bare name (no '.') doesn't resolve directly.
func NewFileSystemLoader(fs billy.Filesystem, cfg lexer.Config, registry *parser.Registry, ext string) *FileSystemLoader {
	return &FileSystemLoader{fs: fs, cfg: cfg, registry: registry, ext: ext}
}

func (f *FileSystemLoader) Source(name string) (string, error) {
	resolved, err := f.resolveName(name)
	if err != nil {
		return "", err
	}
	file, err := f.fs.Open(resolved)
	if err != nil {
		return "", &NotFoundError{Name: name}
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *FileSystemLoader) Load(name string) (*parser.Template, error) {
	src, err := f.Source(name)
	if err != nil {
		return nil, err
	}
	p := parser.NewParser(name, src, f.cfg, f.registry)
	return p.ParseTemplate()
}

// resolveName rejects directory traversal outside the loader's root and
// applies the default extension when the caller's name has none.
func (f *FileSystemLoader) resolveName(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" || strings.Contains(clean, "..") {
		return "", &NotFoundError{Name: name}
	}
	if f.ext != "" && path.Ext(clean) == "" {
		if _, err := f.fs.Stat(clean); err != nil {
			return clean + f.ext, nil
		}
	}
	return clean, nil
}
