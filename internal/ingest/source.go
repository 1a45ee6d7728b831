package ingest

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// classSource is the raw bytes of one class file and where they came from.
type classSource struct {
	origin string
	data   []byte
}

// collector walks version roots and hands each class to emit as soon as
// it is read, so only the classes in flight are held in memory. Failures on
// individual artifacts are handed to warn and never abort the walk.
type collector struct {
	emit func(classSource)
	warn func(artifact string, err error)
	// release is called for every temporary file; failures are logged by
	// the caller, never returned.
	release func(path string)
}

func isArchive(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".jar" || ext == ".zip"
}

func isClass(name string) bool {
	return strings.HasSuffix(name, ".class")
}

// root handles one configured root: a directory, an archive or a single
// class file.
func (c *collector) root(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("version root: %w", err)
	}
	switch {
	case info.IsDir():
		return c.dir(root)
	case isArchive(root):
		c.archiveFile(root, root)
	case isClass(root):
		c.classFile(root)
	default:
		return fmt.Errorf("version root %s: not a directory, archive or class file", root)
	}
	return nil
}

func (c *collector) dir(root string) error {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			c.warn(p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && (isClass(p) || isArchive(p)) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, f := range files {
		if isClass(f) {
			c.classFile(f)
		} else {
			c.archiveFile(f, f)
		}
	}
	return nil
}

func (c *collector) classFile(p string) {
	data, err := os.ReadFile(p)
	if err != nil {
		c.warn(p, err)
		return
	}
	c.emit(classSource{origin: p, data: data})
}

// archiveFile reads the archive on disk at p; origin is how it is named in
// diagnostics (nested archives are "outer.jar!/inner.jar").
func (c *collector) archiveFile(p, origin string) {
	r, err := zip.OpenReader(p)
	if err != nil {
		c.warn(origin, err)
		return
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entryOrigin := origin + "!/" + f.Name
		switch {
		case isClass(f.Name):
			data, err := readEntry(f)
			if err != nil {
				c.warn(entryOrigin, err)
				continue
			}
			c.emit(classSource{origin: entryOrigin, data: data})
		case isArchive(f.Name):
			c.nested(f, entryOrigin)
		}
	}
}

// nested extracts an archive inside an archive to a temporary file, reads
// it, and releases the file on every path.
func (c *collector) nested(f *zip.File, origin string) {
	tmp, err := os.CreateTemp("", "ssg-nested-*.jar")
	if err != nil {
		c.warn(origin, err)
		return
	}
	defer c.release(tmp.Name())

	err = copyEntry(tmp, f)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.warn(origin, err)
		return
	}
	c.archiveFile(tmp.Name(), origin)
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func copyEntry(w io.Writer, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}
