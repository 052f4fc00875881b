package proc

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

// SearchPath is the ordered list of directories commands are looked up in.
type SearchPath []string

// ParseSearchPath splits a PATH style list into its directories. Empty
// elements are dropped and an empty list is not an error: the shell still
// runs commands given by absolute path.
func ParseSearchPath(raw string) SearchPath {
	var out SearchPath
	for _, dir := range filepath.SplitList(raw) {
		if dir == "" {
			continue
		}
		out = append(out, dir)
	}
	return out
}

func findExecutable(fsys afero.Fs, file string) error {
	d, err := fsys.Stat(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case err != nil:
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the directories of the
// search path, the first match wins. If file starts with a slash it is tried
// directly and the search path is not consulted, the same goes for names
// relative to the working directory like "./run.sh".
func (sp SearchPath) LookPath(fsys afero.Fs, file string) (string, error) {
	if file == "" {
		return "", ErrNotFound
	}

	if strings.Contains(file, "/") {
		if err := findExecutable(fsys, file); err != nil {
			if errors.Is(err, ErrNotFound) {
				return "", err
			}
			return "", fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return file, nil
	}

	for _, dir := range sp {
		path := filepath.Join(dir, file)
		if err := findExecutable(fsys, path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// String renders the search path back into list form.
func (sp SearchPath) String() string {
	return strings.Join(sp, string(filepath.ListSeparator))
}
