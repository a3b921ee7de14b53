package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Well-known file and directory names inside the instance root
const (
	// DefaultInstancesDir is the instance root relative to the working directory
	DefaultInstancesDir = "instances"

	// GroupFile stores group assignments for every instance under the root
	GroupFile = "instgroups.json"

	// MarkerFile must exist in a directory for it to be considered an instance
	MarkerFile = "instance.cfg"
)

// Root resolves paths below an instance root
type Root struct {
	Dir string
}

// At returns a Root for dir
func At(dir string) Root {
	return Root{Dir: dir}
}

// GroupFile returns the group file location
func (r Root) GroupFile() string {
	return filepath.Join(r.Dir, GroupFile)
}

// InstanceDir returns the directory of the named child
func (r Root) InstanceDir(name string) string {
	return filepath.Join(r.Dir, name)
}

// MarkerFile returns the marker path of the named child
func (r Root) MarkerFile(name string) string {
	return filepath.Join(r.Dir, name, MarkerFile)
}

// Contains reports whether path lies strictly below the root
func (r Root) Contains(path string) bool {
	rel, err := filepath.Rel(filepath.Clean(r.Dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateChildName checks that name addresses an immediate child of the root
func ValidateChildName(name string) error {
	if name == "" {
		return fmt.Errorf("directory name cannot be empty")
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("directory name cannot be an absolute path")
	}
	if filepath.Clean(name) != name || strings.ContainsRune(name, filepath.Separator) || name == "." || name == ".." {
		return fmt.Errorf("directory name contains invalid path components")
	}
	return nil
}
