package urdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Retriever fetches the contents of a resource referenced by a robot
// description, such as a mesh file.
type Retriever interface {
	Retrieve(uri string) ([]byte, error)
}

// FileRetriever resolves package:// URIs against a set of named package
// roots, and everything else against the local filesystem.
type FileRetriever struct {
	// Packages maps a package name to its root directory.
	Packages map[string]string
}

const packageScheme = "package://"

func (f *FileRetriever) Retrieve(uri string) ([]byte, error) {
	path := uri
	if strings.HasPrefix(uri, packageScheme) {
		rest := strings.TrimPrefix(uri, packageScheme)
		pkg, rel, ok := strings.Cut(rest, "/")
		if !ok {
			return nil, fmt.Errorf("urdf: malformed package uri %q", uri)
		}
		root, ok := f.Packages[pkg]
		if !ok {
			return nil, fmt.Errorf("urdf: unknown package %q in %q", pkg, uri)
		}
		path = filepath.Join(root, filepath.FromSlash(rel))
	}
	return os.ReadFile(path)
}
