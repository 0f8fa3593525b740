// internal/diag/permissions.go
package diag

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hostdiag/preflight/internal/protocol"
)

// pathsToCheck is the fixed set of files and directories a Node.js hosting
// setup commonly relies on, relative to the application directory.
var pathsToCheck = []string{
	"package.json",
	"package-lock.json",
	"server.js",
	"index.js",
	"app.js",
	"node_modules",
	"public",
	"views",
	"routes",
	"logs",
	"uploads",
}

// CheckPermissions stats the well-known application paths and reports
// octal modes, writability and derived issues.
func (s *Service) CheckPermissions() (*protocol.PermissionCheck, error) {
	structure := make([]protocol.DirEntry, 0, len(pathsToCheck))
	var issues []protocol.PermissionIssue

	for _, relativePath := range pathsToCheck {
		fullPath := filepath.Join(s.BaseDir, relativePath)

		info, err := os.Stat(fullPath)
		if err != nil {
			structure = append(structure, protocol.DirEntry{
				Path:        relativePath,
				Permissions: "000",
			})
			continue
		}

		writable := isWritable(fullPath, info.IsDir())
		structure = append(structure, protocol.DirEntry{
			Path:        relativePath,
			Permissions: fmt.Sprintf("%o", info.Mode().Perm()),
			Exists:      true,
			Writable:    writable,
		})

		if relativePath == "logs" && !writable {
			issues = append(issues, protocol.PermissionIssue{
				Type:     "warning",
				Message:  "Logs Verzeichnis nicht beschreibbar",
				Solution: "chmod 755 " + fullPath,
			})
		}
	}

	issues = append(issues, protocol.PermissionIssue{
		Type:     "success",
		Message:  "Node.js Dateien lesbar",
		Solution: "Alle Anwendungsdateien haben korrekte Berechtigungen",
	})

	return &protocol.PermissionCheck{
		DirectoryStructure: structure,
		Issues:             issues,
	}, nil
}

// isWritable answers by actually trying: a temp file for directories, an
// append-mode open for files. Permission bits alone lie under ACLs and
// read-only mounts.
func isWritable(path string, isDir bool) bool {
	if isDir {
		f, err := os.CreateTemp(path, ".write-check-*")
		if err != nil {
			return false
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
		return true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
