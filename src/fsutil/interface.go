package fsutil

// FileStore provides an interface for file system operations on the local
// scratch area
type FileStore interface {
	// ReadFile reads a file and returns its contents
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to path, creating parent directories as needed
	WriteFile(path string, data []byte) error

	// MakeDirectory creates a new directory and all necessary parents
	MakeDirectory(path string) error

	// MakeTempDirectory creates a fresh uniquely named directory under parent
	MakeTempDirectory(parent, pattern string) (string, error)

	// RemoveAll removes a path and any children it contains
	RemoveAll(path string) error

	// GetFileStats returns the total count and size of files in a directory
	GetFileStats(path string) (count int, size int64, err error)
}
