package rtree

import (
	"io"
	"os"
)

// File is the random-access handle a FileNodeStore reads records through.
type File interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
	Close() error
}

// IFileProvider abstracts file and directory operations for the index.
type IFileProvider interface {
	CreateDirectory(path string) error
	DirectoryExists(path string) (bool, error)
	DeleteDirectory(path string) error
	FileExists(path string, fileName string) (bool, error)
	ReadFile(path string, fileName string) ([]byte, error)
	WriteFile(path string, fileName string, data []byte) error
	OpenFile(path string, fileName string) (File, error)
	ReadDirectory(path string) ([]os.DirEntry, error)
}
