package rtree

import (
	"os"
	"path/filepath"
)

type FileProvider struct{}

var _ IFileProvider = (*FileProvider)(nil)

func (fp *FileProvider) CreateDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

func (fp *FileProvider) DirectoryExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (fp *FileProvider) DeleteDirectory(path string) error {
	return os.RemoveAll(path)
}

func (fp *FileProvider) FileExists(path string, fileName string) (bool, error) {
	fullPath := filepath.Join(path, fileName)
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (fp *FileProvider) ReadFile(path string, fileName string) ([]byte, error) {
	return os.ReadFile(filepath.Join(path, fileName))
}

// WriteFile replaces the file through a rename so readers never see a torn
// document.
func (fp *FileProvider) WriteFile(path string, fileName string, data []byte) error {
	fullPath := filepath.Join(path, fileName)
	tmpPath := fullPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, fullPath)
}

func (fp *FileProvider) OpenFile(path string, fileName string) (File, error) {
	f, err := os.OpenFile(filepath.Join(path, fileName), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (fp *FileProvider) ReadDirectory(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}
