package assets

import (
	"io/fs"
)

var efs fs.FS

// GetData returns the filesystem holding the templates, rooted at the
// repository root.
func GetData() fs.FS {
	return efs
}

func UpdateData(d fs.FS) {
	efs = d
}

// ReadFile reads a file from the template filesystem.
func ReadFile(path string) ([]byte, error) {
	if efs == nil {
		return nil, fs.ErrNotExist
	}
	return fs.ReadFile(efs, path)
}

// GetAllFilenames return all file names under a path of the filesystem.
func GetAllFilenames(efs fs.FS, path string) (files []string, err error) {
	if err := fs.WalkDir(efs, path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		files = append(files, path)

		return nil
	}); err != nil {
		return nil, err
	}

	return files, nil
}
