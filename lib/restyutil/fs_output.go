package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput writes each exchange to its own file inside a
// directory, the directory is wiped when the output is created.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	path := filepath.Join(o.directory, fmt.Sprintf("%s.txt", id))
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http exchange", "id", id, "err", err)
	}
}
