package preview

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Validate confirms that path is a regular, readable, non-empty file.
// The returned error wraps ErrNotRegularFile, ErrUnreadable or ErrEmptyFile.
func Validate(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrNotRegularFile, err)
	}
	if !info.Mode().IsRegular() {
		return info, fmt.Errorf("%w: %s is a %s", ErrNotRegularFile, path, describeMode(info.Mode()))
	}

	f, err := os.Open(path)
	if err != nil {
		return info, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	_ = f.Close()

	if info.Size() == 0 {
		return info, ErrEmptyFile
	}
	return info, nil
}

func describeMode(m fs.FileMode) string {
	switch {
	case m.IsDir():
		return "directory"
	case m&fs.ModeNamedPipe != 0:
		return "named pipe"
	case m&fs.ModeSocket != 0:
		return "socket"
	case m&fs.ModeDevice != 0:
		return "device"
	default:
		return "non-regular file"
	}
}
