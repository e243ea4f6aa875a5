//go:build windows

package ops

import (
	"os"

	"github.com/mocho-app/mocho/internal/errors"
)

// openFileNoFollow opens an export file. Windows has no O_NOFOLLOW, so this
// relies on the symlink checks in ValidatePath.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens an import file read-only.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return f, nil
}
