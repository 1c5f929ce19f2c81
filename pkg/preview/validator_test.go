package preview_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKt/utils-toolkit/internal/testutil"
	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	empty := filepath.Join(dir, "empty.csv")
	testutil.CreateDummyFile(t, good, "id\n1\n")
	testutil.CreateDummyFile(t, empty, "")

	testCases := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"regular file", good, nil},
		{"empty file", empty, preview.ErrEmptyFile},
		{"missing file", filepath.Join(dir, "missing.csv"), preview.ErrNotRegularFile},
		{"directory", dir, preview.ErrNotRegularFile},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := preview.Validate(tc.path)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValidate_Unreadable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	path := filepath.Join(t.TempDir(), "locked.csv")
	testutil.CreateDummyFile(t, path, "id\n")
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { _ = os.Chmod(path, 0o644) })

	_, err := preview.Validate(path)
	assert.ErrorIs(t, err, preview.ErrUnreadable)
}
