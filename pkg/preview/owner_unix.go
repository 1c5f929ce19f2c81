//go:build unix

package preview

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// fileOwner returns "user:group", falling back to numeric ids when lookup fails.
func fileOwner(info os.FileInfo) string {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "unknown"
	}
	uid := strconv.FormatUint(uint64(st.Uid), 10)
	gid := strconv.FormatUint(uint64(st.Gid), 10)

	name := uid
	if u, err := user.LookupId(uid); err == nil {
		name = u.Username
	}
	group := gid
	if g, err := user.LookupGroupId(gid); err == nil {
		group = g.Name
	}
	return name + ":" + group
}
