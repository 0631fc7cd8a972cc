//go:build unix

package file

import (
	"io/fs"
	"syscall"
)

func fillOwner(item *Item, info fs.FileInfo) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	item.UserID = int64(st.Uid)
	item.GroupID = int64(st.Gid)
	fillTimes(item, st)
}
