package file

import (
	"syscall"
	"time"
)

func fillTimes(item *Item, st *syscall.Stat_t) {
	item.ATime = time.Unix(st.Atim.Unix())
	item.CTime = time.Unix(st.Ctim.Unix())
}
