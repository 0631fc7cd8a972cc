package file

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// File types, spelled as the OVAL probe reports them.
const (
	TypeRegular   = "regular"
	TypeDirectory = "directory"
	TypeSymlink   = "symlink"
	TypeBlock     = "block"
	TypeChar      = "character"
	TypeFIFO      = "fifo"
	TypeSocket    = "socket"
)

// Item is the collected metadata of one file.
type Item struct {
	Path     string
	Filename string
	Type     string
	UserID   int64
	GroupID  int64
	ATime    time.Time
	CTime    time.Time
	MTime    time.Time
	Size     int64

	// Mode holds permission bits plus 0o4000 setuid, 0o2000 setgid and
	// 0o1000 sticky.
	Mode uint32
}

// Has reports whether every bit of mask is set in the item's mode.
func (i *Item) Has(mask uint32) bool {
	return i.Mode&mask == mask
}

func fileType(m fs.FileMode) string {
	switch {
	case m.IsRegular():
		return TypeRegular
	case m.IsDir():
		return TypeDirectory
	case m&fs.ModeSymlink != 0:
		return TypeSymlink
	case m&fs.ModeNamedPipe != 0:
		return TypeFIFO
	case m&fs.ModeSocket != 0:
		return TypeSocket
	case m&fs.ModeCharDevice != 0:
		return TypeChar
	case m&fs.ModeDevice != 0:
		return TypeBlock
	default:
		return ""
	}
}

func modeBits(m fs.FileMode) uint32 {
	mode := uint32(m.Perm())
	if m&fs.ModeSetuid != 0 {
		mode |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		mode |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		mode |= 0o1000
	}
	return mode
}

// collect stats a single file without following a final symlink.
func collect(root, dir, name string) (*Item, error) {
	full := filepath.Join(dir, name)
	info, err := os.Lstat(joinRoot(root, full))
	if err != nil {
		return nil, err
	}
	item := &Item{
		Path:     dir,
		Filename: name,
		Type:     fileType(info.Mode()),
		MTime:    info.ModTime(),
		Size:     info.Size(),
		Mode:     modeBits(info.Mode()),
		UserID:   -1,
		GroupID:  -1,
	}
	fillOwner(item, info)
	return item, nil
}

func joinRoot(root, p string) string {
	if root == "" {
		return p
	}
	return filepath.Join(root, filepath.Clean("/"+p))
}
