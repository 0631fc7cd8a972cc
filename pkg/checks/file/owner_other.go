//go:build !unix

package file

import "io/fs"

// fillOwner leaves ownership unknown where the platform has no uid/gid.
func fillOwner(*Item, fs.FileInfo) {}
