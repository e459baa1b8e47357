package domain

import (
	"path/filepath"
	"strings"
)

// RootlessPath strips the volume and root from an absolute path and uses
// forward slashes, the way Serato stores track paths.
func RootlessPath(p string) string {
	p = strings.TrimPrefix(p, filepath.VolumeName(p))
	if len(p) >= 2 && p[1] == ':' && isDriveLetter(p[0]) {
		p = p[2:]
	}
	p = filepath.ToSlash(p)
	return strings.TrimLeft(p, "/")
}

// ResolveLocation maps a rootless path back to a file location below
// anchor, removing the leading directory prefix relative first. An empty
// anchor means the filesystem root.
func ResolveLocation(rootless, anchor, relative string) string {
	p := rootless
	if relative != "" {
		p = strings.TrimPrefix(p, strings.Trim(filepath.ToSlash(relative), "/")+"/")
	}
	if anchor == "" {
		anchor = string(filepath.Separator)
	}
	return filepath.Join(anchor, filepath.FromSlash(p))
}

// Relocate moves an absolute location below a different anchor. With
// neither anchor nor relative set the location is returned unchanged.
func Relocate(location, anchor, relative string) string {
	if anchor == "" && relative == "" {
		return location
	}
	return ResolveLocation(RootlessPath(location), anchor, relative)
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
