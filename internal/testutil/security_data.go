package testutil

import (
	"path/filepath"
	"runtime"
)

// PathTraversalCase is one file name that must not escape a target dir.
type PathTraversalCase struct{ Name, Path string }

// PathTraversalCases returns a fresh slice of hostile attachment file names.
func PathTraversalCases() []PathTraversalCase {
	sep := string(filepath.Separator)
	cases := []PathTraversalCase{
		{"rooted path", sep + "rooted" + sep + "path.txt"},
		{"escape dot dot", "../escape.txt"},
		{"escape dot dot nested", "subdir/../../escape.txt"},
		{"escape just dot dot", ".."},
	}
	if runtime.GOOS != "windows" {
		cases = append(cases, PathTraversalCase{"absolute path", "/abs/path"})
	} else {
		cases = append(cases,
			PathTraversalCase{"absolute drive path", `C:\Windows\system32`},
			PathTraversalCase{"UNC path", `\\server\share\file.txt`},
			PathTraversalCase{"drive-relative path", `C:foo`},
		)
	}
	return cases
}
