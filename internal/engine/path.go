package engine

import "strings"

const PathSeparator = "|"

func JoinPath(segments ...string) string {
	return strings.Join(segments, PathSeparator)
}

func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}

// RemoveSegment drops the first path segment equal to name.
func RemoveSegment(path, name string) string {
	segments := SplitPath(path)
	for i, s := range segments {
		if s == name {
			return JoinPath(append(segments[:i:i], segments[i+1:]...)...)
		}
	}
	return path
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, PathSeparator); i >= 0 {
		return path[i+len(PathSeparator):]
	}
	return path
}
