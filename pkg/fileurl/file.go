package fileurl

import (
	"os"
	"path/filepath"
)

// IsExist determines if the given path exists
// IsExist 判断所给路径是否存在
func IsExist(dst string) bool {
	_, err := os.Stat(dst)
	if err != nil {
		return os.IsExist(err)
	}
	return true
}

// CreatePath creates the parent directory of dst
// CreatePath 创建 dst 所在目录
func CreatePath(dst string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(dst), perm)
}

// FirstExisting returns the first candidate path that exists
// FirstExisting 返回第一个存在的候选路径
func FirstExisting(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if c != "" && IsExist(c) {
			return c, true
		}
	}
	return "", false
}
