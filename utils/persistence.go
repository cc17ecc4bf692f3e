package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic 原子写入文件（先写临时文件再重命名）
func WriteFileAtomic(filePath string, data []byte) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建父目录失败: %w", err)
	}

	tmpFile := filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpFile, filePath)
}

// CopyFile 复制文件内容，目标文件原子替换
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return WriteFileAtomic(dst, data)
}

// LinkOrCopy 创建指向 target 的相对符号链接，失败时退回复制
func LinkOrCopy(target, link string) (linked bool, err error) {
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		return false, fmt.Errorf("创建父目录失败: %w", err)
	}
	if fi, err := os.Lstat(link); err == nil && fi.Mode().IsDir() {
		return false, fmt.Errorf("%s 是目录", link)
	}
	_ = os.Remove(link)

	rel, err := filepath.Rel(filepath.Dir(link), target)
	if err == nil {
		if err = os.Symlink(rel, link); err == nil {
			return true, nil
		}
	}
	return false, CopyFile(target, link)
}
