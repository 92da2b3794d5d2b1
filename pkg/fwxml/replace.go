package fwxml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ReplaceFile promotes the file at src to path. The current file at path is
// kept under path+backupSuffix, replacing any earlier backup. If src cannot
// be promoted the original is moved back. It returns the backup path.
func ReplaceFile(path, src, backupSuffix string) (string, error) {
	backup := path + backupSuffix
	if err := os.Remove(backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to remove old backup: %w", err)
	}
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	if err := os.Rename(src, path); err != nil {
		err = fmt.Errorf("failed to replace %s: %w", path, err)
		if rerr := os.Rename(backup, path); rerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to restore %s from %s: %w", path, backup, rerr))
		}
		return "", err
	}
	return backup, nil
}
