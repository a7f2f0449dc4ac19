package dump

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// ErrInsufficientSpace 备份目录剩余空间不足
var ErrInsufficientSpace = errors.New("insufficient free space")

// CheckFreeSpace 检查 dir 所在分区的剩余空间
// dir 不存在时向上查找已存在的父目录
func CheckFreeSpace(dir string, minBytes uint64) error {
	probe, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	usage, err := disk.Usage(probe)
	if err != nil {
		return fmt.Errorf("stat free space of %s: %w", probe, err)
	}
	if usage.Free < minBytes {
		return fmt.Errorf("%w: %s has %d bytes free, need %d", ErrInsufficientSpace, probe, usage.Free, minBytes)
	}
	return nil
}
