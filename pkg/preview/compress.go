package preview

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// GzipCompressor compresses in-process and removes the original file.
type GzipCompressor struct {
	Level int // gzip level; 0 means gzip.DefaultCompression
}

// Compress writes path+".gz" and removes path.
func (c *GzipCompressor) Compress(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	level := c.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", err
	}

	target := path + ".gz"
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", err
	}
	zw, err := gzip.NewWriterLevel(dst, level)
	if err != nil {
		_ = dst.Close()
		return "", err
	}
	zw.Name = info.Name()
	zw.ModTime = info.ModTime()

	if _, err := io.Copy(zw, src); err != nil {
		_ = zw.Close()
		_ = dst.Close()
		_ = os.Remove(target)
		return "", err
	}
	if err := zw.Close(); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return "", err
	}
	_ = src.Close()
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("compressed %s but could not remove original: %w", path, err)
	}
	return target, nil
}
