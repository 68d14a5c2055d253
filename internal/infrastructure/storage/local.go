package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/garyjia/design-bureau/internal/application/port"
	"go.uber.org/zap"
)

// LocalFolderTransport implements port.FolderTransport on a directory tree
type LocalFolderTransport struct {
	root   string
	logger *zap.Logger
}

// NewLocalFolderTransport creates a transport rooted at root
func NewLocalFolderTransport(root string, logger *zap.Logger) (*LocalFolderTransport, error) {
	if root == "" {
		return nil, fmt.Errorf("local folder root is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create folder root: %w", err)
	}
	return &LocalFolderTransport{root: root, logger: logger}, nil
}

var _ port.FolderTransport = (*LocalFolderTransport)(nil)

// resolve maps a slash separated relative path onto the root and refuses
// anything that would escape it
func (t *LocalFolderTransport) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if clean == "/" {
		return "", fmt.Errorf("refusing to operate on the folder root")
	}
	return filepath.Join(t.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (t *LocalFolderTransport) CreateFolder(ctx context.Context, p string) error {
	dir, err := t.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.logger.Error("Failed to create folder", zap.String("path", p), zap.Error(err))
		return fmt.Errorf("failed to create folder: %w", err)
	}
	t.logger.Debug("Created folder", zap.String("path", p))
	return nil
}

// CopyContents copies every file under oldPath into newPath, keeping the
// relative layout. Existing files at the destination are overwritten.
func (t *LocalFolderTransport) CopyContents(ctx context.Context, oldPath, newPath string) error {
	src, err := t.resolve(oldPath)
	if err != nil {
		return err
	}
	dst, err := t.resolve(newPath)
	if err != nil {
		return err
	}
	if src == dst {
		return nil
	}

	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(p, target)
	})
	if err != nil {
		t.logger.Error("Failed to copy folder contents",
			zap.String("old_path", oldPath),
			zap.String("new_path", newPath),
			zap.Error(err))
		return fmt.Errorf("failed to copy folder contents: %w", err)
	}
	return nil
}

// DeleteFolder removes a folder and all contents. A missing folder is not an error.
func (t *LocalFolderTransport) DeleteFolder(ctx context.Context, p string) error {
	dir, err := t.resolve(p)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		t.logger.Error("Failed to delete folder", zap.String("path", p), zap.Error(err))
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	t.logger.Debug("Deleted folder", zap.String("path", p))
	return nil
}

func (t *LocalFolderTransport) Exists(ctx context.Context, p string) (bool, error) {
	dir, err := t.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat folder: %w", err)
	}
	return info.IsDir(), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
