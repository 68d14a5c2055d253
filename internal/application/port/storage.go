package port

import "context"

// FolderTransport manipulates the remote folder tree. Paths are slash
// separated and relative to the transport root. Each call may fail
// independently; timeouts are the transport's concern.
type FolderTransport interface {
	CreateFolder(ctx context.Context, path string) error
	CopyContents(ctx context.Context, oldPath, newPath string) error
	DeleteFolder(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
