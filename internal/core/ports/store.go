package ports

import "context"

// ArchiveService defines optional off-host archiving of extracted artifacts.
type ArchiveService interface {
	// Store uploads the file at localPath under objectName.
	Store(ctx context.Context, localPath, objectName string) error
}
