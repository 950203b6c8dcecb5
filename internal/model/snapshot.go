package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SnapshotStore reads and writes serialized container snapshots.
// Read returns nil data and no error when nothing is stored at path.
type SnapshotStore interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
}

// ArchiveStore keeps every saved snapshot of a container.
type ArchiveStore interface {
	Put(ctx context.Context, snapshot ArchivedSnapshot) error
	Latest(ctx context.Context, containerID uuid.UUID) (ArchivedSnapshot, error)
	List(ctx context.Context, containerID uuid.UUID) ([]ArchivedSnapshot, error)
}

// ArchivedSnapshot is one archived copy of a saved container snapshot.
type ArchivedSnapshot struct {
	ID          uuid.UUID
	ContainerID uuid.UUID
	Path        string
	Data        []byte
	Checksum    string
	CreatedAt   time.Time
}
