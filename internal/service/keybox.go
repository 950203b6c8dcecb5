package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/keybox/internal/algorithm"
	"github.com/dtroode/keybox/internal/container"
	"github.com/dtroode/keybox/internal/logger"
	"github.com/dtroode/keybox/internal/model"
)

const backupTimeLayout = "20060102T150405.000000000Z"

var (
	ErrBackupDisabled  = errors.New("backup store is not configured")
	ErrArchiveDisabled = errors.New("snapshot archive is not configured")
)

type Keybox struct {
	loader  *container.Loader
	files   model.SnapshotStore
	backups model.BackupStore
	archive model.ArchiveStore
	retain  int
	logger  *logger.Logger
	now     func() time.Time
}

// NewKeybox creates the service. backups and archive may be nil; retain <= 0
// keeps every backup.
func NewKeybox(
	loader *container.Loader,
	files model.SnapshotStore,
	backups model.BackupStore,
	archive model.ArchiveStore,
	retain int,
	logger *logger.Logger,
) *Keybox {
	return &Keybox{
		loader:  loader,
		files:   files,
		backups: backups,
		archive: archive,
		retain:  retain,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Keybox) Open(passphrase, path string) (*container.Container, error) {
	c, err := s.loader.Open(passphrase, path)
	if err != nil {
		s.logger.Warn("failed to open container", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open container: %w", err)
	}

	s.logger.Debug("container opened", "path", path, "id", c.ID(), "entries", c.Len())
	return c, nil
}

// Save writes c to its origin path and then copies the written snapshot to
// the configured backup store and archive.
func (s *Keybox) Save(ctx context.Context, c *container.Container) error {
	if err := c.Save(); err != nil {
		return fmt.Errorf("failed to save container: %w", err)
	}
	s.logger.Info("container saved", "path", c.Path(), "id", c.ID(), "entries", c.Len())

	if s.backups == nil && s.archive == nil {
		return nil
	}

	data, err := s.files.Read(c.Path())
	if err != nil {
		return fmt.Errorf("failed to read saved snapshot: %w", err)
	}
	now := s.now().UTC()

	var errs []error
	if s.backups != nil {
		if err := s.backup(ctx, c.ID(), data, now); err != nil {
			s.logger.Error("failed to back up snapshot", "id", c.ID(), "error", err)
			errs = append(errs, err)
		}
	}
	if s.archive != nil {
		snapshot := model.ArchivedSnapshot{
			ID:          uuid.New(),
			ContainerID: c.ID(),
			Path:        c.Path(),
			Data:        data,
			Checksum:    checksum(data),
			CreatedAt:   now,
		}
		if err := s.archive.Put(ctx, snapshot); err != nil {
			s.logger.Error("failed to archive snapshot", "id", c.ID(), "error", err)
			errs = append(errs, fmt.Errorf("failed to archive snapshot: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *Keybox) ChangePassphrase(ctx context.Context, c *container.Container, passphrase string) error {
	if err := c.SetPassphrase(passphrase); err != nil {
		return fmt.Errorf("failed to change passphrase: %w", err)
	}
	s.logger.Info("passphrase changed", "id", c.ID())

	return s.Save(ctx, c)
}

// Backups lists backup keys of containerID, oldest first.
func (s *Keybox) Backups(ctx context.Context, containerID uuid.UUID) ([]string, error) {
	if s.backups == nil {
		return nil, ErrBackupDisabled
	}
	keys, err := s.backups.List(ctx, backupPrefix(containerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return keys, nil
}

// History lists archived snapshots of containerID, newest first.
func (s *Keybox) History(ctx context.Context, containerID uuid.UUID) ([]model.ArchivedSnapshot, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	list, err := s.archive.List(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived snapshots: %w", err)
	}
	return list, nil
}

// RestoreLatest writes the newest archived snapshot of containerID to path.
func (s *Keybox) RestoreLatest(ctx context.Context, containerID uuid.UUID, path string) error {
	if s.archive == nil {
		return ErrArchiveDisabled
	}

	snapshot, err := s.archive.Latest(ctx, containerID)
	if err != nil {
		return fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	if checksum(snapshot.Data) != snapshot.Checksum {
		return fmt.Errorf("archived snapshot %s: %w", snapshot.ID, model.ErrIntegrityMismatch)
	}
	if err := s.files.Write(path, snapshot.Data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.logger.Info("snapshot restored from archive", "id", containerID, "snapshot", snapshot.ID, "path", path)
	return nil
}

// RestoreBackup writes the backup stored under key to path.
func (s *Keybox) RestoreBackup(ctx context.Context, key, path string) error {
	if s.backups == nil {
		return ErrBackupDisabled
	}

	data, err := s.backups.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get backup: %w", err)
	}
	if err := s.files.Write(path, data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.logger.Info("snapshot restored from backup", "key", key, "path", path)
	return nil
}

func (s *Keybox) backup(ctx context.Context, containerID uuid.UUID, data []byte, now time.Time) error {
	key := backupPrefix(containerID) + now.Format(backupTimeLayout) + ".snapshot"
	if err := s.backups.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	s.logger.Debug("snapshot backed up", "key", key)

	if s.retain <= 0 {
		return nil
	}
	keys, err := s.backups.List(ctx, backupPrefix(containerID))
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	for len(keys) > s.retain {
		if err := s.backups.Delete(ctx, keys[0]); err != nil {
			return fmt.Errorf("failed to prune backup %s: %w", keys[0], err)
		}
		s.logger.Debug("backup pruned", "key", keys[0])
		keys = keys[1:]
	}
	return nil
}

func backupPrefix(containerID uuid.UUID) string {
	return containerID.String() + "/"
}

func checksum(data []byte) string {
	return algorithm.DigestSHA256.HexSum(data)
}
