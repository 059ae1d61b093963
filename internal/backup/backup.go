package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/taskboard/taskboard-server/internal/backup/stream"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/store"
)

// fileSuffix marks backup archives in the backup directory.
const fileSuffix = ".taskboard.zip"

// Service creates, lists and restores backups of a store.Backend.
type Service struct {
	store      store.Backend
	backupDir  string
	serverName string
	version    string
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a Service writing archives to backupDir.
func NewService(s store.Backend, backupDir, serverName, version string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      s,
		backupDir:  backupDir,
		serverName: serverName,
		version:    version,
		logger:     logger,
		now:        time.Now,
	}
}

// Create writes a new backup archive.
func (s *Service) Create(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	start := time.Now()

	outputPath := opts.OutputPath
	if outputPath == "" {
		if err := os.MkdirAll(s.backupDir, 0o750); err != nil {
			return nil, fmt.Errorf("create backup dir: %w", err)
		}
		outputPath = s.GetPath("backup-" + s.now().UTC().Format("2006-01-02-150405"))
	}

	s.logger.Info("creating backup", "output", outputPath)

	// Write to temp file, rename on success.
	tmpPath := outputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hash))

	manifest := &Manifest{
		Version:       FormatVersion,
		CreatedAt:     s.now().UTC(),
		ServerName:    s.serverName,
		ServerVersion: s.version,
	}

	if err := s.exportUsers(ctx, zw, &manifest.Counts); err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	if err := s.exportBoards(ctx, zw, &manifest.Counts); err != nil {
		return nil, fmt.Errorf("export boards: %w", err)
	}

	// Manifest goes last so it carries the final counts.
	if err := writeManifest(zw, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, err
	}

	result := &BackupResult{
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}
	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"boards", result.Counts.Boards,
		"users", result.Counts.Users,
		"duration", result.Duration,
		"checksum", result.Checksum)
	return result, nil
}

func (s *Service) exportUsers(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	users, err := s.store.AllUsers(ctx)
	if err != nil {
		return err
	}
	slices.SortFunc(users, func(a, b *domain.User) int { return strings.Compare(a.ID, b.ID) })

	w, err := stream.NewWriter(zw, usersFile)
	if err != nil {
		return err
	}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(u); err != nil {
			return fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	counts.Users = w.Count()
	return nil
}

func (s *Service) exportBoards(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	boards, err := s.store.AllBoards(ctx)
	if err != nil {
		return err
	}
	slices.SortFunc(boards, func(a, b *domain.Board) int { return strings.Compare(a.ID, b.ID) })

	w, err := stream.NewWriter(zw, boardsFile)
	if err != nil {
		return err
	}
	for _, b := range boards {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(b); err != nil {
			return fmt.Errorf("board %s: %w", b.ID, err)
		}
		counts.Lists += len(b.Lists)
		for _, l := range b.Lists {
			counts.Cards += len(l.Cards)
		}
	}
	counts.Boards = w.Count()
	return nil
}

func writeManifest(zw *zip.Writer, m *Manifest) error {
	w, err := zw.Create(manifestFile)
	if err != nil {
		return err
	}
	data, err := sonic.ConfigStd.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// List returns all available backups, newest first.
func (s *Service) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(entry.Name(), fileSuffix),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	slices.SortFunc(backups, func(a, b BackupInfo) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return backups, nil
}

// Get returns a backup by ID.
func (s *Service) Get(_ context.Context, id string) (*BackupInfo, error) {
	path := s.GetPath(id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}
	return &BackupInfo{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes a backup.
func (s *Service) Delete(ctx context.Context, id string) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return os.Remove(b.Path)
}

// GetPath returns the file path for a backup ID.
func (s *Service) GetPath(id string) string {
	return filepath.Join(s.backupDir, filepath.Base(id)+fileSuffix)
}
