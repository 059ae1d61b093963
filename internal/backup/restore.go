package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/taskboard/taskboard-server/internal/backup/stream"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/store"
)

// Entity type names used in RestoreResult maps.
const (
	entityUsers  = "users"
	entityBoards = "boards"
)

// Restore loads users and boards from a backup file.
// Users that already exist are never overwritten. Boards that already exist
// are resolved with opts.MergeStrategy.
func (s *Service) Restore(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error) {
	if !opts.MergeStrategy.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStrategy, opts.MergeStrategy)
	}
	if opts.MergeStrategy == "" {
		opts.MergeStrategy = MergeKeepLocal
	}

	start := time.Now()
	s.logger.Info("starting restore",
		"path", path,
		"merge_strategy", opts.MergeStrategy,
		"dry_run", opts.DryRun)

	v, err := s.Validate(ctx, path)
	if err != nil {
		return nil, err
	}
	if !v.Valid {
		if v.Manifest != nil && v.Manifest.Version != FormatVersion {
			return nil, fmt.Errorf("%w: %s", ErrVersionMismatch, v.Manifest.Version)
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(v.Errors, "; "))
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	result := &RestoreResult{
		Imported: map[string]int{entityUsers: 0, entityBoards: 0},
		Skipped:  map[string]int{entityUsers: 0, entityBoards: 0},
	}

	// Users first so restored boards resolve their members.
	if err := s.restoreUsers(ctx, &zr.Reader, opts, result); err != nil {
		return nil, fmt.Errorf("restore users: %w", err)
	}
	if err := s.restoreBoards(ctx, &zr.Reader, opts, result); err != nil {
		return nil, fmt.Errorf("restore boards: %w", err)
	}

	result.Duration = time.Since(start)
	s.logger.Info("restore complete",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", result.Duration)
	return result, nil
}

func (s *Service) restoreUsers(ctx context.Context, zr *zip.Reader, opts RestoreOptions, result *RestoreResult) error {
	rc, err := stream.OpenFile(zr, usersFile)
	if errors.Is(err, stream.ErrFileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for u, err := range stream.NewReader[domain.User](rc).All() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			result.addError(entityUsers, "", err)
			continue
		}

		_, getErr := s.store.GetUser(ctx, u.ID)
		switch {
		case getErr == nil:
			result.Skipped[entityUsers]++
			continue
		case !errors.Is(getErr, store.ErrNotFound):
			return getErr
		}

		if !opts.DryRun {
			if err := s.store.CreateUser(ctx, &u); err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					result.addError(entityUsers, u.ID, fmt.Errorf("email %s belongs to another user", u.Email))
					continue
				}
				return err
			}
		}
		result.Imported[entityUsers]++
	}
	return nil
}

func (s *Service) restoreBoards(ctx context.Context, zr *zip.Reader, opts RestoreOptions, result *RestoreResult) error {
	rc, err := stream.OpenFile(zr, boardsFile)
	if errors.Is(err, stream.ErrFileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for b, err := range stream.NewReader[domain.Board](rc).All() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			result.addError(entityBoards, "", err)
			continue
		}

		existing, getErr := s.store.GetBoard(ctx, b.ID)
		if errors.Is(getErr, store.ErrNotFound) {
			if !opts.DryRun {
				if err := s.store.CreateBoard(ctx, &b); err != nil {
					result.addError(entityBoards, b.ID, err)
					continue
				}
			}
			result.Imported[entityBoards]++
			continue
		}
		if getErr != nil {
			return getErr
		}

		if !replaceBoard(opts.MergeStrategy, &b, existing) {
			result.Skipped[entityBoards]++
			continue
		}
		if !opts.DryRun {
			if err := s.store.SaveBoard(ctx, &b, existing.Version); err != nil {
				result.addError(entityBoards, b.ID, err)
				continue
			}
		}
		result.Imported[entityBoards]++
	}
	return nil
}

// replaceBoard reports whether the backup copy should overwrite the stored board.
func replaceBoard(strategy MergeStrategy, backup, local *domain.Board) bool {
	switch strategy {
	case MergeKeepBackup:
		return true
	case MergeNewest:
		return backup.UpdatedAt.After(local.UpdatedAt)
	default:
		return false
	}
}

func (r *RestoreResult) addError(entityType, id string, err error) {
	r.Errors = append(r.Errors, RestoreError{
		EntityType: entityType,
		EntityID:   id,
		Error:      err.Error(),
	})
}

// Validate checks a backup without importing. Problems with the archive are
// reported in the result; the error return is reserved for cancellation.
func (s *Service) Validate(ctx context.Context, path string) (*ValidationResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("failed to open backup: %v", err)},
		}, nil
	}
	defer zr.Close()

	result := &ValidationResult{Valid: true}

	rc, err := stream.OpenFile(&zr.Reader, manifestFile)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, "missing "+manifestFile)
		return result, nil
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("read manifest: %v", err))
		return result, nil
	}

	var manifest Manifest
	if err := sonic.Unmarshal(data, &manifest); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("invalid manifest: %v", err))
		return result, nil
	}
	result.Manifest = &manifest
	result.ExpectedCounts = manifest.Counts

	if manifest.Version != FormatVersion {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("unsupported version %s (want %s)", manifest.Version, FormatVersion))
		return result, nil
	}

	checks := []struct {
		path string
		want int
	}{
		{usersFile, manifest.Counts.Users},
		{boardsFile, manifest.Counts.Boards},
	}
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, bad, err := countLines(&zr.Reader, c.path)
		if errors.Is(err, stream.ErrFileNotFound) {
			result.Warnings = append(result.Warnings, "missing file: "+c.path)
			continue
		}
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("read %s: %v", c.path, err))
			continue
		}
		if bad > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %d unreadable lines", c.path, bad))
		}
		if got+bad != c.want {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: manifest lists %d entries, found %d", c.path, c.want, got+bad))
		}
	}
	return result, nil
}

// countLines counts decodable and undecodable entries in a JSONL file.
func countLines(zr *zip.Reader, path string) (good, bad int, err error) {
	rc, err := stream.OpenFile(zr, path)
	if err != nil {
		return 0, 0, err
	}
	for _, lineErr := range stream.NewReader[entityRef](rc).All() {
		var decodeErr *stream.DecodeError
		switch {
		case lineErr == nil:
			good++
		case errors.As(lineErr, &decodeErr):
			bad++
		default:
			return good, bad, lineErr
		}
	}
	return good, bad, nil
}

// entityRef decodes only the id of an entity line.
type entityRef struct {
	ID string `json:"id"`
}
