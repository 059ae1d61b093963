package backup_test

import (
	"archive/zip"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-server/internal/backup"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/store"
	"github.com/taskboard/taskboard-server/internal/store/storetest"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

// testSetup creates an in-memory store and a backup service over it.
func testSetup(t *testing.T) (*store.Store, *backup.Service, string) {
	t.Helper()

	st, err := store.Open(store.Options{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	backupDir := filepath.Join(t.TempDir(), "backups")
	return st, backup.NewService(st, backupDir, "Taskboard Test", "test", testLogger), backupDir
}

// seed stores two users and one board with a labelled card.
func seed(t *testing.T, s store.Backend) *domain.Board {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.CreateUser(ctx, storetest.NewUser("user-ana", "ana@example.com")))
	require.NoError(t, s.CreateUser(ctx, storetest.NewUser("user-luis", "luis@example.com")))

	b := storetest.NewBoard("board-1", "user-ana", now)
	b.Members = append(b.Members, domain.Member{UserID: "user-luis", Role: domain.RoleMember, JoinedAt: now})
	card := &domain.Card{Title: "Preparar demo", CreatedBy: "user-ana"}
	card.ID = "card-1"
	card.InitTimestamps(now)
	require.NoError(t, b.AppendCard(b.Lists[0].ID, card, now))
	_, err := b.AddLabel(b.Lists[0].ID, "card-1", domain.Label{ID: "label-1", Text: "urgente", Color: "red"}, now)
	require.NoError(t, err)

	require.NoError(t, s.CreateBoard(ctx, b))
	return b
}

func TestCreate(t *testing.T) {
	st, svc, backupDir := testSetup(t)
	seed(t, st)

	result, err := svc.Create(context.Background(), backup.BackupOptions{})
	require.NoError(t, err)

	assert.Equal(t, backupDir, filepath.Dir(result.Path))
	assert.FileExists(t, result.Path)
	assert.NoFileExists(t, result.Path+".tmp")
	assert.Positive(t, result.Size)
	assert.Len(t, result.Checksum, 64)
	assert.Equal(t, backup.EntityCounts{Users: 2, Boards: 1, Lists: 3, Cards: 1}, result.Counts)

	zr, err := zip.OpenReader(result.Path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"manifest.json", "entities/users.jsonl", "entities/boards.jsonl"}, names)
}

func TestCreate_ExplicitPath(t *testing.T) {
	st, svc, _ := testSetup(t)
	seed(t, st)

	out := filepath.Join(t.TempDir(), "manual.zip")
	result, err := svc.Create(context.Background(), backup.BackupOptions{OutputPath: out})
	require.NoError(t, err)
	assert.Equal(t, out, result.Path)
	assert.FileExists(t, out)
}

func TestCreate_EmptyStore(t *testing.T) {
	_, svc, _ := testSetup(t)

	result, err := svc.Create(context.Background(), backup.BackupOptions{})
	require.NoError(t, err)
	assert.Equal(t, backup.EntityCounts{}, result.Counts)

	v, err := svc.Validate(context.Background(), result.Path)
	require.NoError(t, err)
	assert.True(t, v.Valid, v.Errors)
	assert.Empty(t, v.Warnings)
}

func TestListGetDelete(t *testing.T) {
	st, svc, _ := testSetup(t)
	seed(t, st)
	ctx := context.Background()

	backups, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups, "missing directory lists nothing")

	created, err := svc.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)

	backups, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, created.Path, backups[0].Path)

	info, err := svc.Get(ctx, backups[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created.Size, info.Size)

	require.NoError(t, svc.Delete(ctx, backups[0].ID))
	_, err = svc.Get(ctx, backups[0].ID)
	assert.ErrorIs(t, err, backup.ErrBackupNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, backups[0].ID), backup.ErrBackupNotFound)
}

func TestRestore_IntoEmptyStore(t *testing.T) {
	src, srcSvc, _ := testSetup(t)
	original := seed(t, src)
	ctx := context.Background()

	created, err := srcSvc.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)

	dst, dstSvc, _ := testSetup(t)
	result, err := dstSvc.Restore(ctx, created.Path, backup.RestoreOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.Imported["users"])
	assert.Equal(t, 1, result.Imported["boards"])

	got, err := dst.GetBoard(ctx, "board-1")
	require.NoError(t, err)
	assert.Equal(t, original.Title, got.Title)
	assert.Len(t, got.Members, 2)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.Lists, 3)
	require.Len(t, got.Lists[0].Cards, 1)
	assert.Equal(t, "urgente", got.Lists[0].Cards[0].Labels[0].Text)

	boards, err := dst.ListBoardsForUser(ctx, "user-luis")
	require.NoError(t, err)
	assert.Len(t, boards, 1, "member index rebuilt on restore")

	u, err := dst.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-ana", u.ID)
}

func TestRestore_DryRun(t *testing.T) {
	src, srcSvc, _ := testSetup(t)
	seed(t, src)
	ctx := context.Background()
	created, err := srcSvc.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)

	dst, dstSvc, _ := testSetup(t)
	result, err := dstSvc.Restore(ctx, created.Path, backup.RestoreOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported["boards"])

	_, err = dst.GetBoard(ctx, "board-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRestore_MergeStrategies(t *testing.T) {
	tests := []struct {
		name       string
		strategy   backup.MergeStrategy
		localNewer bool
		wantTitle  string
	}{
		{"keep local", backup.MergeKeepLocal, false, "Local"},
		{"default keeps local", "", false, "Local"},
		{"keep backup", backup.MergeKeepBackup, true, "Board board-1"},
		{"newest picks backup", backup.MergeNewest, false, "Board board-1"},
		{"newest picks local", backup.MergeNewest, true, "Local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, svc, _ := testSetup(t)
			seed(t, st)
			ctx := context.Background()
			created, err := svc.Create(ctx, backup.BackupOptions{})
			require.NoError(t, err)

			local, err := st.GetBoard(ctx, "board-1")
			require.NoError(t, err)
			local.Title = "Local"
			if tt.localNewer {
				local.UpdatedAt = local.UpdatedAt.Add(time.Hour)
			} else {
				local.UpdatedAt = local.UpdatedAt.Add(-time.Hour)
			}
			require.NoError(t, st.SaveBoard(ctx, local, local.Version))

			result, err := svc.Restore(ctx, created.Path, backup.RestoreOptions{MergeStrategy: tt.strategy})
			require.NoError(t, err)
			assert.Empty(t, result.Errors)
			assert.Equal(t, 2, result.Skipped["users"], "existing users are never overwritten")

			got, err := st.GetBoard(ctx, "board-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, got.Title)
		})
	}
}

func TestRestore_EmailCollision(t *testing.T) {
	src, srcSvc, _ := testSetup(t)
	seed(t, src)
	ctx := context.Background()
	created, err := srcSvc.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)

	dst, dstSvc, _ := testSetup(t)
	require.NoError(t, dst.CreateUser(ctx, storetest.NewUser("user-other", "ana@example.com")))

	result, err := dstSvc.Restore(ctx, created.Path, backup.RestoreOptions{})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "users", result.Errors[0].EntityType)
	assert.Equal(t, "user-ana", result.Errors[0].EntityID)
	assert.Equal(t, 1, result.Imported["users"])
}

func TestRestore_Rejects(t *testing.T) {
	_, svc, _ := testSetup(t)
	ctx := context.Background()

	_, err := svc.Restore(ctx, "whatever.zip", backup.RestoreOptions{MergeStrategy: "overwrite"})
	assert.ErrorIs(t, err, backup.ErrInvalidStrategy)

	_, err = svc.Restore(ctx, filepath.Join(t.TempDir(), "missing.zip"), backup.RestoreOptions{})
	assert.ErrorIs(t, err, backup.ErrInvalidManifest)

	path := writeZip(t, map[string]string{"manifest.json": `{"version":"9.0"}`})
	_, err = svc.Restore(ctx, path, backup.RestoreOptions{})
	assert.ErrorIs(t, err, backup.ErrVersionMismatch)
}

func TestValidate(t *testing.T) {
	_, svc, _ := testSetup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		files     map[string]string
		valid     bool
		wantError string
		warnings  int
	}{
		{
			name:      "no manifest",
			files:     map[string]string{"entities/boards.jsonl": ""},
			wantError: "missing manifest.json",
		},
		{
			name:      "bad manifest",
			files:     map[string]string{"manifest.json": "{"},
			wantError: "invalid manifest",
		},
		{
			name:      "wrong version",
			files:     map[string]string{"manifest.json": `{"version":"2.0"}`},
			wantError: "unsupported version 2.0",
		},
		{
			name: "missing entity files",
			files: map[string]string{
				"manifest.json": `{"version":"1.0","counts":{"users":0,"boards":0}}`,
			},
			valid:    true,
			warnings: 2,
		},
		{
			name: "count mismatch and bad line",
			files: map[string]string{
				"manifest.json":         `{"version":"1.0","counts":{"users":0,"boards":1}}`,
				"entities/users.jsonl":  "",
				"entities/boards.jsonl": "{\"id\":\"board-1\"}\nnot json\n",
			},
			valid:    true,
			warnings: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := svc.Validate(ctx, writeZip(t, tt.files))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, v.Valid)
			if tt.wantError != "" {
				require.NotEmpty(t, v.Errors)
				assert.Contains(t, v.Errors[0], tt.wantError)
			}
			assert.Len(t, v.Warnings, tt.warnings, v.Warnings)
		})
	}
}

func TestMergeStrategy_Valid(t *testing.T) {
	for _, s := range []backup.MergeStrategy{"", backup.MergeKeepLocal, backup.MergeKeepBackup, backup.MergeNewest} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, backup.MergeStrategy("overwrite").Valid())
}

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.taskboard.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}
