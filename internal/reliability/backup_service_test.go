package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptofolio/internal/database"
	"cryptofolio/pkg/logger"
)

func newTestDatabases(t *testing.T) map[string]*database.DB {
	t.Helper()

	dir := t.TempDir()
	databases := make(map[string]*database.DB)
	for _, name := range []string{"ledger", "cache"} {
		db, err := database.New(database.Config{
			Path:    filepath.Join(dir, name+".db"),
			Profile: database.ProfileStandard,
			Name:    name,
		})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		require.NoError(t, db.Migrate())
		databases[name] = db
	}
	return databases
}

func TestCreateBackup_LocalOnly(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	backupDir := t.TempDir()

	svc := NewBackupService(newTestDatabases(t), backupDir, nil, 5, log)
	require.NoError(t, svc.CreateBackup(context.Background()))

	backups, err := svc.ListLocalBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Greater(t, backups[0].SizeBytes, int64(0))

	// Archive contents: both snapshots plus metadata
	names := readArchiveNames(t, filepath.Join(backupDir, backups[0].Filename))
	assert.Contains(t, names, "ledger.db")
	assert.Contains(t, names, "cache.db")
	assert.Contains(t, names, "backup-metadata.json")
}

func TestCreateBackup_MetadataChecksums(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	backupDir := t.TempDir()

	svc := NewBackupService(newTestDatabases(t), backupDir, nil, 5, log)
	require.NoError(t, svc.CreateBackup(context.Background()))

	backups, err := svc.ListLocalBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	raw := readArchiveFile(t, filepath.Join(backupDir, backups[0].Filename), "backup-metadata.json")

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(raw, &metadata))
	require.Len(t, metadata.Databases, 2)
	for _, db := range metadata.Databases {
		assert.Contains(t, db.Checksum, "sha256:")
		assert.Greater(t, db.SizeBytes, int64(0))
	}
}

func TestParseArchiveName(t *testing.T) {
	ts, ok := parseArchiveName("cryptofolio-backup-2026-01-08-143022.tar.gz")
	require.True(t, ok)
	assert.Equal(t, 2026, ts.Year())

	_, ok = parseArchiveName("random-file.tar.gz")
	assert.False(t, ok)

	_, ok = parseArchiveName("cryptofolio-backup-garbage.tar.gz")
	assert.False(t, ok)
}

func TestKeepFloor(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	svc := NewBackupService(nil, t.TempDir(), nil, 0, log)
	assert.Equal(t, minBackupsToKeep, svc.keep)
}

func readArchiveNames(t *testing.T, path string) []string {
	t.Helper()

	var names []string
	walkArchive(t, path, func(header *tar.Header, r io.Reader) {
		names = append(names, header.Name)
	})
	return names
}

func readArchiveFile(t *testing.T, path, name string) []byte {
	t.Helper()

	var content []byte
	walkArchive(t, path, func(header *tar.Header, r io.Reader) {
		if header.Name == name {
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			content = data
		}
	})
	require.NotNil(t, content, "archive missing %s", name)
	return content
}

func walkArchive(t *testing.T, path string, fn func(*tar.Header, io.Reader)) {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	gz, err := gzip.NewReader(file)
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		fn(header, tr)
	}
}
