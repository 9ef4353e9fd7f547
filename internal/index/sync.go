package index

import (
	"log/slog"
	"strings"

	"github.com/starford/muninn/internal/checksum"
	"github.com/starford/muninn/internal/header"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed record files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.ListAll()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteRecord(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses a record file and upserts it into the index. Files
// outside the known record directories are ignored. A file with a
// malformed header is still indexed best-effort with whatever the
// degraded parse recovered.
func IndexFile(db *DB, path string, data []byte) error {
	kind, ok := kindOfPath(path)
	if !ok {
		return nil
	}
	rec, _ := header.Parse(string(data), kind)
	row := RecordRow{
		Path:     path,
		Kind:     string(kind),
		RecordID: rec.Meta.ID,
		Title:    rec.Meta.Title,
		Category: string(rec.Meta.Category()),
		Created:  rec.Meta.Created,
		Updated:  rec.Meta.Updated,
		Archived: rec.Meta.Archived,
		Checksum: checksum.Sum(data),
	}
	return db.UpsertRecord(row, rec.Body, header.ExtractRefs(rec.Body))
}

// kindOfPath derives the record kind from the leading vault directory.
func kindOfPath(path string) (models.Kind, bool) {
	dir, _, _ := strings.Cut(path, "/")
	switch dir {
	case models.KindNote.Dir():
		return models.KindNote, true
	case models.KindPlan.Dir():
		return models.KindPlan, true
	}
	return "", false
}
