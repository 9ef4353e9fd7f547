package archive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/header"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/records"
	"github.com/starford/muninn/internal/storage"
	"github.com/starford/muninn/internal/store"
)

func newFixture(t *testing.T, renameFiles bool) (*Service, *records.Service, *store.Store) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("storage.NewFS: %v", err)
	}
	notes := store.New(fs, models.KindNote)
	plans := store.New(fs, models.KindPlan)
	return NewService(notes, plans, nil, renameFiles), records.NewService(notes, nil), notes
}

func TestArchiveStripsPARAPrefix(t *testing.T) {
	svc, recs, st := newFixture(t, true)

	if _, err := recs.Save(context.Background(), "project_website", "Website", "Launch plan."); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := svc.Archive(context.Background(), models.KindNote, "project_website", "shipped", false)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if res.NewID != "archive_website" {
		t.Fatalf("new id = %q, want archive_website", res.NewID)
	}
	if res.OldID != "project_website" {
		t.Fatalf("old id = %q", res.OldID)
	}

	name, err := st.Latest("archive_website")
	if err != nil {
		t.Fatalf("latest archived: %v", err)
	}
	if name != res.FileName {
		t.Fatalf("latest = %q, result file = %q", name, res.FileName)
	}
	if !strings.HasPrefix(name, "note_archive_website_") {
		t.Fatalf("file not renamed: %q", name)
	}

	content, err := st.Read(name)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	rec, err := header.Parse(content, models.KindNote)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rec.Meta.ID != "archive_website" {
		t.Fatalf("header id = %q", rec.Meta.ID)
	}
	if rec.Meta.Archived == "" {
		t.Fatal("Archived not stamped")
	}
	if rec.Meta.ArchiveReason != "shipped" {
		t.Fatalf("archive reason = %q", rec.Meta.ArchiveReason)
	}
	if !strings.Contains(rec.Body, "## Archive Status") {
		t.Fatalf("body missing status section:\n%s", rec.Body)
	}
	if !strings.Contains(rec.Body, "**Reason:** shipped") {
		t.Fatalf("body missing reason line:\n%s", rec.Body)
	}
	if rec.Meta.Category() != models.CategoryArchive {
		t.Fatalf("category = %q", rec.Meta.Category())
	}

	// The original file was renamed, not duplicated.
	all, err := st.AllFiles()
	if err != nil {
		t.Fatalf("all files: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("files after archive = %v, want just the renamed one", all)
	}
}

func TestArchiveKeepsOriginalPrefix(t *testing.T) {
	svc, recs, _ := newFixture(t, true)

	if _, err := recs.Save(context.Background(), "area_health", "Health", "body"); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := svc.Archive(context.Background(), models.KindNote, "area_health", "", true)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if res.NewID != "archive_area_health" {
		t.Fatalf("new id = %q, want archive_area_health", res.NewID)
	}
}

func TestArchiveAlreadyArchivedKeepsID(t *testing.T) {
	svc, recs, st := newFixture(t, true)

	if _, err := recs.Save(context.Background(), "archive_old", "Old", "## Archive Status\n\n**Archived on:** earlier\nThis item has been archived and is no longer active. It is kept for reference purposes.\n\nbody"); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := svc.Archive(context.Background(), models.KindNote, "archive_old", "again", false)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if res.NewID != "archive_old" {
		t.Fatalf("new id = %q", res.NewID)
	}

	name, err := st.Latest("archive_old")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	content, err := st.Read(name)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	rec, err := header.Parse(content, models.KindNote)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Count(rec.Body, "## Archive Status") != 1 {
		t.Fatalf("status section duplicated:\n%s", rec.Body)
	}
}

func TestArchiveWithoutRenameKeepsFileName(t *testing.T) {
	svc, recs, st := newFixture(t, false)

	saved, err := recs.Save(context.Background(), "resource_go", "Go", "body")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := svc.Archive(context.Background(), models.KindNote, "resource_go", "", false)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if res.FileName != saved.FileName {
		t.Fatalf("file renamed: %q -> %q", saved.FileName, res.FileName)
	}
	if res.NewID != "archive_go" {
		t.Fatalf("new id = %q", res.NewID)
	}

	all, err := st.AllFiles()
	if err != nil {
		t.Fatalf("all files: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("file count = %d, want 1", len(all))
	}
}

func TestArchiveRenamePreservesVersionToken(t *testing.T) {
	svc, recs, _ := newFixture(t, true)

	saved, err := recs.Save(context.Background(), "inbox_idea", "Idea", "body")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	token := store.VersionToken(saved.FileName)

	res, err := svc.Archive(context.Background(), models.KindNote, "inbox_idea", "", false)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if got := store.VersionToken(res.FileName); got != token {
		t.Fatalf("version token changed: %q -> %q", token, got)
	}
}

func TestArchiveNotFound(t *testing.T) {
	svc, _, _ := newFixture(t, true)

	_, err := svc.Archive(context.Background(), models.KindPlan, "missing", "", false)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
