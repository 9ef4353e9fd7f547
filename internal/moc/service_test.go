package moc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/records"
	"github.com/starford/muninn/internal/storage"
	"github.com/starford/muninn/internal/store"
)

func newFixture(t *testing.T) (*Service, *records.Service) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("storage.NewFS: %v", err)
	}
	notes := records.NewService(store.New(fs, models.KindNote), nil)
	return NewService(notes), notes
}

func seed(t *testing.T, notes *records.Service, id, title string) {
	t.Helper()
	if _, err := notes.Save(context.Background(), id, title, "body of "+id); err != nil {
		t.Fatalf("save %s: %v", id, err)
	}
	time.Sleep(2 * time.Millisecond)
}

func TestCreateGroupsByCategory(t *testing.T) {
	svc, notes := newFixture(t)

	seed(t, notes, "project_site", "Site Redesign")
	seed(t, notes, "area_health", "Health Routine")
	seed(t, notes, "resource_go", "Go Reading List")
	seed(t, notes, "random_thought", "Random Thought")

	res, err := svc.Create(context.Background(), "Personal Systems",
		[]string{"project_site", "area_health", "resource_go", "random_thought"},
		"Everything that keeps the machine running.", "area")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !strings.HasPrefix(res.ID, "moc_area_personal_systems_") {
		t.Fatalf("moc id = %q", res.ID)
	}
	if res.Title != "Map of Content: Personal Systems" {
		t.Fatalf("title = %q", res.Title)
	}
	if len(res.Included) != 4 || len(res.Skipped) != 0 {
		t.Fatalf("included=%v skipped=%v", res.Included, res.Skipped)
	}

	read, err := notes.Read(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("read moc: %v", err)
	}
	body := read.Record.Body

	for _, want := range []string{
		"Everything that keeps the machine running.",
		`This Map of Content (MOC) organizes related notes about "Personal Systems".`,
		"**Total Notes:** 4",
		"## Notes by Category",
		"### Project",
		"- [Site Redesign](note:project_site)",
		"### Area",
		"### Resource",
		"### Uncategorized",
		"- [Random Thought](note:random_thought)",
		"## All Notes",
		"- [Go Reading List](note:resource_go) (resource)",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}

	// Category subsections hold only buckets with members.
	if strings.Contains(body, "### Archive") {
		t.Fatalf("empty archive bucket rendered:\n%s", body)
	}
	// Uncategorized entries carry no category suffix in the flat list.
	if strings.Contains(body, "(uncategorized)") {
		t.Fatalf("uncategorized suffix rendered:\n%s", body)
	}
	// Project precedes Area precedes Resource precedes Uncategorized.
	order := []string{"### Project", "### Area", "### Resource", "### Uncategorized"}
	last := -1
	for _, h := range order {
		i := strings.Index(body, h)
		if i <= last {
			t.Fatalf("heading %q out of order:\n%s", h, body)
		}
		last = i
	}
}

func TestCreateSkipsMissingIDs(t *testing.T) {
	svc, notes := newFixture(t)

	seed(t, notes, "resource_go", "Go Reading List")

	res, err := svc.Create(context.Background(), "Go", []string{"resource_go", "ghost"}, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Included) != 1 || res.Included[0] != "resource_go" {
		t.Fatalf("included = %v", res.Included)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "ghost" {
		t.Fatalf("skipped = %v", res.Skipped)
	}
	if !strings.HasPrefix(res.ID, "moc_resource_go_") {
		t.Fatalf("default category not applied: %q", res.ID)
	}
}

func TestCreateFailsWhenNoneResolve(t *testing.T) {
	svc, notes := newFixture(t)

	_, err := svc.Create(context.Background(), "Ghosts", []string{"a", "b"}, "", "")
	if !errors.Is(err, ErrNoneResolved) {
		t.Fatalf("err = %v, want ErrNoneResolved", err)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err should wrap ErrNotFound: %v", err)
	}

	list, err := notes.List(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 0 {
		t.Fatalf("moc written despite failure, total = %d", list.Total)
	}
}

func TestCreateRejectsBlankTopicAndBadCategory(t *testing.T) {
	svc, notes := newFixture(t)
	seed(t, notes, "resource_go", "Go")

	if _, err := svc.Create(context.Background(), "", []string{"resource_go"}, "", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("blank topic err = %v", err)
	}
	if _, err := svc.Create(context.Background(), "Go", nil, "", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("no ids err = %v", err)
	}
	if _, err := svc.Create(context.Background(), "Go", []string{"resource_go"}, "", "inbox"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("bad category err = %v", err)
	}
}
