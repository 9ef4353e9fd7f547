package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/muninn/internal/archive"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/links"
	"github.com/starford/muninn/internal/moc"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/records"
	"github.com/starford/muninn/internal/store"
	"github.com/starford/muninn/internal/testutil"
)

// testEnv sets up a temp vault, SQLite DB, services, and router.
// authToken == "" means auth disabled.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()

	_, fs := testutil.TestVault(t)
	db := testutil.TestDB(t)

	noteStore := store.New(fs, models.KindNote)
	planStore := store.New(fs, models.KindPlan)
	notes := records.NewService(noteStore, db)
	plans := records.NewService(planStore, db)
	h := NewHandler(notes, plans,
		links.NewService(noteStore, db),
		archive.NewService(noteStore, planStore, db, true),
		moc.NewService(notes),
		db,
	)
	return NewRouter(h, authToken != "", authToken, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func saveNote(t *testing.T, router http.Handler, id, title, content string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/notes", SaveRecordRequest{ID: id, Title: title, Content: content})
	if w.Code != http.StatusCreated {
		t.Fatalf("save %s = %d, body = %s", id, w.Code, w.Body.String())
	}
	time.Sleep(2 * time.Millisecond)
}

func TestSaveAndGetNote(t *testing.T) {
	router := testEnv(t, "")

	saveNote(t, router, "resource_go", "Go Notes", "Reading list.")

	w := doJSON(t, router, http.MethodGet, "/notes/resource_go", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var res records.ReadResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Record.Meta.ID != "resource_go" {
		t.Errorf("id = %q", res.Record.Meta.ID)
	}
	if res.Record.Meta.Title != "Go Notes" {
		t.Errorf("title = %q", res.Record.Meta.Title)
	}
	if !strings.HasPrefix(res.FileName, "note_resource_go_") {
		t.Errorf("file name = %q", res.FileName)
	}
}

func TestSaveValidation(t *testing.T) {
	router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/notes", SaveRecordRequest{ID: "a"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank title/content = %d, want 400", w.Code)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/notes/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

func TestUpdateNote(t *testing.T) {
	router := testEnv(t, "")

	saveNote(t, router, "a", "A", "v1")

	title := "A2"
	w := doJSON(t, router, http.MethodPut, "/notes/a", UpdateRecordRequest{Title: &title})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/notes/a", nil)
	var res records.ReadResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Record.Meta.Title != "A2" {
		t.Errorf("title = %q, want A2", res.Record.Meta.Title)
	}
	if !strings.Contains(res.Record.Body, "v1") {
		t.Errorf("omitted content not kept: %q", res.Record.Body)
	}
	if res.Record.Meta.Updated == "" {
		t.Error("Updated not stamped")
	}
}

func TestDeleteNote(t *testing.T) {
	router := testEnv(t, "")

	saveNote(t, router, "a", "A", "x")

	w := doJSON(t, router, http.MethodDelete, "/notes/a", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/notes/a", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestListNotesFilters(t *testing.T) {
	router := testEnv(t, "")

	saveNote(t, router, "project_site", "Site Redesign", "x")
	saveNote(t, router, "area_health", "Health", "y")

	w := doJSON(t, router, http.MethodGet, "/notes?title=site", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var res records.ListResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Entries) != 1 || res.Entries[0].Meta.ID != "project_site" {
		t.Errorf("entries = %+v", res.Entries)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}
}

func TestPlansAreSeparate(t *testing.T) {
	router := testEnv(t, "")

	saveNote(t, router, "a", "Note A", "x")

	w := doJSON(t, router, http.MethodPost, "/plans", SaveRecordRequest{ID: "a", Title: "Plan A", Content: "y"})
	if w.Code != http.StatusCreated {
		t.Fatalf("save plan = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/plans/a", nil)
	var res records.ReadResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Record.Meta.Title != "Plan A" {
		t.Errorf("plan title = %q", res.Record.Meta.Title)
	}
	if !strings.HasPrefix(res.FileName, "plan_a_") {
		t.Errorf("plan file = %q", res.FileName)
	}
}

func TestCreateLinkEndpoint(t *testing.T) {
	router := testEnv(t, "")

	saveNote(t, router, "a", "A", "x")
	saveNote(t, router, "b", "B", "y")

	w := doJSON(t, router, http.MethodPost, "/links", CreateLinkRequest{
		SourceNoteID: "a",
		TargetNoteID: "b",
		LinkType:     "references",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("link = %d, body = %s", w.Code, w.Body.String())
	}

	// Self-link rejected.
	w = doJSON(t, router, http.MethodPost, "/links", CreateLinkRequest{
		SourceNoteID: "a",
		TargetNoteID: "a",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("self link = %d, want 409", w.Code)
	}

	// Missing endpoint.
	w = doJSON(t, router, http.MethodPost, "/links", CreateLinkRequest{
		SourceNoteID: "ghost",
		TargetNoteID: "b",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing source = %d, want 404", w.Code)
	}
}

func TestArchiveEndpoint(t *testing.T) {
	router := testEnv(t, "")

	saveNote(t, router, "project_site", "Site", "x")

	w := doJSON(t, router, http.MethodPost, "/archive", ArchiveRequest{
		ItemType: "note",
		ItemID:   "project_site",
		Reason:   "done",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("archive = %d, body = %s", w.Code, w.Body.String())
	}
	var res archive.Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.NewID != "archive_site" {
		t.Errorf("new id = %q", res.NewID)
	}

	w = doJSON(t, router, http.MethodPost, "/archive", ArchiveRequest{ItemType: "task", ItemID: "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad item type = %d, want 400", w.Code)
	}
}

func TestCreateMOCEndpoint(t *testing.T) {
	router := testEnv(t, "")

	saveNote(t, router, "resource_go", "Go", "x")

	w := doJSON(t, router, http.MethodPost, "/mocs", CreateMOCRequest{
		Topic:   "Go",
		NoteIDs: []string{"resource_go", "ghost"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("moc = %d, body = %s", w.Code, w.Body.String())
	}
	var res moc.Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !strings.HasPrefix(res.ID, "moc_resource_go_") {
		t.Errorf("moc id = %q", res.ID)
	}

	w = doJSON(t, router, http.MethodPost, "/mocs", CreateMOCRequest{Topic: "X", NoteIDs: []string{"ghost"}})
	if w.Code != http.StatusNotFound {
		t.Errorf("none resolved = %d, want 404", w.Code)
	}
}

func TestSearchGraphBacklinks(t *testing.T) {
	router := testEnv(t, "")

	saveNote(t, router, "a", "Alpha", "see [Beta](note:b) for more")
	saveNote(t, router, "b", "Beta", "unmistakableterm lives here")

	w := doJSON(t, router, http.MethodGet, "/search?q=unmistakableterm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Beta") {
		t.Errorf("search body = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d", w.Code)
	}
	var graph struct {
		Nodes []index.GraphNode `json:"nodes"`
		Edges []index.GraphEdge `json:"edges"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &graph)
	if len(graph.Nodes) != 2 {
		t.Errorf("nodes = %+v", graph.Nodes)
	}

	w = doJSON(t, router, http.MethodGet, "/backlinks/b", nil)
	var bl BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &bl)
	if len(bl.Backlinks) != 1 || bl.Backlinks[0] != "a" {
		t.Errorf("backlinks = %+v", bl)
	}
}

func TestAuthModes(t *testing.T) {
	router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}
