package api

// SaveRecordRequest is the request body for creating a note or plan.
type SaveRecordRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateRecordRequest is the request body for updating a note or plan.
// Pointer fields distinguish "omitted, keep current value" from an
// explicit empty string (which clears the content).
type UpdateRecordRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// CreateLinkRequest is the request body for linking two notes.
type CreateLinkRequest struct {
	SourceNoteID string `json:"source_note_id"`
	TargetNoteID string `json:"target_note_id"`
	LinkType     string `json:"link_type,omitempty"`
	Description  string `json:"description,omitempty"`
}

// ArchiveRequest is the request body for archiving a note or plan.
type ArchiveRequest struct {
	ItemType           string `json:"item_type"`
	ItemID             string `json:"item_id"`
	Reason             string `json:"reason,omitempty"`
	KeepOriginalPrefix bool   `json:"keep_original_prefix,omitempty"`
}

// CreateMOCRequest is the request body for creating a Map of Content.
type CreateMOCRequest struct {
	Topic       string   `json:"topic"`
	NoteIDs     []string `json:"note_ids"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// BacklinksResponse lists the record ids referencing a given id.
type BacklinksResponse struct {
	ID        string   `json:"id"`
	Backlinks []string `json:"backlinks"`
}
