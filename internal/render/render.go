// Package render turns service results and errors into the plain-text
// messages the agent tools return. The wording is part of the tool
// contract: agents pattern-match on these strings, so they must stay
// stable.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/archive"
	"github.com/starford/muninn/internal/links"
	"github.com/starford/muninn/internal/moc"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/records"
)

// kindNoun returns "note" or "plan" for message interpolation.
func kindNoun(kind models.Kind) string { return string(kind) }

// Save renders the save result or error for kind.
func Save(kind models.Kind, res *records.SaveResult, err error) string {
	noun := kindNoun(kind)
	if err != nil {
		return fmt.Sprintf("Error saving %s: %v", noun, err)
	}
	return fmt.Sprintf("Successfully saved %s %q with ID %q to %s", noun, res.Meta.Title, res.Meta.ID, res.FileName)
}

// Read renders the read result or error for kind.
func Read(kind models.Kind, id string, res *records.ReadResult, err error) string {
	noun := kindNoun(kind)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			if nf.Total == 0 {
				return fmt.Sprintf("No %ss found in the %ss directory.", noun, noun)
			}
			return fmt.Sprintf("No %s found with ID %q. Available %ss: %d total.", noun, id, noun, nf.Total)
		}
		return fmt.Sprintf("Error reading %s: %v", noun, err)
	}
	return fmt.Sprintf("%s found: %s\n\n%s", capFirst(noun), res.FileName, res.Content)
}

// Update renders the update result or error for kind.
func Update(kind models.Kind, id string, res *records.UpdateResult, err error) string {
	noun := kindNoun(kind)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Sprintf("No %s found with ID %q to update.", noun, id)
		}
		if errors.Is(err, apperr.ErrInvalidFormat) {
			return fmt.Sprintf("Error: %s file format is invalid. Cannot find metadata separator.", capFirst(noun))
		}
		return fmt.Sprintf("Error updating %s: %v", noun, err)
	}
	return fmt.Sprintf("Successfully updated %s %q with ID %q. File: %s", noun, res.Meta.Title, res.Meta.ID, res.FileName)
}

// Delete renders the delete result or error for kind.
func Delete(kind models.Kind, id string, res *records.DeleteResult, err error) string {
	noun := kindNoun(kind)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Sprintf("No %s found with ID %q to delete.", noun, id)
		}
		return fmt.Sprintf("Error deleting %s: %v", noun, err)
	}
	return fmt.Sprintf("Successfully deleted %s %q with ID %q (file: %s).", noun, res.Title, res.ID, res.FileName)
}

// List renders the listing for kind as a numbered summary.
func List(kind models.Kind, res *records.ListResult, err error) string {
	noun := kindNoun(kind)
	if err != nil {
		return fmt.Sprintf("Error listing %ss: %v", noun, err)
	}
	if res.Total == 0 {
		return fmt.Sprintf("No %ss found in the %ss directory.", noun, noun)
	}
	if len(res.Entries) == 0 {
		return fmt.Sprintf("No %ss found matching the specified filters. Total %ss available: %d", noun, noun, res.Total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s(s)", len(res.Entries), noun)
	if res.Total > len(res.Entries) {
		fmt.Fprintf(&b, " (showing %d of %d total)", len(res.Entries), res.Total)
	}
	b.WriteString(":\n\n")
	for i, e := range res.Entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. **%s**\n   ID: %s\n   Created: %s", i+1, e.Meta.Title, e.Meta.ID, e.Meta.Created)
		if e.Meta.Updated != "" {
			fmt.Fprintf(&b, "\n  Updated: %s", e.Meta.Updated)
		}
		fmt.Fprintf(&b, "\n   File: %s", e.FileName)
	}
	return b.String()
}

// Link renders the link result or error.
func Link(res *links.Result, err error) string {
	if err != nil {
		var miss *links.MissingEndpointError
		if errors.As(err, &miss) {
			return fmt.Sprintf("Error: %s note with ID %q not found.", capFirst(miss.Role), miss.ID)
		}
		if errors.Is(err, apperr.ErrSelfLink) {
			return "Error: Cannot link a note to itself."
		}
		var format *links.EndpointFormatError
		if errors.As(err, &format) && format.Role == "source" {
			return "Error: Source note format is invalid. Cannot find metadata separator."
		}
		return fmt.Sprintf("Error creating link: %v", err)
	}
	return fmt.Sprintf("Successfully created bidirectional link between %q and %q with relationship type %q. Both notes have been updated.",
		res.SourceID, res.TargetID, res.LinkType)
}

// Archive renders the archive result or error.
func Archive(kind models.Kind, id string, res *archive.Result, err error) string {
	noun := kindNoun(kind)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Sprintf("Error: %s with ID %q not found.", capFirst(noun), id)
		}
		if errors.Is(err, apperr.ErrInvalidFormat) {
			return fmt.Sprintf("Error: %s file format is invalid. Cannot find metadata separator.", capFirst(noun))
		}
		return fmt.Sprintf("Error archiving item: %v", err)
	}
	msg := fmt.Sprintf("Successfully archived %s %q with ID %q. ", noun, res.Title, res.NewID)
	if res.Reason != "" {
		msg += "Reason: " + res.Reason
	}
	return msg
}

// MOC renders the Map of Content result or error, embedding the save
// confirmation for the written note.
func MOC(res *moc.Result, err error) string {
	if err != nil {
		if errors.Is(err, moc.ErrNoneResolved) {
			return "Error: None of the specified note IDs were found. Cannot create MOC."
		}
		return fmt.Sprintf("Error creating MOC: %v", err)
	}
	saveMsg := fmt.Sprintf("Successfully saved note %q with ID %q to %s", res.Title, res.ID, res.FileName)
	return fmt.Sprintf("Successfully created Map of Content %q with ID %q containing %d note(s). %s",
		res.Title, res.ID, len(res.Included), saveMsg)
}

func capFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
