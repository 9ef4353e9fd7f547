// Package header parses and renders the metadata header embedded in
// record files: a `# title` line, one or more `**Field:** value` lines,
// and a `---` separator before the markdown body. Field extraction is
// marker-based line scanning, matching the on-disk convention rather
// than any structured format.
package header

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
)

// Separator delimits the metadata header from the body.
const Separator = "---"

const (
	createdMarker  = "**Created:**"
	updatedMarker  = "**Updated:**"
	archivedMarker = "**Archived:**"
	reasonMarker   = "**Archive Reason:**"
)

func idMarker(kind models.Kind) string {
	return "**" + kind.IDLabel() + ":**"
}

// Parse splits content at the first line that is exactly the separator
// and scans the metadata section for field markers.
//
// When no separator exists the file is degraded: the whole content is
// scanned for markers and also returned as the body, and the error wraps
// apperr.ErrInvalidFormat so callers can distinguish well-formed records
// from the fallback.
func Parse(content string, kind models.Kind) (models.Record, error) {
	lines := strings.Split(content, "\n")

	sep := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == Separator {
			sep = i
			break
		}
	}

	metaLines := lines
	var rec models.Record
	if sep >= 0 {
		metaLines = lines[:sep]
		rec.Body = strings.TrimSpace(strings.Join(lines[sep+1:], "\n"))
	} else {
		rec.Body = content
	}

	marker := idMarker(kind)
	for _, line := range metaLines {
		switch {
		case strings.HasPrefix(line, "# "):
			rec.Meta.Title = strings.TrimSpace(line[2:])
		case strings.Contains(line, marker):
			rec.Meta.ID = after(line, marker)
		case strings.Contains(line, reasonMarker):
			rec.Meta.ArchiveReason = after(line, reasonMarker)
		case strings.Contains(line, createdMarker):
			rec.Meta.Created = after(line, createdMarker)
		case strings.Contains(line, updatedMarker):
			rec.Meta.Updated = after(line, updatedMarker)
		case strings.Contains(line, archivedMarker):
			rec.Meta.Archived = after(line, archivedMarker)
		}
	}

	if sep < 0 {
		return rec, fmt.Errorf("header: missing %q separator: %w", Separator, apperr.ErrInvalidFormat)
	}
	return rec, nil
}

// after returns the trimmed text following the first occurrence of
// marker in line.
func after(line, marker string) string {
	i := strings.Index(line, marker)
	return strings.TrimSpace(line[i+len(marker):])
}

// Render serializes a record back into the on-disk layout. Optional
// fields are emitted only when set, in the fixed header order.
func Render(rec models.Record, kind models.Kind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rec.Meta.Title)
	fmt.Fprintf(&b, "%s %s\n", idMarker(kind), rec.Meta.ID)
	if rec.Meta.Created != "" {
		fmt.Fprintf(&b, "%s %s\n", createdMarker, rec.Meta.Created)
	}
	if rec.Meta.Updated != "" {
		fmt.Fprintf(&b, "%s %s\n", updatedMarker, rec.Meta.Updated)
	}
	if rec.Meta.Archived != "" {
		fmt.Fprintf(&b, "%s %s\n", archivedMarker, rec.Meta.Archived)
	}
	if rec.Meta.ArchiveReason != "" {
		fmt.Fprintf(&b, "%s %s\n", reasonMarker, rec.Meta.ArchiveReason)
	}
	b.WriteString("\n" + Separator + "\n\n")
	b.WriteString(rec.Body)
	return b.String()
}

// ExtractTitle returns the title from the first line of content, if it
// is a `# ` heading. Used where only a display title is needed and a
// full parse would be wasted.
func ExtractTitle(content string) (string, bool) {
	line, _, _ := strings.Cut(content, "\n")
	if strings.HasPrefix(line, "# ") {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}

var refRe = regexp.MustCompile(`\]\((?:note|plan):([^)\s]+)\)`)

// ExtractRefs returns the deduplicated record ids referenced from body
// via `[title](note:<id>)` style links, in order of first appearance.
func ExtractRefs(body string) []string {
	matches := refRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		id := m[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
