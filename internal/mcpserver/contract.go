package mcpserver

// RecordFormatContract is the canonical record format served to MCP
// clients. Agents read it before writing notes or plans so their files
// round-trip through the metadata parser.
const RecordFormatContract = `# Muninn Record Format Contract

Every note and plan is a single Markdown file in the vault, named:

    {kind}_{sanitized-id}_{epoch-millis}.md

where kind is "note" or "plan". Saving never overwrites: each save
writes a new file with a fresh timestamp, and readers resolve an id to
its most recent file.

## Metadata header

The file starts with a metadata block, terminated by a line containing
only "---":

    # <Title>

    **Note ID:** <id>          (plans use **Plan ID:**)
    **Created:** <ISO-8601 timestamp>
    **Updated:** <ISO-8601 timestamp>       (present after updates)
    **Archived:** <ISO-8601 timestamp>      (archived records only)
    **Archive Reason:** <text>              (optional)
    ---

    <Markdown body>

A file without the "---" separator is malformed and rejected by
mutating operations.

## IDs and categories

IDs use characters [A-Za-z0-9_-]; anything else is replaced with "_".
The id prefix assigns the PARA category:

    project_   active work with an end date
    area_      ongoing responsibility
    resource_  reference material
    archive_   retired items
    inbox_     unprocessed capture (uncategorized)

## Cross-references

Records reference each other with inline links of the form
[Title](note:<id>) or [Title](plan:<id>). Bidirectional links live
under a "## Related Notes" section. These references feed the backlink
index and the graph view.
`
