package mcpserver

// ArticleFormatContract describes the canonical article file format that
// writers (human or LLM) must follow when committing to the content
// repository.
const ArticleFormatContract = `# gitpress Article Format Contract

Every article committed to the content repository MUST follow this structure.

## Structure

` + "```" + `markdown
+++
title = "Human-readable title"       # REQUIRED
summary = "One-sentence summary"     # shown in listings, rendered as markdown
datetime = "2025-01-15 09:30:00"     # publish time; several layouts accepted
tags = ["tag-one", "tag-two"]        # optional
+++

Body text in GitHub-flavored Markdown.
` + "```" + `

## Rules

1. **TOML front matter between ` + "`+++`" + ` fences is mandatory.** The opening
   fence must be the first line of the file.
2. **` + "`title`" + ` is required.** A file without it is rejected and the whole
   push fails to sync.
3. **Accepted ` + "`datetime`" + ` layouts:** ` + "`2006-01-02 15:04:05`" + `, RFC 3339,
   ` + "`2006-01-02`" + `, and the same two with slashes.
4. **File naming:** articles end with ` + "`.md`" + ` or ` + "`.markdown`" + `; the slug is
   the file name without its extension and must be unique.
5. **Grouping:** the directory holding the file is its group. A directory
   becomes a group by carrying a ` + "`.group.toml`" + ` file:

` + "```" + `toml
public = true

[category]
id = "tech"
name = "Technology"

[author]
name = "Alice"
` + "```" + `

6. **Encoding** is UTF-8. Files that do not decode as UTF-8 are skipped.
7. Files of any other kind are ignored by the sync pipeline.
`
