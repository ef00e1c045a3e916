package mcpserver

// PublishFormatContract describes the canonical Markdown document format
// that LLM consumers should follow when authoring documents meant for the
// publish pipeline.
const PublishFormatContract = `# Raido Publish Format Contract

Every Markdown document meant for publishing MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL - defaults to the file name
publish: true                      # REQUIRED to enter the publish set (dg-publish also works)
tags:                               # OPTIONAL - YAML list; used for filtering
  - tag-one
  - tag-two
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other documents (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Use ![[target]] to transclude another document's content inline.
Use ![[target#Heading]] or ![[target#^block-id]] for partial transclusion.
` + "```" + `

## Rules

1. **YAML frontmatter fences** (` + "`---`" + `) must be the first thing in the
   file when present (no leading blank lines).
2. **Publish flag.** Only documents with ` + "`publish: true`" + ` or
   ` + "`dg-publish: true`" + ` in the frontmatter are published.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`project-x`" + `, ` + "`meeting-notes`" + `).
4. **Wikilinks** use double brackets: ` + "`[[other-doc]]`" + `. The target is the
   filename stem (no ` + "`.md`" + ` extension, path separators OK: ` + "`[[folder/doc]]`" + `).
5. **Block references**: end a line with ` + "` ^block-id`" + ` to make it
   addressable as ` + "`[[doc#^block-id]]`" + `.
6. **Comments**: text wrapped in ` + "`%%...%%`" + ` is stripped at publish time
   and never reaches the published site.
7. **Transclusion depth** is bounded; embeds nested more than four levels
   deep are left as literal markup.
8. **File paths** end with ` + "`.md`" + ` and use forward slashes.
9. **Encoding** is UTF-8 with a trailing newline.

## Assets & Images

- Import assets via the ` + "`import_asset`" + ` tool. It returns an embed snippet
  ready to paste into the document body.
- Assets live in the shared ` + "`assets/`" + ` directory of the vault.
- Reference in documents with an embed: ` + "`![[assets/picture.png]]`" + ` or
  with sizing ` + "`![[assets/picture.png|300]]`" + `.
- At publish time, image references are rewritten to ` + "`/img/user/<path>`" + `
  and the binary is extracted alongside the compiled text.
- External URLs (` + "`![alt](https://...)`" + `) are left untouched.
- Supported formats: png, jpg, jpeg, gif, webp, svg.

## Example

` + "```" + `markdown
---
title: Weekly standup 2026-08-24
publish: true
tags:
  - meeting-notes
  - project-x
---

# Weekly standup 2026-08-24

Attendees: Alice, Bob.

![[assets/standup-2026-08-24.jpg|400]]

Key decision: ^decision
We ship the importer first.

## Action items

- [[alice]] to review the [[design-doc]]
- Bob to update [[project-x/roadmap|the roadmap]]
- Recap: ![[last-week#Action items]]
` + "```" + `
`
