// Package document turns raw course documents into a title, a description,
// ordered sections and course metadata.
//
// Documents are Markdown-like text with ATX headers. Input is decoded
// strictly: invalid UTF-8 or binary content yields a ParseError, while a
// document without headers is valid and produces zero sections. Metadata comes
// from a chain of MetadataExtractor implementations (YAML or TOML front matter
// and pandoc title blocks by default) with fixed defaults for missing fields.
package document
