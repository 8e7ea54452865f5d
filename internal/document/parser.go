package document

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	textlang "golang.org/x/text/language"

	"coursegen/internal/course"
	"coursegen/internal/language"
)

const (
	// DefaultTitle names documents that carry no title of their own.
	DefaultTitle  = "Untitled Course"
	defaultAuthor = "Unknown"
)

var headerPattern = regexp.MustCompile(`^ {0,3}(#{1,6})[ \t]+(.+?)(?:[ \t]+#+)?[ \t]*$`)

// Parsed is the structure derived from a document.
type Parsed struct {
	Title       string
	Description string
	Sections    []course.Section
	Metadata    course.Metadata
	// BoundaryLevel is the header level that started sections, or 0 when the
	// document had no section headers.
	BoundaryLevel int
	// Warnings lists metadata problems that did not prevent parsing.
	Warnings []string

	untitled bool
}

// Parser splits documents into sections. The zero value uses automatic
// section level detection, the default title and front matter metadata.
type Parser struct {
	// SectionLevel forces the header level that starts a section (1-6).
	SectionLevel int
	DefaultTitle string
	Extractors   []MetadataExtractor
}

// New returns a Parser with the built-in metadata extractors.
func New(sectionLevel int, defaultTitle string) *Parser {
	return &Parser{
		SectionLevel: sectionLevel,
		DefaultTitle: defaultTitle,
		Extractors:   []MetadataExtractor{FrontMatter{}, TitleBlock{}},
	}
}

type header struct {
	line  int
	level int
	text  string
}

// ParseDocument parses a submitted document, using its name as a title
// fallback when the text has no headers.
func (p *Parser) ParseDocument(doc course.Document) (Parsed, error) {
	parsed, err := p.Parse(doc.Text)
	if err != nil {
		return Parsed{}, err
	}
	if parsed.untitled {
		if fallback := titleFromName(doc.Name); fallback != "" {
			parsed.Title = fallback
		}
	}
	return parsed, nil
}

// Parse derives title, description, sections and metadata from raw text. It
// fails only when the input cannot be decoded as text.
//
// Section boundaries: when the shallowest header level occurs exactly once and
// deeper headers exist, that header is the course title and the next deeper
// level present starts sections. Otherwise the shallowest level starts
// sections and its first header also names the course. Deeper headers stay in
// section bodies.
func (p *Parser) Parse(raw []byte) (Parsed, error) {
	text, err := decode(raw)
	if err != nil {
		return Parsed{}, err
	}

	var (
		fields   Fields
		warnings []string
	)
	for _, extractor := range p.extractors() {
		rest, found, extractErr := extractor.Extract(text)
		if extractErr != nil {
			warnings = append(warnings, "metadata block ignored: "+extractErr.Error())
			continue
		}
		text = rest
		fields.merge(found)
	}

	lines := strings.Split(text, "\n")
	headers := scanHeaders(lines)

	parsed := Parsed{Sections: []course.Section{}, Warnings: warnings}
	titleLine := -1
	if len(headers) == 0 {
		parsed.Title = p.defaultTitle()
		parsed.untitled = true
		parsed.Description = strings.TrimSpace(text)
	} else {
		shallowest := headers[0].level
		for _, h := range headers {
			shallowest = min(shallowest, h.level)
		}
		var first header
		count := 0
		for _, h := range headers {
			if h.level == shallowest {
				if count == 0 {
					first = h
				}
				count++
			}
		}
		parsed.Title = first.text

		boundary := shallowest
		if count == 1 {
			if next, ok := nextLevel(headers, shallowest); ok {
				boundary = next
			}
		}
		if p.SectionLevel > 0 {
			boundary = p.SectionLevel
		}
		if first.level != boundary {
			titleLine = first.line
		}

		parsed.Description, parsed.Sections = split(lines, headers, boundary, titleLine)
		if len(parsed.Sections) > 0 {
			parsed.BoundaryLevel = boundary
		}
	}

	if fields.Title != "" {
		parsed.Title = fields.Title
		parsed.untitled = false
	}
	if parsed.Description == "" {
		parsed.Description = fields.Description
	}
	parsed.Metadata, parsed.Warnings = buildMetadata(fields, parsed.Warnings)
	return parsed, nil
}

func (p *Parser) extractors() []MetadataExtractor {
	if p.Extractors == nil {
		return []MetadataExtractor{FrontMatter{}, TitleBlock{}}
	}
	return p.Extractors
}

func (p *Parser) defaultTitle() string {
	if title := strings.TrimSpace(p.DefaultTitle); title != "" {
		return title
	}
	return DefaultTitle
}

func scanHeaders(lines []string) []header {
	var (
		headers   []header
		fence     string
		inFence   bool
		fenceSize int
	)
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if len(line)-len(trimmed) <= 3 {
			if marker, size := fenceMarker(trimmed); size > 0 {
				switch {
				case !inFence:
					inFence, fence, fenceSize = true, marker, size
				case marker == fence && size >= fenceSize && strings.TrimSpace(trimmed[size:]) == "":
					inFence = false
				}
				continue
			}
		}
		if inFence {
			continue
		}
		match := headerPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		headers = append(headers, header{line: i, level: len(match[1]), text: strings.TrimSpace(match[2])})
	}
	return headers
}

func fenceMarker(line string) (string, int) {
	for _, marker := range []string{"`", "~"} {
		size := len(line) - len(strings.TrimLeft(line, marker))
		if size >= 3 {
			return marker, size
		}
	}
	return "", 0
}

func nextLevel(headers []header, level int) (int, bool) {
	next := 7
	for _, h := range headers {
		if h.level > level && h.level < next {
			next = h.level
		}
	}
	return next, next <= 6
}

func split(lines []string, headers []header, boundary, titleLine int) (string, []course.Section) {
	var starts []header
	for _, h := range headers {
		if h.level == boundary {
			starts = append(starts, h)
		}
	}
	end := len(lines)
	if len(starts) > 0 {
		end = starts[0].line
	}
	description := joinLines(lines, 0, end, titleLine)

	sections := make([]course.Section, 0, len(starts))
	for i, start := range starts {
		stop := len(lines)
		for _, h := range headers {
			if h.line > start.line && h.level <= boundary {
				stop = h.line
				break
			}
		}
		sections = append(sections, course.Section{
			Title: start.text,
			Body:  joinLines(lines, start.line+1, stop, titleLine),
			Order: i,
		})
	}
	return description, sections
}

func joinLines(lines []string, from, to, skip int) string {
	var b strings.Builder
	for i := from; i < to; i++ {
		if i == skip {
			continue
		}
		b.WriteString(lines[i])
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func buildMetadata(fields Fields, warnings []string) (course.Metadata, []string) {
	meta := course.Metadata{
		Author:   fields.Author,
		Language: language.Default,
		Tags:     []string{},
	}
	if meta.Author == "" {
		meta.Author = defaultAuthor
	}
	if fields.Language != "" {
		if normalized, ok := language.Normalize(fields.Language); ok {
			meta.Language = normalized
		} else {
			warnings = append(warnings, "unrecognised language "+fields.Language+"; using "+language.Default)
		}
	}
	if len(fields.Tags) > 0 {
		meta.Tags = append(meta.Tags, fields.Tags...)
	}
	return meta, warnings
}

func titleFromName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == "" {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	if len(words) == 0 {
		return ""
	}
	return cases.Title(textlang.Und).String(strings.Join(words, " "))
}
