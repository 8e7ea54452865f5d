package document

import (
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Fields are the metadata values an extractor may supply. Empty fields are
// left for later extractors or defaults.
type Fields struct {
	Title       string   `yaml:"title" toml:"title"`
	Description string   `yaml:"description" toml:"description"`
	Author      string   `yaml:"author" toml:"author"`
	Language    string   `yaml:"language" toml:"language"`
	Tags        []string `yaml:"tags" toml:"tags"`
}

func (f *Fields) merge(other Fields) {
	if f.Title == "" {
		f.Title = strings.TrimSpace(other.Title)
	}
	if f.Description == "" {
		f.Description = strings.TrimSpace(other.Description)
	}
	if f.Author == "" {
		f.Author = strings.TrimSpace(other.Author)
	}
	if f.Language == "" {
		f.Language = strings.TrimSpace(other.Language)
	}
	if len(f.Tags) == 0 {
		for _, tag := range other.Tags {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				f.Tags = append(f.Tags, trimmed)
			}
		}
	}
}

// MetadataExtractor pulls metadata from the head of a document. It returns the
// text with any consumed block removed. A malformed block is reported through
// err and the text is left untouched.
type MetadataExtractor interface {
	Extract(text string) (rest string, fields Fields, err error)
}

// FrontMatter reads a YAML block fenced by "---" or a TOML block fenced by
// "+++" at the very start of the document.
type FrontMatter struct{}

func (FrontMatter) Extract(text string) (string, Fields, error) {
	var fields Fields
	for _, fence := range []string{"---", "+++"} {
		block, rest, ok := fencedBlock(text, fence)
		if !ok {
			continue
		}
		var err error
		if fence == "---" {
			err = yaml.Unmarshal([]byte(block), &fields)
		} else {
			err = toml.Unmarshal([]byte(block), &fields)
		}
		if err != nil {
			return text, Fields{}, err
		}
		return rest, fields, nil
	}
	return text, fields, nil
}

func fencedBlock(text, fence string) (block, rest string, ok bool) {
	first, remainder, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, " \t") != fence {
		return "", text, false
	}
	lines := strings.SplitAfter(remainder, "\n")
	offset := 0
	for _, line := range lines {
		if strings.TrimRight(line, " \t\n") == fence {
			return remainder[:offset], remainder[offset+len(line):], true
		}
		offset += len(line)
	}
	return "", text, false
}

// TitleBlock reads a pandoc-style title block: up to three leading lines
// starting with "%" holding title, author and date.
type TitleBlock struct{}

func (TitleBlock) Extract(text string) (string, Fields, error) {
	var fields Fields
	rest := text
	for i := 0; i < 3; i++ {
		line, remainder, _ := strings.Cut(rest, "\n")
		if !strings.HasPrefix(line, "%") {
			break
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "%"))
		switch i {
		case 0:
			fields.Title = value
		case 1:
			fields.Author = value
		}
		rest = remainder
	}
	return rest, fields, nil
}
