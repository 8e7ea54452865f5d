package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"coursegen/internal/course"
	"coursegen/internal/document"
)

type parsedSection struct {
	Order int    `json:"order"`
	Title string `json:"title"`
	Words int    `json:"words"`
}

type parseView struct {
	Source        string          `json:"source"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Metadata      course.Metadata `json:"metadata"`
	BoundaryLevel int             `json:"boundaryLevel"`
	Sections      []parsedSection `json:"sections"`
	Warnings      []string        `json:"warnings,omitempty"`
}

func newParseCommand(ctx *commandContext) *cobra.Command {
	var sectionLevel int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Show how a document splits into lessons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			level := cfg.Parser.SectionLevel
			if cmd.Flags().Changed("level") {
				level = sectionLevel
			}
			parsed, err := document.New(level, cfg.Parser.DefaultTitle).ParseDocument(doc)
			if err != nil {
				return err
			}
			view := newParseView(doc.Name, parsed)
			if jsonOutput {
				return writeJSON(cmd, view)
			}
			printParseView(cmd, view)
			return nil
		},
	}

	cmd.Flags().IntVar(&sectionLevel, "level", 0, "Header level that starts a lesson (0 = automatic)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the structure as JSON")
	return cmd
}

func newParseView(source string, parsed document.Parsed) parseView {
	view := parseView{
		Source:        source,
		Title:         parsed.Title,
		Description:   parsed.Description,
		Metadata:      parsed.Metadata,
		BoundaryLevel: parsed.BoundaryLevel,
		Sections:      make([]parsedSection, 0, len(parsed.Sections)),
		Warnings:      parsed.Warnings,
	}
	for _, s := range parsed.Sections {
		view.Sections = append(view.Sections, parsedSection{
			Order: s.Order,
			Title: s.Title,
			Words: len(strings.Fields(s.Body)),
		})
	}
	return view
}

func printParseView(cmd *cobra.Command, view parseView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Title: %s\n", view.Title)
	if view.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", view.Description)
	}
	if view.Metadata.Author != "" {
		fmt.Fprintf(out, "Author: %s\n", view.Metadata.Author)
	}
	if view.BoundaryLevel > 0 {
		fmt.Fprintf(out, "Lessons start at: %s\n", strings.Repeat("#", view.BoundaryLevel))
	} else {
		fmt.Fprintln(out, "Lessons start at: (no section headers)")
	}
	rows := make([][]string, 0, len(view.Sections))
	for _, s := range view.Sections {
		rows = append(rows, []string{strconv.Itoa(s.Order + 1), s.Title, strconv.Itoa(s.Words)})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Lesson", "Words"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
	for _, w := range view.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}
