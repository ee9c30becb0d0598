// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compile reduces a finished run's context store to the final
// Markdown document. Compilers only read stage entries.
package compile

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/article-engine/internal/contract"
	"github.com/pdiddy/article-engine/internal/pipeline"
)

// Default stage bases and headings used by the article crew.
const (
	ResearchStage = "research"
	LinksStage    = "links"
	ArticleStage  = "article"
	CheckStage    = "factcheck"
	OverviewStage = "overview"

	FindingsHeading  = "Research Findings"
	SourcesHeading   = "Source Links"
	ReportHeading    = "Fact Check Report"
	RevisedHeading   = "Revised Article"
	ResourcesHeading = "Resources Used"
)

// unverifiedNote is placed above articles that did not pass a fact-check.
const unverifiedNote = "> **Unverified:** fact-checking did not complete for this article; it is shown as first drafted."

// titleCaser returns a fresh caser; a cases.Caser keeps state between
// calls and must not be shared by concurrent runs.
func titleCaser() cases.Caser {
	return cases.Title(language.English, cases.NoLower)
}

// Articles compiles one section per subtopic from the article, fact-check,
// link and research entries of each subtopic.
type Articles struct {
	ResearchStage string
	LinksStage    string
	ArticleStage  string
	CheckStage    string

	// OverviewStage, when it has an entry, is placed above the sections.
	OverviewStage string
}

// NewArticles returns a compiler for the default stage names.
func NewArticles() *Articles {
	return &Articles{
		ResearchStage: ResearchStage,
		LinksStage:    LinksStage,
		ArticleStage:  ArticleStage,
		CheckStage:    CheckStage,
		OverviewStage: OverviewStage,
	}
}

// Compile implements pipeline.Compiler. For each topic it prefers the
// "Revised Article" section of the fact-check entry and falls back to the
// drafted article, marking it unverified. Resources are the links entry's
// URLs followed by any new URLs from the research sources and the
// fact-check report, deduplicated in first-seen order. No topic is dropped.
func (a *Articles) Compile(view pipeline.View, topics []string) (*pipeline.Artifact, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics to compile")
	}

	caser := titleCaser()
	art := &pipeline.Artifact{}
	for i, topic := range topics {
		item := i + 1
		body, verified, err := a.body(view, item, topic)
		if err != nil {
			return nil, err
		}
		art.Sections = append(art.Sections, pipeline.Section{
			Heading:   caser.String(topic),
			Body:      body,
			Resources: a.resources(view, item),
			Verified:  verified,
		})
	}
	art.Document = RenderSections(art.Sections)
	if e, ok := view.Get(a.OverviewStage); ok && a.OverviewStage != "" {
		art.Document = "## Overview\n\n" + strings.TrimSpace(e.Text) + "\n\n---\n\n" + art.Document
	}
	return art, nil
}

func (a *Articles) body(view pipeline.View, item int, topic string) (string, bool, error) {
	if e, ok := view.Get(pipeline.ItemName(a.CheckStage, item)); ok {
		if revised, found := contract.Section(e.Text, RevisedHeading, ReportHeading); found && revised != "" {
			return cleanBody(revised, topic), true, nil
		}
	}
	e, ok := view.Get(pipeline.ItemName(a.ArticleStage, item))
	if !ok || strings.TrimSpace(e.Text) == "" {
		return "", false, fmt.Errorf("no article for subtopic %d (%q)", item, topic)
	}
	return cleanBody(e.Text, topic), false, nil
}

func (a *Articles) resources(view pipeline.View, item int) []string {
	var urls []string
	if e, ok := view.Get(pipeline.ItemName(a.LinksStage, item)); ok {
		urls = append(urls, linkURLs(e.Text)...)
	}
	if e, ok := view.Get(pipeline.ItemName(a.ResearchStage, item)); ok {
		if sources, found := contract.Section(e.Text, SourcesHeading, FindingsHeading); found {
			urls = append(urls, contract.ExtractURLs(sources)...)
		}
	}
	if e, ok := view.Get(pipeline.ItemName(a.CheckStage, item)); ok {
		if report, found := contract.Section(e.Text, ReportHeading, RevisedHeading); found {
			urls = append(urls, contract.ExtractURLs(report)...)
		}
	}
	return contract.Dedup(urls)
}

// linkURLs reads a validated links entry, which is already a numbered list
// of exact URLs. Free text falls back to URL extraction.
func linkURLs(text string) []string {
	items, err := contract.ParseNumberedList(text)
	if err != nil {
		return contract.ExtractURLs(text)
	}
	return items
}

// RenderSections renders sections as numbered "##" headings separated by
// horizontal rules, each followed by a "Resources Used" list.
func RenderSections(sections []pipeline.Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, s.Heading)
		if !s.Verified {
			b.WriteString(unverifiedNote + "\n\n")
		}
		b.WriteString(s.Body)
		fmt.Fprintf(&b, "\n\n### %s\n", ResourcesHeading)
		if len(s.Resources) == 0 {
			b.WriteString("No sources were recorded for this topic.")
			continue
		}
		b.WriteString(contract.FormatNumberedList(s.Resources))
	}
	b.WriteString("\n")
	return b.String()
}

// cleanBody drops a leading heading that repeats the topic and demotes the
// remaining headings below the section heading.
func cleanBody(body, topic string) string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "#") &&
		strings.EqualFold(strings.TrimSpace(strings.TrimLeft(lines[0], "#")), strings.TrimSpace(topic)) {
		lines = lines[1:]
	}
	for i, line := range lines {
		if strings.HasPrefix(line, "#") {
			level := len(line) - len(strings.TrimLeft(line, "#"))
			if level+2 <= 6 {
				lines[i] = "##" + line
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Titles compiles the title-only workflow: the topics list itself.
type Titles struct{}

// Compile implements pipeline.Compiler.
func (Titles) Compile(_ pipeline.View, topics []string) (*pipeline.Artifact, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("no titles to compile")
	}
	caser := titleCaser()
	art := &pipeline.Artifact{}
	titles := make([]string, len(topics))
	for i, topic := range topics {
		titles[i] = caser.String(topic)
		art.Sections = append(art.Sections, pipeline.Section{Heading: titles[i], Verified: true})
	}
	art.Document = "## Article Titles\n\n" + contract.FormatNumberedList(titles) + "\n"
	return art, nil
}
