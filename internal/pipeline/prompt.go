// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// boundStage is a Stage with its templates parsed and its dependencies
// resolved to concrete stage names.
type boundStage struct {
	Stage

	instruction *template.Template
	goal        *template.Template
	backstory   *template.Template

	// deps are the declared dependencies. When implicit is true they were
	// derived from "every earlier stage" and optional ones may be absent.
	deps     []string
	implicit bool
}

func parseTemplate(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").Parse(text)
}

func execute(t *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// persona renders the actor's system instructions.
func (b *boundStage) persona(data PromptData) (string, error) {
	goal, err := execute(b.goal, data)
	if err != nil {
		return "", fmt.Errorf("rendering goal of actor %s: %w", b.Actor.Name, err)
	}
	backstory, err := execute(b.backstory, data)
	if err != nil {
		return "", fmt.Errorf("rendering backstory of actor %s: %w", b.Actor.Name, err)
	}

	var s strings.Builder
	fmt.Fprintf(&s, "You are the %s.\n", b.Actor.Role)
	if goal != "" {
		fmt.Fprintf(&s, "Goal: %s\n", goal)
	}
	if backstory != "" {
		fmt.Fprintf(&s, "Backstory: %s\n", backstory)
	}
	s.WriteString("Work alone on the task you are given and answer with the requested output only.")
	return s.String(), nil
}

// prompt renders the instruction, the expected output and the text of
// every dependency present in the store.
func (b *boundStage) prompt(data PromptData, store *Store) (string, error) {
	instruction, err := execute(b.instruction, data)
	if err != nil {
		return "", fmt.Errorf("rendering instruction: %w", err)
	}

	var s strings.Builder
	s.WriteString(instruction)
	fmt.Fprintf(&s, "\n\nExpected output: %s.", b.Contract.Describe())

	var upstream []Entry
	for _, dep := range b.deps {
		if e, ok := store.Get(dep); ok {
			upstream = append(upstream, e)
		}
	}
	if len(upstream) > 0 {
		s.WriteString("\n\nContext from earlier stages:")
		for _, e := range upstream {
			fmt.Fprintf(&s, "\n\n--- %s ---\n%s", e.Stage, e.Text)
		}
	}
	return s.String(), nil
}

// withFeedback appends the reason the previous answer was rejected.
func withFeedback(prompt string, rejection error, hint string) string {
	if rejection == nil {
		return prompt
	}
	return fmt.Sprintf("%s\n\nYour previous answer was rejected: %v\nAnswer again and make sure the output is %s.", prompt, rejection, hint)
}
