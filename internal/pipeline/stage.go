// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"

	"github.com/pdiddy/article-engine/internal/contract"
)

// DefaultMaxAttempts is used when an Actor leaves MaxAttempts unset.
const DefaultMaxAttempts = 3

// Actor is the persona bound to a stage. Goal and Backstory may use the
// same template fields as a stage instruction.
type Actor struct {
	Name      string
	Role      string
	Goal      string
	Backstory string

	// MaxAttempts bounds the generation calls of one stage (default 3).
	MaxAttempts int

	// AllowDelegation is carried for prompt construction only; it never
	// changes execution order.
	AllowDelegation bool

	// Verbose logs every raw generation result at info level.
	Verbose bool
}

// Attempts returns the effective attempt budget.
func (a Actor) Attempts() int {
	if a.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return a.MaxAttempts
}

// Stage is one unit of generation work.
type Stage struct {
	// Name is unique within a pipeline.
	Name string

	Actor Actor

	// Instruction is a text/template resolved with PromptData.
	Instruction string

	// Contract is the shape the output must satisfy.
	Contract contract.Contract

	// DependsOn lists the stages whose outputs this stage reads. nil means
	// every earlier stage; an empty non-nil slice means none.
	DependsOn []string

	// Item binds the stage to the Item-th subtopic (1-based) of the topics
	// stage. Zero means the stage is not subtopic-specific.
	Item int

	// Optional stages that exhaust their attempts are skipped instead of
	// failing the run.
	Optional bool
}

// PromptData is the data available to instruction, goal and backstory
// templates.
type PromptData struct {
	Topic     string
	ItemCount int

	// Item and Subtopic are set for subtopic-bound stages.
	Item     int
	Subtopic string
}

// ItemName returns the stage name of base bound to subtopic item,
// e.g. ItemName("article", 2) == "article/02".
func ItemName(base string, item int) string {
	return fmt.Sprintf("%s/%02d", base, item)
}
