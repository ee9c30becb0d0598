// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crew defines the article workflow as data: a set of actors and
// a list of stage templates, loaded from YAML. The built-in definition is
// embedded; a file can replace it. A definition is expanded into concrete
// pipeline stages for a given subtopic count.
package crew

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/article-engine/internal/compile"
	"github.com/pdiddy/article-engine/internal/contract"
	"github.com/pdiddy/article-engine/internal/generate"
	"github.com/pdiddy/article-engine/internal/pipeline"
	"github.com/pdiddy/article-engine/pkg/types"
)

//go:embed crew.yaml
var defaultDefinition []byte

// Stage scopes.
const (
	// ScopeRun stages execute once per run.
	ScopeRun = "run"
	// ScopeItem stages execute once per subtopic, named base/NN.
	ScopeItem = "item"
)

// Contract kinds.
const (
	KindNumberedList = "numbered_list"
	KindHasHeadings  = "has_headings"
	KindWordCount    = "word_count"
	KindURLList      = "url_list"
)

// Definition is the on-disk form of a crew.
type Definition struct {
	Actors   []ActorDef  `yaml:"actors"`
	Stages   []StageDef  `yaml:"stages"`
	Compiler CompilerDef `yaml:"compiler,omitempty"`
}

// ActorDef describes one persona.
type ActorDef struct {
	Name            string `yaml:"name"`
	Role            string `yaml:"role"`
	Goal            string `yaml:"goal"`
	Backstory       string `yaml:"backstory"`
	MaxAttempts     int    `yaml:"max_attempts,omitempty"`
	AllowDelegation bool   `yaml:"allow_delegation,omitempty"`
	Verbose         bool   `yaml:"verbose,omitempty"`
}

// Deps keeps the difference between an absent depends_on (every earlier
// stage) and an empty one (no dependencies) through a YAML round trip.
type Deps []string

// IsZero reports whether the list was never set.
func (d Deps) IsZero() bool { return d == nil }

// StageDef is a stage template. Item-scoped stages expand into one stage
// per subtopic.
type StageDef struct {
	Name        string      `yaml:"name"`
	Actor       string      `yaml:"actor"`
	Scope       string      `yaml:"scope,omitempty"`
	Topics      bool        `yaml:"topics,omitempty"`
	DependsOn   Deps        `yaml:"depends_on,omitempty,flow"`
	Optional    bool        `yaml:"optional,omitempty"`
	Instruction string      `yaml:"instruction"`
	Contract    ContractDef `yaml:"contract"`
}

// ContractDef selects and parameterizes an output contract. Zero counts
// fall back to the run settings: the subtopic count for numbered lists and
// the configured article length for word counts.
type ContractDef struct {
	Kind     string   `yaml:"kind"`
	Count    int      `yaml:"count,omitempty"`
	AtLeast  bool     `yaml:"at_least,omitempty"`
	Headings []string `yaml:"headings,omitempty,flow"`
	MinWords int      `yaml:"min_words,omitempty"`
	MaxWords int      `yaml:"max_words,omitempty"`
	MinURLs  int      `yaml:"min_urls,omitempty"`
}

// CompilerDef names the stages the article compiler reads. Empty fields
// keep the compile package defaults.
type CompilerDef struct {
	ResearchStage string `yaml:"research_stage,omitempty"`
	LinksStage    string `yaml:"links_stage,omitempty"`
	ArticleStage  string `yaml:"article_stage,omitempty"`
	CheckStage    string `yaml:"check_stage,omitempty"`
	OverviewStage string `yaml:"overview_stage,omitempty"`
}

// Default returns the built-in crew.
func Default() (*Definition, error) {
	def, err := Parse(defaultDefinition)
	if err != nil {
		return nil, fmt.Errorf("built-in crew: %w", err)
	}
	return def, nil
}

// Load reads a crew definition from path. An empty path returns the
// built-in crew.
func Load(path string) (*Definition, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading crew file: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("crew file %s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a YAML crew definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing crew YAML: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Marshal renders the definition as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling crew YAML: %w", err)
	}
	return data, nil
}

// Validate checks the parts of a definition that do not depend on the run
// settings. Stage wiring (order, duplicate expanded names) is checked
// again by pipeline.New.
func (d *Definition) Validate() error {
	if len(d.Stages) == 0 {
		return fmt.Errorf("crew has no stages")
	}
	actors := make(map[string]bool, len(d.Actors))
	for _, a := range d.Actors {
		if a.Name == "" {
			return fmt.Errorf("actor with role %q has no name", a.Role)
		}
		if actors[a.Name] {
			return fmt.Errorf("duplicate actor %q", a.Name)
		}
		if a.Role == "" {
			return fmt.Errorf("actor %q has no role", a.Name)
		}
		actors[a.Name] = true
	}

	scopes := make(map[string]string, len(d.Stages))
	topics := ""
	for _, s := range d.Stages {
		if s.Name == "" {
			return fmt.Errorf("stage with actor %q has no name", s.Actor)
		}
		if _, dup := scopes[s.Name]; dup {
			return fmt.Errorf("duplicate stage %q", s.Name)
		}
		if !actors[s.Actor] {
			return fmt.Errorf("stage %q: unknown actor %q", s.Name, s.Actor)
		}
		switch s.scope() {
		case ScopeRun, ScopeItem:
		default:
			return fmt.Errorf("stage %q: unknown scope %q", s.Name, s.Scope)
		}
		if s.Topics {
			if topics != "" {
				return fmt.Errorf("stage %q: %q is already the topics stage", s.Name, topics)
			}
			if s.scope() != ScopeRun {
				return fmt.Errorf("stage %q: the topics stage must be run-scoped", s.Name)
			}
			if s.Contract.Kind != KindNumberedList {
				return fmt.Errorf("stage %q: the topics stage needs a %s contract", s.Name, KindNumberedList)
			}
			topics = s.Name
		}
		if s.scope() == ScopeItem && topics == "" {
			return fmt.Errorf("stage %q: item-scoped stages need an earlier topics stage", s.Name)
		}
		if _, err := s.Contract.build(1, 1, 1); err != nil {
			return fmt.Errorf("stage %q: %w", s.Name, err)
		}
		scopes[s.Name] = s.scope()
	}
	return nil
}

func (s StageDef) scope() string {
	if s.Scope == "" {
		return ScopeRun
	}
	return s.Scope
}

// TopicsStage returns the name of the stage that produces the subtopic
// list, or "" when the crew has none.
func (d *Definition) TopicsStage() string {
	for _, s := range d.Stages {
		if s.Topics {
			return s.Name
		}
	}
	return ""
}

// Titles returns a crew containing only the topics stage and its actor,
// for generating a list of article titles.
func (d *Definition) Titles() (*Definition, error) {
	name := d.TopicsStage()
	if name == "" {
		return nil, fmt.Errorf("crew has no topics stage")
	}
	out := &Definition{}
	for _, s := range d.Stages {
		if s.Name != name {
			continue
		}
		s.DependsOn = Deps{}
		out.Stages = []StageDef{s}
		for _, a := range d.Actors {
			if a.Name == s.Actor {
				out.Actors = []ActorDef{a}
			}
		}
	}
	return out, nil
}

// Expand returns the concrete stages for a run with itemCount subtopics.
// Item-scoped stages are expanded in declaration order, each across every
// subtopic, so all research precedes all links. An item-scoped dependency
// of an item-scoped stage resolves to the same subtopic; of a run-scoped
// stage, to every subtopic.
func (d *Definition) Expand(itemCount, minWords, maxWords int) ([]pipeline.Stage, error) {
	if itemCount < 1 {
		return nil, fmt.Errorf("item count must be at least 1, got %d", itemCount)
	}
	actors := make(map[string]pipeline.Actor, len(d.Actors))
	for _, a := range d.Actors {
		actors[a.Name] = pipeline.Actor{
			Name:            a.Name,
			Role:            a.Role,
			Goal:            a.Goal,
			Backstory:       a.Backstory,
			MaxAttempts:     a.MaxAttempts,
			AllowDelegation: a.AllowDelegation,
			Verbose:         a.Verbose,
		}
	}
	scopes := make(map[string]string, len(d.Stages))
	for _, s := range d.Stages {
		scopes[s.Name] = s.scope()
	}

	var stages []pipeline.Stage
	for _, s := range d.Stages {
		c, err := s.Contract.build(itemCount, minWords, maxWords)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, err)
		}
		if s.scope() == ScopeRun {
			stages = append(stages, pipeline.Stage{
				Name:        s.Name,
				Actor:       actors[s.Actor],
				Instruction: s.Instruction,
				Contract:    c,
				DependsOn:   resolveDeps(s.DependsOn, 0, itemCount, scopes),
				Optional:    s.Optional,
			})
			continue
		}
		for item := 1; item <= itemCount; item++ {
			stages = append(stages, pipeline.Stage{
				Name:        pipeline.ItemName(s.Name, item),
				Actor:       actors[s.Actor],
				Instruction: s.Instruction,
				Contract:    c,
				DependsOn:   resolveDeps(s.DependsOn, item, itemCount, scopes),
				Item:        item,
				Optional:    s.Optional,
			})
		}
	}
	return stages, nil
}

// resolveDeps maps declared dependency names to expanded stage names. A
// nil list stays nil. Unknown names pass through for pipeline.New to
// reject.
func resolveDeps(deps Deps, item, itemCount int, scopes map[string]string) []string {
	if deps == nil {
		return nil
	}
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		if scopes[dep] != ScopeItem {
			out = append(out, dep)
			continue
		}
		if item > 0 {
			out = append(out, pipeline.ItemName(dep, item))
			continue
		}
		for i := 1; i <= itemCount; i++ {
			out = append(out, pipeline.ItemName(dep, i))
		}
	}
	return out
}

func (c ContractDef) build(itemCount, minWords, maxWords int) (contract.Contract, error) {
	switch c.Kind {
	case KindNumberedList:
		count := c.Count
		if count == 0 {
			count = itemCount
		}
		return contract.NumberedList{Count: count, AtLeast: c.AtLeast}, nil
	case KindHasHeadings:
		if len(c.Headings) == 0 {
			return nil, fmt.Errorf("%s contract lists no headings", c.Kind)
		}
		return contract.HasHeadings{Headings: c.Headings}, nil
	case KindWordCount:
		lo, hi := c.MinWords, c.MaxWords
		if lo == 0 && hi == 0 {
			lo, hi = minWords, maxWords
		}
		if lo < 0 || (hi > 0 && hi < lo) {
			return nil, fmt.Errorf("invalid word range [%d,%d]", lo, hi)
		}
		return contract.WordCountRange{Min: lo, Max: hi}, nil
	case KindURLList:
		return contract.URLList{Min: c.MinURLs}, nil
	case "":
		return nil, fmt.Errorf("no contract kind")
	default:
		return nil, fmt.Errorf("unknown contract kind %q", c.Kind)
	}
}

// ArticleCompiler returns the article compiler with this crew's stage
// names.
func (d *Definition) ArticleCompiler() *compile.Articles {
	a := compile.NewArticles()
	if d.Compiler.ResearchStage != "" {
		a.ResearchStage = d.Compiler.ResearchStage
	}
	if d.Compiler.LinksStage != "" {
		a.LinksStage = d.Compiler.LinksStage
	}
	if d.Compiler.ArticleStage != "" {
		a.ArticleStage = d.Compiler.ArticleStage
	}
	if d.Compiler.CheckStage != "" {
		a.CheckStage = d.Compiler.CheckStage
	}
	if d.Compiler.OverviewStage != "" {
		a.OverviewStage = d.Compiler.OverviewStage
	}
	return a
}

// NewPipeline expands the crew for cfg and builds the article pipeline.
// Definition and expansion errors are returned as ConfigurationError
// failures, like the wiring errors of pipeline.New.
func NewPipeline(gen generate.Generator, def *Definition, cfg types.PipelineConfig, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	return build(gen, def, cfg, def.ArticleCompiler(), opts)
}

// NewTitlesPipeline builds a pipeline that runs only the topics stage and
// compiles the titles it produces.
func NewTitlesPipeline(gen generate.Generator, def *Definition, cfg types.PipelineConfig, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	titles, err := def.Titles()
	if err != nil {
		return nil, &pipeline.Failure{Kind: pipeline.ConfigurationError, Err: err}
	}
	return build(gen, titles, cfg, compile.Titles{}, opts)
}

func build(gen generate.Generator, def *Definition, cfg types.PipelineConfig, c pipeline.Compiler, opts []pipeline.Option) (*pipeline.Pipeline, error) {
	if err := def.Validate(); err != nil {
		return nil, &pipeline.Failure{Kind: pipeline.ConfigurationError, Err: err}
	}
	stages, err := def.Expand(cfg.ItemCount, cfg.MinWords, cfg.MaxWords)
	if err != nil {
		return nil, &pipeline.Failure{Kind: pipeline.ConfigurationError, Err: err}
	}
	base := []pipeline.Option{
		pipeline.WithCompiler(c),
		pipeline.WithTopicsStage(def.TopicsStage()),
	}
	if cfg.MaxAttempts > 0 {
		base = append(base, pipeline.WithMaxAttempts(cfg.MaxAttempts))
	}
	return pipeline.New(gen, stages, append(base, opts...)...)
}
