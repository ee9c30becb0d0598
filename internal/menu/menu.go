// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package menu is the interactive front end: the user picks an action and,
// for the generators, enters a topic and an item count.
package menu

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Action is a menu entry.
type Action int

const (
	ActionTitles Action = iota
	ActionArticles
	ActionPackage
	ActionExit
)

var labels = []string{
	ActionTitles:   "Article Title Generator",
	ActionArticles: "Article Generator",
	ActionPackage:  "Package Files",
	ActionExit:     "Exit",
}

func (a Action) String() string {
	if int(a) < len(labels) {
		return labels[a]
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Selection is what the user asked for.
type Selection struct {
	Action Action
	Topic  string
	Count  int
}

type step int

const (
	stepChoose step = iota
	stepTopic
	stepCount
	stepDone
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6BCB77")).MarginBottom(1)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4D96FF")).Bold(true)
	itemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D"))
)

// Model is the bubbletea model for one menu pass.
type Model struct {
	cursor int
	step   step
	topic  textinput.Model
	count  textinput.Model
	sel    Selection
	err    string
}

// New returns a menu with the topic and count inputs prefilled from
// defaults.
func New(defaults Selection) Model {
	topic := textinput.New()
	topic.Placeholder = "e.g. renewable energy"
	topic.CharLimit = 200
	topic.Width = 50
	topic.SetValue(defaults.Topic)

	count := textinput.New()
	count.Placeholder = "3"
	count.CharLimit = 3
	count.Width = 5
	if defaults.Count > 0 {
		count.SetValue(strconv.Itoa(defaults.Count))
	}

	return Model{topic: topic, count: count}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.Type == tea.KeyCtrlC {
		return m.finish(ActionExit)
	}

	switch m.step {
	case stepChoose:
		return m.updateChoose(key)
	case stepTopic:
		return m.updateTopic(key)
	case stepCount:
		return m.updateCount(key)
	}
	return m, nil
}

func (m Model) updateChoose(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(labels)-1 {
			m.cursor++
		}
	case "q", "esc":
		return m.finish(ActionExit)
	case "1", "2", "3", "4":
		m.cursor = int(key.Runes[0] - '1')
		return m.choose()
	case "enter":
		return m.choose()
	}
	return m, nil
}

func (m Model) choose() (tea.Model, tea.Cmd) {
	action := Action(m.cursor)
	m.sel.Action = action
	switch action {
	case ActionTitles, ActionArticles:
		m.step = stepTopic
		m.err = ""
		return m, m.topic.Focus()
	}
	return m.finish(action)
}

func (m Model) updateTopic(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.topic.Blur()
		m.step = stepChoose
		m.err = ""
		return m, nil
	case tea.KeyEnter:
		topic := strings.TrimSpace(m.topic.Value())
		if topic == "" {
			m.err = "topic must not be empty"
			return m, nil
		}
		m.sel.Topic = topic
		m.topic.Blur()
		m.step = stepCount
		m.err = ""
		return m, m.count.Focus()
	}
	var cmd tea.Cmd
	m.topic, cmd = m.topic.Update(key)
	return m, cmd
}

func (m Model) updateCount(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.count.Blur()
		m.step = stepTopic
		m.err = ""
		return m, m.topic.Focus()
	case tea.KeyEnter:
		n, err := strconv.Atoi(strings.TrimSpace(m.count.Value()))
		if err != nil || n < 1 {
			m.err = "enter a whole number of at least 1"
			return m, nil
		}
		m.sel.Count = n
		m.count.Blur()
		return m.finish(m.sel.Action)
	}
	var cmd tea.Cmd
	m.count, cmd = m.count.Update(key)
	return m, cmd
}

func (m Model) finish(action Action) (tea.Model, tea.Cmd) {
	m.sel.Action = action
	m.step = stepDone
	return m, tea.Quit
}

// View implements tea.Model.
func (m Model) View() string {
	if m.step == stepDone {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("ARTICLE ENGINE"))
	b.WriteString("\n")

	switch m.step {
	case stepChoose:
		for i, label := range labels {
			line := fmt.Sprintf("%d. %s", i+1, label)
			if i == m.cursor {
				b.WriteString(cursorStyle.Render("> " + line))
			} else {
				b.WriteString(itemStyle.Render("  " + line))
			}
			b.WriteString("\n")
		}
		b.WriteString(hintStyle.Render("up/down to move, enter to select, q to quit"))
	case stepTopic:
		b.WriteString(selectedStyle.Render(m.sel.Action.String()))
		b.WriteString("\n\nTopic:\n")
		b.WriteString(m.topic.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("enter to continue, esc to go back"))
	case stepCount:
		b.WriteString(selectedStyle.Render(fmt.Sprintf("%s: %s", m.sel.Action, m.sel.Topic)))
		b.WriteString("\n\nNumber of subtopics:\n")
		b.WriteString(m.count.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("enter to start, esc to go back"))
	}
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err))
	}
	b.WriteString("\n")
	return b.String()
}

// Selection returns the user's choice once the menu has finished.
func (m Model) Selection() (Selection, bool) {
	return m.sel, m.step == stepDone
}

// Run shows the menu on in/out and returns the selection. Interrupting
// the program selects ActionExit.
func Run(in io.Reader, out io.Writer, defaults Selection) (Selection, error) {
	p := tea.NewProgram(New(defaults), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return Selection{Action: ActionExit}, fmt.Errorf("running menu: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return Selection{Action: ActionExit}, nil
	}
	sel, done := m.Selection()
	if !done {
		sel.Action = ActionExit
	}
	return sel, nil
}
