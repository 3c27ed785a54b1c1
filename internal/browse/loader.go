package browse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

// ErrCancelled is returned by RunLoader when the user aborts with ctrl+c.
var ErrCancelled = errors.New("cancelled")

const loadTimeout = 2 * time.Minute

type searchDoneMsg struct {
	result model.SearchResult
	err    error
}

type loaderModel struct {
	label   string
	search  func(ctx context.Context) (model.SearchResult, error)
	spinner spinner.Model
	result  model.SearchResult
	err     error
	done    bool
}

func newLoader(label string, search func(ctx context.Context) (model.SearchResult, error)) loaderModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	return loaderModel{label: label, search: search, spinner: s}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doSearch(), m.spinner.Tick)
}

func (m loaderModel) doSearch() tea.Cmd {
	search := m.search
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		res, err := search(ctx)
		return searchDoneMsg{result: res, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case searchDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Searching %s...\n", m.spinner.View(), m.label)
}

// RunLoader shows a spinner while the search runs. It renders inline (no alt screen).
func RunLoader(label string, search func(ctx context.Context) (model.SearchResult, error)) (model.SearchResult, error) {
	result, err := tea.NewProgram(newLoader(label, search)).Run()
	if err != nil {
		return model.SearchResult{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
