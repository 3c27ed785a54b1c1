package browse

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/config"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

const (
	pickerPending = -1
	pickerQuit    = -2
)

type pickerModel struct {
	watches []config.WatchConfig
	cursor  int
	chosen  int
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		m.chosen = pickerQuit
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.watches)-1 {
			m.cursor++
		}
	case "enter":
		m.chosen = m.cursor
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Browse: select a watch"))
	b.WriteByte('\n')

	for i, w := range m.watches {
		label := watchLabel(w)
		if i == m.cursor {
			b.WriteString(pickerSelectedStyle.Render("> " + label))
		} else {
			b.WriteString(pickerItemStyle.Render(label))
		}
		b.WriteByte('\n')
	}

	b.WriteString(pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit"))
	return b.String()
}

func watchLabel(w config.WatchConfig) string {
	label := fmt.Sprintf("%s: %q", w.Name, w.Keywords)
	if w.Location != "" {
		label += " in " + w.Location
	}
	if !w.Enabled {
		label += " (disabled)"
	}
	return label
}

// RunWatchPicker shows an interactive watch selector.
// Returns the index of the chosen watch, or -1 if the user quit.
func RunWatchPicker(watches []config.WatchConfig) (int, error) {
	m := pickerModel{
		watches: watches,
		chosen:  pickerPending,
	}

	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return -1, err
	}

	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}
