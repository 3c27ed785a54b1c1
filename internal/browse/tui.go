package browse

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

// Lines per job item in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

const describeTimeout = time.Minute

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

const (
	paneAll = iota
	paneMatched
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle   = headerStyle.Foreground(lipgloss.Color("39"))
	inactiveHeaderStyle = headerStyle.Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	jobTitleStyle    = lipgloss.NewStyle().Bold(true)
	jobSubtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(12)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	descDividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	descHintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	descBodyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Describer fetches a listing's description on demand.
type Describer interface {
	Describe(ctx context.Context, id string) (string, error)
}

// describedMsg is sent when an async description fetch completes.
type describedMsg struct {
	id          string
	description string
	err         error
}

type browseModel struct {
	title         string
	allJobs       []model.Job
	matchedJobs   []model.Job
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view           viewState
	detailJob      model.Job
	detailLoading  bool
	detailError    string
	detailViewport viewport.Model
	describer      Describer

	wantQuit bool
}

func newBrowseModel(title string, all, matched []model.Job, describer Describer) browseModel {
	return browseModel{
		title:       title,
		allJobs:     all,
		matchedJobs: matched,
		describer:   describer,
	}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case describedMsg:
		if msg.id != m.detailJob.ID {
			return m, nil
		}
		m.detailLoading = false
		if msg.err != nil {
			m.detailError = fmt.Sprintf("failed to load description: %v", msg.err)
		} else {
			m.detailError = ""
			m.detailJob.Description = msg.description
			m.updateJobInLists(m.detailJob)
		}
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	var cmd tea.Cmd
	if m.activePane == paneAll {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detailJob.URL)
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *browseModel) moveCursor(delta int) {
	if m.activePane == paneAll {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.allJobs)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.matchedJobs)-1, 0))
	}
}

func (m *browseModel) ensureCursorVisible() {
	vp, cursor := &m.leftViewport, m.leftCursor
	if m.activePane == paneMatched {
		vp, cursor = &m.rightViewport, m.rightCursor
	}

	top := cursor * jobItemHeight
	bottom := top + jobItemHeight - 1

	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m browseModel) openDetailView() (tea.Model, tea.Cmd) {
	jobs := m.activeJobs()
	if len(jobs) == 0 {
		return m, nil
	}

	job := jobs[m.activeCursor()]
	m.view = viewDetail
	m.detailJob = job
	m.detailError = ""
	m.detailLoading = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)

	var cmd tea.Cmd
	if m.describer != nil && !job.DescriptionFetched() {
		m.detailLoading = true
		cmd = m.describeCmd(job.ID)
	}
	m.detailViewport.SetContent(m.renderDetail())
	return m, cmd
}

func (m browseModel) describeCmd(id string) tea.Cmd {
	describer := m.describer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), describeTimeout)
		defer cancel()
		desc, err := describer.Describe(ctx, id)
		if err == nil && desc == "" {
			desc = model.DescriptionUnavailable
		}
		return describedMsg{id: id, description: desc, err: err}
	}
}

func (m *browseModel) updateJobInLists(job model.Job) {
	for _, list := range [][]model.Job{m.allJobs, m.matchedJobs} {
		for i := range list {
			if list[i].ID == job.ID {
				list[i] = job
				break
			}
		}
	}
}

func (m *browseModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	m.leftViewport.SetContent(renderJobs(m.allJobs, m.leftCursor, m.activePane == paneAll))
	m.rightViewport.SetContent(renderJobs(m.matchedJobs, m.rightCursor, m.activePane == paneMatched))
}

func (m browseModel) activeJobs() []model.Job {
	if m.activePane == paneAll {
		return m.allJobs
	}
	return m.matchedJobs
}

func (m browseModel) activeCursor() int {
	if m.activePane == paneAll {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" All Results (%d)", len(m.allJobs))
	rightHeader := fmt.Sprintf(" Matched (%d)", len(m.matchedJobs))

	leftHeaderStyle, rightHeaderStyle := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == paneMatched {
		leftHeaderStyle, rightHeaderStyle = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderStyle.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderStyle.Render(rightHeader)),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Width(paneWidth).Render(m.leftViewport.View()),
		" ",
		rightBorder.Width(paneWidth).Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %s | %d total | %d matched    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		m.title, len(m.allJobs), len(m.matchedJobs))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m browseModel) viewDetail() string {
	title := detailTitleStyle.Render("Listing")
	if m.detailLoading {
		title += "  (loading description...)"
	}

	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(" o open URL  esc/backspace back  ↑/↓ scroll  q quit")

	return title + "\n" + content + "\n" + statusBar
}

func (m browseModel) renderDetail() string {
	j := m.detailJob
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Title", j.Title)
	addField("Company", j.Company)
	addField("Location", j.Location)
	addField("Posted", j.PostingAge)
	addField("Job ID", j.ID)
	addField("URL", j.URL)

	if m.detailError != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+m.detailError) + "\n")
	}

	wrapWidth := max(m.width-8, 20)
	b.WriteByte('\n')
	label := "── Description "
	b.WriteString(descDividerStyle.Render(label+strings.Repeat("─", max(wrapWidth-len(label), 3))) + "\n\n")

	switch {
	case j.DescriptionFetched():
		b.WriteString(descBodyStyle.Render(wrapLines(j.Description, wrapWidth)) + "\n")
	case m.detailLoading:
		b.WriteString(descHintStyle.Render("  fetching description...") + "\n")
	default:
		b.WriteString(descHintStyle.Render("  no description loaded") + "\n")
	}

	return b.String()
}

func renderJobs(jobs []model.Job, cursor int, isActive bool) string {
	if len(jobs) == 0 {
		return "  (no listings)"
	}

	var b strings.Builder
	for i, j := range jobs {
		titleSt, subtitleSt, prefix := jobTitleStyle, jobSubtitleStyle, "  "
		if isActive && i == cursor {
			titleSt, subtitleSt, prefix = selectedJobTitleStyle, selectedJobSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(j.Title))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(subtitle(j)))
		b.WriteByte('\n')

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func subtitle(j model.Job) string {
	parts := []string{j.Company}
	if j.Location != "" {
		parts = append(parts, j.Location)
	}
	if j.PostingAge != "" {
		parts = append(parts, j.PostingAge)
	}
	return strings.Join(parts, " · ")
}

// wrapLines word-wraps each line of text independently so bullet lines
// keep their own rows.
func wrapLines(text string, width int) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wordWrap(line, width)
	}
	return strings.Join(lines, "\n")
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunBrowseTUI launches the split-pane browser over one search result.
// matched holds the subset that passed the configured filters. describer may
// be nil, in which case descriptions are never fetched on demand.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed
// esc to return to the picker.
func RunBrowseTUI(title string, all, matched []model.Job, describer Describer) (bool, error) {
	m := newBrowseModel(title, all, matched, describer)

	result, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	return result.(browseModel).wantQuit, nil
}
