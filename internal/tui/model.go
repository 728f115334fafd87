// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/session"
	"github.com/verte-zerg/sayit/internal/store"
)

// Runner runs one practice session.
type Runner interface {
	Run(ctx context.Context, req model.SessionRequest, emit session.Emitter) (model.SessionResult, error)
}

// Leaderboard lists the top results shown after a session.
type Leaderboard interface {
	Leaderboard(ctx context.Context) ([]model.ResultRecord, error)
}

// EventMsg delivers a session event to the model.
type EventMsg session.Event

// DoneMsg reports that the session engine has returned.
type DoneMsg struct {
	Result model.SessionResult
	Err    error
}

type leaderboardMsg struct {
	records []model.ResultRecord
	err     error
}

type phase int

const (
	phaseStarting phase = iota
	phasePrompt
	phaseListening
	phaseScored
	phaseDone
)

// Model implements the Bubble Tea practice UI.
type Model struct {
	req         model.SessionRequest
	leaderboard Leaderboard
	cancel      context.CancelFunc

	width  int
	height int

	spinner spinner.Model
	board   table.Model

	phase       phase
	index       int
	total       int
	targetRunes []rune
	matched     []bool
	scored      bool
	spoken      string
	similarity  float64
	attempt     int
	maxAttempts int
	status      string
	statusStyle lipgloss.Style

	marks  []bool
	score  int
	result *model.SessionResult
	err    error

	boardErr    error
	boardLoaded bool
}

var (
	matchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	missedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

var languageLabels = map[string]string{
	"en": "English",
	"hi": "Hindi",
}

// NewModel constructs a practice model. cancel aborts the running session
// when the learner quits.
func NewModel(req model.SessionRequest, leaderboard Leaderboard, cancel context.CancelFunc) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(goodStyle))
	return &Model{
		req:         req,
		leaderboard: leaderboard,
		cancel:      cancel,
		spinner:     sp,
		status:      "Preparing session...",
		statusStyle: infoStyle,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit()
			return m, tea.Quit
		case tea.KeyEnter:
			if m.phase == phaseDone {
				return m, tea.Quit
			}
		case tea.KeyRunes:
			if string(msg.Runes) == "q" {
				m.quit()
				return m, tea.Quit
			}
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case EventMsg:
		return m, m.handleEvent(session.Event(msg))
	case DoneMsg:
		return m, m.handleDone(msg)
	case leaderboardMsg:
		m.boardLoaded = true
		m.boardErr = msg.err
		if msg.err == nil {
			m.board = newBoardTable(msg.records)
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) quit() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Model) handleEvent(ev session.Event) tea.Cmd {
	switch ev.Type {
	case session.EventPrompt:
		m.phase = phasePrompt
		m.index = ev.Index
		m.total = ev.Total
		m.targetRunes = []rune(ev.Text)
		m.matched = nil
		m.scored = false
		m.spoken = ""
		m.similarity = 0
		m.attempt = 0
		m.setStatus("Get ready...", infoStyle)
	case session.EventListening:
		m.phase = phaseListening
		m.attempt = ev.Attempt
		m.maxAttempts = ev.MaxAttempts
		m.setStatus(fmt.Sprintf("Listening... attempt %d/%d", ev.Attempt, ev.MaxAttempts), infoStyle)
	case session.EventTimeout:
		m.phase = phaseScored
		m.setStatus(fmt.Sprintf("Didn't catch that (attempt %d)", ev.Attempt), badStyle)
	case session.EventCorrect:
		m.score++
		m.showSpoken(ev)
		m.setStatus(fmt.Sprintf("Correct! %s", similarityLabel(ev.Similarity)), goodStyle)
		m.marks = append(m.marks, true)
	case session.EventIncorrect:
		m.showSpoken(ev)
		m.setStatus(fmt.Sprintf("Try again (%d/%d) %s", ev.Attempt, ev.MaxAttempts, similarityLabel(ev.Similarity)), badStyle)
	case session.EventFailed:
		m.phase = phaseScored
		m.setStatus(fmt.Sprintf("Moving on. The prompt was %q", ev.Text), badStyle)
		m.marks = append(m.marks, false)
	case session.EventComplete:
		m.score = ev.Score
		m.total = ev.Total
		m.setStatus(fmt.Sprintf("Session complete: %d/%d", ev.Score, ev.Total), goodStyle)
	case session.EventError:
		m.setStatus(ev.Message, badStyle)
	}
	// Nothing is listening once the stream has ended.
	if ev.Terminal() && m.phase != phaseDone {
		m.phase = phaseScored
	}
	return nil
}

func (m *Model) showSpoken(ev session.Event) {
	m.phase = phaseScored
	m.spoken = ev.Spoken
	m.similarity = ev.Similarity
	m.matched = matchedRunes(m.targetRunes, ev.Spoken)
	m.scored = true
}

func (m *Model) setStatus(text string, style lipgloss.Style) {
	m.status = text
	m.statusStyle = style
}

func (m *Model) handleDone(msg DoneMsg) tea.Cmd {
	m.phase = phaseDone
	switch {
	case msg.Err == nil, errors.Is(msg.Err, session.ErrPersistence):
		res := msg.Result
		m.result = &res
		m.err = msg.Err
	default:
		m.err = msg.Err
		return nil
	}
	if m.leaderboard == nil {
		return nil
	}
	board := m.leaderboard
	return func() tea.Msg {
		records, err := board.Leaderboard(context.Background())
		return leaderboardMsg{records: records, err: err}
	}
}

func similarityLabel(sim float64) string {
	return fmt.Sprintf("· %.0f%% match", sim*100)
}

// View implements tea.Model.
func (m *Model) View() string {
	var sections []string
	sections = append(sections, headerStyle.Render(m.renderHeader()))

	if m.phase == phaseDone {
		sections = append(sections, m.renderSummary())
	} else if len(m.targetRunes) > 0 {
		sections = append(sections, m.renderPrompt())
	}

	status := m.statusStyle.Render(m.status)
	if m.phase == phaseListening || m.phase == phaseStarting {
		status = m.spinner.View() + " " + status
	}
	if m.phase != phaseDone {
		sections = append(sections, status)
		if m.spoken != "" {
			sections = append(sections, infoStyle.Render(fmt.Sprintf("Heard: %q", m.spoken)))
		}
	}
	sections = append(sections, footerStyle.Render(m.renderFooter()))

	content := strings.Join(sections, "\n\n")
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderHeader() string {
	lang := languageLabels[m.req.Language]
	if lang == "" {
		lang = m.req.Language
	}
	parts := []string{fmt.Sprintf("%s · %s %ss", m.req.LearnerName, lang, m.req.Mode)}
	if m.total > 0 {
		parts = append(parts, fmt.Sprintf("Prompt %d/%d", m.index, m.total))
		parts = append(parts, fmt.Sprintf("Score %d", m.score))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderPrompt() string {
	styled := buildStyledRunes(m.targetRunes, m.matched, m.scored)
	if m.width == 0 {
		return renderStyledRunes(styled)
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	return lipgloss.NewStyle().Width(contentWidth).Render(wrapStyledRunes(styled, contentWidth))
}

func (m *Model) renderSummary() string {
	if m.result == nil {
		msg := "Session ended."
		if m.err != nil {
			msg = m.err.Error()
		}
		return badStyle.Render(msg)
	}
	lines := []string{goodStyle.Render(fmt.Sprintf("Score %d/%d (%.1f%%)", m.result.Score, m.result.Total, m.result.Accuracy()*100))}
	if m.err != nil {
		lines = append(lines, badStyle.Render("Result was not saved: "+m.err.Error()))
	}
	switch {
	case m.boardErr != nil:
		lines = append(lines, badStyle.Render("Leaderboard unavailable: "+m.boardErr.Error()))
	case m.boardLoaded:
		lines = append(lines, "Leaderboard", m.board.View())
	}
	return strings.Join(lines, "\n")
}

// renderFooter shows one mark per finished prompt and the remaining ones.
func (m *Model) renderFooter() string {
	hint := "q to quit"
	if m.phase == phaseDone {
		hint = "enter to exit"
	}
	if m.total == 0 {
		return hint
	}
	var b strings.Builder
	for _, cleared := range m.marks {
		if cleared {
			b.WriteString("✓ ")
		} else {
			b.WriteString("✗ ")
		}
	}
	for i := len(m.marks); i < m.total; i++ {
		b.WriteString("· ")
	}
	return strings.TrimSpace(b.String()) + "  " + hint
}

func newBoardTable(records []model.ResultRecord) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Learner", Width: 16},
		{Title: "Lang", Width: 4},
		{Title: "Mode", Width: 8},
		{Title: "Score", Width: 7},
		{Title: "When", Width: 19},
	}
	rows := make([]table.Row, 0, len(records))
	for i, rec := range records {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			rec.LearnerName,
			rec.Language,
			string(rec.Mode),
			fmt.Sprintf("%d/%d", rec.Score, rec.Total),
			rec.Timestamp.Format(store.TimestampLayout),
		})
	}
	height := len(rows) + 1
	if height < 2 {
		height = 2
	}
	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(height),
	)
}

// Run drives a session through the engine while rendering it. Quitting
// cancels the session.
func Run(ctx context.Context, runner Runner, leaderboard Leaderboard, req model.SessionRequest) (model.SessionResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(req, leaderboard, cancel)
	program := tea.NewProgram(m, tea.WithAltScreen())

	var (
		res    model.SessionResult
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		emit := session.EmitterFunc(func(_ context.Context, ev session.Event) error {
			program.Send(EventMsg(ev))
			return nil
		})
		res, runErr = runner.Run(ctx, req, emit)
		program.Send(DoneMsg{Result: res, Err: runErr})
	}()

	_, err := program.Run()
	cancel()
	<-done
	if err != nil {
		return res, fmt.Errorf("failed to run TUI: %w", err)
	}
	return res, runErr
}
