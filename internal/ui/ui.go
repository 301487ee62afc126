package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/alx/internal/formatter"
	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	MigrateView
	ResultView
)

// EngineFactory builds an engine for one run.
type EngineFactory func(dryRun bool) tasks.MigrationEngine

// FinishFunc is called from the run goroutine once Begin returns.
type FinishFunc func(dir models.Direction, dryRun bool, result *tasks.RunResult, err error)

// Options configures a [Model].
type Options struct {
	Token        string
	Direction    models.Direction
	DeletePolicy tasks.DeletePolicy
	DryRun       bool
	NewEngine    EngineFactory
	OnFinish     FinishFunc
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	view   ViewState

	width  int
	height int

	progressChan chan tasks.ProgressUpdate
	doneChan     chan migrationResult
	running      chan struct{}

	last     tasks.ProgressUpdate
	outcomes []models.Outcome
	result   *tasks.RunResult
	err      error

	bar         progress.Model
	spinner     spinner.Model
	outcomeList list.Model
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = tasks.DeleteAlways
	}

	return &Model{
		ctx:     ctx,
		opts:    opts,
		view:    ConfirmView,
		bar:     progress.New(progress.WithGradient("#3DB4F2", "#C063FF")),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init does nothing until the run is confirmed.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-8, 10)
		if m.view == ResultView {
			m.outcomeList.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case MigrateView:
			return m.handleMigrateKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != MigrateView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.last = update
			if update.Outcome != nil {
				m.outcomes = append(m.outcomes, *update.Outcome)
			}
			return m, m.waitForProgress()

		case MsgMigrationComplete:
			done := msg.data.(migrationResult)
			m.result = done.result
			m.err = done.err
			if done.result != nil {
				m.outcomes = done.result.Outcomes
			}
			m.progressChan = nil
			m.showResults()
			return m, nil
		}
	}

	if m.view == ResultView {
		var cmd tea.Cmd
		m.outcomeList, cmd = m.outcomeList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case MigrateView:
		return m.renderMigrate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Wait blocks until a started run has finished and its [FinishFunc] has returned.
func (m *Model) Wait() {
	if m.running != nil {
		<-m.running
	}
}

// Err is the error of the last run, if any.
func (m *Model) Err() error {
	return m.err
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no):
		return m, tea.Quit
	case key.Matches(msg, m.keys.swap):
		m.opts.Direction = models.Direction{Source: m.opts.Direction.Destination, Destination: m.opts.Direction.Source}
	case key.Matches(msg, m.keys.dryRun):
		m.opts.DryRun = !m.opts.DryRun
	case key.Matches(msg, m.keys.yes):
		m.view = MigrateView
		return m, tea.Batch(m.startMigration(), m.spinner.Tick)
	}
	return m, nil
}

func (m *Model) handleMigrateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && m.cancel != nil {
		m.cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.outcomeList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.outcomeList, cmd = m.outcomeList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = ConfirmView
		m.last = tasks.ProgressUpdate{}
		m.outcomes = nil
		m.result = nil
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.outcomeList, cmd = m.outcomeList.Update(msg)
	return m, cmd
}

func (m *Model) showResults() {
	m.view = ResultView
	m.outcomeList = list.New(outcomeItems(m.outcomes), list.NewDefaultDelegate(), 0, 0)
	m.outcomeList.Title = fmt.Sprintf("Outcomes (%s)", m.opts.Direction)
	m.outcomeList.SetShowHelp(false)
	m.outcomeList.SetSize(max(m.width-4, 20), max(m.height-10, 5))
}

// startMigration runs the engine in a goroutine. The goroutine owns the result
// until it hands it over on doneChan.
func (m *Model) startMigration() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel

	progressChan := make(chan tasks.ProgressUpdate, 50)
	doneChan := make(chan migrationResult, 1)
	running := make(chan struct{})
	m.progressChan, m.doneChan, m.running = progressChan, doneChan, running

	opts := m.opts
	go func() {
		defer close(running)
		defer cancel()

		result, err := opts.NewEngine(opts.DryRun).Begin(ctx, opts.Token, opts.Direction, progressChan)
		if opts.OnFinish != nil {
			opts.OnFinish(opts.Direction, opts.DryRun, result, err)
		}
		doneChan <- migrationResult{result, err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			done := <-doneChan
			return migrationCompleteMsg(done.result, done.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConfirm() string {
	verb := "Move"
	if m.opts.DryRun {
		verb = "Preview moving"
	}
	title := styles.title.Render(fmt.Sprintf("%s planning %s entries to %s?",
		verb, m.opts.Direction.Source.Label(), m.opts.Direction.Destination.Label()))

	var b strings.Builder
	fmt.Fprintf(&b, "Direction:     %s\n", m.opts.Direction)
	fmt.Fprintf(&b, "Delete policy: %s\n", m.opts.DeletePolicy)
	fmt.Fprintf(&b, "Dry run:       %t\n", m.opts.DryRun)
	if !m.opts.DryRun && m.opts.DeletePolicy == tasks.DeleteAlways {
		b.WriteString("\n" + styles.warn.Render("Entries without a match are removed from the source list.") + "\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.swap, m.keys.dryRun, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

func (m *Model) renderMigrate() string {
	title := styles.title.Render(fmt.Sprintf("Migrating %s", m.opts.Direction))

	var status string
	switch m.last.Phase {
	case tasks.Authenticate:
		status = "Signing in..."
	case tasks.FetchEntries:
		status = "Reading your list..."
	case tasks.FilterEntries:
		status = "Selecting planning entries..."
	case tasks.Migrate:
		status = fmt.Sprintf("Moving entries (%d/%d)", m.last.Step, m.last.Total)
	default:
		status = "Finishing..."
	}

	counts := models.Count(m.outcomes)
	tally := styles.help.Render(formatter.Summary(counts))

	helpView := m.help.ShortHelpView([]key.Binding{
		key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "stop after current entry")),
	})

	return fmt.Sprintf("%s\n%s %s\n\n%s\n\n%s\n%s\n\n%s",
		title, m.spinner.View(), status, m.bar.ViewAs(m.last.Percent/100), m.last.Message, tally, helpView)
}

func (m *Model) renderResult() string {
	var header string
	switch {
	case m.err != nil:
		header = styles.err.Render(fmt.Sprintf("Migration stopped: %v", m.err))
	case m.result == nil:
		header = styles.err.Render("No result available")
	case m.result.DryRun:
		header = styles.ok.Render("✓ Dry run complete")
	default:
		header = styles.ok.Render("✓ Migration complete")
	}

	summary := formatter.Summary(models.Count(m.outcomes))

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.restart, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", header, summary, m.outcomeList.View(), helpView)
}
