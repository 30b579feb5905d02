// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
	"github.com/fritzduchardt/fabric-ui/internal/ui/styles"
)

// optionsTimeout bounds loading the pattern, model and file lists.
const optionsTimeout = 15 * time.Second

// =============================================================================
// TRANSCRIPT
// =============================================================================

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryNotice
	entryCancelled
	entryError
	entryInfo
)

type entry struct {
	kind      entryKind
	requestID string
	attempt   int
	text      string
	markup    string
}

// =============================================================================
// PICKER
// =============================================================================

// picker is the typeahead list opened by a bare /pattern, /model or /file.
type picker struct {
	command string
	choices chat.Choices
	query   string
	index   int
}

func (p picker) open() bool { return p.command != "" }

func (p picker) items() []string { return p.choices.Filter(p.query) }

func (p picker) selected() (string, bool) {
	items := p.items()
	if p.index < 0 || p.index >= len(items) {
		return "", false
	}
	return items[p.index], true
}

// =============================================================================
// MODEL
// =============================================================================

// Config wires the model to the rest of the application.
type Config struct {
	Orchestrator *chat.Orchestrator
	// Catalog lists patterns, models and files; nil uses the settings only.
	Catalog chat.Catalog
	Theme   *styles.Theme
	// CopyPath receives /copy output when no path is given.
	CopyPath string
	Logger   *zap.Logger
}

// Model is the Bubble Tea chat model.
type Model struct {
	ctx      context.Context
	orch     *chat.Orchestrator
	catalog  chat.Catalog
	theme    *styles.Theme
	logger   *zap.Logger
	copyPath string

	options   chat.Options
	selection chat.Selection

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	entries      []entry
	busy         bool
	activeID     string
	continueNext bool
	lastAnswer   string
	picker       picker

	width  int
	height int
	ready  bool
}

// NoticeMsg adds an informational line to the transcript.
type NoticeMsg struct {
	Text string
}

type optionsLoadedMsg struct {
	options chat.Options
	err     error
}

// New creates the chat model. ctx bounds every submission.
func New(ctx context.Context, cfg Config) Model {
	theme := cfg.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ta := textarea.New()
	ta.Placeholder = "Ask fabric... (Enter to send, Alt+Enter for a new line, /help)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	settings := cfg.Orchestrator.Settings()
	opts := chat.StaticOptions(settings)

	return Model{
		ctx:       ctx,
		orch:      cfg.Orchestrator,
		catalog:   cfg.Catalog,
		theme:     theme,
		logger:    logger,
		copyPath:  cfg.CopyPath,
		options:   opts,
		selection: opts.DefaultSelection(),
		input:     ta,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadOptions())
}

func (m Model) loadOptions() tea.Cmd {
	if m.catalog == nil {
		return nil
	}
	cat := m.catalog
	settings := m.orch.Settings()
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, optionsTimeout)
		defer cancel()
		opts, err := chat.LoadOptions(ctx, cat, settings)
		return optionsLoadedMsg{options: opts, err: err}
	}
}

// Selection returns the current pattern, model and file.
func (m Model) Selection() chat.Selection {
	return m.selection
}

// Busy reports whether a submission is in flight.
func (m Model) Busy() bool {
	return m.busy
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case optionsLoadedMsg:
		m.options = msg.options
		m.selection = msg.options.DefaultSelection()
		if msg.err != nil {
			m.logger.Warn("loading options", zap.Error(msg.err))
			m.appendEntry(entry{kind: entryInfo, text: "Some lists could not be loaded, using defaults: " + msg.err.Error()})
		}
		return m, nil

	case NoticeMsg:
		m.appendEntry(entry{kind: entryInfo, text: msg.Text})
		return m, nil

	case EventMsg:
		cmd := m.handleEvent(msg.Event)
		return m, cmd

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)

	inputHeight := m.input.Height() + 2
	statusHeight := 1
	vpHeight := height - inputHeight - statusHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.input.SetWidth(width - 2)
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.refresh()
}

// handleEvent applies one orchestrator event to the transcript.
func (m *Model) handleEvent(e chat.Event) tea.Cmd {
	switch e := e.(type) {
	case chat.UserTurn:
		m.activeID = e.ID
		m.appendEntry(entry{kind: entryUser, requestID: e.ID, text: e.Text})

	case chat.Busy:
		if e.ID != m.activeID {
			return nil
		}
		m.busy = e.Active
		if e.Active {
			return m.spinner.Tick
		}

	case chat.ContentDelta:
		if e.ID != m.activeID {
			return nil
		}
		m.dropAttempts(e.ID, e.Attempt)
		m.setAnswer(e.ID, e.Attempt, e.Text, e.Markup)

	case chat.RetryNotice:
		if e.ID != m.activeID {
			return nil
		}
		m.dropAttempts(e.ID, e.Attempt)
		m.appendEntry(entry{kind: entryNotice, requestID: e.ID, attempt: e.Attempt, text: e.Message})

	case chat.Terminal:
		if e.ID != m.activeID {
			return nil
		}
		m.activeID = ""
		m.busy = false
		switch e.Outcome.Kind {
		case chat.OutcomeSuccess:
			m.dropAttempts(e.ID, e.Outcome.Attempts)
			m.setAnswer(e.ID, e.Outcome.Attempts, e.Outcome.Text, e.Outcome.Markup)
			m.lastAnswer = e.Outcome.Text
		case chat.OutcomeCancelled:
			m.dropAttempts(e.ID, 0)
			m.appendEntry(entry{kind: entryCancelled, requestID: e.ID, text: e.Outcome.Message()})
		default:
			m.dropAttempts(e.ID, 0)
			m.appendEntry(entry{kind: entryError, requestID: e.ID, text: e.Outcome.Message()})
		}
	}
	return nil
}

// dropAttempts removes the retry notices of a request and the answers of
// every attempt but keep. Nothing is kept for keep == 0.
func (m *Model) dropAttempts(id string, keep int) {
	stale := func(en entry) bool {
		return en.requestID == id &&
			(en.kind == entryNotice || (en.kind == entryAssistant && en.attempt != keep))
	}
	if !slices.ContainsFunc(m.entries, stale) {
		return
	}
	m.entries = slices.DeleteFunc(slices.Clone(m.entries), stale)
	m.refresh()
}

// setAnswer replaces the answer of one attempt, adding it on first sight.
func (m *Model) setAnswer(id string, attempt int, text, markup string) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		en := &m.entries[i]
		if en.kind == entryAssistant && en.requestID == id && en.attempt == attempt {
			en.text, en.markup = text, markup
			m.refresh()
			return
		}
	}
	m.appendEntry(entry{kind: entryAssistant, requestID: id, attempt: attempt, text: text, markup: markup})
}

func (m *Model) appendEntry(en entry) {
	m.entries = append(m.entries, en)
	m.refresh()
}

// refresh re-renders the transcript, following the end when the view was
// already there.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() <= m.viewport.Height
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.open() {
		return m.handlePickerKey(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.busy {
			m.cancelInFlight()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyCtrlD:
		m.orch.CancelAll()
		return m, tea.Quit

	case tea.KeyEsc:
		if m.busy {
			m.cancelInFlight()
		}
		return m, nil

	case tea.KeyEnter:
		return m.submitInput()

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) cancelInFlight() {
	if n := m.orch.CancelAll(); n > 0 {
		m.logger.Info("cancelled in-flight submissions", zap.Int("count", n))
	}
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.picker = picker{}
	case tea.KeyEnter:
		if value, ok := m.picker.selected(); ok {
			m.selection = m.selection.Apply(m.picker.command, value)
		}
		m.picker = picker{}
	case tea.KeyUp, tea.KeyCtrlP:
		if m.picker.index > 0 {
			m.picker.index--
		}
	case tea.KeyDown, tea.KeyCtrlN:
		if m.picker.index < len(m.picker.items())-1 {
			m.picker.index++
		}
	case tea.KeyBackspace:
		if r := []rune(m.picker.query); len(r) > 0 {
			m.picker.query = string(r[:len(r)-1])
			m.picker.index = 0
		}
	case tea.KeySpace:
		m.picker.query += " "
		m.picker.index = 0
	case tea.KeyRunes:
		m.picker.query += string(msg.Runes)
		m.picker.index = 0
	}
	return m, nil
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	if cmd, ok := chat.ParseCommand(line); ok {
		m.input.Reset()
		return m.runCommand(cmd)
	}
	if m.busy {
		m.appendEntry(entry{kind: entryInfo, text: "A request is in flight. Press Esc to cancel it."})
		return m, nil
	}
	m.input.Reset()

	sub := chat.Submission{Input: line, Selection: m.selection, Continue: m.continueNext}
	m.continueNext = false
	m.busy = true
	return m, m.submit(sub)
}

// submit runs the submission off the event loop; its events come back as
// EventMsg through the Sink.
func (m Model) submit(sub chat.Submission) tea.Cmd {
	orch, ctx := m.orch, m.ctx
	return func() tea.Msg {
		orch.Submit(ctx, sub)
		return nil
	}
}
