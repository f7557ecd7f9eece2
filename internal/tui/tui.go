// Package tui implements the Bubble Tea terminal user interface: the
// incoming queue on the left, the staged batch on the right.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sprite-ai/batchrev/internal/backend"
	"github.com/sprite-ai/batchrev/internal/core"
	"github.com/sprite-ai/batchrev/internal/diffview"
	"github.com/sprite-ai/batchrev/internal/model"
	"github.com/sprite-ai/batchrev/internal/queue"
	"github.com/sprite-ai/batchrev/internal/submit"
)

// pendingAction is a destructive action awaiting its confirm keypress.
type pendingAction int

const (
	actionNone pendingAction = iota
	actionVoteUp
	actionVoteDown
	actionApprove
	actionSubmit
)

func (a pendingAction) prompt(n int) string {
	switch a {
	case actionVoteUp:
		return fmt.Sprintf("Vote +1 on %d staged change(s)? y/n", n)
	case actionVoteDown:
		return fmt.Sprintf("Vote -1 on %d staged change(s)? y/n", n)
	case actionApprove:
		return fmt.Sprintf("Approve (Code-Review +2) %d staged change(s)? y/n", n)
	case actionSubmit:
		return fmt.Sprintf("Submit %d staged change(s)? y/n", n)
	}
	return ""
}

type snapshotMsg model.Snapshot

type reportMsg struct {
	verb   string
	report submit.Report
}

type previewMsg struct {
	id      string
	preview *diffview.Preview
	err     error
}

type statusMsg string

// Model is the top-level Bubble Tea model for batchrev.
type Model struct {
	core *core.Core
	snap model.Snapshot

	// UI state
	width  int
	height int

	focus          queue.Name
	cursorIncoming int
	cursorBatch    int

	confirm pendingAction
	status  string
	statErr bool

	// Diff preview overlay
	preview       *diffview.Preview
	previewID     string
	previewScroll int

	showHelp bool
}

// New creates a model observing the given core.
func New(c *core.Core) Model {
	return Model{
		core:  c,
		snap:  c.Snapshot(),
		focus: queue.Incoming,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) focusedItems() []model.ReviewItem {
	if m.focus == queue.Batch {
		return m.snap.Batch
	}
	return m.snap.Incoming
}

func (m *Model) cursor() *int {
	if m.focus == queue.Batch {
		return &m.cursorBatch
	}
	return &m.cursorIncoming
}

func (m *Model) clampCursors() {
	if m.cursorIncoming >= len(m.snap.Incoming) {
		m.cursorIncoming = len(m.snap.Incoming) - 1
	}
	if m.cursorIncoming < 0 {
		m.cursorIncoming = 0
	}
	if m.cursorBatch >= len(m.snap.Batch) {
		m.cursorBatch = len(m.snap.Batch) - 1
	}
	if m.cursorBatch < 0 {
		m.cursorBatch = 0
	}
}

func (m Model) cursorItem() (model.ReviewItem, bool) {
	items := m.focusedItems()
	i := *m.cursor()
	if i < 0 || i >= len(items) {
		return model.ReviewItem{}, false
	}
	return items[i], true
}

// selectedOrCursor returns the ids an action applies to: the selection when
// one exists, otherwise the item under the cursor.
func (m Model) selectedOrCursor() []string {
	sel := m.snap.IncomingSel
	if m.focus == queue.Batch {
		sel = m.snap.BatchSel
	}
	if len(sel) > 0 {
		return sel
	}
	if it, ok := m.cursorItem(); ok {
		return []string{it.RestID}
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case snapshotMsg:
		m.snap = model.Snapshot(msg)
		m.clampCursors()
		return m, nil

	case reportMsg:
		m.status, m.statErr = summarizeReport(msg.verb, msg.report)
		m.snap = m.core.Snapshot()
		m.clampCursors()
		return m, nil

	case previewMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("preview failed: %v", msg.err)
			m.statErr = true
			return m, nil
		}
		m.preview = msg.preview
		m.previewID = msg.id
		m.previewScroll = 0
		return m, nil

	case statusMsg:
		m.status = string(msg)
		m.statErr = false
		m.snap = m.core.Snapshot()
		m.clampCursors()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The confirm prompt captures everything until answered.
	if m.confirm != actionNone {
		switch {
		case key.Matches(msg, keys.Confirm):
			action := m.confirm
			m.confirm = actionNone
			return m, m.runAction(action)
		case key.Matches(msg, keys.Cancel), key.Matches(msg, keys.Quit):
			m.confirm = actionNone
			m.status = "cancelled"
			m.statErr = false
		}
		return m, nil
	}

	// The preview overlay has its own scroll keys.
	if m.preview != nil {
		switch {
		case key.Matches(msg, keys.Down):
			m.previewScroll++
		case key.Matches(msg, keys.Up):
			if m.previewScroll > 0 {
				m.previewScroll--
			}
		case key.Matches(msg, keys.ClearSel), key.Matches(msg, keys.Preview), key.Matches(msg, keys.Quit):
			m.preview = nil
			m.previewID = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, keys.Down):
		if c := m.cursor(); *c < len(m.focusedItems())-1 {
			*c++
		}

	case key.Matches(msg, keys.Up):
		if c := m.cursor(); *c > 0 {
			*c--
		}

	case key.Matches(msg, keys.Focus):
		if m.focus == queue.Incoming {
			m.focus = queue.Batch
		} else {
			m.focus = queue.Incoming
		}

	case key.Matches(msg, keys.Toggle):
		if it, ok := m.cursorItem(); ok {
			m.core.SelectToggle(m.focus, it.RestID)
			m.refresh()
		}

	case key.Matches(msg, keys.Range):
		m.core.SelectRange(m.focus, *m.cursor())
		m.refresh()

	case key.Matches(msg, keys.Chain):
		if it, ok := m.cursorItem(); ok {
			m.core.SelectChain(m.focus, it.RestID)
			m.refresh()
		}

	case key.Matches(msg, keys.SelectAll):
		m.core.SelectAll(m.focus)
		m.refresh()

	case key.Matches(msg, keys.ClearSel):
		m.core.SelectNone(m.focus)
		m.refresh()

	case key.Matches(msg, keys.Stage):
		if m.focus == queue.Incoming {
			if ids := m.selectedOrCursor(); len(ids) > 0 {
				m.core.AddToBatch(ids, nil)
				m.refresh()
			}
		}

	case key.Matches(msg, keys.Unstage):
		if m.focus == queue.Batch {
			if ids := m.selectedOrCursor(); len(ids) > 0 {
				m.core.RemoveFromBatch(ids, -1)
				m.refresh()
			}
		}

	case key.Matches(msg, keys.Preview):
		if it, ok := m.cursorItem(); ok {
			return m, m.loadPreview(it.RestID)
		}

	case key.Matches(msg, keys.Refresh):
		return m, m.doRefresh()

	case key.Matches(msg, keys.Server):
		return m, m.toggleServer()

	case key.Matches(msg, keys.VoteUp):
		return m.askConfirm(actionVoteUp)

	case key.Matches(msg, keys.VoteDown):
		return m.askConfirm(actionVoteDown)

	case key.Matches(msg, keys.Approve):
		return m.askConfirm(actionApprove)

	case key.Matches(msg, keys.Submit):
		return m.askConfirm(actionSubmit)
	}

	return m, nil
}

func (m *Model) refresh() {
	m.snap = m.core.Snapshot()
	m.clampCursors()
}

func (m Model) askConfirm(a pendingAction) (tea.Model, tea.Cmd) {
	if len(m.snap.Batch) == 0 {
		m.status = "batch is empty"
		m.statErr = true
		return m, nil
	}
	m.confirm = a
	return m, nil
}

func (m Model) runAction(a pendingAction) tea.Cmd {
	c := m.core
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		switch a {
		case actionVoteUp:
			return reportMsg{"voted +1 on", c.Vote(ctx, backend.VoteRequest{Labels: map[string]int{submit.ApprovingLabel: 1}})}
		case actionVoteDown:
			return reportMsg{"voted -1 on", c.Vote(ctx, backend.VoteRequest{Labels: map[string]int{submit.ApprovingLabel: -1}})}
		case actionApprove:
			return reportMsg{"approved", c.ApproveAll(ctx)}
		case actionSubmit:
			return reportMsg{"submitted", c.SubmitAll(ctx)}
		}
		return nil
	}
}

func (m Model) loadPreview(id string) tea.Cmd {
	c := m.core
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		p, err := c.Preview(ctx, id)
		return previewMsg{id: id, preview: p, err: err}
	}
}

func (m Model) doRefresh() tea.Cmd {
	c := m.core
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			return statusMsg(fmt.Sprintf("refresh failed: %v", err))
		}
		return statusMsg("refreshed")
	}
}

func (m Model) toggleServer() tea.Cmd {
	c := m.core
	running := m.snap.ServerState == model.ServerRunning
	return func() tea.Msg {
		if running {
			if err := c.StopServer(); err != nil {
				return statusMsg(fmt.Sprintf("server stop failed: %v", err))
			}
			return statusMsg("automation server stopped")
		}
		port, err := c.StartServer()
		if err != nil {
			return statusMsg(fmt.Sprintf("server start failed: %v", err))
		}
		return statusMsg(fmt.Sprintf("automation server on 127.0.0.1:%d", port))
	}
}

func summarizeReport(verb string, r submit.Report) (string, bool) {
	parts := []string{fmt.Sprintf("%s %d change(s)", verb, r.SuccessCount)}
	if r.SkippedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", r.SkippedCount))
	}
	if r.FailureCount > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.FailureCount))
	}
	line := strings.Join(parts, ", ")
	if lines := r.ErrorLines(); len(lines) > 0 {
		line += ": " + strings.Join(lines, "; ")
	}
	return line, r.FailureCount > 0
}

// Run starts the TUI application over the given core.
func Run(c *core.Core) error {
	p := tea.NewProgram(New(c), tea.WithAltScreen())
	c.OnSnapshot(func(s model.Snapshot) {
		p.Send(snapshotMsg(s))
	})
	_, err := p.Run()
	return err
}
