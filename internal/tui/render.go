package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/batchrev/internal/diffview"
	"github.com/sprite-ai/batchrev/internal/model"
	"github.com/sprite-ai/batchrev/internal/queue"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.preview != nil {
		return m.renderPreview()
	}

	paneWidth := (m.width - 1) / 2
	paneHeight := m.height - 2

	left := m.renderQueue(queue.Incoming, paneWidth, paneHeight)
	right := m.renderQueue(queue.Batch, m.width-paneWidth-1, paneHeight)
	main := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)

	var bottom string
	if m.confirm != actionNone {
		bottom = confirmStyle.Width(m.width).Render(m.confirm.prompt(len(m.snap.Batch)))
	} else {
		bottom = m.renderStatusBar()
	}

	return lipgloss.JoinVertical(lipgloss.Left, main, bottom)
}

func (m Model) renderQueue(name queue.Name, width, height int) string {
	items := m.snap.Incoming
	sel := m.snap.IncomingSel
	title := fmt.Sprintf("Incoming (%d)", len(items))
	cur := m.cursorIncoming
	if name == queue.Batch {
		items = m.snap.Batch
		sel = m.snap.BatchSel
		title = fmt.Sprintf("Batch (%d)", len(items))
		cur = m.cursorBatch
	}

	selected := make(map[string]bool, len(sel))
	for _, id := range sel {
		selected[id] = true
	}

	var b strings.Builder
	b.WriteString(paneTitleStyle.Render(title))
	b.WriteByte('\n')

	innerWidth := width - 4
	visible := height - 4
	if visible < 1 {
		visible = 1
	}
	start := 0
	if cur >= visible {
		start = cur - visible + 1
	}

	if len(items) == 0 {
		b.WriteString(itemDimStyle.Render("  (empty)"))
	}
	for i := start; i < len(items) && i < start+visible; i++ {
		b.WriteString(m.renderItem(items[i], selected[items[i].RestID], name == m.focus && i == cur, innerWidth))
		if i < len(items)-1 && i < start+visible-1 {
			b.WriteByte('\n')
		}
	}

	style := paneStyle
	if name == m.focus {
		style = paneFocusedStyle
	}
	return style.Width(width).Height(height - 2).Render(b.String())
}

func (m Model) renderItem(it model.ReviewItem, selected, cursor bool, width int) string {
	mark := "  "
	if selected {
		mark = checkStyle.Render("✓ ")
	}

	var badges []string
	if it.Severity != model.SeverityNone {
		badges = append(badges, severityStyle(it.Severity).Render(it.Severity.String()))
	}
	if info, ok := m.core.CachedChain(it.VcsID); ok && info.InChain {
		badges = append(badges, chainBadgeStyle.Render(fmt.Sprintf("⛓%d/%d", info.Position, info.ChainLength)))
	}
	if it.HasApprovingVote {
		badges = append(badges, approvedFlagStyle.Render("+2"))
	}
	badge := strings.Join(badges, " ")

	subject := it.Subject
	maxSubject := width - lipgloss.Width(badge) - 12
	if maxSubject > 0 && len(subject) > maxSubject {
		subject = subject[:maxSubject-1] + "…"
	}

	line := fmt.Sprintf("%s%-7d %s", mark, it.Number, subject)
	if badge != "" {
		gap := width - lipgloss.Width(line) - lipgloss.Width(badge)
		if gap < 1 {
			gap = 1
		}
		line += strings.Repeat(" ", gap) + badge
	}

	if cursor {
		return itemCursorStyle.Width(width).Render(line)
	}
	return itemStyle.Width(width).Render(line)
}

func (m Model) renderStatusBar() string {
	left := fmt.Sprintf(" %d incoming · %d staged", len(m.snap.Incoming), len(m.snap.Batch))
	if n := len(m.snap.IncomingSel) + len(m.snap.BatchSel); n > 0 {
		left += fmt.Sprintf(" · %d selected", n)
	}

	server := "server off"
	if m.snap.ServerState == model.ServerRunning {
		server = serverOnStyle.Render(fmt.Sprintf("server :%d", m.snap.ServerPort))
	}

	mid := m.status
	if m.statErr {
		mid = statusErrStyle.Render(m.status)
	}

	right := fmt.Sprintf("%s  ? help ", server)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(mid) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	return statusBarStyle.Width(m.width).Render(left + " " + mid + strings.Repeat(" ", gap) + right)
}

func (m Model) renderPreview() string {
	header := previewHeaderStyle.Render("Diff preview — " + m.previewID)

	var lines []string
	for _, f := range m.preview.Files {
		lines = append(lines, previewHeaderStyle.Render(fmt.Sprintf("%s  +%d -%d", f.Info.Path, f.Info.Additions, f.Info.Deletions)))
		hl := diffview.Highlight(f.Info.Path, f.Lines)
		for i, l := range f.Lines {
			text := hl[i].Plain()
			switch l.Kind {
			case diffview.LineAdded:
				lines = append(lines, addedLineStyle.Render("+"+text))
			case diffview.LineDeleted:
				lines = append(lines, deletedLineStyle.Render("-"+text))
			case diffview.LineHunk:
				lines = append(lines, hunkHeaderStyle.Render(text))
			default:
				lines = append(lines, contextLineStyle.Render(" "+text))
			}
		}
		lines = append(lines, "")
	}

	visible := m.height - 4
	if visible < 1 {
		visible = 1
	}
	start := m.previewScroll
	if start > len(lines)-1 {
		start = len(lines) - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + visible
	if end > len(lines) {
		end = len(lines)
	}

	body := strings.Join(lines[start:end], "\n")
	footer := helpBarStyle.Render("j/k scroll · esc close")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(previewHeaderStyle.Render("batchrev — Keyboard Shortcuts"))
	b.WriteString("\n\n")

	helpItems := []struct{ key, desc string }{
		{"↑/k ↓/j", "Move cursor"},
		{"tab", "Switch queue"},
		{"space", "Select item"},
		{"r", "Range select to cursor"},
		{"c", "Select whole chain"},
		{"a", "Select all in queue"},
		{"esc", "Clear selection"},
		{"→/l/enter", "Stage into batch"},
		{"←/h", "Return to incoming"},
		{"d", "Diff preview"},
		{"R", "Refresh incoming queue"},
		{"s", "Start/stop automation server"},
		{"+ / -", "Vote ±1 on batch"},
		{"2", "Approve batch (Code-Review +2)"},
		{"m", "Submit batch"},
		{"?", "Toggle this help"},
		{"q", "Quit"},
	}

	for _, item := range helpItems {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			helpKeyStyle.Width(12).Render(item.key),
			item.desc,
		))
	}

	b.WriteString("\n")
	b.WriteString(helpBarStyle.Render("Press ? to close help"))

	return b.String()
}
