package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	activeColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeCardStyle = cardStyle.BorderForeground(lipgloss.Color("226"))

	overdueCardStyle = cardStyle.BorderForeground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	flashStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	overdueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	soonStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	titleStyle     = lipgloss.NewStyle().Bold(true)
)

// dueSoonDays marks due dates this close as upcoming.
const dueSoonDays = 3

func (b *Board) viewBoard() string {
	if len(b.columns) == 0 {
		return "No columns configured."
	}

	colWidth := b.columnWidth()
	renderedCols := make([]string, len(b.columns))
	for i, col := range b.columns {
		renderedCols[i] = b.renderColumn(i, col, colWidth)
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, renderedCols...)

	// Clamp from the bottom, keeping headers at the top, and pad short boards.
	targetHeight := b.height - b.chromeHeight()
	if targetHeight > 0 {
		actual := strings.Count(boardView, "\n") + 1
		if actual > targetHeight {
			viewLines := strings.SplitN(boardView, "\n", targetHeight+1)
			boardView = strings.Join(viewLines[:targetHeight], "\n")
		} else if actual < targetHeight {
			boardView += strings.Repeat("\n", targetHeight-actual)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, boardView, "", b.renderStatusBar())
}

func (b *Board) columnWidth() int {
	if b.width == 0 || len(b.columns) == 0 {
		return 30 //nolint:mnd // default column width
	}
	const maxColWidth = 48
	return min(b.width/len(b.columns), maxColWidth)
}

func (b *Board) renderColumn(colIdx int, col column, width int) string {
	const headerPad = 2
	headerText := truncate(fmt.Sprintf("%s (%d)", col.status, len(col.tasks)), width-headerPad)

	header := columnHeaderStyle.Width(width).Render(headerText)
	if colIdx == b.activeCol {
		header = activeColumnHeaderStyle.Width(width).Render(headerText)
	}

	maxVis := b.visibleCardsForColumn(&col, width)
	start := min(col.scrollOff, len(col.tasks))
	end := min(start+maxVis, len(col.tasks))

	parts := []string{header}
	if start > 0 {
		parts = append(parts, dimStyle.Width(width).Render(truncate(fmt.Sprintf("  ↑ %d more", start), width)))
	}
	if len(col.tasks) == 0 {
		parts = append(parts, dimStyle.Width(width).Render("  (empty)"))
	} else {
		for rowIdx := start; rowIdx < end; rowIdx++ {
			active := colIdx == b.activeCol && rowIdx == b.activeRow
			parts = append(parts, b.renderCard(col.tasks[rowIdx], active, width))
		}
	}
	if end < len(col.tasks) {
		parts = append(parts, dimStyle.Width(width).Render(truncate(fmt.Sprintf("  ↓ %d more", len(col.tasks)-end), width)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *Board) renderCard(t *task.Task, active bool, width int) string {
	style := cardStyle
	switch {
	case active:
		style = activeCardStyle
	case t.IsOverdue(b.mgr.Today()):
		style = overdueCardStyle
	}
	content := strings.Join(b.cardContentLines(t, width), "\n")
	return style.Width(width - 2).Render(content) //nolint:mnd // border width
}

func (b *Board) cardHeight(t *task.Task, width int) int {
	return len(b.cardContentLines(t, width)) + 2 //nolint:mnd // top and bottom borders
}

func (b *Board) cardContentLines(t *task.Task, width int) []string {
	const cardChrome = 4 // border (2) + padding (2)
	cardWidth := max(width-cardChrome, 1)

	idPrefix := fmt.Sprintf("#%d ", t.ID)
	lines := wrapTitle2(t.Title, cardWidth-len(idPrefix), cardWidth, 2) //nolint:mnd // title lines
	lines[0] = dimStyle.Render(idPrefix) + lines[0]

	meta := t.Client
	if t.Worker != "" {
		if meta != "" {
			meta += " · "
		}
		meta += "@" + t.Worker
	}
	if meta != "" {
		lines = append(lines, dimStyle.Render(truncate(meta, cardWidth)))
	}

	lines = append(lines, b.dueLine(t, cardWidth))
	if t.Status.IsCompletion() && t.AuditStatus == task.AuditPending {
		lines = append(lines, soonStyle.Render("awaiting audit"))
	}
	return lines
}

// dueLine shows the frequency and the due date relative to today.
func (b *Board) dueLine(t *task.Task, width int) string {
	freq := string(t.Frequency)
	if t.Due == nil {
		return dimStyle.Render(truncate(freq, width))
	}
	today := b.mgr.Today()
	days := daysBetween(today, *t.Due)
	rel := relativeDays(days)
	text := truncate(freq+" · "+t.Due.String()+" ("+rel+")", width)
	switch {
	case t.IsOverdue(today):
		return overdueStyle.Render(text)
	case days <= dueSoonDays && !t.Status.HoldsCompletion():
		return soonStyle.Render(text)
	default:
		return dimStyle.Render(text)
	}
}

func daysBetween(from, to date.Date) int {
	const day = 24
	return int(to.Sub(from.Time).Hours() / day)
}

// relativeDays formats a signed day distance compactly: "today", "in 3d",
// "2w ago".
func relativeDays(days int) string {
	if days == 0 {
		return "today"
	}
	d := humanDays(abs(days))
	if days > 0 {
		return "in " + d
	}
	return d + " ago"
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// humanDays formats a day count as "3d", "2w", "3mo" or "1y".
func humanDays(days int) string {
	const (
		week  = 7
		month = 30
		year  = 365
	)
	switch {
	case days < week:
		return fmt.Sprintf("%dd", days)
	case days < month:
		return fmt.Sprintf("%dw", days/week)
	case days < year:
		return fmt.Sprintf("%dmo", days/month)
	default:
		return fmt.Sprintf("%dy", days/year)
	}
}

func (b *Board) renderStatusBar() string {
	status := fmt.Sprintf(" %s | %d tasks | %s", b.name, len(b.tasks), b.mgr.Today())
	status = statusBarStyle.Render(truncate(status, b.width)) + "  " + b.help.View(b.keys)

	switch {
	case b.err != nil:
		return errorStyle.Render(truncate("Error: "+b.err.Error(), b.width)) + "\n" + status
	case b.flash != "":
		return flashStyle.Render(truncate(b.flash, b.width)) + "\n" + status
	}
	return status
}

func (b *Board) viewHistory() string {
	t := b.histTask
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("#%d %s", t.ID, t.Title)))
	sb.WriteString("\n")
	sb.WriteString(output.StatusStyle(t.Status).Render(string(t.Status)))
	sb.WriteString(dimStyle.Render("  audit: " + string(t.AuditStatus)))
	sb.WriteString("\n\n")

	if len(b.histEntries) == 0 {
		sb.WriteString(dimStyle.Render("No history."))
	}
	maxRows := max(b.height-6, 1) //nolint:mnd // header and footer lines
	for i, e := range b.histEntries {
		if i == maxRows {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("… %d older", len(b.histEntries)-i)))
			break
		}
		line := fmt.Sprintf("%s  %-12s %-15s %s",
			e.CreatedAt.In(b.mgr.Location()).Format("2006-01-02 15:04"), truncate(e.Actor(), 12), e.Action, e.Details) //nolint:mnd // actor width
		sb.WriteString(truncate(line, b.width))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(statusBarStyle.Render(" esc: back  q: quit"))
	return sb.String()
}

// wrapTitle2 splits a title across maxLines lines with different widths:
// firstWidth for the first line (shares space with the ID prefix),
// restWidth for continuation lines.
func wrapTitle2(title string, firstWidth, restWidth, maxLines int) []string {
	if maxLines < 1 {
		maxLines = 1
	}
	if lipgloss.Width(title) <= firstWidth || maxLines == 1 {
		return []string{truncate(title, firstWidth)}
	}

	words := strings.Fields(title)
	lines := make([]string, 0, maxLines)
	var current strings.Builder

	for i, word := range words {
		lineWidth := restWidth
		if len(lines) == 0 {
			lineWidth = firstWidth
		}

		if current.Len() == 0 {
			current.WriteString(word)
			continue
		}
		if lipgloss.Width(current.String())+1+lipgloss.Width(word) <= lineWidth {
			current.WriteByte(' ')
			current.WriteString(word)
		} else {
			lines = append(lines, truncate(current.String(), lineWidth))
			current.Reset()
			current.WriteString(word)
			if len(lines) == maxLines-1 {
				for _, w := range words[i+1:] {
					current.WriteByte(' ')
					current.WriteString(w)
				}
				break
			}
		}
	}
	if current.Len() > 0 {
		w := restWidth
		if len(lines) == 0 {
			w = firstWidth
		}
		lines = append(lines, truncate(current.String(), w))
	}
	return lines
}

func truncate(s string, maxLen int) string {
	if maxLen < 4 { //nolint:mnd // minimum length for truncation
		maxLen = 4
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	target := min(maxLen-3, len(runes)) //nolint:mnd // room for "..."
	for target > 0 && lipgloss.Width(string(runes[:target])) > maxLen-3 {
		target--
	}
	return string(runes[:target]) + "..."
}
