// Package tui implements the interactive agenda board.
package tui

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/twiced-technology-gmbh/cadence/internal/board"
	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/identity"
	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// view represents the current screen state.
type view int

const (
	viewBoard view = iota
	viewHistory
)

// Layout constants.
const (
	boardChrome  = 2 // blank line + status bar below the column area
	errorChrome  = 1 // extra line when an error or flash message is displayed
	tickInterval = time.Minute
)

// Board is the top-level bubbletea model.
type Board struct {
	mgr       *lifecycle.Manager
	actor     *identity.Actor
	name      string
	statuses  []task.Status
	tasks     []*task.Task
	columns   []column
	activeCol int
	activeRow int
	view      view
	width     int
	height    int
	err       error
	flash     string

	keys keyMap
	help help.Model

	// History view.
	histTask    *task.Task
	histEntries []history.Entry
}

// column groups tasks belonging to a single status.
type column struct {
	status    task.Status
	tasks     []*task.Task
	scrollOff int // first visible row index
}

// NewBoard creates a Board showing one column per status. Actions are
// recorded under actor.
func NewBoard(mgr *lifecycle.Manager, name string, statuses []task.Status, actor *identity.Actor) *Board {
	b := &Board{
		mgr:      mgr,
		actor:    actor,
		name:     name,
		statuses: statuses,
		keys:     defaultKeys(),
		help:     help.New(),
	}
	b.loadTasks()
	return b
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)
	case tea.MouseMsg:
		return b.handleMouse(msg)
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.help.Width = msg.Width
		b.ensureVisible()
		return b, nil
	case ReloadMsg:
		b.loadTasks()
		return b, nil
	case TickMsg:
		// Overdue markers depend on the date.
		return b, tickCmd()
	case actionMsg:
		b.err = msg.err
		b.flash = msg.flash
		b.loadTasks()
		return b, nil
	case historyMsg:
		if msg.err != nil {
			b.err = msg.err
			return b, nil
		}
		b.histTask = msg.task
		b.histEntries = msg.entries
		b.view = viewHistory
		return b, nil
	}
	return b, nil
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.width == 0 {
		return "Loading..."
	}
	if b.view == viewHistory {
		return b.viewHistory()
	}
	return b.viewBoard()
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return b, tea.Quit
	}
	if b.view == viewHistory {
		switch {
		case key.Matches(msg, b.keys.Back), key.Matches(msg, b.keys.History):
			b.view = viewBoard
		case key.Matches(msg, b.keys.Quit):
			return b, tea.Quit
		}
		return b, nil
	}
	return b.handleBoardKey(msg)
}

func (b *Board) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, b.keys.Quit), msg.String() == "esc":
		return b, tea.Quit
	case key.Matches(msg, b.keys.Left):
		if b.activeCol > 0 {
			b.activeCol--
			b.clampRow()
		}
	case key.Matches(msg, b.keys.Right):
		if b.activeCol < len(b.columns)-1 {
			b.activeCol++
			b.clampRow()
		}
	case key.Matches(msg, b.keys.Down):
		col := b.currentColumn()
		if col != nil && b.activeRow < len(col.tasks)-1 {
			b.activeRow++
			b.ensureVisible()
		}
	case key.Matches(msg, b.keys.Up):
		if b.activeRow > 0 {
			b.activeRow--
			b.ensureVisible()
		}
	case key.Matches(msg, b.keys.Help):
		b.help.ShowAll = !b.help.ShowAll
	case key.Matches(msg, b.keys.Complete):
		return b, b.complete()
	case key.Matches(msg, b.keys.Approve):
		return b, b.audit(task.StatusAudited, task.AuditApproved)
	case key.Matches(msg, b.keys.Reopen):
		return b, b.audit(task.StatusInProgress, task.AuditReopened)
	case key.Matches(msg, b.keys.Cycle):
		return b, b.cycle()
	case key.Matches(msg, b.keys.History):
		return b, b.loadHistory()
	}
	return b, nil
}

// handleMouse selects the card under a left click.
func (b *Board) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft || b.view != viewBoard {
		return b, nil
	}
	colWidth := b.columnWidth()
	if colWidth <= 0 {
		return b, nil
	}
	colIdx := msg.X / colWidth
	if colIdx < 0 || colIdx >= len(b.columns) {
		return b, nil
	}
	col := &b.columns[colIdx]

	y := msg.Y - 1 // column header
	if col.scrollOff > 0 {
		y-- // "↑ N more" indicator
	}
	if y < 0 {
		return b, nil
	}
	for i := col.scrollOff; i < len(col.tasks); i++ {
		h := b.cardHeight(col.tasks[i], colWidth)
		if y < h {
			b.activeCol = colIdx
			b.activeRow = i
			b.ensureVisible()
			return b, nil
		}
		y -= h
	}
	return b, nil
}

// --- Actions ---

type actionMsg struct {
	flash string
	err   error
}

type historyMsg struct {
	task    *task.Task
	entries []history.Entry
	err     error
}

func (b *Board) complete() tea.Cmd {
	t := b.selectedTask()
	if t == nil {
		return nil
	}
	status := board.CompletionFor(t, b.mgr.Today())
	return b.transition(t.ID, status)
}

func (b *Board) cycle() tea.Cmd {
	t := b.selectedTask()
	if t == nil {
		return nil
	}
	all := task.Statuses()
	next := all[(slices.Index(all, t.Status)+1)%len(all)]
	return b.transition(t.ID, next)
}

func (b *Board) transition(id int, status task.Status) tea.Cmd {
	mgr, actor := b.mgr, b.actor
	return func() tea.Msg {
		tr, err := mgr.TransitionStatus(context.Background(), id, string(status), actor)
		if tr == nil {
			return actionMsg{err: err}
		}
		flash := fmt.Sprintf("#%d -> %s", id, status)
		if tr.Successor != nil {
			flash += fmt.Sprintf(", spawned #%d", tr.Successor.ID)
		}
		return actionMsg{flash: flash, err: err}
	}
}

func (b *Board) audit(status task.Status, auditStatus task.AuditStatus) tea.Cmd {
	t := b.selectedTask()
	if t == nil {
		return nil
	}
	mgr, actor, id := b.mgr, b.actor, t.ID
	return func() tea.Msg {
		_, err := mgr.TransitionAudit(context.Background(), id, string(status), string(auditStatus), "", actor)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{flash: fmt.Sprintf("#%d audit %s", id, auditStatus)}
	}
}

func (b *Board) loadHistory() tea.Cmd {
	t := b.selectedTask()
	if t == nil {
		return nil
	}
	mgr := b.mgr
	return func() tea.Msg {
		entries, err := mgr.History(context.Background(), t.ID)
		return historyMsg{task: t, entries: entries, err: err}
	}
}

// loadTasks reads all tasks and organizes them into columns, keeping the
// selection on the same column index.
func (b *Board) loadTasks() {
	tasks, err := b.mgr.List(context.Background())
	if err != nil {
		b.err = err
		return
	}
	b.tasks = tasks

	board.Sort(tasks, "due", false, b.statuses)

	prev := b.columns
	b.columns = make([]column, len(b.statuses))
	for i, status := range b.statuses {
		b.columns[i] = column{status: status}
		if i < len(prev) {
			b.columns[i].scrollOff = prev[i].scrollOff
		}
	}
	for _, t := range tasks {
		if i := slices.Index(b.statuses, t.Status); i >= 0 {
			b.columns[i].tasks = append(b.columns[i].tasks, t)
		}
	}
	for i := range b.columns {
		b.columns[i].scrollOff = min(b.columns[i].scrollOff, max(len(b.columns[i].tasks)-1, 0))
	}

	b.clampRow()
}

func (b *Board) currentColumn() *column {
	if b.activeCol >= 0 && b.activeCol < len(b.columns) {
		return &b.columns[b.activeCol]
	}
	return nil
}

func (b *Board) selectedTask() *task.Task {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		return nil
	}
	if b.activeRow >= 0 && b.activeRow < len(col.tasks) {
		return col.tasks[b.activeRow]
	}
	return nil
}

func (b *Board) clampRow() {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		b.activeRow = 0
		return
	}
	if b.activeRow >= len(col.tasks) {
		b.activeRow = len(col.tasks) - 1
	}
	b.ensureVisible()
}

// chromeHeight returns the number of lines consumed by non-card elements below
// the column area.
func (b *Board) chromeHeight() int {
	h := boardChrome
	if b.err != nil || b.flash != "" {
		h += errorChrome
	}
	if b.help.ShowAll {
		h += len(b.keys.FullHelp()[0]) - 1
	}
	return h
}

// visibleCardsForColumn returns the number of cards that fit in the column,
// accounting for the scroll indicator lines.
func (b *Board) visibleCardsForColumn(col *column, width int) int {
	budget := b.height - b.chromeHeight()
	if budget < 1 {
		return 1
	}

	avail := budget - 1 // column header
	if col.scrollOff > 0 {
		avail--
	}

	n := b.fitCardsInHeight(col, avail, width)
	if col.scrollOff+n < len(col.tasks) {
		n = max(b.fitCardsInHeight(col, avail-1, width), 1)
	}
	return n
}

// ensureVisible adjusts the active column's scroll offset so the
// selected row is within the visible window.
func (b *Board) ensureVisible() {
	col := b.currentColumn()
	if col == nil || b.height == 0 {
		return
	}
	w := b.columnWidth()

	for range len(col.tasks) + 1 {
		maxVis := b.visibleCardsForColumn(col, w)

		switch {
		case b.activeRow >= col.scrollOff+maxVis:
			col.scrollOff = b.activeRow - maxVis + 1
		case b.activeRow < col.scrollOff:
			col.scrollOff = b.activeRow
		default:
			return
		}
	}
}

func (b *Board) fitCardsInHeight(col *column, avail, width int) int {
	if len(col.tasks) == 0 || avail < 1 {
		return 1
	}

	used := 0
	count := 0
	for i := col.scrollOff; i < len(col.tasks); i++ {
		cardLines := b.cardHeight(col.tasks[i], width)
		if count > 0 && used+cardLines > avail {
			break
		}
		count++
		used += cardLines
		if used >= avail {
			break
		}
	}
	return max(count, 1)
}

// --- Messages ---

// ReloadMsg is sent by the watcher to trigger a board refresh.
type ReloadMsg struct{}

// TickMsg is sent periodically so overdue markers follow the clock.
type TickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}
