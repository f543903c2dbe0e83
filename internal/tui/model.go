package tui

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

// State represents the current state of the TUI.
type State int

const (
	StateBrowse State = iota
	StateDetail
	StateHelp
)

// compactWidth is the terminal width below which the detail pane is hidden.
const compactWidth = 80

// Config holds the configuration for the photo browser.
type Config struct {
	Storage  service.Storage
	MinScore *float64
}

// Model holds the main TUI state.
type Model struct {
	ctx       context.Context
	lastError error
	config    Config
	theme     Theme
	keymap    KeyMap
	table     table.Model
	detail    viewport.Model
	help      help.Model
	entries   []photoEntry
	visible   []photoEntry
	filter    filterMode
	state     State
	width     int
	height    int
	ready     bool
	quitting  bool
}

// newModel creates a new model with the given configuration.
func newModel(ctx context.Context, cfg Config) Model {
	theme := DefaultTheme()

	t := table.New(table.WithFocused(true))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Bold(true).
		Foreground(theme.Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true)
	styles.Selected = theme.Selected
	t.SetStyles(styles)

	m := Model{
		ctx:    ctx,
		config: cfg,
		theme:  theme,
		keymap: DefaultKeyMap(),
		table:  t,
		detail: viewport.New(0, 0),
		help:   help.New(),
		state:  StateBrowse,
	}
	m.resizeColumns(compactWidth)
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return m.loadPhotos()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.handleResize()
		return m, nil

	case photosLoadedMsg:
		m.ready = true
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.lastError = nil
		m.entries = msg.entries
		m.applyFilter()
		return m, nil

	case errorMsg:
		m.lastError = msg.err
		return m, nil
	}

	return m, nil
}

// handleKey routes key presses based on the current state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state {
	case StateHelp:
		if key.Matches(msg, m.keymap.Back, m.keymap.Help, m.keymap.Quit) {
			m.state = StateBrowse
		}
		return m, nil

	case StateDetail:
		switch {
		case key.Matches(msg, m.keymap.Back, m.keymap.Quit):
			m.state = StateBrowse
			m.handleResize()
			return m, nil
		case key.Matches(msg, m.keymap.Help):
			m.state = StateHelp
			return m, nil
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	default:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Help):
			m.state = StateHelp
			return m, nil
		case key.Matches(msg, m.keymap.Open):
			if len(m.visible) > 0 {
				m.state = StateDetail
				m.handleResize()
			}
			return m, nil
		case key.Matches(msg, m.keymap.CycleFilter):
			m.filter = m.filter.next()
			m.applyFilter()
			return m, nil
		case key.Matches(msg, m.keymap.Refresh):
			m.ready = false
			return m, m.loadPhotos()
		case key.Matches(msg, m.keymap.ScrollDown):
			m.detail.LineDown(3)
			return m, nil
		case key.Matches(msg, m.keymap.ScrollUp):
			m.detail.LineUp(3)
			return m, nil
		}

		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		m.updateDetail()
		return m, cmd
	}
}

// loadPhotos fetches the library with labels and scores attached.
func (m Model) loadPhotos() tea.Cmd {
	ctx := m.ctx
	storage := m.config.Storage
	minScore := m.config.MinScore

	return func() tea.Msg {
		photos, err := storage.GetPhotos(ctx, service.PhotoFilter{MinScore: minScore})
		if err != nil {
			return photosLoadedMsg{err: err}
		}

		entries := make([]photoEntry, 0, len(photos))
		for i := range photos {
			entry := photoEntry{Photo: photos[i]}

			labels, labelErr := storage.GetPhotoLabels(ctx, entry.Photo.ID)
			if labelErr != nil {
				return photosLoadedMsg{err: labelErr}
			}
			entry.Labels = labels

			result, resErr := storage.GetClassification(ctx, entry.Photo.ID)
			switch {
			case resErr == nil:
				entry.Result = result
			case errors.Is(resErr, common.ErrNotFound):
				// Unscored photos simply show no score
			default:
				return photosLoadedMsg{err: resErr}
			}

			entries = append(entries, entry)
		}
		return photosLoadedMsg{entries: entries}
	}
}

// applyFilter rebuilds the visible list from the current filter mode.
func (m *Model) applyFilter() {
	visible := make([]photoEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		switch m.filter {
		case filterAnalyzed:
			if !entry.Photo.Analyzed {
				continue
			}
		case filterPending:
			if entry.Photo.Analyzed {
				continue
			}
		}
		visible = append(visible, entry)
	}
	m.visible = visible

	rows := make([]table.Row, 0, len(visible))
	for _, entry := range visible {
		rows = append(rows, table.Row{
			filepath.Base(entry.Photo.AssetID),
			entry.Photo.CreatedAt.Format("2006-01-02 15:04"),
			scoreCell(entry),
			labelCell(entry.Labels),
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(visible) {
		m.table.SetCursor(0)
	}
	m.updateDetail()
}

// selectedEntry returns the entry under the cursor, or nil.
func (m Model) selectedEntry() *photoEntry {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return nil
	}
	return &m.visible[cursor]
}

// updateDetail refreshes the detail pane for the selected photo.
func (m *Model) updateDetail() {
	m.detail.SetContent(m.detailContent(m.selectedEntry()))
	m.detail.GotoTop()
}

// handleResize adjusts component sizes when the terminal resizes.
func (m *Model) handleResize() {
	if m.width == 0 {
		return
	}

	headerHeight := 2
	footerHeight := 2
	bodyHeight := m.height - headerHeight - footerHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	if m.state == StateDetail {
		m.detail.Width = m.width - 4
		m.detail.Height = bodyHeight - 2
		m.updateDetail()
		return
	}

	if m.width < compactWidth {
		m.table.SetWidth(m.width)
		m.table.SetHeight(bodyHeight)
		m.resizeColumns(m.width)
		m.detail.Width = m.width - 4
		m.detail.Height = bodyHeight - 2
	} else {
		listWidth := m.width / 2
		m.table.SetWidth(listWidth)
		m.table.SetHeight(bodyHeight)
		m.resizeColumns(listWidth)
		m.detail.Width = m.width - listWidth - 4
		m.detail.Height = bodyHeight - 2
	}
	m.updateDetail()
}

// resizeColumns distributes the table width across the columns. Each cell
// carries two columns of padding, hence the constant.
func (m *Model) resizeColumns(width int) {
	const taken, score = 16, 6
	rest := width - taken - score - 8
	if rest < 24 {
		rest = 24
	}
	file := rest * 3 / 5
	labels := rest - file

	m.table.SetColumns([]table.Column{
		{Title: "FILE", Width: file},
		{Title: "TAKEN", Width: taken},
		{Title: "SCORE", Width: score},
		{Title: "LABELS", Width: labels},
	})
}

func scoreCell(entry photoEntry) string {
	if entry.Result == nil {
		return "-"
	}
	return formatScore(entry.Result.Score)
}

func labelCell(labels []model.Label) string {
	if len(labels) == 0 {
		return ""
	}
	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, label.Name)
	}
	return strings.Join(names, ", ")
}

// decodeDetection parses a stored detection blob, returning nil when the
// photo has none or the blob is unreadable.
func decodeDetection(raw []byte) *model.DetectionResult {
	if len(raw) == 0 {
		return nil
	}
	var detection model.DetectionResult
	if err := json.Unmarshal(raw, &detection); err != nil {
		return nil
	}
	return &detection
}
