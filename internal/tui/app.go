package tui

import (
	"context"
	"fmt"
	"time"

	determ "github.com/allbin/go-determ"
	"github.com/allbin/go-determ/internal/tui/components"
	"github.com/allbin/go-determ/internal/tui/keys"
	"github.com/allbin/go-determ/internal/tui/models"
	"github.com/allbin/go-determ/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const (
	defaultTick = 50 * time.Millisecond
	substitute  = "\x1a"
	inputHeight = 3
)

// Worker is the part of determ.Worker the UI talks to
type Worker interface {
	Send(cmd determ.Command) error
	Cancel() *determ.CancelFlag
	Lines() <-chan determ.Line
	Results() <-chan determ.Result
}

// PortScanner lists the ports shown in the port pane
type PortScanner func() ([]determ.PortInfo, error)

type Options struct {
	BaudRate   int
	Scrollback int
	Tick       time.Duration
	Port       string // opened on start when set
	Scan       PortScanner
	Log        *zap.Logger
}

type (
	lineMsg       determ.Line
	resultMsg     determ.Result
	tickMsg       time.Time
	workerDoneMsg struct{}
)

type portsMsg struct {
	ports []determ.PortInfo
	err   error
}

// Model is the interactive terminal: ports on the left, the scrollback of the
// active port on the right and a write box below.
type Model struct {
	worker Worker
	log    *zap.Logger
	scan   PortScanner
	tick   time.Duration

	keys     keys.AppKeys
	help     help.Model
	mode     models.Mode
	ports    *components.PortList
	terminal *components.Terminal
	input    *components.Input
	status   *components.StatusBar
	scroll   *models.Scrollback

	active  string
	pending string

	width  int
	height int
	now    time.Time
}

func New(worker Worker, opts Options) *Model {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.Scan == nil {
		opts.Scan = ScanPorts
	}

	m := &Model{
		worker:   worker,
		log:      opts.Log,
		scan:     opts.Scan,
		tick:     opts.Tick,
		keys:     keys.NewAppKeys(),
		help:     help.New(),
		mode:     models.ModeListing,
		ports:    components.NewPortList(0, 0),
		terminal: components.NewTerminal(0, 0),
		input:    components.NewInput(),
		status:   components.NewStatusBar(opts.BaudRate),
		scroll:   models.NewScrollback(opts.Scrollback),
		now:      time.Now(),
	}
	m.ports.SetFocused(true)

	if opts.Port != "" {
		m.changePort(opts.Port)
	}
	return m
}

// Run starts the program and blocks until the user quits or ctx ends
func Run(ctx context.Context, worker Worker, opts Options) error {
	p := tea.NewProgram(New(worker, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}

// ScanPorts lists the system's serial ports with their details
func ScanPorts() ([]determ.PortInfo, error) {
	paths, err := determ.ListPorts()
	if err != nil {
		return nil, err
	}

	ports := make([]determ.PortInfo, 0, len(paths))
	for _, path := range paths {
		info, err := determ.GetPortInfo(path)
		if err != nil {
			continue
		}
		ports = append(ports, *info)
	}
	return ports, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.scanPorts(),
		waitForLine(m.worker.Lines()),
		waitForResult(m.worker.Results()),
		m.tickCmd(),
	)
}

func (m *Model) scanPorts() tea.Cmd {
	scan := m.scan
	return func() tea.Msg {
		ports, err := scan()
		return portsMsg{ports: ports, err: err}
	}
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForLine(lines <-chan determ.Line) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return workerDoneMsg{}
		}
		return lineMsg(line)
	}
}

func waitForResult(results <-chan determ.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-results
		if !ok {
			return workerDoneMsg{}
		}
		return resultMsg(res)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case lineMsg:
		line := determ.Line(msg)
		m.scroll.Add(line)
		if line.Device == m.active {
			m.terminal.SetLines(m.scroll.For(m.active).Lines())
		}
		return m, waitForLine(m.worker.Lines())

	case resultMsg:
		m.handleResult(determ.Result(msg))
		return m, waitForResult(m.worker.Results())

	case portsMsg:
		if msg.err != nil {
			m.log.Warn("port scan failed", zap.Error(msg.err))
			m.status.SetError(fmt.Errorf("scan ports: %w", msg.err))
			return m, nil
		}
		m.ports.SetPorts(msg.ports)
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, m.tickCmd()

	case workerDoneMsg:
		return m, tea.Quit

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.terminal, cmd = m.terminal.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode != models.ModeWriting {
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			return m, nil
		}
	case key.Matches(msg, m.keys.NextPane):
		return m, m.setMode(m.mode.Next())
	}

	if m.mode != models.ModeWriting {
		switch {
		case key.Matches(msg, m.keys.Left):
			return m, m.setMode(m.mode.Left())
		case key.Matches(msg, m.keys.Right):
			return m, m.setMode(m.mode.Right())
		}
	}

	switch m.mode {
	case models.ModeListing:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.ports.MoveUp()
		case key.Matches(msg, m.keys.Down):
			m.ports.MoveDown()
		case key.Matches(msg, m.keys.Select):
			if path := m.ports.Selected(); path != "" {
				m.changePort(path)
			}
		case key.Matches(msg, m.keys.Refresh):
			return m, m.scanPorts()
		}
		return m, nil

	case models.ModeTerm:
		m.handleScroll(msg)
		return m, nil

	default:
		return m.handleWriting(msg)
	}
}

func (m *Model) handleScroll(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.terminal.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.terminal.ScrollDown()
	case key.Matches(msg, m.keys.PgUp):
		m.terminal.PageUp()
	case key.Matches(msg, m.keys.PgDown):
		m.terminal.PageDown()
	case key.Matches(msg, m.keys.End):
		m.terminal.Follow()
	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.ToggleHex()
	case key.Matches(msg, m.keys.Clear):
		if m.active != "" {
			m.scroll.For(m.active).Clear()
			m.terminal.SetLines(nil)
		}
	default:
		return false
	}
	return true
}

func (m *Model) handleWriting(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.handleScroll(msg) {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Send):
		suffix := "\n"
		if m.input.SendingMode() == components.SendingModeHex {
			suffix = ""
		}
		m.sendInput(suffix)
	case key.Matches(msg, m.keys.Substitute):
		m.sendInput(substitute)
	case key.Matches(msg, m.keys.ToggleDTR):
		dtr, _ := m.status.Signals()
		m.send(determ.WriteDTR{Level: !dtr})
	case key.Matches(msg, m.keys.ToggleRTS):
		_, rts := m.status.Signals()
		m.send(determ.WriteRTS{Level: !rts})
	case key.Matches(msg, m.keys.HistoryPrev):
		m.input.NavigateHistoryUp()
	case key.Matches(msg, m.keys.HistoryNext):
		m.input.NavigateHistoryDown()
	case key.Matches(msg, m.keys.SendMode):
		m.input.ToggleSendingMode()
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) setMode(mode models.Mode) tea.Cmd {
	m.mode = mode
	m.ports.SetFocused(mode == models.ModeListing)
	m.resize()
	if mode == models.ModeWriting {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

// send queues cmd and then interrupts the worker's pending line read
func (m *Model) send(cmd determ.Command) bool {
	if err := m.worker.Send(cmd); err != nil {
		m.log.Warn("command not queued", zap.Any("command", cmd), zap.Error(err))
		m.status.SetError(err)
		return false
	}
	m.worker.Cancel().Set()
	return true
}

func (m *Model) changePort(path string) {
	m.log.Debug("change port requested", zap.String("device", path))
	if m.send(determ.ChangePort{Device: path}) {
		m.pending = path
		m.status.SetOpening(path)
	}
}

func (m *Model) sendInput(suffix string) {
	if m.active == "" {
		m.status.SetError(determ.ErrNoActiveDevice)
		return
	}

	payload, err := m.input.Payload()
	if err != nil {
		m.status.SetError(err)
		return
	}

	if !m.send(determ.WriteRaw{Text: payload + suffix}) {
		return
	}
	m.input.AddToHistory(m.input.Value())
	m.input.Reset()
}

func (m *Model) handleResult(res determ.Result) {
	switch res.Kind {
	case determ.ResultOpen:
		if res.Device == m.pending {
			m.pending = ""
		}
		if !res.OK {
			m.log.Warn("open failed", zap.String("device", res.Device), zap.Error(res.Err))
			m.ports.SetFailed(res.Device)
			m.status.SetOpenFailed(res.Err)
			return
		}
		m.active = res.Device
		m.ports.SetActive(res.Device)
		m.status.SetActive(res.Device)
		m.terminal.SetLines(m.scroll.For(res.Device).Lines())
		m.terminal.Follow()

	case determ.ResultWrite:
		if !res.OK {
			m.status.SetError(res.Err)
		}

	case determ.ResultSignal:
		// the tracked level only follows confirmed scripts
		if !res.OK {
			m.status.SetError(fmt.Errorf("%s reset: %w", res.Signal, res.Err))
			return
		}
		m.status.SetMessage(fmt.Sprintf("%s reset done", res.Signal))
		m.status.SetSignal(res.Signal, res.Level)

	case determ.ResultRead:
		m.status.SetError(res.Err)
	}
}

func (m *Model) helpKeys() help.KeyMap {
	switch m.mode {
	case models.ModeTerm:
		return keys.TermHelp{AppKeys: m.keys}
	case models.ModeWriting:
		return keys.WritingHelp{AppKeys: m.keys}
	default:
		return keys.ListingHelp{AppKeys: m.keys}
	}
}

// paneWidths splits the screen between the port list and the scrollback
func (m *Model) paneWidths() (int, int) {
	left := m.width / 3
	if left < 24 {
		left = 24
	}
	if left > 40 {
		left = 40
	}
	right := m.width - left
	if right < 10 {
		right = 10
	}
	return left, right
}

func (m *Model) bodyHeight() int {
	m.help.Width = m.width
	helpHeight := lipgloss.Height(m.help.View(m.helpKeys()))
	// title, input, status bar and help
	h := m.height - 1 - inputHeight - 1 - helpHeight
	if h < 4 {
		h = 4
	}
	return h
}

func (m *Model) resize() {
	if m.width == 0 {
		return
	}
	left, right := m.paneWidths()
	body := m.bodyHeight()

	// pane border (2) and pane title (1)
	m.ports.SetSize(left-2, body-3)
	m.terminal.SetSize(right-2, body-3)
	m.input.SetWidth(m.width)
	m.status.SetWidth(m.width)
}

func pane(title, content string, width, height int, focused bool) string {
	style := styles.PaneStyle
	if focused {
		style = styles.FocusedPaneStyle
	}
	return style.
		Width(width - 2).
		Height(height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, styles.PaneTitleStyle.Render(title), content))
}

func (m *Model) View() string {
	if m.width == 0 {
		return "starting..."
	}

	left, right := m.paneWidths()
	body := m.bodyHeight()

	activeTitle := m.active
	if activeTitle == "" {
		activeTitle = "no port"
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		pane("ports", m.ports.View(), left, body, m.mode == models.ModeListing),
		pane(activeTitle, m.terminal.View(), right, body, m.mode == models.ModeTerm),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("⏱ determ"),
		panes,
		m.input.View(m.mode == models.ModeWriting),
		m.status.View(m.mode.String(), m.now.Format("15:04:05")),
		m.help.View(m.helpKeys()),
	)
}
