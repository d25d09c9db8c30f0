package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/armctl/internal/log"
	"github.com/gwillem/armctl/pkg/board"
	"github.com/gwillem/armctl/pkg/monitor"
	"github.com/gwillem/armctl/pkg/rig"
	"github.com/gwillem/armctl/pkg/robot"
)

type RunCommand struct {
	Limb    string `long:"limb" description:"Limb to drive (default: the limb whose role runs the behavior)"`
	Cell    int    `long:"cell" default:"-1" description:"Board cell 0-8 for place; asked for when omitted"`
	Hz      int    `long:"hz" default:"30" description:"Monitor refresh rate"`
	LogFile string `long:"log-file" default:"armctl.log" description:"Log file while the monitor is shown"`

	Args struct {
		Behavior string `positional-arg-name:"behavior" description:"out-of-view, standby, pick or place"`
	} `positional-args:"yes" required:"yes"`
}

type behaviorSpec struct {
	role robot.Role
	run  func(ctx context.Context, l *rig.Limb, cell int) error
}

var behaviors = map[string]behaviorSpec{
	"out-of-view": {robot.Spectator, func(ctx context.Context, l *rig.Limb, _ int) error {
		return l.Sequencer.MoveOutOfView(ctx)
	}},
	"standby": {robot.Player, func(ctx context.Context, l *rig.Limb, _ int) error {
		return l.Sequencer.MoveToStandby(ctx)
	}},
	"pick": {robot.Player, func(ctx context.Context, l *rig.Limb, _ int) error {
		return l.Sequencer.PickUpToken(ctx)
	}},
	"place": {robot.Player, func(ctx context.Context, l *rig.Limb, cell int) error {
		return l.Sequencer.PlaceToken(ctx, cell)
	}},
}

const (
	headerHeight = 2 // title + blank line
	statusHeight = 2 // status row + blank
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border

	chartMaxMeters = 0.5
)

var seriesColors = map[string]string{
	"z":     "51",  // cyan
	"range": "208", // orange
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	contactStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type runModel struct {
	mon      *monitor.Monitor
	title    string
	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	last     monitor.Sample
	done     bool
	err      error
	quitting bool
}

// Messages from the monitor and the behavior goroutine
type stateMsg monitor.State
type logMsg string
type doneMsg struct{ err error }

func waitForState(mon *monitor.Monitor) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-mon.States())
	}
}

func waitForLog(mon *monitor.Monitor) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-mon.Logs())
	}
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-statusHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func initialRunModel(mon *monitor.Monitor, title string) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, chartMaxMeters),
	)
	for name, color := range seriesColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return runModel{
		mon:   mon,
		title: title,
		chart: &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.mon),
		waitForLog(m.mon),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		if len(msg.Samples) > 0 {
			s := msg.Samples[0]
			if s.PoseKnown {
				m.chart.PushDataSet("z", clampChart(s.Pose.Position.Z))
			}
			if s.RangeKnown {
				m.chart.PushDataSet("range", clampChart(s.Range.Distance))
			}
			m.chart.DrawAll()
			m.last = s
		}
		return m, waitForState(m.mon)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.mon)

	case doneMsg:
		m.done = true
		m.err = msg.err
		if msg.err != nil {
			m.addLog(fmt.Sprintf("[%s] failed: %v", time.Now().Format("15:04:05"), msg.err))
		} else {
			m.addLog(fmt.Sprintf("[%s] done", time.Now().Format("15:04:05")))
		}
		return m, nil
	}

	return m, nil
}

func clampChart(v float64) float64 {
	return min(max(v, 0), chartMaxMeters)
}

func (m runModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.mon.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Status
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m runModel) renderStatus() string {
	var parts []string
	switch {
	case !m.done:
		parts = append(parts, "running")
	case m.err != nil:
		parts = append(parts, failStyle.Render("failed"))
	default:
		parts = append(parts, successStyle.Render("done"))
	}

	if m.last.PoseKnown {
		parts = append(parts, "pose "+m.last.Pose.String())
	} else {
		parts = append(parts, statusStyle.Render("pose unknown"))
	}
	if m.last.RangeKnown {
		parts = append(parts, fmt.Sprintf("range %.3f m (contact < %.3f)", m.last.Range.Distance, m.last.Threshold))
	}
	if m.last.InContact {
		parts = append(parts, contactStyle.Render("CONTACT"))
	}
	return strings.Join(parts, "  ")
}

func renderLegend() string {
	var items []string
	for _, name := range []string{"z", "range"} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

// pickCell asks for a board cell.
func pickCell() int {
	rows := []string{"top", "middle", "bottom"}
	cols := []string{"left", "center", "right"}

	options := make([]huh.Option[int], 0, board.NumCells)
	for cell := range board.NumCells {
		label := fmt.Sprintf("%d  %s %s", cell, rows[cell/board.Size], cols[cell%board.Size])
		options = append(options, huh.NewOption(label, cell))
	}

	var cell int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Place the token on which cell?").
				Options(options...).
				Value(&cell),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return cell
}

// limbFor picks the limb whose configured role runs the behavior.
func limbFor(cfg *robot.Config, role robot.Role) robot.Limb {
	if role == robot.Spectator {
		return cfg.Spectator.Limb
	}
	return cfg.Player.Limb
}

func (c *RunCommand) Execute(args []string) error {
	spec, ok := behaviors[c.Args.Behavior]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown behavior %q. Choose out-of-view, standby, pick or place.\n", c.Args.Behavior)
		os.Exit(1)
	}

	// The monitor owns the terminal, so logs go to a file.
	logFile, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log.InitTo(logFile, opts.LogLevel)

	cfg := loadConfig()

	limb := limbFor(cfg, spec.role)
	if c.Limb != "" {
		if limb, err = robot.ParseLimb(c.Limb); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	cell := c.Cell
	if c.Args.Behavior == "place" && cell < 0 {
		cell = pickCell()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	r, err := rig.Open(ctx, cfg, log.With("cmd", "run"), limb)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s limb: %v\n", limb, err)
		os.Exit(1)
	}
	l, _ := r.Limb(limb)

	go func() {
		if err := r.Run(ctx); err != nil && err != context.Canceled {
			log.L().Error("feedback stopped", "err", err)
		}
	}()

	mon := monitor.New(monitor.Config{
		Targets: []monitor.Target{{Limb: limb, Poses: l.Poses, Proximity: l.Proximity}},
		Hz:      c.Hz,
	})
	go mon.Start(ctx)

	title := fmt.Sprintf("armctl %s (%s, %s)", c.Args.Behavior, limb, l.Role)
	p := tea.NewProgram(initialRunModel(mon, title), tea.WithAltScreen())

	result := make(chan error, 1)
	go func() {
		mon.Logf("%s started on %s", c.Args.Behavior, limb)
		err := spec.run(ctx, l, cell)
		result <- err
		p.Send(doneMsg{err: err})
	}()

	_, tuiErr := p.Run()

	// Quitting the monitor aborts a behavior that is still running.
	cancel()
	err = <-result
	if closeErr := r.Close(); closeErr != nil {
		log.L().Warn("close rig", "err", closeErr)
	}

	if tuiErr != nil {
		fmt.Fprintf(os.Stderr, "Error running monitor: %v\n", tuiErr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", c.Args.Behavior, err)
		os.Exit(1)
	}
	fmt.Printf("%s done.\n", c.Args.Behavior)
	return nil
}
