package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"autorec/encoder"
	"autorec/recorder"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingTickMsg struct{ Seconds int }
type SegmentMsg struct {
	Blob recorder.Blob
	Path string // empty unless saved
	Err  error  // save failure
}
type ErrorMsg struct{ Err error }
type ModeLineMsg struct{ Text string }   // container and auto-stop info
type DeviceLineMsg struct{ Text string } // microphone device name
type tickMsg time.Time

type opKind int

const (
	opStart opKind = iota
	opPause
	opStop
)

type opDoneMsg struct {
	op  opKind
	err error
}

const (
	maxSegments = 8
	meterWidth  = 32
)

// controller is the part of the recorder the TUI drives.
type controller interface {
	Start(ctx context.Context) error
	Pause() <-chan struct{}
	Stop() <-chan struct{}
	State() recorder.RecordingState
	Level() float64
	Time() int
	RecordType() encoder.Format
}

type tuiModel struct {
	ctl       controller
	threshold float64

	state    recorder.RecordingState
	paused   bool
	seconds  int
	level    float64
	busy     bool // an op is in flight
	segments []SegmentMsg
	lastErr  string

	width, height int
	modeLine      string
	deviceLine    string
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	recStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	pauseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	idleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	meterOn    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	meterLoud  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	meterOff   = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	panelStyle = lipgloss.NewStyle().Padding(1, 2)
	helpKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

func newTUIModel(ctl controller, threshold float64, modeLine, deviceLine string) tuiModel {
	return tuiModel{ctl: ctl, threshold: threshold, modeLine: modeLine, deviceLine: deviceLine}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func runOp(ctl controller, op opKind) tea.Cmd {
	return func() tea.Msg {
		switch op {
		case opStart:
			return opDoneMsg{op: op, err: ctl.Start(context.Background())}
		case opPause:
			<-ctl.Pause()
		case opStop:
			<-ctl.Stop()
		}
		return opDoneMsg{op: op}
	}
}

func quitCmd(ctl controller) tea.Cmd {
	return func() tea.Msg {
		<-ctl.Stop()
		return tea.Quit()
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, quitCmd(m.ctl)
		case " ", "r":
			if m.busy {
				return m, nil
			}
			m.busy = true
			if m.state == recorder.Recording {
				return m, runOp(m.ctl, opPause)
			}
			return m, runOp(m.ctl, opStart)
		case "s":
			if m.busy {
				return m, nil
			}
			m.busy = true
			return m, runOp(m.ctl, opStop)
		}

	case tickMsg:
		m.state = m.ctl.State()
		m.seconds = m.ctl.Time()
		lvl := m.ctl.Level()
		m.level = m.level*0.6 + lvl*0.4
		if m.state != recorder.Recording {
			m.level = 0
		}
		return m, tuiTick()

	case opDoneMsg:
		m.busy = false
		m.state = m.ctl.State()
		switch {
		case msg.err != nil:
			m.lastErr = msg.err.Error()
		case msg.op == opPause:
			m.paused = m.state == recorder.Idle
		case msg.op == opStop:
			m.paused = false
		}

	case RecordingStartMsg:
		m.state = recorder.Recording
		m.paused = false
		m.seconds = 0
		m.lastErr = ""

	case RecordingTickMsg:
		m.seconds = msg.Seconds

	case SegmentMsg:
		m.segments = append(m.segments, msg)
		if len(m.segments) > maxSegments {
			m.segments = m.segments[len(m.segments)-maxSegments:]
		}
		// Auto-stop pauses from inside the recorder.
		if m.ctl.State() == recorder.Idle {
			m.paused = true
		}

	case ErrorMsg:
		m.lastErr = msg.Err.Error()

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	lines = append(lines, m.statusLine(), "")
	lines = append(lines, renderMeter(m.level, m.threshold, meterWidth))
	lines = append(lines, "")

	if m.modeLine != "" {
		lines = append(lines, infoStyle.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, idleStyle.Render(m.deviceLine))
	}
	if m.lastErr != "" {
		lines = append(lines, errStyle.Render("⚠ "+m.lastErr))
	}

	lines = append(lines, "")
	if len(m.segments) == 0 {
		lines = append(lines, idleStyle.Render("No recordings yet"))
	}
	for i := len(m.segments) - 1; i >= 0; i-- {
		lines = append(lines, segmentLine(m.segments[i]))
	}

	lines = append(lines, "",
		helpKey.Render("space")+dimStyle.Render(" record/pause  ")+
			helpKey.Render("s")+dimStyle.Render(" stop  ")+
			helpKey.Render("q")+dimStyle.Render(" quit"),
		dimStyle.Render("autorec "+version),
	)

	return panelStyle.Width(m.width).Render(strings.Join(lines, "\n"))
}

func (m tuiModel) statusLine() string {
	timer := recorder.FormatTime(m.seconds)
	switch {
	case m.state == recorder.Recording:
		return recStyle.Render("● REC " + timer)
	case m.state == recorder.Acquiring:
		return idleStyle.Render("… opening microphone")
	case m.state == recorder.Finalizing:
		return pauseStyle.Render("◌ saving " + timer)
	case m.paused:
		return pauseStyle.Render("‖ PAUSED " + timer)
	}
	return idleStyle.Render("○ STANDBY --:--")
}

// renderMeter draws level (0..255) with a marker at the silence threshold.
func renderMeter(level, threshold float64, width int) string {
	filled := int(level / 255 * float64(width))
	filled = min(max(filled, 0), width)
	mark := int(threshold / 255 * float64(width))

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == mark:
			b.WriteString(dimStyle.Render("│"))
		case i < filled && i > mark:
			b.WriteString(meterLoud.Render("█"))
		case i < filled:
			b.WriteString(meterOn.Render("█"))
		default:
			b.WriteString(meterOff.Render("░"))
		}
	}
	return b.String() + infoStyle.Render(fmt.Sprintf(" %3.0f", level))
}

func segmentLine(s SegmentMsg) string {
	secs := int(s.Blob.Duration.Round(time.Second) / time.Second)
	text := fmt.Sprintf("%s  %s  %.1f KB", recorder.FormatTime(secs), s.Blob.Extension, float64(len(s.Blob.Data))/1024)
	switch {
	case s.Err != nil:
		return errStyle.Render("✗ " + text + "  " + s.Err.Error())
	case s.Path != "":
		return okStyle.Render("✓ ") + infoStyle.Render(text+"  "+s.Path)
	}
	return okStyle.Render("✓ ") + infoStyle.Render(text)
}

func modeLineText(ctl controller, cfg recorder.Config) string {
	f := ctl.RecordType()
	mode := "manual stop"
	if cfg.AutoStop {
		mode = fmt.Sprintf("auto-stop after %.1fs below %.0f", cfg.SilenceThreshold.Seconds(), cfg.VolumeThreshold)
	}
	return fmt.Sprintf("[%s | %s]", strings.ToUpper(f.Extension), mode)
}
