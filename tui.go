package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"drowse/alert"
	"drowse/fatigue"
)

// TUI message types
type FrameMsg struct{ Status fatigue.Status }
type FaceLostMsg struct{ Frames int }
type AlertMsg struct {
	Kind      alert.Kind
	Utterance string
	At        time.Time
}
type SourceLineMsg struct{ Text string } // landmark source description
type ConfigLineMsg struct{ Text string } // thresholds in use
type tickMsg time.Time

type tuiModel struct {
	frame         int
	width, height int
	status        fatigue.Status
	seen          bool // at least one frame with a face
	lostFrames    int
	yawnAlerts    int
	drowsyAlerts  int
	lastAlert     AlertMsg
	breakDue      bool // a yawn alert fired on the latest frame
	sourceLine    string
	configLine    string
}

// Pre-computed pixel styles to avoid allocations in render loop
var (
	pixelColorsAwake = []string{"", "231", "153", "117", "81", "45", "39", "33", "27", "236", "236", "236", "236", "236", "255", "249"}
	pixelColorsAlarm = []string{"", "226", "220", "214", "208", "196", "160", "124", "88", "236", "236", "236", "236", "236", "255", "249"}
	pixelStylesAwake [16]lipgloss.Style
	pixelStylesAlarm [16]lipgloss.Style
	pixelBgAwake     [16][16]lipgloss.Style
	pixelBgAlarm     [16][16]lipgloss.Style
)

func init() {
	fill := func(colors []string, fg *[16]lipgloss.Style, bg *[16][16]lipgloss.Style) {
		for i, c := range colors {
			if c == "" {
				continue
			}
			fg[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
			for j, b := range colors {
				if b != "" {
					bg[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Background(lipgloss.Color(b))
				}
			}
		}
	}
	fill(pixelColorsAwake, &pixelStylesAwake, &pixelBgAwake)
	fill(pixelColorsAlarm, &pixelStylesAlarm, &pixelBgAlarm)
}

// NewTUIProgram builds the display. Without keys the program reads no input
// and quits only when told to.
func NewTUIProgram(keys bool) *tea.Program {
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if !keys {
		opts = append(opts, tea.WithInput(nil))
	}
	return tea.NewProgram(tuiModel{}, opts...)
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
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
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case FrameMsg:
		m.status = msg.Status
		m.seen = true
		m.lostFrames = 0
		m.breakDue = false

	case FaceLostMsg:
		m.lostFrames = msg.Frames

	case AlertMsg:
		switch msg.Kind {
		case alert.KindYawn:
			m.yawnAlerts++
			m.breakDue = true
		case alert.KindDrowsy:
			m.drowsyAlerts++
		}
		m.lastAlert = msg

	case SourceLineMsg:
		m.sourceLine = msg.Text

	case ConfigLineMsg:
		m.configLine = msg.Text
	}
	return m, nil
}

// banners returns the warnings shown for the current frame, most severe last.
// The break prompt belongs to the frame whose yawn alert was dispatched, not
// to every frame the yawn alarm holds.
func banners(st fatigue.Status, yawnAlerted bool) []string {
	var out []string
	if st.Yawning {
		out = append(out, "Yawning Detected!")
	}
	if yawnAlerted {
		out = append(out, "Take a Break!")
	}
	if st.DrowsyAlarm {
		out = append(out, "Drowsiness Detected!")
	}
	return out
}

// openness maps the latest EAR onto the drawn eye. The lid sits half open
// right at the closed-eye threshold.
func (m tuiModel) openness() float64 {
	if !m.seen || m.lostFrames > 0 {
		return 1
	}
	threshold := m.status.EyeThreshold
	if threshold <= 0 {
		threshold = fatigue.DefaultEyeThreshold
	}
	return m.status.Ratios.EAR / (2 * threshold)
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const eyeWidth = 45
	st := m.status
	alarm := st.YawnAlarm || st.DrowsyAlarm
	eye := renderEye(m.frame, m.openness(), alarm)

	var infoLines []string
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	switch {
	case !m.seen:
		infoLines = append(infoLines, dim.Render("○ WAITING FOR FRAMES"))
	case m.lostFrames > 0:
		lost := lipgloss.NewStyle().Foreground(lipgloss.Color("208")).
			Render(fmt.Sprintf("⚠ no face (%d frames)", m.lostFrames))
		infoLines = append(infoLines, lost)
	default:
		infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("● TRACKING"))
	}

	if m.sourceLine != "" {
		infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(m.sourceLine))
	}
	if m.configLine != "" {
		infoLines = append(infoLines, dim.Render(m.configLine))
	}

	infoLines = append(infoLines, "")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	infoLines = append(infoLines, boldStyle.Render("q")+helpStyle.Render(" to quit"))
	infoLines = append(infoLines, helpStyle.Render("drowse "+version))

	for _, line := range infoLines {
		eye += line + "\n"
	}
	eyeLines := strings.Split(eye, "\n")

	panelWidth := m.width - eyeWidth - 1
	if panelWidth < 20 {
		panelWidth = 20
	}

	var panel strings.Builder
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	if m.seen {
		fmt.Fprintf(&panel, "%s %s\n", label.Render("MAR:"), value.Render(fmt.Sprintf("%.2f", st.Ratios.MAR)))
		fmt.Fprintf(&panel, "%s %s\n", label.Render("EAR:"), value.Render(fmt.Sprintf("%.2f", st.Ratios.EAR)))
		fmt.Fprintf(&panel, "%s %s\n", label.Render("yawn frames:"), value.Render(fmt.Sprint(st.YawnFrames)))
		fmt.Fprintf(&panel, "%s %s\n", label.Render("eyes closed:"),
			value.Render(fmt.Sprintf("%d/%d", st.ClosedFrames, st.ClosedNeeded)))
		panel.WriteString("\n")
	}

	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	for _, b := range banners(st, m.breakDue) {
		panel.WriteString(warn.Render(b) + "\n")
	}

	counts := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	panel.WriteString("\n" + counts.Render(fmt.Sprintf("alerts: %d yawn, %d drowsy", m.yawnAlerts, m.drowsyAlerts)) + "\n")
	if m.lastAlert.Kind != "" {
		last := fmt.Sprintf("last: %s %s", m.lastAlert.At.Format("15:04:05"), m.lastAlert.Utterance)
		for _, line := range wrapText(last, panelWidth-2) {
			panel.WriteString(counts.Render(line) + "\n")
		}
	}

	rightPanel := lipgloss.NewStyle().
		Width(panelWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(panel.String())

	// Pad eye panel to full height (eye at top)
	eyePadded := make([]string, m.height)
	for i := range eyePadded {
		if i < len(eyeLines) {
			eyePadded[i] = eyeLines[i]
		} else {
			eyePadded[i] = strings.Repeat(" ", eyeWidth-1)
		}
	}

	eyePanel := lipgloss.NewStyle().
		Width(eyeWidth - 1).
		Height(m.height).
		Render(strings.Join(eyePadded, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, eyePanel, rightPanel)
}

// renderEye draws a ringed eye whose vertical aperture follows openness
// (1 = wide open, 0 = shut).
func renderEye(frame int, openness float64, alarm bool) string {
	const charsW = 44
	const charsH = 15
	const pixW = charsW
	const pixH = charsH * 2

	openness = math.Max(0.06, math.Min(openness, 1))
	centerX := float64(pixW) / 2
	centerY := float64(pixH) / 2
	lid := openness * 11.0

	var breathe float64
	if alarm {
		breathe = math.Sin(float64(frame)*0.35) * 0.08
	} else {
		breathe = math.Sin(float64(frame)*0.08) * 0.02
	}

	rings := []struct {
		radius   float64
		colorIdx int
	}{
		{0.6, 1}, {1.3, 2}, {2.0, 3}, {2.8, 4}, {3.5, 5}, {4.2, 6},
		{5.0, 7}, {5.8, 8}, {6.5, 9}, {8.0, 10}, {10.0, 11}, {12.0, 12},
	}

	pixels := make([][]int, pixH)
	for i := range pixels {
		pixels[i] = make([]int, pixW)
	}
	for y := 0; y < pixH; y++ {
		dy := float64(y) - centerY
		if math.Abs(dy) > lid {
			continue
		}
		for x := 0; x < pixW; x++ {
			dx := float64(x) - centerX
			dist := math.Sqrt(dx*dx + dy*dy)
			for _, r := range rings {
				if dist < r.radius*(1+breathe) {
					pixels[y][x] = r.colorIdx
					break
				}
			}
		}
		// lid edges
		if math.Abs(math.Abs(dy)-lid) < 1 {
			for x := 0; x < pixW; x++ {
				if math.Abs(float64(x)-centerX) < 14 {
					pixels[y][x] = 13
				}
			}
		}
	}

	// Glint
	if openness > 0.3 {
		gx, gy := int(centerX-3), int(centerY-3)
		pixels[gy][gx] = 14
		pixels[gy][gx+1] = 15
	}

	styles, bgStyles := &pixelStylesAwake, &pixelBgAwake
	if alarm {
		styles, bgStyles = &pixelStylesAlarm, &pixelBgAlarm
	}

	var result strings.Builder
	for cy := 0; cy < charsH; cy++ {
		for cx := 0; cx < charsW; cx++ {
			top := pixels[cy*2][cx]
			bot := pixels[cy*2+1][cx]
			switch {
			case top == 0 && bot == 0:
				result.WriteString(" ")
			case top == bot:
				result.WriteString(styles[top].Render("█"))
			case bot == 0:
				result.WriteString(styles[top].Render("▀"))
			case top == 0:
				result.WriteString(styles[bot].Render("▄"))
			default:
				result.WriteString(bgStyles[top][bot].Render("▀"))
			}
		}
		result.WriteString("\n")
	}
	return result.String()
}

// wrapText fills lines word by word up to width runes. A word wider than
// the whole line is cut into pieces.
func wrapText(text string, width int) []string {
	width = max(width, 1)
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		if len(cur) > 0 && len(cur)+1+len(w) > width {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
		for len(w) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = cur[:0]
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		if len(w) == 0 {
			continue
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	if len(cur) > 0 || len(lines) == 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// tuiSink forwards monitor events to a running Bubble Tea program.
type tuiSink struct {
	p *tea.Program
}

func (s tuiSink) FrameUpdate(st fatigue.Status) { s.p.Send(FrameMsg{Status: st}) }
func (s tuiSink) FaceLost(frames int)           { s.p.Send(FaceLostMsg{Frames: frames}) }
func (s tuiSink) SourceLine(text string)        { s.p.Send(SourceLineMsg{Text: text}) }
func (s tuiSink) ConfigLine(text string)        { s.p.Send(ConfigLineMsg{Text: text}) }

func (s tuiSink) Alert(kind alert.Kind, utterance string) {
	s.p.Send(AlertMsg{Kind: kind, Utterance: utterance, At: time.Now()})
}
