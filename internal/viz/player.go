package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/breathsim/internal/experiment"
	"github.com/san-kum/breathsim/internal/physics"
)

const (
	canvasWidth  = 60
	canvasHeight = 16
	traceWindow  = 400
	frameRate    = 30
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(50)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Player replays a stored run: the field profile at the current sample on a
// braille canvas, and the selected site's recent history as a chart.
type Player struct {
	res      *experiment.Result
	energy   []float64
	lo, hi   float64
	frame    int
	site     int
	speed    int
	running  bool
	canvas   *Canvas
	theme    Theme
	showHelp bool

	recording bool
	frames    []*image.Paletted
	gifPath   string
	status    string
}

func NewPlayer(res *experiment.Result, gifPath string) Player {
	cfg := res.Config
	field := physics.NewBreathingField(cfg.GridSize, cfg.Kappa, cfg.Lambda, cfg.Coupling)

	energy := make([]float64, res.Samples())
	for k := range energy {
		energy[k] = field.Energy(res.State(k))
	}
	lo, hi := Range(res.Field)

	return Player{
		res:     res,
		energy:  energy,
		lo:      lo,
		hi:      hi,
		site:    res.GridSize() / 2,
		speed:   1,
		running: true,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		theme:   CurrentTheme,
		gifPath: gifPath,
	}
}

func (m Player) Init() tea.Cmd {
	return tick()
}

func (m Player) Frame() int { return m.frame }

func (m Player) Site() int { return m.site }

func (m Player) Running() bool { return m.running }

func (m Player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	last := m.res.Samples() - 1

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if !m.running && m.frame >= last {
				m.frame = 0
			}
			m.running = !m.running
		case "r":
			m.frame = 0
		case "[":
			m.running = false
			m.frame = max(0, m.frame-1)
		case "]":
			m.running = false
			m.frame = min(last, m.frame+1)
		case "left", "h":
			m.site = max(0, m.site-1)
		case "right", "l":
			m.site = min(m.res.GridSize()-1, m.site+1)
		case "+", "=":
			m.speed = min(64, m.speed*2)
		case "-", "_":
			m.speed = max(1, m.speed/2)
		case "t":
			m.theme = NextTheme(m.theme)
		case "g":
			m.toggleRecording()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.frame += m.speed
			if m.frame >= last {
				m.frame = last
				m.running = false
			}
		}
		if m.recording {
			m.draw()
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Player) toggleRecording() {
	if !m.recording {
		m.recording = true
		m.frames = m.frames[:0]
		m.status = "recording"
		return
	}
	m.recording = false
	if err := m.saveGIF(); err != nil {
		m.status = "gif: " + err.Error()
	} else {
		m.status = fmt.Sprintf("saved %d frames to %s", len(m.frames), m.gifPath)
	}
	m.frames = nil
}

func (m *Player) draw() {
	m.canvas.Clear()
	m.canvas.PlotProfile(m.res.Profile(m.frame), m.lo, m.hi, m.site)
}

func (m Player) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	accent := lipgloss.NewStyle().Foreground(m.theme.Accent).Bold(true)
	var s strings.Builder
	s.WriteString(HeaderStyle.Render("BREATHING FIELD") + "\n")

	status := StatusPaused.Render("PAUSED")
	if m.running {
		status = StatusRunning.Render(fmt.Sprintf("PLAYING x%d", m.speed))
	}
	if m.recording {
		status += "  " + StatusRecording.Render("● REC")
	}
	s.WriteString(status + "\n\n")

	k := m.frame
	t := m.res.Times[k]
	s.WriteString(MetricLabel.Render("t") + MetricValue.Render(fmt.Sprintf("%.2f / %.0f", t, m.res.Times[len(m.res.Times)-1])) + "\n")
	s.WriteString(MetricLabel.Render("sample") + MetricValue.Render(fmt.Sprintf("%d / %d", k, m.res.Samples()-1)) + "\n")
	s.WriteString(MetricLabel.Render("energy") + MetricValue.Render(fmt.Sprintf("%.6f", m.energy[k])) + "\n")
	s.WriteString(MetricLabel.Render("site") + accent.Render(fmt.Sprintf("%d", m.site)) + "\n")
	s.WriteString(MetricLabel.Render("phi") + MetricValue.Render(fmt.Sprintf("%+.4f", m.res.Field[m.site][k])) + "\n")
	s.WriteString(MetricLabel.Render("dphi") + MetricValue.Render(fmt.Sprintf("%+.4f", m.res.Velocity[m.site][k])) + "\n")

	from := max(0, k-traceWindow)
	if trace := m.res.Field[m.site][from : k+1]; len(trace) > 1 {
		chart := asciigraph.Plot(trace, asciigraph.Height(6), asciigraph.Width(36), asciigraph.Caption(fmt.Sprintf("phi[%d]", m.site)))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(MetricLabel.Render("energy") + SparklineChart(m.energy[:k+1], 30) + "\n")

	if m.status != "" {
		s.WriteString("\n" + KeyHint.Render(m.status) + "\n")
	}
	s.WriteString(helpStyle.Render(Separator(30) + "\nSP:Play  [ ]:Step  R:Rewind  Q:Quit\nH/L:Site +/-:Speed T:Theme  G:GIF"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Play/Pause               ║
║  [ / ]    - Step one sample          ║
║  R        - Rewind to t=0            ║
║  H/L ←/→  - Select site              ║
║  + / -    - Playback speed           ║
║  T        - Cycle themes             ║
║  G        - Toggle GIF recording     ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// captureFrame rasterizes the braille canvas, one 4x4 block per dot.
func (m *Player) captureFrame() {
	const dot = 4
	imgW, imgH := m.canvas.Width*2*dot, m.canvas.Height*4*dot
	fg := m.theme.Colormap.At(0.85)
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), color.Palette{color.Black, fg})

	for y := 0; y < m.canvas.Height*4; y++ {
		for x := 0; x < m.canvas.Width*2; x++ {
			if !m.canvas.Pixel(x, y) {
				continue
			}
			for py := 0; py < dot; py++ {
				for px := 0; px < dot; px++ {
					img.SetColorIndex(x*dot+px, y*dot+py, 1)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Player) saveGIF() error {
	if len(m.frames) == 0 {
		return fmt.Errorf("no frames recorded")
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 100/frameRate)
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(f, &anim); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Play runs the player full screen until the user quits.
func Play(res *experiment.Result, gifPath string) error {
	if res.Samples() == 0 || res.GridSize() == 0 {
		return fmt.Errorf("nothing to play: %d sites, %d samples", res.GridSize(), res.Samples())
	}
	_, err := tea.NewProgram(NewPlayer(res, gifPath), tea.WithAltScreen()).Run()
	return err
}
