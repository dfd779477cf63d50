package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wled-tools/wledbridge/internal/coordinator"
)

// watchInterval is the dashboard's poll period; faster than the default
// coordinator interval since a human is watching.
const watchInterval = 5 * time.Second

// brightnessStep is the +/- increment for the brightness keys.
const brightnessStep = 16

type pollDoneMsg struct {
	snap coordinator.Snapshot
	err  error
}

type commandDoneMsg struct {
	err error
}

type tickMsg struct{}

type watchKeyMap struct {
	Toggle   key.Binding
	Brighter key.Binding
	Dimmer   key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

var watchKeys = watchKeyMap{
	Toggle:   key.NewBinding(key.WithKeys(" ", "t"), key.WithHelp("space", "toggle power")),
	Brighter: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "brighter")),
	Dimmer:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "dimmer")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the live watch dashboard for one device.
type Model struct {
	coord *coordinator.Coordinator
	host  string

	spinner  spinner.Model
	snap     coordinator.Snapshot
	havePoll bool
	polling  bool
	cmdErr   error
}

// NewWatch builds the watch dashboard model.
func NewWatch(coord *coordinator.Coordinator, host string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return Model{
		coord:   coord,
		host:    host,
		spinner: sp,
		polling: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.pollCmd())
}

func (m Model) pollCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.coord.Poll(context.Background())
		return pollDoneMsg{snap: snap, err: err}
	}
}

func scheduleTick() tea.Cmd {
	return tea.Tick(watchInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m Model) sendCmd(run func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg{err: run(context.Background())}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, watchKeys.Quit):
			return m, tea.Quit

		case key.Matches(msg, watchKeys.Refresh):
			m.polling = true
			return m, m.pollCmd()

		case key.Matches(msg, watchKeys.Toggle):
			if !m.havePoll {
				return m, nil
			}
			on := m.snap.State.State.On
			return m, m.sendCmd(func(ctx context.Context) error {
				var err error
				if on {
					_, err = m.coord.TurnOff(ctx, nil)
				} else {
					_, err = m.coord.TurnOn(ctx, nil, nil, nil)
				}
				return err
			})

		case key.Matches(msg, watchKeys.Brighter), key.Matches(msg, watchKeys.Dimmer):
			if !m.havePoll {
				return m, nil
			}
			bri := m.snap.State.State.Brightness
			if key.Matches(msg, watchKeys.Brighter) {
				bri += brightnessStep
			} else {
				bri -= brightnessStep
			}
			if bri > 255 {
				bri = 255
			}
			if bri < 0 {
				bri = 0
			}
			return m, m.sendCmd(func(ctx context.Context) error {
				_, err := m.coord.SetBrightness(ctx, bri, nil)
				return err
			})
		}

	case pollDoneMsg:
		m.polling = false
		m.havePoll = true
		m.snap = msg.snap
		return m, scheduleTick()

	case commandDoneMsg:
		m.cmdErr = msg.err
		if msg.err == nil {
			// The coordinator already triggered a background refresh;
			// poll again so the dashboard catches up immediately.
			m.polling = true
			return m, m.pollCmd()
		}
		return m, nil

	case tickMsg:
		m.polling = true
		return m, m.pollCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	title := titleStyle.Render("WLED " + m.host)

	if !m.havePoll {
		return title + "\n" + m.spinner.View() + " connecting...\n"
	}

	state := m.snap.State.State

	power := "OFF"
	powerStyle := unavailableStyle
	if state.On {
		power = "ON"
		powerStyle = connectedStyle
	}

	rows := []string{
		row("Power", powerStyle.Render(power)),
		row("Brightness", fmt.Sprintf("%s %d", brightnessBar(state.Brightness), state.Brightness)),
		row("Availability", availabilityView(m.snap)),
	}

	if state.Preset >= 0 {
		rows = append(rows, row("Preset", strconv.Itoa(state.Preset)))
	}
	if state.Playlist >= 0 {
		rows = append(rows, row("Playlist", strconv.Itoa(state.Playlist)))
	}
	if len(state.Segments) > 0 {
		seg := state.Segments[0]
		effect := effectName(m.snap.State.Effects, seg.Effect)
		rows = append(rows, row("Effect", effect))
	}
	if m.snap.State.Info.Name != "" {
		rows = append(rows, row("Device", fmt.Sprintf("%s (%s)", m.snap.State.Info.Name, m.snap.State.Info.Version)))
	}
	if m.snap.LastError != "" {
		rows = append(rows, row("Last error", errTextStyle.Render(m.snap.LastError)))
	}
	if m.cmdErr != nil {
		rows = append(rows, row("Command", errTextStyle.Render(m.cmdErr.Error())))
	}

	body := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))

	status := ""
	if m.polling {
		status = "\n" + m.spinner.View() + " polling..."
	}

	help := helpStyle.Render("space toggle power • +/- brightness • r refresh • q quit")

	return title + "\n" + body + status + "\n" + help + "\n"
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func availabilityView(snap coordinator.Snapshot) string {
	switch {
	case snap.ConnectionState == coordinator.StateConnected:
		return connectedStyle.Render("connected")
	case snap.Available:
		// Failing but under the threshold; data is stale, not gone.
		return degradedStyle.Render(fmt.Sprintf("degraded (%d failed polls)", snap.FailedPolls))
	default:
		return unavailableStyle.Render("unavailable")
	}
}

func effectName(effects []string, id int) string {
	if id >= 0 && id < len(effects) {
		return fmt.Sprintf("%s (%d)", effects[id], id)
	}
	return strconv.Itoa(id)
}
