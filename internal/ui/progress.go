package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BioHazard786/Roomdrop/internal/utils"
)

// TransferMode selects the wording of the transfer view.
type TransferMode int

const (
	ModeSend TransferMode = iota
	ModeReceive
)

// progressInterval throttles how often byte counts reach the program.
const progressInterval = 100 * time.Millisecond

type (
	progressMsg int64
	stateMsg    string
	finishMsg   struct{ err error }
)

// TransferUI drives a single-file progress view. Update may be called
// from any goroutine and never blocks the transfer for long.
type TransferUI struct {
	program *tea.Program
	model   *transferModel
	wg      sync.WaitGroup

	mu       sync.Mutex
	lastSent time.Time
	started  bool
}

// NewTransferUI builds the view. cancel, if set, is called when the user
// presses q or ctrl+c.
func NewTransferUI(mode TransferMode, name string, size int64, cancel func()) *TransferUI {
	m := newTransferModel(mode, name, size, cancel)
	return &TransferUI{
		model:   m,
		program: tea.NewProgram(m),
	}
}

// Start runs the program inline, keeping earlier terminal output visible.
func (u *TransferUI) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.started {
		return
	}
	u.started = true
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		if _, err := u.program.Run(); err != nil {
			PrintWarningf("progress display unavailable: %v", err)
		}
	}()
}

// Update reports the byte count so far.
func (u *TransferUI) Update(current int64) {
	u.mu.Lock()
	now := time.Now()
	due := u.started && (now.Sub(u.lastSent) >= progressInterval || current >= u.model.size)
	if due {
		u.lastSent = now
	}
	u.mu.Unlock()
	if due {
		u.program.Send(progressMsg(current))
	}
}

func (u *TransferUI) SetState(state string) {
	if u.isStarted() {
		u.program.Send(stateMsg(state))
	}
}

// Finish renders the final line and waits for the program to exit.
func (u *TransferUI) Finish(err error) {
	if !u.isStarted() {
		return
	}
	u.program.Send(finishMsg{err: err})
	u.wg.Wait()
}

func (u *TransferUI) isStarted() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.started
}

type transferModel struct {
	mode    TransferMode
	name    string
	size    int64
	current int64
	start   time.Time
	state   string

	bar     progress.Model
	spinner spinner.Model
	cancel  func()

	done     bool
	err      error
	quitting bool
}

func newTransferModel(mode TransferMode, name string, size int64, cancel func()) *transferModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	state := "Sending..."
	if mode == ModeReceive {
		state = "Receiving..."
	}

	return &transferModel{
		mode:  mode,
		name:  name,
		size:  size,
		start: time.Now(),
		state: state,
		bar: progress.New(
			progress.WithGradient(ProgressStart, ProgressEnd),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
		spinner: s,
		cancel:  cancel,
	}
}

func (m *transferModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *transferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(30, msg.Width-60))

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.current = int64(msg)

	case stateMsg:
		m.state = string(msg)

	case finishMsg:
		m.done = true
		m.err = msg.err
		if msg.err == nil {
			m.current = m.size
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m *transferModel) percent() float64 {
	if m.size <= 0 {
		if m.done && m.err == nil {
			return 1
		}
		return 0
	}
	return float64(m.current) / float64(m.size)
}

func (m *transferModel) View() string {
	if m.quitting {
		return MutedStyle.Render("Transfer cancelled") + "\n"
	}

	var b strings.Builder

	icon, verb := IconSend, "Sending"
	if m.mode == ModeReceive {
		icon, verb = IconReceive, "Receiving"
	}
	fmt.Fprintf(&b, "%s %s %s\n", icon, verb, BoldStyle.Render(m.name))

	switch {
	case m.done && m.err != nil:
		fmt.Fprintf(&b, "%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(m.err.Error()))
	case m.done:
		fmt.Fprintf(&b, "%s %s\n", SuccessStyle.Render(IconSuccess), "Done")
	default:
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), m.state)
	}

	b.WriteString(m.bar.ViewAs(m.percent()))
	fmt.Fprintf(&b, " %5.1f%%", m.percent()*100)

	elapsed := time.Since(m.start)
	rate := utils.Rate(m.current, elapsed)
	if !m.done && rate > 0 {
		b.WriteString(MutedStyle.Render(" " + utils.FormatSpeed(rate)))
		if remaining := m.size - m.current; remaining > 0 {
			eta := time.Duration(float64(remaining) / rate * float64(time.Second))
			b.WriteString(MutedStyle.Render(" ETA: " + utils.FormatTimeDuration(eta)))
		}
	}
	b.WriteString(MutedStyle.Render(fmt.Sprintf(" (%s/%s)", utils.FormatSize(m.current), utils.FormatSize(m.size))))
	b.WriteString("\n")

	if !m.done {
		b.WriteString(MutedStyle.Render("Press q to cancel") + "\n")
	}
	return b.String()
}
