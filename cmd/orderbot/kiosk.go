package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"voiceorder/internal/catalog"
	"voiceorder/internal/ordering"
	"voiceorder/internal/session"
)

// kioskCmd runs an interactive ordering conversation
var kioskCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Interactive ordering conversation in the terminal",
	Long: `Starts a session and walks it through ordering, packaging, phone
capture and finalization. Type orders in Korean; slash commands:

  /remove <menu>   remove an item
  /hot <menu>      switch an item to hot
  /ice <menu>      switch an item to iced
  /retry           choose packaging again
  /new             start a new session
  /quit            exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = tea.NewProgram(newKioskModel(ctx, a.service), tea.WithAltScreen()).Run()
		return err
	},
}

var (
	kioskTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f2f2f2")).
			Background(lipgloss.Color("#101F38")).
			Padding(0, 1)
	kioskUser   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")).Bold(true)
	kioskBot    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	kioskError  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	kioskMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a94a6"))
	kioskBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2a3850"))
)

type sessionStartedMsg struct {
	sess *session.Session
	err  error
}

type turnMsg struct {
	input string
	res   *ordering.Result
	err   error
}

type kioskModel struct {
	ctx     context.Context
	svc     *ordering.Service
	input   textinput.Model
	view    viewport.Model
	spinner spinner.Model

	sess       *session.Session
	transcript []string
	busy       bool
	ready      bool
	width      int
}

func newKioskModel(ctx context.Context, svc *ordering.Service) kioskModel {
	ti := textinput.New()
	ti.Placeholder = "예: 아이스 아메리카노 두 잔 포장"
	ti.CharLimit = 200
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return kioskModel{
		ctx:     ctx,
		svc:     svc,
		input:   ti,
		view:    viewport.New(80, 20),
		spinner: sp,
	}
}

func (m kioskModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.startSession())
}

func (m kioskModel) startSession() tea.Cmd {
	return func() tea.Msg {
		s, err := m.svc.Start(m.ctx)
		return sessionStartedMsg{sess: s, err: err}
	}
}

func (m kioskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.view.Width = msg.Width - 2
		m.view.Height = msg.Height - 7
		m.input.Width = msg.Width - 6
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			if text == "/quit" {
				return m, tea.Quit
			}
			m.say(kioskUser.Render("> ") + text)
			m.busy = true
			return m, tea.Batch(m.turn(text), m.spinner.Tick)
		}

	case sessionStartedMsg:
		if msg.err != nil {
			m.say(kioskError.Render("세션을 시작할 수 없습니다: " + msg.err.Error()))
			break
		}
		m.sess = msg.sess
		m.say(kioskMuted.Render("새 세션 " + shortID(msg.sess.ID)))
		m.say(kioskBot.Render("어서오세요! 주문하실 메뉴와 수량을 말씀해주세요."))

	case turnMsg:
		m.busy = false
		if msg.res != nil {
			if msg.res.Session != nil {
				m.sess = msg.res.Session
			}
			if msg.res.Message != "" {
				m.say(kioskBot.Render(msg.res.Message))
			}
		}
		if msg.err != nil {
			m.say(kioskError.Render(msg.err.Error()))
		}
		if m.sess != nil && m.sess.Step == session.StepCompleted {
			m.say(kioskMuted.Render("/new 로 새 주문을 시작할 수 있습니다."))
		}

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// turn runs one input against the service off the UI goroutine.
func (m kioskModel) turn(text string) tea.Cmd {
	if m.sess == nil {
		return func() tea.Msg { return turnMsg{input: text, err: fmt.Errorf("세션이 아직 준비되지 않았습니다")} }
	}
	id := m.sess.ID
	svc, ctx := m.svc, m.ctx

	cmd, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)
	var call func() (*ordering.Result, error)
	switch cmd {
	case "/new":
		return m.startSession()
	case "/remove":
		call = func() (*ordering.Result, error) { return svc.RemoveItem(ctx, id, arg) }
	case "/hot":
		call = func() (*ordering.Result, error) { return svc.UpdateTemperature(ctx, id, arg, catalog.TempHot) }
	case "/ice":
		call = func() (*ordering.Result, error) { return svc.UpdateTemperature(ctx, id, arg, catalog.TempIce) }
	case "/retry":
		call = func() (*ordering.Result, error) { return svc.Retry(ctx, id) }
	default:
		call = func() (*ordering.Result, error) { return svc.Handle(ctx, id, text) }
	}
	return func() tea.Msg {
		res, err := call()
		return turnMsg{input: text, res: res, err: err}
	}
}

func (m *kioskModel) say(line string) {
	m.transcript = append(m.transcript, line)
	m.refresh()
}

func (m *kioskModel) refresh() {
	m.view.SetContent(strings.Join(m.transcript, "\n"))
	m.view.GotoBottom()
}

func (m kioskModel) View() string {
	if !m.ready {
		return "loading..."
	}
	header := kioskTitle.Render("orderbot kiosk") + " " + kioskMuted.Render(m.status())
	prompt := m.input.View()
	if m.busy {
		prompt = m.spinner.View() + " 처리 중..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		kioskBorder.Width(m.width-2).Render(m.view.View()),
		prompt,
	)
}

func (m kioskModel) status() string {
	if m.sess == nil {
		return "세션 없음"
	}
	s := fmt.Sprintf("%s · %s", shortID(m.sess.ID), m.sess.Step)
	if m.sess.Data.TotalItems > 0 {
		s += fmt.Sprintf(" · %d개 %d원", m.sess.Data.TotalItems, m.sess.Data.TotalPrice)
	}
	if m.sess.Data.PackagingType != "" {
		s += " · " + m.sess.Data.PackagingType.Label()
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
