package view

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/treasury/internal/user"
)

// LoggedInMsg is sent once the credentials were accepted.
type LoggedInMsg struct {
	User *user.User
}

type LoginModel struct {
	CommonModel
	session *Session

	form   *huh.Form
	status string
}

func NewLoginModel(session *Session) LoginModel {
	return LoginModel{session: session, form: newLoginForm()}
}

// Values are read back with GetString since models are copied on every
// update.
func newLoginForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("username").
				Title("Username").
				Validate(huh.ValidateNotEmpty()),

			huh.NewInput().
				Key("password").
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Validate(huh.ValidateNotEmpty()),
		),
	).WithWidth(40).WithShowHelp(false)
}

func (m LoginModel) Title() string { return "Sign In" }

func (m LoginModel) ShortHelp() string { return "Enter: next | Ctrl+C: quit" }

func (m LoginModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if res, ok := msg.(loginResultMsg); ok {
		if res.err != nil {
			m.status = fmt.Sprintf("Sign in failed: %v", res.err)
			m.form = newLoginForm()

			return m, m.form.Init()
		}

		m.session.SignIn(res.user)

		return m, func() tea.Msg { return LoggedInMsg{User: res.user} }
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.loginCmd()
}

func (m LoginModel) View() string {
	status := ""
	if m.status != "" {
		status = errorStyle.Render(m.status) + "\n\n"
	}

	return lipgloss.NewStyle().Padding(2).Render(status + m.form.View())
}

type loginResultMsg struct {
	user *user.User
	err  error
}

func (m LoginModel) loginCmd() tea.Cmd {
	users := m.session.Users
	username, password := m.form.GetString("username"), m.form.GetString("password")

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		u, err := users.Authenticate(ctx, username, password)

		return loginResultMsg{user: u, err: err}
	}
}
