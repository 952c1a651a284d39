package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/treasury/internal/company"
	"github.com/MrJamesThe3rd/treasury/internal/user"
)

// CompanyFoundedMsg carries the founder after the company was created.
type CompanyFoundedMsg struct {
	User    *user.User
	Company *company.Company
}

// FoundCompanyModel creates a company with the signed in user as governor.
type FoundCompanyModel struct {
	CommonModel
	session *Session

	form   *huh.Form
	status string
}

func NewFoundCompanyModel(session *Session) FoundCompanyModel {
	return FoundCompanyModel{session: session, form: newCompanyForm()}
}

func newCompanyForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Company name").
				CharLimit(64).
				Validate(huh.ValidateNotEmpty()),
		),
	).WithWidth(60).WithShowHelp(false)
}

func (m FoundCompanyModel) Title() string { return "Found Company" }

func (m FoundCompanyModel) ShortHelp() string { return "Esc: back | Enter/Tab: navigate form" }

func (m FoundCompanyModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m FoundCompanyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}
	case foundCompanyResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			m.form = newCompanyForm()

			return m, m.form.Init()
		}

		m.session.SignIn(msg.user)

		return m, func() tea.Msg { return CompanyFoundedMsg{User: msg.user, Company: msg.company} }
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.foundCmd(strings.TrimSpace(m.form.GetString("name")))
}

func (m FoundCompanyModel) View() string {
	status := ""
	if m.status != "" {
		status = errorStyle.Render(m.status) + "\n\n"
	}

	return lipgloss.NewStyle().Padding(2).Render(status + m.form.View())
}

type foundCompanyResultMsg struct {
	user    *user.User
	company *company.Company
	err     error
}

func (m FoundCompanyModel) foundCmd(name string) tea.Cmd {
	session := m.session

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		actor, err := session.Actor(ctx)
		if err != nil {
			return foundCompanyResultMsg{err: err}
		}

		c, err := session.Companies.Create(ctx, actor, company.CreateParams{Name: name})
		if err != nil {
			return foundCompanyResultMsg{err: err}
		}

		u, err := session.Users.Get(ctx, actor, actor.ID)

		return foundCompanyResultMsg{user: u, company: c, err: err}
	}
}
