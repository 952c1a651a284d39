package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/bank"
)

// OpenBankMsg asks the root model to show the transactions of a bank.
type OpenBankMsg struct {
	Bank *bank.Bank
}

type banksState int

const (
	banksStateTable banksState = iota
	banksStateCreating
)

type BanksModel struct {
	CommonModel
	session *Session

	state   banksState
	table   table.Model
	form    *huh.Form
	banks   []*bank.Bank
	loading bool
	status  string
}

func NewBanksModel(session *Session) BanksModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 28},
			{Title: "Status", Width: 10},
			{Title: "Balance", Width: 16},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return BanksModel{session: session, table: t, loading: true}
}

func (m BanksModel) Title() string { return "Banks" }

func (m BanksModel) ShortHelp() string {
	if m.state == banksStateCreating {
		return "Esc: cancel | Enter: next"
	}

	return "Enter: transactions | n: new bank | r: refresh | Esc: back"
}

func (m BanksModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m BanksModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadBanksMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.banks = msg.banks
		m.table.SetRows(bankRows(msg.banks))

		if len(msg.banks) == 0 {
			m.status = "No banks yet."
		}

		return m, nil

	case createBankMsg:
		m.state = banksStateTable
		m.form = nil

		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Created %s.", msg.bank.Name)

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-10, 5))

		return m, nil
	}

	if m.state == banksStateCreating {
		return m.updateCreating(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc":
		return m, Back
	case "r":
		m.loading = true
		return m, m.loadCmd()
	case "n":
		m.form = newBankForm()
		m.state = banksStateCreating

		return m, m.form.Init()
	case "enter":
		idx := m.table.Cursor()
		if idx < 0 || idx >= len(m.banks) {
			return m, nil
		}

		b := m.banks[idx]

		return m, func() tea.Msg { return OpenBankMsg{Bank: b} }
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m BanksModel) updateCreating(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = banksStateTable
		m.form = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.createCmd(strings.TrimSpace(m.form.GetString("name")))
}

func (m BanksModel) View() string {
	if m.state == banksStateCreating && m.form != nil {
		return lipgloss.NewStyle().Padding(1).Render("New bank\n\n" + m.form.View())
	}

	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading banks...")
	}

	var total decimal.Decimal
	for _, b := range m.banks {
		total = total.Add(b.Balance)
	}

	s := m.table.View() + "\n\n" + fmt.Sprintf("Total: %s", FormatAmount(total))
	if m.status != "" {
		s = faintStyle.Render(m.status) + "\n" + s
	}

	return lipgloss.NewStyle().Padding(1).Render(s)
}

func bankRows(banks []*bank.Bank) []table.Row {
	rows := make([]table.Row, len(banks))
	for i, b := range banks {
		rows[i] = table.Row{b.Name, string(b.Status), FormatAmount(b.Balance)}
	}

	return rows
}

func newBankForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Name").
				CharLimit(64).
				Validate(huh.ValidateNotEmpty()),
		),
	).WithWidth(50).WithShowHelp(false)
}

// Messages

type loadBanksMsg struct {
	banks []*bank.Bank
	err   error
}

type createBankMsg struct {
	bank *bank.Bank
	err  error
}

func (m BanksModel) loadCmd() tea.Cmd {
	session := m.session

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		actor, err := session.Actor(ctx)
		if err != nil {
			return loadBanksMsg{err: err}
		}

		banks, err := session.Banks.List(ctx, actor)

		return loadBanksMsg{banks: banks, err: err}
	}
}

func (m BanksModel) createCmd(name string) tea.Cmd {
	session := m.session

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		actor, err := session.Actor(ctx)
		if err != nil {
			return createBankMsg{err: err}
		}

		b, err := session.Banks.Create(ctx, actor, bank.CreateParams{Name: name})

		return createBankMsg{bank: b, err: err}
	}
}
