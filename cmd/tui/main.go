package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/treasury/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/treasury/internal/app"
	"github.com/MrJamesThe3rd/treasury/internal/config"
)

type model struct {
	session *view.Session
	appName string

	currentView View
	width       int
	height      int

	loginView   view.LoginModel
	banksView   view.BanksModel
	txView      view.TransactionsModel
	reviewView  view.ReviewModel
	importView  view.ImportModel
	companyView view.FoundCompanyModel
}

type View int

const (
	ViewLogin        View = 0
	ViewMenu         View = 1
	ViewBanks        View = 2
	ViewTransactions View = 3
	ViewReview       View = 4
	ViewImport       View = 5
	ViewCompany      View = 6
)

func initialModel(session *view.Session, appName string) model {
	return model{
		session:     session,
		appName:     appName,
		currentView: ViewLogin,
		loginView:   view.NewLoginModel(session),
	}
}

func (m model) Init() tea.Cmd {
	return m.loginView.Init()
}

func (m model) hasCompany() bool {
	u := m.session.User()
	return u != nil && u.CompanyID != nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			return m.updateMenu(msg)
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case view.LoggedInMsg, view.CompanyFoundedMsg:
		m.currentView = ViewMenu
		return m, nil
	case view.OpenBankMsg:
		m.currentView = ViewTransactions
		m.txView = view.NewTransactionsModel(m.session, msg.Bank)

		return m, tea.Batch(m.txView.Init(), m.resize)
	case view.BackMsg:
		if m.currentView == ViewTransactions {
			m.currentView = ViewBanks
			m.banksView = view.NewBanksModel(m.session)

			return m, tea.Batch(m.banksView.Init(), m.resize)
		}

		m.currentView = ViewMenu

		return m, nil
	}

	switch m.currentView {
	case ViewLogin:
		var newModel tea.Model
		newModel, cmd = m.loginView.Update(msg)
		m.loginView = newModel.(view.LoginModel)
	case ViewBanks:
		var newModel tea.Model
		newModel, cmd = m.banksView.Update(msg)
		m.banksView = newModel.(view.BanksModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.txView.Update(msg)
		m.txView = newModel.(view.TransactionsModel)
	case ViewReview:
		var newModel tea.Model
		newModel, cmd = m.reviewView.Update(msg)
		m.reviewView = newModel.(view.ReviewModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewCompany:
		var newModel tea.Model
		newModel, cmd = m.companyView.Update(msg)
		m.companyView = newModel.(view.FoundCompanyModel)
	}

	return m, cmd
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "c":
		if m.hasCompany() {
			return m, nil
		}

		m.currentView = ViewCompany
		m.companyView = view.NewFoundCompanyModel(m.session)

		return m, m.companyView.Init()
	}

	if !m.hasCompany() {
		return m, nil
	}

	switch msg.String() {
	case "1":
		m.currentView = ViewBanks
		m.banksView = view.NewBanksModel(m.session)

		return m, tea.Batch(m.banksView.Init(), m.resize)
	case "2":
		m.currentView = ViewReview
		m.reviewView = view.NewReviewModel(m.session)

		return m, m.reviewView.Init()
	case "3":
		m.currentView = ViewImport
		m.importView = view.NewImportModel(m.session)

		return m, m.importView.Init()
	}

	return m, nil
}

// resize replays the last window size so freshly built views lay out.
func (m model) resize() tea.Msg {
	if m.width == 0 {
		return nil
	}

	return tea.WindowSizeMsg{Width: m.width, Height: m.height}
}

func (m model) current() view.View {
	switch m.currentView {
	case ViewLogin:
		return m.loginView
	case ViewBanks:
		return m.banksView
	case ViewTransactions:
		return m.txView
	case ViewReview:
		return m.reviewView
	case ViewImport:
		return m.importView
	case ViewCompany:
		return m.companyView
	}

	return nil
}

func (m model) View() string {
	header := lipgloss.NewStyle().Bold(true).Render(m.appName)

	if m.currentView == ViewMenu {
		return lipgloss.NewStyle().Padding(2).Render(header + "\n\n" + m.menuView())
	}

	v := m.current()
	if v == nil {
		return "Unknown View"
	}

	help := lipgloss.NewStyle().Faint(true).Render(v.ShortHelp())

	return header + " / " + v.Title() + "\n" + v.View() + "\n" + help
}

func (m model) menuView() string {
	u := m.session.User()

	if !m.hasCompany() {
		return fmt.Sprintf("Signed in as %s. You do not belong to a company yet.\n\n", u.Username) +
			"c. Found a Company\n\n" +
			"q. Quit"
	}

	return fmt.Sprintf("Signed in as %s (%s)\n\n", u.Username, u.Rank) +
		"1. Banks\n" +
		"2. Review Pending Transactions\n" +
		"3. Import Transactions\n\n" +
		"q. Quit"
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Log lines would corrupt the alternate screen.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	repos, err := app.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer repos.Close()

	svc := app.NewServices(repos)

	if cfg.Bootstrap.Username != "" {
		ctx, cancel := view.DbCtx()
		_, _, err := svc.Users.Bootstrap(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password)
		cancel()

		if err != nil {
			fmt.Fprintln(os.Stderr, "bootstrap superuser:", err)
			os.Exit(1)
		}
	}

	p := tea.NewProgram(initialModel(view.NewSession(svc), cfg.App.Name), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to run TUI:", err)
		os.Exit(1)
	}
}
