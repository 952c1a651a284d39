package view

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/transaction"
)

const reviewBatch = 500

// ReviewModel walks the pending transactions of the company one by one.
type ReviewModel struct {
	CommonModel
	session *Session

	queue      []*transaction.Transaction
	currentTx  *transaction.Transaction
	bankNames  map[uuid.UUID]string
	totalCount int
	skipped    int

	status  string
	loading bool
	busy    bool
}

func NewReviewModel(session *Session) ReviewModel {
	return ReviewModel{
		session: session,
		status:  "Loading pending transactions...",
		loading: true,
	}
}

func (m ReviewModel) Title() string { return "Review Pending" }

func (m ReviewModel) ShortHelp() string {
	return "a: approve | d: delete | s: skip | Esc: back"
}

func (m ReviewModel) Init() tea.Cmd {
	return m.loadPendingCmd()
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

		if m.loading || m.busy || m.currentTx == nil {
			return m, nil
		}

		switch msg.String() {
		case "a":
			m.busy = true
			return m, approveCmd(m.session, m.currentTx)
		case "d":
			m.busy = true
			return m, deleteCmd(m.session, m.currentTx)
		case "s":
			m.skipped++
			m.nextTx()
		}

	case loadPendingMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error loading: %v", msg.err)
			break
		}

		m.queue = msg.txs
		m.bankNames = msg.bankNames
		m.totalCount = len(m.queue)

		if len(m.queue) == 0 {
			m.status = "Nothing waiting for approval."
			break
		}

		m.nextTx()

	case txActionMsg:
		m.busy = false
		if msg.err != nil {
			// The transaction stays current so it can be skipped.
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
			break
		}

		m.nextTx()
	}

	return m, nil
}

func (m *ReviewModel) nextTx() {
	if len(m.queue) == 0 {
		m.currentTx = nil
		m.status = fmt.Sprintf("All done! %d skipped.", m.skipped)

		return
	}

	m.currentTx = m.queue[0]
	m.queue = m.queue[1:]
	m.status = fmt.Sprintf("Reviewing %d/%d", m.totalCount-len(m.queue), m.totalCount)
}

func (m ReviewModel) View() string {
	if m.currentTx == nil {
		return lipgloss.NewStyle().Padding(2).Render(m.status + "\n\n(Esc to back)")
	}

	tx := m.currentTx

	bankName := m.bankNames[tx.BankID]
	if bankName == "" {
		bankName = tx.BankID.String()
	}

	info := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(fmt.Sprintf(
			"Date: %s  |  Bank: %s  |  Amount: %s\nMemo: %s",
			FormatDate(tx.CreatedAt),
			bankName,
			FormatAmount(tx.Amount),
			tx.Memo,
		))

	return lipgloss.NewStyle().Padding(2).Render(m.status + "\n\n" + info)
}

type loadPendingMsg struct {
	txs       []*transaction.Transaction
	bankNames map[uuid.UUID]string
	err       error
}

func (m ReviewModel) loadPendingCmd() tea.Cmd {
	session := m.session

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		actor, err := session.Actor(ctx)
		if err != nil {
			return loadPendingMsg{err: err}
		}

		banks, err := session.Banks.List(ctx, actor)
		if err != nil {
			return loadPendingMsg{err: err}
		}

		names := make(map[uuid.UUID]string, len(banks))
		for _, b := range banks {
			names[b.ID] = b.Name
		}

		txs, err := session.Transactions.ListCompany(ctx, actor, new(transaction.StatusPending), reviewBatch, 0)

		return loadPendingMsg{txs: txs, bankNames: names, err: err}
	}
}
