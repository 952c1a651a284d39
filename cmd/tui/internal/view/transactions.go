package view

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/bank"
	"github.com/MrJamesThe3rd/treasury/internal/transaction"
)

type txState int

const (
	txStateList txState = iota
	txStateForm
)

// txItem wraps a transaction to implement list.Item.
type txItem struct {
	tx *transaction.Transaction
}

func (i txItem) Title() string {
	status := faintStyle.Render(fmt.Sprintf("[%s]", i.tx.Status))
	return fmt.Sprintf("%s  %12s  %s  %s", FormatDate(i.tx.CreatedAt), FormatAmount(i.tx.Amount), status, i.tx.Memo)
}

func (i txItem) Description() string { return "" }

func (i txItem) FilterValue() string { return i.tx.Memo }

// TransactionsModel is the ledger of one bank.
type TransactionsModel struct {
	CommonModel
	session *Session
	bank    *bank.Bank

	state   txState
	list    list.Model
	form    *huh.Form
	editing *transaction.Transaction
	loading bool
	status  string
}

func NewTransactionsModel(session *Session, b *bank.Bank) TransactionsModel {
	l := list.New([]list.Item{}, txItemDelegate{}, 0, 0)
	l.Title = b.Name
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return TransactionsModel{
		session: session,
		bank:    b,
		list:    l,
		loading: true,
	}
}

func (m TransactionsModel) Title() string { return "Transactions" }

func (m TransactionsModel) ShortHelp() string {
	if m.state == txStateForm {
		return "Esc: cancel | Enter/Tab: navigate form"
	}

	return "n: new | Enter: edit | a: approve | d: delete | /: filter | Esc: back"
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.loadTxsCmd()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTxsMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		items := make([]list.Item, len(msg.txs))
		for i, tx := range msg.txs {
			items[i] = txItem{tx: tx}
		}

		m.list.SetItems(items)

		if len(msg.txs) == 0 {
			m.status = "No transactions yet."
		}

		return m, nil

	case txActionMsg:
		m.state = txStateList
		m.form = nil
		m.editing = nil

		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.status = msg.done

		return m, m.loadTxsCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)

		return m, nil
	}

	if m.state == txStateForm {
		return m.updateForm(msg)
	}

	return m.updateList(msg)
}

func (m TransactionsModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok && m.list.FilterState() != list.Filtering {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "n":
			m.editing = nil
			m.form = newTxForm("", "")
			m.state = txStateForm

			return m, m.form.Init()
		case "enter":
			tx := m.selected()
			if tx == nil {
				return m, nil
			}

			m.editing = tx
			m.form = newTxForm(tx.Amount.String(), tx.Memo)
			m.state = txStateForm

			return m, m.form.Init()
		case "a":
			if tx := m.selected(); tx != nil {
				return m, approveCmd(m.session, tx)
			}

			return m, nil
		case "d":
			if tx := m.selected(); tx != nil {
				return m, deleteCmd(m.session, tx)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m TransactionsModel) selected() *transaction.Transaction {
	item, ok := m.list.SelectedItem().(txItem)
	if !ok {
		return nil
	}

	return item.tx
}

func (m TransactionsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = txStateList
		m.form = nil
		m.editing = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	// The validator already accepted the amount.
	amount, _ := decimal.NewFromString(strings.TrimSpace(m.form.GetString("amount")))
	memo := strings.TrimSpace(m.form.GetString("memo"))

	if m.editing != nil {
		return m, m.editCmd(m.editing, amount, memo)
	}

	return m, m.createCmd(amount, memo)
}

func (m TransactionsModel) View() string {
	if m.state == txStateForm && m.form != nil {
		title := "New transaction"
		if m.editing != nil {
			title = "Edit transaction"
		}

		return lipgloss.NewStyle().Padding(1).Render(title + "\n\n" + m.form.View())
	}

	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	statusLine := ""
	if m.status != "" {
		statusLine = faintStyle.Render(m.status) + "\n"
	}

	return lipgloss.NewStyle().Padding(1).Render(statusLine + m.list.View())
}

func newTxForm(amount, memo string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("amount").
				Title("Amount").
				Description("Negative for withdrawals").
				Placeholder("-12.50").
				Value(&amount).
				Validate(func(s string) error {
					if _, err := decimal.NewFromString(strings.TrimSpace(s)); err != nil {
						return errors.New("not a number")
					}

					return nil
				}),

			huh.NewText().
				Key("memo").
				Title("Memo").
				CharLimit(1024).
				Value(&memo),
		),
	).WithWidth(60).WithShowHelp(false)
}

// Messages

type loadTxsMsg struct {
	txs []*transaction.Transaction
	err error
}

type txActionMsg struct {
	done string
	err  error
}

func (m TransactionsModel) loadTxsCmd() tea.Cmd {
	session, bankID := m.session, m.bank.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		actor, err := session.Actor(ctx)
		if err != nil {
			return loadTxsMsg{err: err}
		}

		txs, err := session.Transactions.ListBank(ctx, actor, bankID, nil)

		return loadTxsMsg{txs: txs, err: err}
	}
}

func (m TransactionsModel) createCmd(amount decimal.Decimal, memo string) tea.Cmd {
	session, bankID := m.session, m.bank.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		actor, err := session.Actor(ctx)
		if err != nil {
			return txActionMsg{err: err}
		}

		_, err = session.Transactions.Create(ctx, actor, bankID, transaction.CreateParams{Amount: amount, Memo: memo})

		return txActionMsg{done: "Recorded, waiting for approval.", err: err}
	}
}

func (m TransactionsModel) editCmd(tx *transaction.Transaction, amount decimal.Decimal, memo string) tea.Cmd {
	session, id := m.session, tx.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		actor, err := session.Actor(ctx)
		if err != nil {
			return txActionMsg{err: err}
		}

		_, err = session.Transactions.Edit(ctx, actor, id, transaction.EditParams{Amount: &amount, Memo: &memo})

		return txActionMsg{done: "Saved.", err: err}
	}
}

func approveCmd(session *Session, tx *transaction.Transaction) tea.Cmd {
	id := tx.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		actor, err := session.Actor(ctx)
		if err != nil {
			return txActionMsg{err: err}
		}

		_, err = session.Transactions.Approve(ctx, actor, id)

		return txActionMsg{done: "Approved.", err: err}
	}
}

func deleteCmd(session *Session, tx *transaction.Transaction) tea.Cmd {
	id := tx.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		actor, err := session.Actor(ctx)
		if err != nil {
			return txActionMsg{err: err}
		}

		err = session.Transactions.Delete(ctx, actor, id)

		return txActionMsg{done: "Deleted.", err: err}
	}
}

// txItemDelegate renders items in the list.
type txItemDelegate struct{}

func (d txItemDelegate) Height() int                             { return 1 }
func (d txItemDelegate) Spacing() int                            { return 0 }
func (d txItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d txItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(txItem)
	if !ok {
		return
	}

	title := i.Title()
	if index == m.Index() {
		title = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render("> " + title)
	}

	fmt.Fprintf(w, "  %s\n", title)
}
