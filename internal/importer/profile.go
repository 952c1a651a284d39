package importer

import "strings"

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSingle means one signed column (e.g. "amount" with value "-10,00").
	amountSingle amountMode = iota
	// amountSplit means separate debit and credit columns.
	amountSplit
)

// layout is a column layout recognised in a header row.
type layout struct {
	mode   amountMode
	amount int
	debit  int
	credit int
	memo   int
}

var (
	amountNames = []string{"amount", "montante", "movimento", "value", "valor"}
	debitNames  = []string{"debit", "débito", "debito"}
	creditNames = []string{"credit", "crédito", "credito"}
	memoNames   = []string{"memo", "description", "descrição", "descricao", "note"}
)

// detectLayout returns the layout of header, or false when it has neither an
// amount column nor a debit/credit pair.
func detectLayout(header []string) (layout, bool) {
	l := layout{
		amount: column(header, amountNames),
		debit:  column(header, debitNames),
		credit: column(header, creditNames),
		memo:   column(header, memoNames),
	}

	switch {
	case l.amount >= 0:
		l.mode = amountSingle
	case l.debit >= 0 && l.credit >= 0:
		l.mode = amountSplit
	default:
		return layout{}, false
	}

	return l, true
}

func column(header []string, names []string) int {
	for i, cell := range header {
		cell = strings.ToLower(strings.TrimSpace(cell))
		for _, name := range names {
			if cell == name {
				return i
			}
		}
	}

	return -1
}
