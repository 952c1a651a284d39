// Package importer turns spreadsheet exports into pending transactions.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	enc "github.com/MrJamesThe3rd/treasury/internal/encoding"
	"github.com/MrJamesThe3rd/treasury/internal/transaction"
)

// Parser reads CSV files with an amount column, or a debit/credit pair, and an
// optional memo column. Lines before the header are ignored.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns one CreateParams per data row. A single malformed row fails
// the whole file.
func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	br := bufio.NewReader(utf8r)

	comma, err := sniffDelimiter(br)
	if err != nil {
		return nil, fmt.Errorf("sniff delimiter: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		cols  layout
		found bool
		txs   []transaction.CreateParams
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, apperr.InvalidInput("read csv: %v", err)
		}

		line, _ := reader.FieldPos(0)

		if !found {
			cols, found = detectLayout(row)
			continue
		}

		if blank(row) {
			continue
		}

		params, err := parseRow(cols, row)
		if err != nil {
			return nil, apperr.InvalidInput("line %d: %v", line, err)
		}

		txs = append(txs, params)
	}

	if !found {
		return nil, apperr.InvalidInput("no header with an amount column found")
	}

	return txs, nil
}

func parseRow(cols layout, row []string) (transaction.CreateParams, error) {
	amount, err := rowAmount(cols, row)
	if err != nil {
		return transaction.CreateParams{}, err
	}

	return transaction.CreateParams{
		Amount: amount,
		Memo:   cellValue(row, cols.memo),
	}, nil
}

func rowAmount(cols layout, row []string) (decimal.Decimal, error) {
	if cols.mode == amountSingle {
		s := cellValue(row, cols.amount)
		if s == "" {
			return decimal.Zero, errors.New("missing amount")
		}

		return amountOrError(s)
	}

	debit, credit := cellValue(row, cols.debit), cellValue(row, cols.credit)

	switch {
	case debit != "" && credit != "":
		return decimal.Zero, errors.New("both debit and credit are set")
	case debit != "":
		d, err := amountOrError(debit)
		if err != nil {
			return decimal.Zero, err
		}

		return d.Abs().Neg(), nil
	case credit != "":
		d, err := amountOrError(credit)
		if err != nil {
			return decimal.Zero, err
		}

		return d.Abs(), nil
	}

	return decimal.Zero, errors.New("missing amount")
}

func amountOrError(s string) (decimal.Decimal, error) {
	d, err := parseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}

	return d, nil
}

// sniffDelimiter picks ';' when the first non-empty line has one, ','
// otherwise.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	for size := 512; ; size *= 2 {
		buf, err := br.Peek(size)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return 0, err
		}

		trimmed := bytes.TrimLeft(buf, "\r\n")
		if i := bytes.IndexByte(trimmed, '\n'); i >= 0 {
			trimmed = trimmed[:i]
		} else if len(buf) == size && size < br.Size() {
			continue
		}

		if bytes.IndexByte(trimmed, ';') >= 0 {
			return ';', nil
		}

		return ',', nil
	}
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
