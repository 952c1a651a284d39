package importer_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
	"github.com/MrJamesThe3rd/treasury/internal/importer"
)

type row struct {
	amount string
	memo   string
}

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []row
	}{
		{
			name:  "SemicolonDecimalComma",
			input: "amount;memo\n1.234,56;Ore shipment\n-588,74;Guild fee\n",
			want:  []row{{"1234.56", "Ore shipment"}, {"-588.74", "Guild fee"}},
		},
		{
			name:  "CommaDecimalPoint",
			input: "Memo,Amount\nrefund,\"1,250.00\"\npayout,-10.5\n",
			want:  []row{{"1250", "refund"}, {"-10.5", "payout"}},
		},
		{
			name:  "AmountOnly",
			input: "amount\n10\n20\n",
			want:  []row{{"10", ""}, {"20", ""}},
		},
		{
			name:  "PreambleAndBlankLines",
			input: "Exported 2024-01-01;;\n;;\nDescrição;Montante;Saldo\nCafé;-3,00;100,00\n;;\nRenda;500,00;600,00\n",
			want:  []row{{"-3", "Café"}, {"500", "Renda"}},
		},
		{
			name:  "DebitCredit",
			input: "Description;Debit;Credit\nfuel;12,00;\nsale;;40,00\n",
			want:  []row{{"-12", "fuel"}, {"40", "sale"}},
		},
		{
			name:  "CRLF",
			input: "amount;memo\r\n7,5;x\r\n",
			want:  []row{{"7.5", "x"}},
		},
		{
			name:  "HeaderOnly",
			input: "amount;memo\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := importer.NewParser().Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))

			for i, w := range tt.want {
				assert.True(t, decimal.RequireFromString(w.amount).Equal(got[i].Amount), "row %d: got %s", i, got[i].Amount)
				assert.Equal(t, w.memo, got[i].Memo)
			}
		})
	}
}

func TestParser_Parse_Windows1252(t *testing.T) {
	input, err := charmap.Windows1252.NewEncoder().String("amount;memo\n-3,00;Café\n")
	require.NoError(t, err)

	got, err := importer.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Café", got[0].Memo)
}

func TestParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "NoHeader",
			input:   "foo;bar\n1;2\n",
			wantMsg: "no header",
		},
		{
			name:    "BadAmountFailsWholeFile",
			input:   "amount;memo\n10;ok\nabc;bad\n",
			wantMsg: "line 3",
		},
		{
			name:    "MissingAmount",
			input:   "amount;memo\n;no amount\n",
			wantMsg: "missing amount",
		},
		{
			name:    "DebitAndCredit",
			input:   "debit;credit\n1;2\n",
			wantMsg: "both debit and credit",
		},
		{
			name:    "Empty",
			input:   "",
			wantMsg: "no header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := importer.NewParser().Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
