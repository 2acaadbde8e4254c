package dataprocessing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"sheetpulse/pkg/contracts/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    domain.RecordType
	}{
		{
			name:    "packet with preferred alias",
			columns: []string{"Account", "A/C Holder Name", "State", "Jan", "Feb"},
			want:    domain.RecordTypePacket,
		},
		{
			name:    "packet with later alias",
			columns: []string{"State", "Account Holder", "Account", "Mar"},
			want:    domain.RecordTypePacket,
		},
		{
			name:    "invoice",
			columns: []string{"Sr No", "Invoice No", "Account Holder Name", "Customer Name", "Amount"},
			want:    domain.RecordTypeInvoice,
		},
		{
			name:    "both schemas resolve to packet",
			columns: []string{"Sr No", "Invoice No", "Account Holder Name", "Customer Name", "Amount", "Account", "State"},
			want:    domain.RecordTypePacket,
		},
		{
			name:    "header match is case sensitive",
			columns: []string{"account", "A/C Holder Name", "State"},
			want:    domain.RecordTypeUnknown,
		},
		{
			name:    "invoice missing amount",
			columns: []string{"Sr No", "Invoice No", "Account Holder Name", "Customer Name"},
			want:    domain.RecordTypeUnknown,
		},
		{
			name:    "empty header",
			columns: nil,
			want:    domain.RecordTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.columns))
			// idempotent
			assert.Equal(t, tt.want, Classify(tt.columns))
		})
	}
}

func TestClassifyOrderIndependent(t *testing.T) {
	headers := [][]string{
		{"Account", "A/C Holder Name", "State", "Jan", "Feb", "Total"},
		{"Sr No", "Invoice No", "Account Holder Name", "Customer Name", "Amount", "Notes"},
		{"Foo", "Bar", "Baz"},
	}
	rng := rand.New(rand.NewSource(7))

	for _, header := range headers {
		want := Classify(header)
		for i := 0; i < 20; i++ {
			shuffled := append([]string(nil), header...)
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
			assert.Equal(t, want, Classify(shuffled), "header %v", shuffled)
		}
	}
}

func TestResolveHolderColumn(t *testing.T) {
	col, ok := ResolveHolderColumn([]string{"Name", "AC Holder Name", "Account"})
	assert.True(t, ok)
	assert.Equal(t, "AC Holder Name", col, "earlier alias wins regardless of column order")

	_, ok = ResolveHolderColumn([]string{"Account", "State"})
	assert.False(t, ok)
}

func TestClassifyTableNil(t *testing.T) {
	assert.Equal(t, domain.RecordTypeUnknown, ClassifyTable(nil))
}
