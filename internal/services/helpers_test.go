package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sheetpulse/internal/shared/testutil"
	"sheetpulse/pkg/contracts/events"
)

// MockPublisher records published events
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msgType events.MessageType, data any) {
	m.Called(ctx, msgType, data)
}

func newMockPublisher() *MockPublisher {
	p := &MockPublisher{}
	p.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return()
	return p
}

// published returns the payloads sent with msgType, in order
func (m *MockPublisher) published(msgType events.MessageType) []any {
	var out []any
	for _, call := range m.Calls {
		if call.Method == "Publish" && call.Arguments.Get(1) == msgType {
			out = append(out, call.Arguments.Get(2))
		}
	}
	return out
}

func xlsxFile(t *testing.T, name string, rows [][]any) FileInput {
	t.Helper()
	return FileInput{Name: name, Reader: bytes.NewReader(testutil.Workbook(t, rows))}
}

func csvFile(name, content string) FileInput {
	return FileInput{Name: name, Reader: bytes.NewReader([]byte(content))}
}

// ingestFixtures loads the packet and invoice fixtures into a fresh store
func ingestFixtures(t *testing.T) (*DatasetStore, IngestResult) {
	t.Helper()
	store := NewDatasetStore(0)
	logger, _ := testutil.NewTestLogger(t)
	svc := NewIngestService(store, nil, nil, logger)

	res, err := svc.IngestFiles(context.Background(), []FileInput{
		xlsxFile(t, "north.xlsx", testutil.PacketSheet),
		xlsxFile(t, "invoices.xlsx", testutil.InvoiceSheet),
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Loaded())
	return store, res
}
