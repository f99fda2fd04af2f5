package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("%PDF-1.7 fake")
	uri, err := store.PutObject(context.Background(), "reports/audit-1/abc.pdf", "application/pdf", payload)
	require.NoError(t, err)
	require.Equal(t, "memory://reports/audit-1/abc.pdf", uri)

	// Mutating the caller's slice must not change the stored copy.
	payload[0] = 'X'
	got, ok := store.Object("reports/audit-1/abc.pdf")
	require.True(t, ok)
	require.Equal(t, []byte("%PDF-1.7 fake"), got)

	_, ok = store.Object("missing")
	require.False(t, ok)
}
