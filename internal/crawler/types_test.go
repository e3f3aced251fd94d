package crawler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchResultOK(t *testing.T) {
	t.Parallel()

	ok := Fetched("https://example.com", http.StatusOK, []byte("body"))
	require.True(t, ok.OK())
	require.Equal(t, "body", string(ok.Body))

	failed := FetchFailed("https://example.com", http.StatusNotFound, nil)
	require.False(t, failed.OK())
	require.ErrorIs(t, failed.Err, ErrUnexpectedStatus)

	boom := errors.New("boom")
	failed = FetchFailed("https://example.com", 0, boom)
	require.ErrorIs(t, failed.Err, boom)
}

func TestTransportErrorUnwraps(t *testing.T) {
	t.Parallel()

	err := &TransportError{URL: "https://example.com/list", StatusCode: 503, Err: ErrUnexpectedStatus}
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.Contains(t, err.Error(), "status 503")

	err = &TransportError{URL: "https://example.com/list", Err: errors.New("dial tcp: refused")}
	require.Equal(t, "fetch https://example.com/list: dial tcp: refused", err.Error())
}
