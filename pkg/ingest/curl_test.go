package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateCurlBasic(t *testing.T) {
	req, err := TranslateCurl(`curl https://api.example.com/items`)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/items", req.URL)
	assert.Empty(t, req.Headers)
}

func TestTranslateCurlHeaders(t *testing.T) {
	req, err := TranslateCurl(`curl -H 'Authorization: Bearer abc123' -H "Accept: application/json" https://api.example.com/items`)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/items", req.URL)
	assert.Equal(t, "Bearer abc123", req.Headers["Authorization"])
	assert.Equal(t, "application/json", req.Headers["Accept"])
}

func TestTranslateCurlQuotedURL(t *testing.T) {
	req, err := TranslateCurl(`curl 'https://api.example.com/search?q=a b'`)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/search?q=a b", req.URL)
}

func TestTranslateCurlLastURLWins(t *testing.T) {
	req, err := TranslateCurl(`curl https://first.example.com https://second.example.com`)
	require.NoError(t, err)
	assert.Equal(t, "https://second.example.com", req.URL)
}

func TestTranslateCurlHeaderValueWithColons(t *testing.T) {
	req, err := TranslateCurl(`curl -H 'X-Time: 12:30:00' https://api.example.com`)
	require.NoError(t, err)
	assert.Equal(t, "12:30:00", req.Headers["X-Time"])
}

func TestTranslateCurlHeaderWithoutColonSkipped(t *testing.T) {
	req, err := TranslateCurl(`curl -H 'NotAHeader' https://api.example.com`)
	require.NoError(t, err)
	assert.Empty(t, req.Headers)
}

func TestTranslateCurlDanglingHeaderFlag(t *testing.T) {
	req, err := TranslateCurl(`curl https://api.example.com -H`)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", req.URL)
	assert.Empty(t, req.Headers)
}

func TestTranslateCurlNoURL(t *testing.T) {
	_, err := TranslateCurl(`curl -H 'Accept: text/plain'`)
	require.Error(t, err)

	var terr *TranslationError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "no URL found", terr.Reason)
}

func TestTranslateCurlEmptyInput(t *testing.T) {
	_, err := TranslateCurl("")
	var terr *TranslationError
	require.ErrorAs(t, err, &terr)
}
