package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	t.Parallel()

	s := NewFTPStore(FTPOptions{
		Addr:       "files.example.com",
		PublicBase: "https://img.example.com/",
	})
	assert.Equal(t, "https://img.example.com/collages/бц_парус.jpg",
		s.PublicURL("бц_парус.jpg", "collages"))
}

func TestKeyRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewFTPStore(FTPOptions{Addr: "files.example.com", PublicBase: "https://img.example.com"})
	url := s.PublicURL("склад_позняки.jpg", "collages")

	key, err := s.Key(url)
	require.NoError(t, err)
	assert.Equal(t, "collages/склад_позняки.jpg", key)
}

func TestKeyRejectsForeignURL(t *testing.T) {
	t.Parallel()

	s := NewFTPStore(FTPOptions{Addr: "files.example.com", PublicBase: "https://img.example.com"})
	_, err := s.Key("https://other.example.com/collages/x.jpg")
	assert.Error(t, err)
}

func TestNewFTPStoreDefaultsPort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "files.example.com:21",
		NewFTPStore(FTPOptions{Addr: "files.example.com"}).opts.Addr)
	assert.Equal(t, "files.example.com:2121",
		NewFTPStore(FTPOptions{Addr: "files.example.com:2121"}).opts.Addr)
}
