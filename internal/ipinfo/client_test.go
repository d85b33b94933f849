package ipinfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.7\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	address, err := client.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", address)
}

func TestResolveNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Resolve(context.Background())
	assert.Error(t, err)
}

func TestResolveEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  \n"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Resolve(context.Background())
	assert.Error(t, err)
}

func TestResolveUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)

	_, err := client.Resolve(context.Background())
	assert.Error(t, err)
}

func TestDefaultEndpoint(t *testing.T) {
	client := NewClient("")

	assert.Equal(t, defaultEndpoint, client.endpoint)
}
