package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetTokenAndSetAuthHeader(t *testing.T) {
	var hits atomic.Int32
	server := tokenServer(t, &hits)

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", AuthURL: server.URL})

	token, err := client.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token123", token)

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, client.SetAuthHeader(req))
	assert.Equal(t, "Bearer token123", req.Header.Get("Authorization"))
	assert.Equal(t, int32(1), hits.Load(), "token is cached")

	_, err = client.ForceRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "bad", AuthURL: srv.URL})
	_, err := client.GetToken(context.Background())
	assert.ErrorContains(t, err, "failed to get token")
}

func TestConfValidate(t *testing.T) {
	assert.Error(t, Conf{}.Validate())
	assert.Error(t, Conf{ClientID: "a", ClientSecret: "b"}.Validate())
	assert.NoError(t, Conf{ClientID: "a", ClientSecret: "b", AuthURL: "http://x"}.Validate())
}
