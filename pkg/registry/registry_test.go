package registry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockRegistry(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLatest(t *testing.T) {
	server := mockRegistry(t, map[string]string{
		"/lodash": `{"dist-tags":{"latest":"4.17.21"}}`,
	})

	reg := NewNpmRegistry(server.URL)
	info, err := reg.Latest("lodash")
	require.NoError(t, err)
	assert.Equal(t, "4.17.21", info.Latest)
	assert.False(t, info.Deprecated)
}

func TestLatest_Deprecated(t *testing.T) {
	server := mockRegistry(t, map[string]string{
		"/request": `{"dist-tags":{"latest":"2.88.2"},"deprecated":"request has been deprecated"}`,
	})

	reg := NewNpmRegistry(server.URL)
	info, err := reg.Latest("request")
	require.NoError(t, err)
	assert.Equal(t, "2.88.2", info.Latest)
	assert.True(t, info.Deprecated)
}

func TestLatest_NotFound(t *testing.T) {
	server := mockRegistry(t, nil)

	reg := NewNpmRegistry(server.URL)
	_, err := reg.Latest("no-such-package")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestLatest_InvalidResponse(t *testing.T) {
	server := mockRegistry(t, map[string]string{
		"/weird": `not json at all`,
	})

	reg := NewNpmRegistry(server.URL)
	_, err := reg.Latest("weird")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid registry response")
}

func TestLatest_ServerUnreachable(t *testing.T) {
	server := mockRegistry(t, nil)
	url := server.URL
	server.Close()

	reg := NewNpmRegistry(url)
	_, err := reg.Latest("anything")
	require.Error(t, err)
}
