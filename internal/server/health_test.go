package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHealth struct{ err error }

func (f fakeHealth) Health(ctx context.Context) error { return f.err }

type fakePing struct{ err error }

func (f fakePing) Ping(ctx context.Context) error { return f.err }

func getHealth(t *testing.T, index HealthChecker, docs Pinger) (int, HealthResponse) {
	t.Helper()
	ts := httptest.NewServer(NewHealthHandler(index, docs))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth_AllDependenciesUp(t *testing.T) {
	code, out := getHealth(t, fakeHealth{}, fakePing{})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "connected", out.Qdrant)
	assert.Equal(t, "connected", out.Documents)
}

func TestHealth_VectorStoreDown(t *testing.T) {
	code, out := getHealth(t, fakeHealth{err: assert.AnError}, fakePing{})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", out.Status)
	assert.Equal(t, "disconnected", out.Qdrant)
	assert.Equal(t, "connected", out.Documents)
}

func TestHealth_DocumentStoreDown(t *testing.T) {
	code, out := getHealth(t, fakeHealth{}, fakePing{err: assert.AnError})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", out.Status)
	assert.Equal(t, "disconnected", out.Documents)
}
