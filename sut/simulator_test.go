package sut

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"benchkit/catalogue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatorServesHealthAndCatalogueEndpoints(t *testing.T) {
	cat := catalogue.NewBuiltin()
	e := NewServer(Config{Profile: BuiltinProfiles["fast"]}, cat, nil)
	server := httptest.NewServer(e)
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/aircraft/mode_s/A00001")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSimulatorSlowModeSProfileDelaysOnlyThatKind(t *testing.T) {
	cat := catalogue.NewBuiltin()
	e := NewServer(Config{Profile: BuiltinProfiles["slow-mode_s"]}, cat, nil)
	server := httptest.NewServer(e)
	defer server.Close()

	start := time.Now()
	_, err := http.Get(server.URL + "/api/aircraft/mode_s/A00001")
	require.NoError(t, err)
	slowElapsed := time.Since(start)

	start = time.Now()
	_, err = http.Get(server.URL + "/api/ship/mmsi/123456789")
	require.NoError(t, err)
	fastElapsed := time.Since(start)

	assert.Greater(t, slowElapsed, fastElapsed)
}

func TestSimulatorErrorRateProducesFailures(t *testing.T) {
	cat := catalogue.NewBuiltin()
	e := NewServer(Config{Profile: BuiltinProfiles["fast"], ErrorRate: 1.0}, cat, nil)
	server := httptest.NewServer(e)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/aircraft/mode_s/A00001")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
