package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happy-observatory/observatory/internal/interfaces/http/handlers/testutil"
)

func TestHealth(t *testing.T) {
	c, w := testutil.NewTestContext(http.MethodGet, "/health", nil)
	Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, testutil.ParseResponse(w, &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["version"])
}
