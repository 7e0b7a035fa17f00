package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuscore/incident-registry/internal/choices"
)

func TestChoicesHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewChoicesHandler(handlerTestRegistry(t))

	r := gin.New()
	r.GET("/config/choices", h.List)

	w := performJSON(t, r, http.MethodGet, "/config/choices", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string][]choices.Choice `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Contains(t, envelope.Data, "levels")
	assert.Len(t, envelope.Data["levels"], 4)
	assert.Equal(t, "L2", envelope.Data["levels"][0].Value)
}
