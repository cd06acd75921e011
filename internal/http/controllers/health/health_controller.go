// Package health contiene el controller de liveness.
package health

import (
	"net/http"

	"github.com/dropDatabas3/triplog/internal/http/helpers"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// Controller responde /healthz.
type Controller struct {
	repo core.Repository
}

func NewController(repo core.Repository) *Controller {
	return &Controller{repo: repo}
}

// Healthz maneja GET /healthz. Degradado (storage caído) responde 503.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := c.repo.Ping(r.Context()); err != nil {
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
