package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vcon-dev/conserver"
)

type ChainsResponse struct {
	Chains []conserver.Chain `json:"chains"`
}

func Chains(list ListChainsFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		chains, err := list(c.Request.Context())
		if err != nil {
			internalError(c, err, "failed to list chains")
			return
		}

		if chains == nil {
			chains = []conserver.Chain{}
		}

		c.JSON(http.StatusOK, ChainsResponse{Chains: chains})
	}
}

type HealthResponse struct {
	Status    string                     `json:"status"`
	Processes map[string]conserver.State `json:"processes"`
}

// StateReporter reports the state of the worker processes of a running engine.
type StateReporter interface {
	States() map[string]conserver.State
}

// Health reports "ok" unless a worker process has shut down while the server is still serving.
func Health(r StateReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		states := r.States()

		status := "ok"
		for _, s := range states {
			if s == conserver.StateShutdown {
				status = "degraded"
			}
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, HealthResponse{Status: status, Processes: states})
	}
}
