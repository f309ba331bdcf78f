// Package api exposes the operator HTTP surface of a conserver process: record submission and lookup,
// ingress submission, dead letter inspection and reprocessing, chain listing, health and metrics.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/utils/clock"

	"github.com/vcon-dev/conserver"
)

type (
	GetVconFn      func(ctx context.Context, id string) (*conserver.Vcon, error)
	PutVconFn      func(ctx context.Context, v *conserver.Vcon) error
	DeleteVconFn   func(ctx context.Context, id string) error
	PushFn         func(ctx context.Context, queue string, values ...string) error
	ListChainsFn   func(ctx context.Context) ([]conserver.Chain, error)
	DeadLetteredFn func(ctx context.Context, ingress string) ([]string, error)
	ReprocessFn    func(ctx context.Context, ingress string) (int, error)
)

// Deps are the stores and engine the handlers operate on.
type Deps struct {
	Records conserver.RecordStore
	Chains  conserver.ChainStore
	Queue   conserver.Queue
	Engine  *conserver.Engine
	Logger  conserver.Logger
	Clock   clock.Clock
}

// NewRouter returns a gin engine with every operator route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Clock == nil {
		d.Clock = clock.RealClock{}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if d.Logger != nil {
		r.Use(logErrors(d.Logger))
	}

	r.POST("/vcon", CreateVcon(d.Records.Put, d.Queue.Push, d.Clock))
	r.POST("/vcon/ingress", Ingress(d.Queue.Push))
	r.GET("/vcon/:id", GetVcon(d.Records.Get))
	r.DELETE("/vcon/:id", DeleteVcon(d.Records.Get, d.Records.Delete))

	r.GET("/dlq", DeadLettered(d.Engine.DeadLettered))
	r.POST("/dlq/reprocess", ReprocessDLQ(d.Engine.ReprocessDLQ))

	r.GET("/chains", Chains(d.Chains.Chains))

	r.GET("/health", Health(d.Engine))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// logErrors writes the errors attached to a request by the handlers to the logger.
func logErrors(l conserver.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, err := range c.Errors {
			l.Error(c.Request.Context(), err.Err)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func internalError(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	abort(c, http.StatusInternalServerError, msg)
}
