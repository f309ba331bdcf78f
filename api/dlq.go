package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type DLQResponse struct {
	Queue  string   `json:"queue"`
	Values []string `json:"values"`
}

type ReprocessResponse struct {
	Queue       string `json:"queue"`
	Reprocessed int    `json:"reprocessed"`
}

// DeadLettered lists the dead letter queue of the ingress queue or topic named by ingress_list.
func DeadLettered(list DeadLetteredFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		ingress := c.Query("ingress_list")
		if ingress == "" {
			abort(c, http.StatusBadRequest, "ingress_list is required")
			return
		}

		values, err := list(c.Request.Context(), ingress)
		if err != nil {
			internalError(c, err, "failed to read dead letter queue")
			return
		}

		if values == nil {
			values = []string{}
		}

		c.JSON(http.StatusOK, DLQResponse{Queue: ingress, Values: values})
	}
}

func ReprocessDLQ(reprocess ReprocessFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		ingress := c.Query("ingress_list")
		if ingress == "" {
			abort(c, http.StatusBadRequest, "ingress_list is required")
			return
		}

		n, err := reprocess(c.Request.Context(), ingress)
		if err != nil {
			internalError(c, err, "failed to reprocess dead letter queue")
			return
		}

		c.JSON(http.StatusOK, ReprocessResponse{Queue: ingress, Reprocessed: n})
	}
}
