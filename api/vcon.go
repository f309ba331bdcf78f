package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/luno/jettison/errors"
	"k8s.io/utils/clock"

	"github.com/vcon-dev/conserver"
)

// CreateVcon stores the vCon in the request body. A vCon without a uuid is assigned one. When the
// ingress_lists query parameter names one or more comma separated queues the id is pushed onto each of
// them once stored.
func CreateVcon(put PutVconFn, push PushFn, clock clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		var v conserver.Vcon
		if err := c.ShouldBindJSON(&v); err != nil {
			abort(c, http.StatusBadRequest, "invalid vcon: "+err.Error())
			return
		}

		if v.UUID == "" {
			fresh, err := conserver.NewVcon(clock.Now())
			if err != nil {
				internalError(c, err, "failed to assign uuid")
				return
			}

			v.UUID = fresh.UUID
			v.Vcon = fresh.Vcon
			if v.CreatedAt.IsZero() {
				v.CreatedAt = fresh.CreatedAt
			}
		}

		if v.Vcon == "" {
			v.Vcon = conserver.VconVersion
		}

		err := put(c.Request.Context(), &v)
		if err != nil {
			internalError(c, err, "failed to store vcon")
			return
		}

		for _, queue := range splitList(c.Query("ingress_lists")) {
			err := push(c.Request.Context(), queue, v.UUID)
			if err != nil {
				internalError(c, err, "failed to push to "+queue)
				return
			}
		}

		c.JSON(http.StatusCreated, v)
	}
}

func GetVcon(get GetVconFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, conserver.ErrRecordNotFound) {
			abort(c, http.StatusNotFound, "vcon not found")
			return
		} else if err != nil {
			internalError(c, err, "failed to load vcon")
			return
		}

		c.JSON(http.StatusOK, v)
	}
}

func DeleteVcon(get GetVconFn, del DeleteVconFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		_, err := get(c.Request.Context(), id)
		if errors.Is(err, conserver.ErrRecordNotFound) {
			abort(c, http.StatusNotFound, "vcon not found")
			return
		} else if err != nil {
			internalError(c, err, "failed to load vcon")
			return
		}

		err = del(c.Request.Context(), id)
		if err != nil {
			internalError(c, err, "failed to delete vcon")
			return
		}

		c.Status(http.StatusNoContent)
	}
}

type IngressRequest struct {
	VconUUIDs []string `json:"vcon_uuids"`
}

type IngressResponse struct {
	Queue  string `json:"queue"`
	Pushed int    `json:"pushed"`
}

// Ingress pushes existing vCon ids onto the queue named by the ingress_list query parameter.
func Ingress(push PushFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		queue := c.Query("ingress_list")
		if queue == "" {
			abort(c, http.StatusBadRequest, "ingress_list is required")
			return
		}

		var req IngressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}

		if len(req.VconUUIDs) == 0 {
			abort(c, http.StatusBadRequest, "vcon_uuids is empty")
			return
		}

		err := push(c.Request.Context(), queue, req.VconUUIDs...)
		if err != nil {
			internalError(c, err, "failed to push to "+queue)
			return
		}

		c.JSON(http.StatusAccepted, IngressResponse{Queue: queue, Pushed: len(req.VconUUIDs)})
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
