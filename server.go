package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func newRouter(g *Generator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/tiles/:layer/:z/:x/:y", tileHandler(g))

	return r
}

// tileHandler serves /tiles/layer/z/x/y.format requests.
func tileHandler(g *Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		yname := c.Param("y")
		dot := strings.LastIndexByte(yname, '.')
		if dot < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing tile format extension"})
			return
		}

		z, errz := strconv.ParseUint(c.Param("z"), 10, 32)
		x, errx := strconv.ParseUint(c.Param("x"), 10, 32)
		y, erry := strconv.ParseUint(yname[:dot], 10, 32)
		if errz != nil || errx != nil || erry != nil || z > ZoomMax {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad tile coordinate"})
			return
		}

		body, contentType, err := g.GetTile(c.Request.Context(),
			c.Param("layer"), uint32(z), uint32(x), uint32(y), yname[dot+1:])
		if err != nil {
			status := statusForError(err)
			if status >= http.StatusInternalServerError {
				log.Errorf("tile request failed: %v", err)
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.Data(http.StatusOK, contentType, body)
	}
}

func statusForError(err error) int {
	var (
		notFound    ErrLayerNotFound
		badFormat   ErrUnsupportedFormat
		configErr   ConfigError
		sourceErr   DataSourceError
		badPipeline TransformError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &badFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrBuildTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.As(err, &sourceErr):
		return http.StatusBadGateway
	case errors.As(err, &configErr), errors.As(err, &badPipeline):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
