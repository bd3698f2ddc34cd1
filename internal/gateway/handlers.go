// file: internal/gateway/handlers.go

package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"macro-resolver/internal/entity"
	"macro-resolver/internal/macro"
)

// ScenarioInfo describes one scenario in the listing
type ScenarioInfo struct {
	Name     string   `json:"name"`
	Families []string `json:"families"`
	Indexed  bool     `json:"indexed"`
	Linked   bool     `json:"linked"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) scenarios(c *gin.Context) {
	out := make([]ScenarioInfo, 0, len(macro.Scenarios()))
	for _, sc := range macro.Scenarios() {
		info := ScenarioInfo{Name: sc.String(), Indexed: sc.Indexed(), Linked: sc.Linked()}
		for _, f := range sc.Families().Families() {
			info.Families = append(info.Families, f.String())
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) resolve(c *gin.Context) {
	scenario, err := macro.ParseScenario(c.Param("scenario"))
	if !s.check(c, http.StatusBadRequest, err) {
		return
	}

	var in entity.Records
	if err := c.ShouldBindJSON(&in); err != nil {
		s.check(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if limit := s.cfg.MaxRecords; limit > 0 && in.Len() > limit {
		s.check(c, http.StatusBadRequest, fmt.Errorf("batch of %d records exceeds the limit of %d", in.Len(), limit))
		return
	}

	out, err := s.resolver.ResolveRecords(c.Request.Context(), scenario, in)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, macro.ErrCollaborator) {
			code = http.StatusBadGateway
		}
		s.check(c, code, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// check aborts the request with code when err is set and reports whether the
// handler may continue
func (s *Server) check(c *gin.Context, code int, err error) bool {
	if err != nil && !c.IsAborted() {
		_ = c.Error(err)
		c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error()})
	}
	return err == nil && !c.IsAborted()
}

func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()

	status := c.Writer.Status()
	args := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"duration", time.Since(start),
	}
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", append(args, "errors", c.Errors.String())...)
	case status >= http.StatusBadRequest:
		s.logger.Warn("request rejected", append(args, "errors", c.Errors.String())...)
	default:
		s.logger.Debug("request served", args...)
	}
}
