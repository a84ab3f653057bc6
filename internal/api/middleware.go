package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/identity"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
)

const (
	headerRequestID = "X-Request-ID"
	tokenCookie     = "token"
	ctxRequestID    = "request_id"
)

// requestID tags each request with an id, reusing the caller's when given.
func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(headerRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(ctxRequestID, id)
	c.Header(headerRequestID, id)
	c.Next()
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()

	status := c.Writer.Status()
	line := "%s %s %d %s id=%s"
	args := []any{c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond), c.GetString(ctxRequestID)}
	switch {
	case status >= http.StatusInternalServerError:
		s.log.Error(line, args...)
	case status >= http.StatusBadRequest:
		s.log.Warn(line, args...)
	default:
		s.log.Info(line, args...)
	}
}

func (s *Server) rateLimit(c *gin.Context) {
	if s.limiter != nil && !s.limiter.allow(c.ClientIP(), time.Now()) {
		abortWithError(c, clierr.New(clierr.RateLimited, "too many requests"))
		return
	}
	c.Next()
}

// identify resolves the acting user from a token cookie or a bearer token.
// Requests without a token act as the system; an unknown token is rejected.
func (s *Server) identify(c *gin.Context) {
	token, _ := c.Cookie(tokenCookie)
	if h := c.GetHeader("Authorization"); token == "" && h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			abortWithError(c, clierr.New(clierr.Unauthorized, "unsupported authorization scheme"))
			return
		}
		token = strings.TrimSpace(value)
	}
	if token == "" {
		c.Next()
		return
	}

	actor, err := s.users.ByToken(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, clierr.Wrap(clierr.InternalError, err, "resolving token"))
		return
	}
	if actor == nil {
		abortWithError(c, clierr.New(clierr.Unauthorized, "invalid token"))
		return
	}
	c.Request = c.Request.WithContext(identity.WithActor(c.Request.Context(), actor))
	c.Next()
}

// writeError renders err in the CLI's JSON error envelope.
func writeError(c *gin.Context, err error) {
	ce := output.Coded(err)
	c.JSON(ce.HTTPStatus(), output.NewErrorResponse(ce))
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}
