package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/tidecrm/tide/internal/auth"
	"github.com/tidecrm/tide/internal/models"
	"github.com/tidecrm/tide/internal/services"
	"github.com/tidecrm/tide/pkg/logger"
	"github.com/tidecrm/tide/pkg/metrics"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxCaptureBytes caps how much of a request or response body is
// persisted to the audit trail.
const DefaultMaxCaptureBytes = 10 * 1024

// DefaultExcludedPaths lists path prefixes that never produce audit records.
var DefaultExcludedPaths = []string{
	"/health",
	"/metrics",
	"/favicon.ico",
}

// AuditSink persists finished request records.
type AuditSink interface {
	Record(ctx context.Context, entry services.AuditEntry) error
}

// AuditConfig controls the audit middleware.
type AuditConfig struct {
	ExcludedPaths []string      `mapstructure:"excluded_paths"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// PrincipalResolver derives the acting user id for requests that finish
// before the authentication middleware runs, such as rate-limited or public
// requests carrying a valid token.
type PrincipalResolver func(c *gin.Context) (string, bool)

// AuditOption customises the audit middleware.
type AuditOption func(*auditOptions)

type auditOptions struct {
	principal PrincipalResolver
}

// WithAuditPrincipal attributes records to the token bearer when the request
// never reached the authentication middleware. Best effort: an absent,
// invalid or unknown token simply leaves the record anonymous.
func WithAuditPrincipal(jwt *iauth.JWTService, db *gorm.DB, cookieName string) AuditOption {
	return func(o *auditOptions) {
		o.principal = func(c *gin.Context) (string, bool) {
			token := iauth.TokenFromRequest(c, cookieName)
			if token == "" {
				return "", false
			}
			claims, err := jwt.Verify(token)
			if err != nil {
				return "", false
			}
			var user models.User
			err = db.WithContext(c.Request.Context()).
				Select("id").
				Where("client_id = ?", claims.ClientID).
				First(&user).Error
			if err != nil {
				return "", false
			}
			return user.ID, true
		}
	}
}

// Audit assigns every request a correlation id and records method, path,
// client address, sanitized bodies, status and duration once the handler
// chain finishes. The record is built in a deferred function so handler
// panics still leave exactly one record before the recovery middleware
// answers. Persistence happens off the request path and failures are
// swallowed; auditing never breaks the request it observes.
func Audit(sink AuditSink, cfg AuditConfig, opts ...AuditOption) gin.HandlerFunc {
	excluded := cfg.ExcludedPaths
	if excluded == nil {
		excluded = DefaultExcludedPaths
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxCaptureBytes
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	var options auditOptions
	for _, opt := range opts {
		opt(&options)
	}

	log := logger.WithModule("audit")

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range excluded {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		requestBody := captureRequestBody(c, maxBytes)

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer, limit: maxBytes}
		c.Writer = writer

		// Deferred so a panicking handler is still recorded; the panic is
		// re-raised for the recovery middleware, which answers 500.
		defer func() {
			rec := recover()

			status := c.Writer.Status()
			if rec != nil {
				status = http.StatusInternalServerError
			}

			entry := services.AuditEntry{
				RequestID:    requestID,
				Method:       c.Request.Method,
				Path:         path,
				IPAddress:    ClientIP(c),
				StatusCode:   status,
				ProcessTime:  time.Since(start).Seconds(),
				QueryParams:  sanitizedQuery(c),
				PathParams:   pathParams(c),
				RequestBody:  requestBody,
				ResponseBody: writer.sanitizedBody(),
			}
			entry.UserID = requestPrincipal(c, options.principal)

			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
				defer cancel()
				if err := sink.Record(ctx, entry); err != nil {
					metrics.AuditWriteFailures.Inc()
					log.Warn("dropping audit record",
						zap.String("request_id", entry.RequestID),
						zap.Error(err),
					)
				}
			}()

			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}

// requestPrincipal prefers the identity established by the authentication
// middleware and falls back to the configured resolver for requests that
// were answered before it ran.
func requestPrincipal(c *gin.Context, resolver PrincipalResolver) *string {
	if v, ok := c.Get(CtxUserIDKey); ok {
		if userID, ok := v.(string); ok && userID != "" {
			return &userID
		}
	}
	if resolver != nil {
		if userID, ok := resolver(c); ok && userID != "" {
			return &userID
		}
	}
	return nil
}

// captureRequestBody reads and restores the request body, returning a
// sanitized document suitable for persistence. Non-JSON and oversized bodies
// are summarised instead of stored.
func captureRequestBody(c *gin.Context, limit int64) any {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if c.Request.ContentLength > limit {
		return map[string]any{"_omitted": "body too large", "_size": c.Request.ContentLength}
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		return nil
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	if int64(len(raw)) > limit {
		return map[string]any{"_omitted": "body too large", "_size": int64(len(raw))}
	}
	return decodeAndSanitize(raw)
}

// sanitizedQuery flattens query parameters, redacting sensitive names and
// keeping repeated parameters as lists.
func sanitizedQuery(c *gin.Context) map[string]any {
	values := c.Request.URL.Query()
	if len(values) == 0 {
		return nil
	}
	params := make(map[string]any, len(values))
	for name, list := range values {
		if _, sensitive := sensitiveKeys[lowerASCII(name)]; sensitive {
			params[name] = RedactionMarker
			continue
		}
		if len(list) == 1 {
			params[name] = list[0]
		} else {
			params[name] = list
		}
	}
	return params
}

func pathParams(c *gin.Context) map[string]any {
	if len(c.Params) == 0 {
		return nil
	}
	params := make(map[string]any, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	return params
}

func decodeAndSanitize(raw []byte) any {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]any{"_omitted": "body is not valid JSON", "_size": int64(len(raw))}
	}
	return Sanitize(doc)
}

// bodyCaptureWriter tees the response body into a bounded buffer.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (w *bodyCaptureWriter) Write(data []byte) (int, error) {
	if !w.truncated {
		room := w.limit - int64(w.buf.Len())
		if int64(len(data)) <= room {
			w.buf.Write(data)
		} else {
			w.truncated = true
		}
	}
	return w.ResponseWriter.Write(data)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *bodyCaptureWriter) sanitizedBody() any {
	if w.truncated {
		return map[string]any{"_omitted": "body too large"}
	}
	if w.buf.Len() == 0 {
		return nil
	}
	// Non-JSON responses (exports, plain text) are not persisted.
	var doc any
	if err := json.Unmarshal(w.buf.Bytes(), &doc); err != nil {
		return nil
	}
	return Sanitize(doc)
}
