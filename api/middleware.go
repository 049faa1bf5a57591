/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package api

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/types"
	"github.com/tomoncle/libris/utils"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	claimsKey    = "claims"
)

func accessLogger() *logrus.Logger { return utils.NewLogger("HTTP") }

// RequestID keeps a caller supplied X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog writes one line per request after it completes.
func AccessLog() gin.HandlerFunc {
	logger := accessLogger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID(c),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start).String(),
			"ip":         c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// Recovery answers a panicking handler with a 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		accessLogger().WithFields(logrus.Fields{
			"request_id": requestID(c),
			"panic":      recovered,
		}).Error("Handler panicked")
		fail(c, fmt.Errorf("panic: %v", recovered))
	})
}

// CORS allows the given origins; an empty list or "*" allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// Authenticator validates bearer tokens and rejects revoked ones.
type Authenticator struct {
	tokens  *auth.TokenManager
	revoked auth.RevocationStore
}

func NewAuthenticator(tokens *auth.TokenManager, revoked auth.RevocationStore) *Authenticator {
	if revoked == nil {
		revoked = auth.NewMemoryStore()
	}
	return &Authenticator{tokens: tokens, revoked: revoked}
}

// Required aborts with 401 unless the request carries a valid token.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			fail(c, &types.UnauthorizedError{Reason: "missing bearer token"})
			return
		}
		claims, err := a.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			fail(c, err)
			return
		}
		revoked, err := a.revoked.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			fail(c, fmt.Errorf("check token revocation: %w", err))
			return
		}
		if revoked {
			fail(c, &types.UnauthorizedError{Reason: "token revoked"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequirePermission passes when the caller holds any of permissions.
func RequirePermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsOf(c)
		if claims == nil {
			fail(c, &types.UnauthorizedError{})
			return
		}
		for _, p := range permissions {
			if claims.Has(p) {
				c.Next()
				return
			}
		}
		fail(c, &types.ForbiddenError{Permission: strings.Join(permissions, "|")})
	}
}

func claimsOf(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// actorOf returns the caller's user id for audit entries.
func actorOf(c *gin.Context) *int64 {
	claims := claimsOf(c)
	if claims == nil {
		return nil
	}
	id := claims.UserID()
	if id == 0 {
		return nil
	}
	return &id
}
