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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/libris/types"
)

type Envelope struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Code: http.StatusOK, Message: "ok", Data: data, RequestID: requestID(c)})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Code: http.StatusCreated, Message: "created", Data: data, RequestID: requestID(c)})
}

func noContent(c *gin.Context) {
	c.JSON(http.StatusOK, Envelope{Code: http.StatusOK, Message: "ok", RequestID: requestID(c)})
}

// StatusOf maps a service error to its HTTP status.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case types.IsInvalidArgument(err):
		return http.StatusBadRequest
	case types.IsUnauthorized(err):
		return http.StatusUnauthorized
	case types.IsForbidden(err):
		return http.StatusForbidden
	case types.IsNotFound(err):
		return http.StatusNotFound
	case types.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail aborts the request with the envelope for err. Internal errors are
// logged and their text is not sent to the client.
func fail(c *gin.Context, err error) {
	status := StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		accessLogger().WithError(err).
			WithField("request_id", requestID(c)).
			WithField("path", c.FullPath()).
			Error("Request failed")
		msg = http.StatusText(status)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Envelope{Code: status, Message: msg, RequestID: requestID(c)})
}

var errNoRoute = errors.New("route not found")

func notFoundRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, Envelope{Code: http.StatusNotFound, Message: errNoRoute.Error(), RequestID: requestID(c)})
}
