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
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/libris/service"
	"github.com/tomoncle/libris/types"
)

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, types.NewInvalidArgument(name, "must be a positive integer")
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, types.NewInvalidArgument(name, "must be an integer")
	}
	return n, nil
}

func queryID(c *gin.Context, name string) (int64, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, types.NewInvalidArgument(name, "must be a positive integer")
	}
	return id, nil
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, types.NewInvalidArgument(name, "must be true or false")
	}
	return &b, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(c *gin.Context, name string) (time.Time, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, types.NewInvalidArgument(name, "must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}

// listQuery reads page, page_size, q, active and ids.
func listQuery(c *gin.Context) (service.ListQuery, error) {
	var q service.ListQuery
	var err error
	if q.Page, err = queryInt(c, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = queryInt(c, "page_size"); err != nil {
		return q, err
	}
	if q.Active, err = queryBool(c, "active"); err != nil {
		return q, err
	}
	q.Search = c.Query("q")
	if v := strings.TrimSpace(c.Query("ids")); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				return q, types.NewInvalidArgument("ids", "must be a comma separated list of ids")
			}
			q.IDs = append(q.IDs, id)
		}
	}
	return q, nil
}

func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return types.NewInvalidArgument("body", err.Error())
	}
	return nil
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}
