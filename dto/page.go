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
package dto

import "github.com/tomoncle/libris/types"

// Page is the JSON envelope of one page of records.
type Page[D any] struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
	PageSize    int  `json:"page_size"`
	HasNext     bool `json:"has_next"`
	Data        []D  `json:"data"`
}

// MapPage converts every item of p with fn and keeps the metadata.
func MapPage[T, D any](p *types.PagedResult[T], fn func(*T) D) Page[D] {
	out := Page[D]{Data: make([]D, 0)}
	if p == nil {
		return out
	}
	out.CurrentPage = p.CurrentPage
	out.TotalPages = p.TotalPages
	out.TotalCount = p.TotalCount
	out.PageSize = p.PageSize
	out.HasNext = p.HasNext()
	for _, item := range p.Data {
		out.Data = append(out.Data, fn(item))
	}
	return out
}

// MapSlice converts items with fn.
func MapSlice[T, D any](items []*T, fn func(*T) D) []D {
	out := make([]D, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
