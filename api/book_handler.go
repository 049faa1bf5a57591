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
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/dto"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/service"
	"github.com/tomoncle/libris/types"
)

type contributorRequest struct {
	ContributorID int64  `json:"contributor_id" binding:"required"`
	Role          string `json:"role" binding:"required"`
}

func (h *handler) registerBooks(g *gin.RouterGroup) {
	read := RequirePermission(auth.PermCatalogRead)
	write := RequirePermission(auth.PermCatalogWrite)
	g.GET("", read, h.listBooks)
	g.GET("/:id", read, h.getBook)
	g.POST("", write, h.createBook)
	g.PUT("/:id", write, h.updateBook)
	g.PATCH("/:id/active", write, h.setBookActive)
	g.DELETE("/:id", write, h.deleteBook)
	g.GET("/:id/contributors", read, h.bookContributors)
	g.POST("/:id/contributors", write, h.addContributor)
	g.DELETE("/:id/contributors/:contributor/:role", write, h.removeContributor)
}

func bookQuery(c *gin.Context) (service.BookQuery, error) {
	lq, err := listQuery(c)
	if err != nil {
		return service.BookQuery{}, err
	}
	q := service.BookQuery{ListQuery: lq, Author: c.Query("author")}
	if q.AuthorID, err = queryID(c, "author_id"); err != nil {
		return q, err
	}
	if q.CategoryID, err = queryID(c, "category_id"); err != nil {
		return q, err
	}
	if q.PublisherID, err = queryID(c, "publisher_id"); err != nil {
		return q, err
	}
	available, err := queryBool(c, "available")
	if err != nil {
		return q, err
	}
	q.Available = available != nil && *available
	return q, nil
}

func contributorRole(name string) (model.ContributorRole, error) {
	role, found := model.ParseContributorRole(strings.ToLower(strings.TrimSpace(name)))
	if !found {
		return 0, types.NewInvalidArgument("role", "unknown contributor role "+name)
	}
	return role, nil
}

func toContributorDTOs(links []*model.BookContributor) []dto.ContributorDTO {
	out := make([]dto.ContributorDTO, 0, len(links))
	for _, l := range links {
		item := dto.ContributorDTO{ID: l.ContributorID, Role: l.Role.Name()}
		if l.Contributor != nil {
			item.Name = l.Contributor.Name
		}
		out = append(out, item)
	}
	return out
}

func (h *handler) listBooks(c *gin.Context) {
	q, err := bookQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	page, err := h.svc.Books.List(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.MapPage(page, dto.ToBookDTO))
}

func (h *handler) getBook(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	book, err := h.svc.Books.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.ToBookDTO(book))
}

func (h *handler) createBook(c *gin.Context) {
	var in service.BookInput
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	book, err := h.svc.Books.Create(c.Request.Context(), actorOf(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, dto.ToBookDTO(book))
}

func (h *handler) updateBook(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var in service.BookInput
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	book, err := h.svc.Books.Update(c.Request.Context(), actorOf(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.ToBookDTO(book))
}

func (h *handler) setBookActive(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req activeRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	book, err := h.svc.Books.SetActive(c.Request.Context(), actorOf(c), id, *req.Active)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.ToBookDTO(book))
}

func (h *handler) deleteBook(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Books.Delete(c.Request.Context(), actorOf(c), id); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) bookContributors(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	links, err := h.svc.Books.Contributors(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, toContributorDTOs(links))
}

func (h *handler) addContributor(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req contributorRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	role, err := contributorRole(req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	link, err := h.svc.Books.AddContributor(c.Request.Context(), actorOf(c), id, req.ContributorID, role)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, toContributorDTOs([]*model.BookContributor{link})[0])
}

func (h *handler) removeContributor(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	contributorID, err := pathID(c, "contributor")
	if err != nil {
		fail(c, err)
		return
	}
	role, err := contributorRole(c.Param("role"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Books.RemoveContributor(c.Request.Context(), actorOf(c), id, contributorID, role); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}
