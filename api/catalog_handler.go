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
	"github.com/gin-gonic/gin"
	"github.com/tomoncle/libris/auth"
	"github.com/tomoncle/libris/dto"
	"github.com/tomoncle/libris/model"
	"github.com/tomoncle/libris/service"
)

// directoryHandler serves one catalog directory. Reads need catalog:read,
// changes catalog:write.
type directoryHandler[T any, PT model.CatalogEntity[T]] struct {
	svc   *service.DirectoryService[T, PT]
	toDTO func(*T) dto.CatalogDTO
}

func registerDirectory[T any, PT model.CatalogEntity[T]](g *gin.RouterGroup, path string, svc *service.DirectoryService[T, PT]) {
	d := &directoryHandler[T, PT]{svc: svc, toDTO: dto.CatalogMapper[T, PT]()}
	read := RequirePermission(auth.PermCatalogRead)
	write := RequirePermission(auth.PermCatalogWrite)

	r := g.Group(path)
	r.GET("", read, d.list)
	r.GET("/:id", read, d.get)
	r.POST("", write, d.create)
	r.PUT("/:id", write, d.update)
	r.PATCH("/:id/active", write, d.setActive)
	r.DELETE("/:id", write, d.delete)
}

func (d *directoryHandler[T, PT]) list(c *gin.Context) {
	q, err := listQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	page, err := d.svc.List(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, dto.MapPage(page, d.toDTO))
}

func (d *directoryHandler[T, PT]) get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	item, err := d.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, d.toDTO(item))
}

func (d *directoryHandler[T, PT]) create(c *gin.Context) {
	var in service.CatalogInput
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	item, err := d.svc.Create(c.Request.Context(), actorOf(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, d.toDTO(item))
}

func (d *directoryHandler[T, PT]) update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var in service.CatalogInput
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	item, err := d.svc.Update(c.Request.Context(), actorOf(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, d.toDTO(item))
}

func (d *directoryHandler[T, PT]) setActive(c *gin.Context) {
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
	item, err := d.svc.SetActive(c.Request.Context(), actorOf(c), id, *req.Active)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, d.toDTO(item))
}

func (d *directoryHandler[T, PT]) delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := d.svc.Delete(c.Request.Context(), actorOf(c), id); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}
