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
package service

import (
	"database/sql"
	"errors"

	"github.com/tomoncle/libris/database"
	"github.com/tomoncle/libris/types"
)

func notFoundOr(err error, resource string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return types.NewNotFound(resource, id)
	}
	return err
}

func conflictOr(err error, resource, msg string) error {
	if database.IsDuplicateKey(err) {
		return &types.ConflictError{Resource: resource, Msg: msg, Err: err}
	}
	return err
}
