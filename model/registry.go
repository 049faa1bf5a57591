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
package model

import "github.com/tomoncle/libris/database"

// Tables are created in priority order, referenced tables first.
func init() {
	for _, m := range []interface{}{
		(*Author)(nil), (*Category)(nil), (*Publisher)(nil), (*Contributor)(nil),
		(*User)(nil), (*Role)(nil), (*Permission)(nil),
	} {
		database.RegisterModel(m, 10)
	}
	database.RegisterModel((*Book)(nil), 20)
	database.RegisterModel((*UserRole)(nil), 20)
	database.RegisterModel((*RolePermission)(nil), 20)
	database.RegisterModel((*BookContributor)(nil), 30)
	database.RegisterModel((*Loan)(nil), 30)
	database.RegisterModel((*AuditEntry)(nil), 40)
}
