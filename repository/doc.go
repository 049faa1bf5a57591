// Package repository provides a generic repository built on Bun: CRUD,
// transactions, upsert, and a database executor for types.Specification
// that pushes filters, ordering and paging down to SQL.
package repository
