// Package service implements the library operations on top of the generic
// entity service. Every list operation builds a types.Specification and
// executes it through FindPage.
package service
