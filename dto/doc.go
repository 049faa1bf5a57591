// Package dto holds the JSON records returned by the API and the explicit
// functions mapping models to them.
package dto
