// Package scheduler runs periodic maintenance jobs such as flagging
// overdue loans.
package scheduler
