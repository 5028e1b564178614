// Package memory provides in-memory implementations of driven ports.
//
// ActivityStore mirrors the SQLite store's contract, including its search
// index invariant, and backs service tests.
package memory
