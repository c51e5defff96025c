// Package testutil contains helpers shared by the package tests: a store
// whose I/O completes only when the test says so, a recording cap notifier
// and a builder for persisted tables. Not intended for production usage.
package testutil
