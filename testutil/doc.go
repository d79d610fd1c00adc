// Package testutil provides shared helpers for pipeline tests.
//
// LineServer is a TCP server that feeds newline-delimited text to the
// socket input under test, with helpers for waiting on connections and
// dropping clients to exercise reconnect paths. The data helpers build and
// decode wire-encoded text.line and text.counts messages from a small
// corpus with known word frequencies.
package testutil
