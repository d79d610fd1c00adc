// Package wordcount provides the map and reduce-by-key stage of the text
// stream pipeline: it subscribes to a line subject, splits each line on
// whitespace, and sums the resulting (word, 1) pairs per fixed micro-batch
// window.
//
// Every batch interval the current accumulator is swapped out under lock
// and published as a WordCountsPayload ("text.counts.v1") with the window
// bounds and the counts in descending-count, then lexicographic order.
// Counts reset each window; there are no running totals across windows.
//
// With emit_empty set (the default) an interval with no input still yields
// a batch message, so a console output downstream prints a header every
// interval. Set "lowercase": true to fold case before counting.
//
// The line input can be a plain NATS subject or, when the socket input is
// configured with a JetStream output, the matching stream for at-least-once
// consumption.
package wordcount
