// Package protocol implements the engine's line protocol: commands are written as a single line
// of the form ">name (arg) (arg)", and every reply is a run of text lines terminated by a sentinel
// line. The Client mediates each command/reply cycle over a pooled connection and classifies every
// failure into one of a small set of error kinds.
package protocol
