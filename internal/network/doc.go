// Package network contains the transport for talking to the engine: a line-oriented connection
// with per-line deadlines, a bounded pool of persistent connections, and a Client that dials the
// engine over a unix domain socket or a loopback TCP address.
package network
