// Package events implements a fire-and-forget event publisher, which forwards
// typed events to a single host-side callback, always on the host goroutine.
//
// Events are serialized to a self-describing JSON text form, with a "type"
// discriminator, before they cross the dispatch boundary:
//
//	{"type":"Log","message":"running in thread i: 0"}
//	{"type":"OtherMessage","code":7,"description":"something else"}
//
// An [Aggregator] may be published to from any goroutine. [Slot] holds the
// single Aggregator of an application, enforcing that it is initialized
// exactly once, before use, and never reconstructed after disposal.
package events
