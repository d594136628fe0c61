// Package dispatcher fans records out to several sinks.
//
// Four routing strategies are provided: ContentBased (first matching
// predicate wins), RoundRobin, Random and Broadcast. Every dispatcher is
// a conveyor.Writer, so it can be the writer of a job directly:
//
//	orders := dispatcher.NewChannelSink(128)
//	refunds := dispatcher.NewChannelSink(128)
//	d := dispatcher.NewContentBased([]dispatcher.Route{
//	    {When: isOrder, To: orders},
//	    {When: isRefund, To: refunds},
//	}, dispatcher.WithPoisonOnClose())
//
// Poison records are never routed: every dispatcher broadcasts them to
// all of its sinks so that each downstream consumer observes the end of
// the stream. With WithPoisonOnClose a dispatcher broadcasts one poison
// record itself when it is closed.
//
// A dispatcher is driven by one job goroutine and is not safe for
// concurrent Write calls. Sinks shared between jobs must be safe for
// concurrent use; ChannelSink is.
package dispatcher
