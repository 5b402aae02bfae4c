// Package event is a small in-process event bus.
//
// A Publisher wraps payloads in Events (UUID, type name, timestamp) and hands
// them to a transport. A Processor owns the handler registry:
//
//	transport := event.NewSyncTransport()
//	proc := event.NewProcessor(transport, event.WithHandler(
//		event.NewHandlerFunc(func(ctx context.Context, e tunnel.StateChanged) error {
//			log.Info("state", "from", e.From, "to", e.To)
//			return nil
//		}),
//	))
//	pub := event.NewPublisher(transport)
//
// SyncTransport runs handlers inline and returns their errors from Publish.
// ChannelTransport queues events for Processor workers started with Start;
// Stop drains the queue.
//
// Event names are bare type names, so payload types must be unique across
// publishers sharing a bus. Handlers read event metadata with EventID,
// EventName and EventTime.
package event
