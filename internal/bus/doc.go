// Package bus implements the in-process, multi-topic publish/subscribe mediator
// that connects the currently-playing relay to its consumers.
//
// # Topics
//
// Every [Message] carries exactly one [Kind], fixed when it is constructed.
// The kind is the topic: [Bus.Subscribe] registers an [Inbox] for one kind and
// [Bus.Publish] delivers a message to every inbox currently registered for
// the message's kind.
//
// # Delivery
//
// Delivery is multicast. Two inboxes for the same kind each receive every
// message published after they subscribed; nothing is buffered for
// subscribers that arrive later, and a message published with no subscribers
// is dropped. Messages are not deduplicated: publishing the same message
// twice delivers it twice.
//
// Each inbox is FIFO in publish order. Fan-out happens under the registry
// lock, so a subscriber never observes a partial delivery and concurrent
// Subscribe/Publish calls are atomic with respect to each other.
//
// # Capacity
//
// Inboxes are unbounded by default. With [WithCapacity] an inbox holds at
// most n messages and a publish into a full inbox drops the oldest queued
// message. Publish never blocks.
//
// # Shutdown
//
// [Bus.Close] closes every inbox. Reads and publishes after that fail with
// [ErrBusClosed]; readers blocked in [Inbox.Next] are woken.
package bus
