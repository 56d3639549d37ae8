package events

// Topic enumerates high-level event streams inside the scalper core.
type Topic string

const (
	TopicAccountSnapshot Topic = "account_snapshot"
	TopicOrderPlaced     Topic = "order.placed"
	TopicOrderFilled     Topic = "order.filled"
	TopicOrderRejected   Topic = "order.rejected"
	TopicEntriesBlocked  Topic = "session.entries_blocked"
)
