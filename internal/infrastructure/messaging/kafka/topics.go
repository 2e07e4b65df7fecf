package kafka

// Topic names for ledger events
const (
	// TopicSweepTicks carries one message per desired sweep run, letting
	// the stale-reservation sweep be driven by a Kafka producer (e.g. a
	// cron-job sidecar) instead of only an in-process ticker.
	TopicSweepTicks = "creditmeter.ledger.sweep-ticks"
)

// GetAllTopics returns list of all topics
func GetAllTopics() []string {
	return []string{
		TopicSweepTicks,
	}
}
