package constant

import "fmt"

const (
	TickSubjectSuffix = "tick"

	TickLatestCacheKeyPrefix = "coin_tick:latest"

	TimeoutHandlerInsertTick = "insert_tick"
)

// GetTickStreamSubjectAll returns the wildcard subject bound to the tick stream.
func GetTickStreamSubjectAll(topic string) string {
	return fmt.Sprintf("%s.*", topic)
}

// GetTickStreamSubject returns the subject a single tick is published on.
func GetTickStreamSubject(topic string) string {
	return fmt.Sprintf("%s.%s", topic, TickSubjectSuffix)
}

func GetTickLatestCacheKey(coinID string) string {
	return fmt.Sprintf("%s:%s", TickLatestCacheKeyPrefix, coinID)
}

// GetTickMsgID derives the JetStream dedupe id of a tick from its identity fields.
func GetTickMsgID(coinID, timestampISO string) string {
	return fmt.Sprintf("%s:%s", coinID, timestampISO)
}
