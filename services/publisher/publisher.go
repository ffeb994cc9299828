package publisher

// Publisher represents a service for publishing serialized records to a
// message broker under a routing key.
type Publisher interface {
	// Publish publishes a message under the given routing key
	Publish(routingKey string, body []byte) error

	// Close closes the publisher connection
	Close() error
}

// SourceKey builds the routing key for source records.
func SourceKey(prefix string) string {
	return prefix + ".sources"
}

// ProductKey builds the routing key for one site's product records.
func ProductKey(prefix, site string) string {
	return prefix + ".products." + site
}

// Nop is a Publisher that discards everything. Used by dry runs.
type Nop struct{}

// Publish discards the message.
func (Nop) Publish(string, []byte) error { return nil }

// Close is a no-op.
func (Nop) Close() error { return nil }
