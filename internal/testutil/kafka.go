package testutil

import (
	"context"
	"net"
	"strings"
	"time"
)

// TestKafkaBrokers returns the brokers from TEST_KAFKA_BROKERS (default
// localhost:9092) after checking the first one accepts TCP connections.
func TestKafkaBrokers(t TestingTB) []string {
	t.Helper()

	raw := getEnvOrDefault("TEST_KAFKA_BROKERS", "localhost:9092")
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		skipOrFail(t, requireKafka(), "Kafka brokers not configured")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		skipOrFail(t, requireKafka(), "Kafka not available for testing:", err)
		return nil
	}
	closeAndLog(t, "kafka probe", conn)
	return brokers
}
