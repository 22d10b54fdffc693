// Package testutil holds shared helpers for tests that need Postgres, Redis or
// Kafka. Integration helpers skip the calling test when the dependency is not
// reachable unless TEST_REQUIRE_* asks for a hard failure.
package testutil

import (
	"os"
	"strings"
	"time"
)

// TestingTB is an interface that covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

// cleanup registers fn with t.Cleanup when available.
func cleanup(t TestingTB, fn func()) {
	if tc, ok := any(t).(interface{ Cleanup(func()) }); ok {
		tc.Cleanup(fn)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envBool parses common truthy values from env vars.
func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
func requireKafka() bool { return envBool("TEST_REQUIRE_KAFKA") || envBool("TEST_REQUIRE_INFRA") }

// skipOrFail skips the test unless required is set, in which case it fails.
func skipOrFail(t TestingTB, required bool, args ...any) {
	t.Helper()
	if required {
		t.Fatal(args...)
	}
	t.Skip(args...)
}

// TestTime returns a fixed timestamp for deterministic fixtures.
func TestTime() time.Time {
	return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
}
