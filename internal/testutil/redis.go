//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
)

// SeedRedis loads a JSON seed file into a specific Redis database.
// The JSON format is: { "TABLE": { "key": { "field": "value", ... }, ... }, ... }
// Each entry becomes a Redis hash at key "TABLE|key" with the given fields.
func SeedRedis(t *testing.T, addr string, db int, seedFile string) {
	t.Helper()

	data, err := os.ReadFile(seedFile)
	if err != nil {
		t.Fatalf("reading seed file %s: %v", seedFile, err)
	}

	var tables map[string]map[string]map[string]string
	if err := json.Unmarshal(data, &tables); err != nil {
		t.Fatalf("parsing seed file %s: %v", seedFile, err)
	}

	for table, entries := range tables {
		for key, fields := range entries {
			WriteSingleEntry(t, addr, db, table, key, fields)
		}
	}
}

// FlushDB flushes a specific Redis database.
func FlushDB(t *testing.T, addr string, db int) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushing DB %d: %v", db, err)
	}
}

// SetupBothDBs flushes and seeds CONFIG_DB (4) from configdb.json and
// STATE_DB (6) from statedb.json.
func SetupBothDBs(t *testing.T) {
	t.Helper()

	addr := RedisAddr()
	FlushDB(t, addr, 4)
	SeedRedis(t, addr, 4, SeedPath("configdb.json"))
	FlushDB(t, addr, 6)
	SeedRedis(t, addr, 6, SeedPath("statedb.json"))
}

// WriteSingleEntry writes a single hash entry to a specific Redis DB.
func WriteSingleEntry(t *testing.T, addr string, db int, table, key string, fields map[string]string) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	redisKey := table + "|" + key
	if len(fields) == 0 {
		// An empty hash cannot exist in Redis; SONiC uses a NULL placeholder.
		fields = map[string]string{"NULL": "NULL"}
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := client.HSet(context.Background(), redisKey, args...).Err(); err != nil {
		t.Fatalf("writing %s: %v", redisKey, err)
	}
}
