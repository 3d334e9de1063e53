package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// SONiC Redis database numbers.
const (
	ConfigDBIndex = 4
	StateDBIndex  = 6
)

// Table names read by the learner.
const (
	tableBGPGlobals     = "BGP_GLOBALS"
	tableBGPNeighbor    = "BGP_NEIGHBOR_TABLE"
	tableDeviceMetadata = "DEVICE_METADATA"
)

// dbClient reads "TABLE|key" hashes from one SONiC Redis database.
type dbClient struct {
	name   string // "config_db", "state_db"
	client *redis.Client
}

func newDBClient(name, addr string, db int) *dbClient {
	return &dbClient{
		name: name,
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
	}
}

func (c *dbClient) ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connecting to %s: %w", c.name, err)
	}
	return nil
}

func (c *dbClient) close() error {
	return c.client.Close()
}

// entry reads one hash. Returns (nil, nil) if the key does not exist.
func (c *dbClient) entry(ctx context.Context, table, key string) (map[string]string, error) {
	vals, err := c.client.HGetAll(ctx, table+"|"+key).Result()
	if err != nil {
		return nil, fmt.Errorf("%s %s|%s: %w", c.name, table, key, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

// table reads every hash of a table, keyed by the part after "TABLE|".
func (c *dbClient) table(ctx context.Context, table string) (map[string]map[string]string, error) {
	keys, err := scanKeys(ctx, c.client, table+"|*", 100)
	if err != nil {
		return nil, fmt.Errorf("%s scan %s: %w", c.name, table, err)
	}

	pipe := c.client.Pipeline()
	cmds := make(map[string]*redis.StringStringMapCmd, len(keys))
	for _, k := range keys {
		cmds[k] = pipe.HGetAll(ctx, k)
	}
	if len(keys) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("%s read %s: %w", c.name, table, err)
		}
	}

	out := make(map[string]map[string]string, len(keys))
	prefix := table + "|"
	for k, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("%s read %s: %w", c.name, k, err)
		}
		out[strings.TrimPrefix(k, prefix)] = vals
	}
	return out, nil
}

// scanKeys collects keys matching pattern using cursor-based SCAN.
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
