// internal/store/scylladb/scylladb_store.go
package scylladb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avivl/kvkeeper/internal/kvservice"
	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/avivl/kvkeeper/internal/store"
	"github.com/gocql/gocql"
)

// StoreName the name of the store.
const StoreName string = "scylladb"

const pingQuery = "SELECT now() FROM system.local"

// maxTTLSeconds is the largest TTL CQL accepts (20 years)
const maxTTLSeconds = 630720000

// ErrWrongType is returned when a string operation hits a set row or the reverse
var ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

// Factory function for creating sessions.
// Can be replaced during tests for mocking.
var newSessionFn = func(ctx context.Context, config *ScyllaDBConfig) (session, error) {
	cluster := gocql.NewCluster(config.Addr())
	cluster.ProtoVersion = 4
	cluster.Consistency = parseConsistency(config.Consistency)
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			cluster.ConnectTimeout = d
			cluster.Timeout = d
		}
	}

	s, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	return &gocqlSession{s: s}, nil
}

func init() {
	kvservice.Register(StoreName, newStore)
}

func newStore(ctx context.Context, options kvservice.Config, logger *observability.SLogger) (store.KVStore, error) {
	cfg, ok := options.(*ScyllaDBConfig)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return New(ctx, cfg, logger)
}

// Store implements store.KVStore on a single table keyed by text, holding
// either a value or a members set per row.
type Store struct {
	session       session
	keyspaceName  string
	tableName     string
	fullTableName string
	l             *observability.SLogger
	config        *ScyllaDBConfig

	getQuery    string
	setQuery    string
	saddQuery   string
	deleteQuery string
}

// parseConsistency converts string consistency to gocql.Consistency
func parseConsistency(c string) gocql.Consistency {
	switch c {
	case "CONSISTENCY_QUORUM":
		return gocql.Quorum
	case "CONSISTENCY_ONE":
		return gocql.One
	case "CONSISTENCY_ALL":
		return gocql.All
	case "CONSISTENCY_LOCAL_QUORUM":
		return gocql.LocalQuorum
	default:
		return gocql.Quorum
	}
}

// New creates a ScyllaDB store, creating the keyspace and table when missing.
// The session is closed again if any step fails.
func New(ctx context.Context, config *ScyllaDBConfig, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("scylladb: %w", store.ErrConfigMissing)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	sess, err := newSessionFn(ctx, config)
	if err != nil {
		logger.Errorf("Error creating session: %v", err)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sdb := &Store{
		session:       sess,
		keyspaceName:  config.Keyspace,
		tableName:     config.Table,
		fullTableName: fmt.Sprintf(`"%s"."%s"`, config.Keyspace, config.Table),
		l:             logger,
		config:        config,
	}
	sdb.initQueries()

	if err := sdb.initSchema(ctx); err != nil {
		logger.Errorf("Error initializing schema: %v", err)
		sess.Close()
		return nil, err
	}
	if err := sdb.Ping(ctx); err != nil {
		logger.Errorf("Error pinging ScyllaDB at %s: %v", config.Addr(), err)
		sess.Close()
		return nil, fmt.Errorf("failed to connect to ScyllaDB: %w", err)
	}

	return sdb, nil
}

func (sdb *Store) initQueries() {
	sdb.getQuery = fmt.Sprintf("SELECT value, members FROM %s WHERE key = ?", sdb.fullTableName)
	sdb.setQuery = fmt.Sprintf("INSERT INTO %s (key, value, members) VALUES (?, ?, null) USING TTL ?", sdb.fullTableName)
	sdb.saddQuery = fmt.Sprintf("UPDATE %s SET members = members + ? WHERE key = ? IF value = null", sdb.fullTableName)
	sdb.deleteQuery = fmt.Sprintf("DELETE FROM %s WHERE key = ? IF EXISTS", sdb.fullTableName)
}

func (sdb *Store) initSchema(ctx context.Context) error {
	rf := sdb.config.ReplicationFactor
	if rf == 0 {
		rf = 1
	}

	err := sdb.session.Query(fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS "%s"
	WITH replication = {
		'class' : 'SimpleStrategy',
		'replication_factor' : %d
	}`, sdb.keyspaceName, rf)).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to create keyspace: %w", err)
	}

	err = sdb.session.Query(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        key text PRIMARY KEY,
        value text,
        members set<text>
    )`, sdb.fullTableName)).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// GetConfig returns the current store configuration
func (sdb *Store) GetConfig() store.StoreConfig {
	return sdb.config
}

func (sdb *Store) read(ctx context.Context, key string) (value *string, members []string, found bool, err error) {
	err = sdb.session.Query(sdb.getQuery, key).WithContext(ctx).Scan(&value, &members)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, err
	}
	return value, members, true, nil
}

// Get returns the value at key. A row holding only a set is ErrWrongType.
func (sdb *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, members, found, err := sdb.read(ctx, key)
	if err != nil || !found {
		return "", false, err
	}
	if value == nil {
		if len(members) > 0 {
			return "", false, ErrWrongType
		}
		return "", false, nil
	}
	return *value, true, nil
}

// Set writes value at key with a TTL in whole seconds; zero means no TTL
func (sdb *Store) Set(ctx context.Context, key, value string, expiry time.Duration) error {
	ttl := store.TTLSeconds(expiry)
	if ttl > maxTTLSeconds {
		ttl = maxTTLSeconds
	}
	return sdb.session.Query(sdb.setQuery, key, value, int(ttl)).WithContext(ctx).Exec()
}

// SAdd adds members to the set at key; a row holding a value is left untouched
func (sdb *Store) SAdd(ctx context.Context, key string, members ...string) error {
	var existing *string
	applied, err := sdb.session.Query(sdb.saddQuery, members, key).WithContext(ctx).ScanCAS(&existing)
	if err != nil {
		return err
	}
	if !applied {
		return ErrWrongType
	}
	return nil
}

// SMembers returns the members of the set at key, or an empty slice
func (sdb *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	value, members, _, err := sdb.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if value != nil {
		return nil, ErrWrongType
	}
	if members == nil {
		members = []string{}
	}
	return members, nil
}

// Delete removes key and reports 1 when a row existed
func (sdb *Store) Delete(ctx context.Context, key string) (int64, error) {
	applied, err := sdb.session.Query(sdb.deleteQuery, key).WithContext(ctx).ScanCAS()
	if err != nil {
		return 0, err
	}
	if applied {
		return 1, nil
	}
	return 0, nil
}

// Ping runs a trivial query against system.local
func (sdb *Store) Ping(ctx context.Context) error {
	return sdb.session.Query(pingQuery).WithContext(ctx).Exec()
}

// Close closes the session
func (sdb *Store) Close() error {
	sdb.session.Close()
	return nil
}
