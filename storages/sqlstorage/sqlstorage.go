// Package sqlstorage upserts vCons into a SQL table. Both MySQL and SQLite are supported.
package sqlstorage

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"
	_ "modernc.org/sqlite"

	"github.com/vcon-dev/conserver"
)

const (
	Name = "sql"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var Defaults = conserver.StageOptions{
	"driver": DriverSQLite,
	"dsn":    "conserver.db",
	"table":  "vcons",
}

var (
	ErrUnknownDriver = errors.New("unknown sql driver", j.C("ERR_0e6b4f9a2c73d815"))
	ErrInvalidTable  = errors.New("invalid table name", j.C("ERR_b85d13f0e7a2c649"))
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

func Module() conserver.StorageModule {
	return conserver.StorageModule{
		Defaults: Defaults,
		New: func(d conserver.Deps) (conserver.Storage, error) {
			return New(d.Records, d.Clock), nil
		},
	}
}

// New returns a storage that opens one connection pool per driver and dsn on first use.
func New(records conserver.RecordStore, clock clock.Clock) *Storage {
	return &Storage{
		records: records,
		clock:   clock,
		dbs:     make(map[string]*sql.DB),
		schemas: make(map[string]bool),
	}
}

type Storage struct {
	records conserver.RecordStore
	clock   clock.Clock

	mu      sync.Mutex
	dbs     map[string]*sql.DB
	schemas map[string]bool
}

var _ conserver.Storage = (*Storage)(nil)

func (s *Storage) Save(ctx context.Context, vconID string, opts conserver.StageOptions) error {
	driver := opts.Str("driver", DriverSQLite)
	table := opts.Str("table", "vcons")
	if !tableName.MatchString(table) {
		return errors.Wrap(ErrInvalidTable, "", j.MKV{"table": table})
	}

	db, err := s.db(ctx, driver, opts.Str("dsn", ""), table)
	if err != nil {
		return err
	}

	v, err := s.records.Get(ctx, vconID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, upsertQuery(driver, table),
		v.UUID, v.Subject, string(data), v.CreatedAt.UTC(), s.clock.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "upsert vcon", j.MKV{"table": table, "vcon_id": v.UUID})
	}

	return nil
}

// Close closes every connection pool opened by Save.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for key, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(s.dbs, key)
	}

	return firstErr
}

func (s *Storage) db(ctx context.Context, driver, dsn, table string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := driver + "|" + dsn
	db, ok := s.dbs[key]
	if !ok {
		var err error
		db, err = Open(driver, dsn)
		if err != nil {
			return nil, err
		}

		s.dbs[key] = db
	}

	schemaKey := key + "|" + table
	if !s.schemas[schemaKey] {
		err := InitSchema(ctx, db, driver, table)
		if err != nil {
			return nil, err
		}

		s.schemas[schemaKey] = true
	}

	return db, nil
}

// Open opens a connection pool. MySQL DSNs always have parseTime enabled and SQLite databases are opened
// in WAL mode with a single writer.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "parse mysql dsn")
		}

		cfg.ParseTime = true
		return sql.Open(DriverMySQL, cfg.FormatDSN())
	case DriverSQLite:
		db, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, err
		}

		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA busy_timeout=5000",
		}

		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, errors.Wrap(err, "set pragma", j.MKV{"pragma": pragma})
			}
		}

		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		return db, nil
	default:
		return nil, errors.Wrap(ErrUnknownDriver, "", j.MKV{"driver": driver})
	}
}

func InitSchema(ctx context.Context, db *sql.DB, driver, table string) error {
	var schema string
	switch driver {
	case DriverMySQL:
		schema = "CREATE TABLE IF NOT EXISTS `" + table + "` (" +
			"`uuid` VARCHAR(64) NOT NULL PRIMARY KEY, " +
			"`subject` TEXT, " +
			"`data` LONGTEXT NOT NULL, " +
			"`created_at` DATETIME(3) NOT NULL, " +
			"`updated_at` DATETIME(3) NOT NULL)"
	case DriverSQLite:
		schema = `CREATE TABLE IF NOT EXISTS ` + table + ` (
    uuid       TEXT NOT NULL PRIMARY KEY,
    subject    TEXT,
    data       TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`
	default:
		return errors.Wrap(ErrUnknownDriver, "", j.MKV{"driver": driver})
	}

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return errors.Wrap(err, "init schema", j.MKV{"table": table})
	}

	return nil
}

func upsertQuery(driver, table string) string {
	if driver == DriverMySQL {
		return "INSERT INTO `" + table + "` (`uuid`, `subject`, `data`, `created_at`, `updated_at`) " +
			"VALUES (?, ?, ?, ?, ?) " +
			"ON DUPLICATE KEY UPDATE `subject`=VALUES(`subject`), `data`=VALUES(`data`), `updated_at`=VALUES(`updated_at`)"
	}

	return "INSERT INTO " + table + " (uuid, subject, data, created_at, updated_at) " +
		"VALUES (?, ?, ?, ?, ?) " +
		"ON CONFLICT(uuid) DO UPDATE SET subject=excluded.subject, data=excluded.data, updated_at=excluded.updated_at"
}
