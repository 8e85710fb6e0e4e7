package postgres

//nolint:revive
import (
	"net"
	"net/url"
	"time"

	"roombook/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const driverName = "postgres"

// Connection splits reads from writes. Read is the same pool as Write when no replica is configured.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

// Target is one postgres server the service talks to.
type Target struct {
	Role     string
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
	SSLMode  string
	Timezone string
}

func New(cfg *config.Config) *Connection {
	write, read := Targets(cfg)

	conn := &Connection{Write: connect(cfg, write)}

	if read == write {
		conn.Read = conn.Write

		return conn
	}

	conn.Read = connect(cfg, read)

	return conn
}

func (c *Connection) Close() error {
	if c.Read != nil && c.Read != c.Write {
		if err := c.Read.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close read pool")
		}
	}

	if c.Write == nil {
		return nil
	}

	return c.Write.Close() //nolint:wrapcheck
}

// DBName applies the configured prefix to a database name.
func DBName(cfg *config.Config, baseName string) string {
	return cfg.DB.Postgres.Prefix + baseName
}

// Targets returns the write and read servers. Without a read host, reads go to the writer.
func Targets(cfg *config.Config) (Target, Target) {
	w := cfg.DB.Postgres.Write
	write := Target{
		Role:     "write",
		Host:     w.Host,
		Port:     w.Port,
		Username: w.Username,
		Password: w.Password,
		DBName:   DBName(cfg, w.Name),
		SSLMode:  w.SSLMode,
		Timezone: w.Timezone,
	}

	r := cfg.DB.Postgres.Read
	if r.Host == "" {
		return write, write
	}

	return write, Target{
		Role:     "read",
		Host:     r.Host,
		Port:     r.Port,
		Username: r.Username,
		Password: r.Password,
		DBName:   DBName(cfg, r.Name),
		SSLMode:  r.SSLMode,
		Timezone: r.Timezone,
	}
}

// DSN renders the target as a postgres URL with credentials escaped.
func (t Target) DSN(extra url.Values) string {
	query := url.Values{}
	if t.SSLMode != "" {
		query.Set("sslmode", t.SSLMode)
	}

	if t.Timezone != "" {
		query.Set("timezone", t.Timezone)
	}

	for key, values := range extra {
		query[key] = values
	}

	dsn := url.URL{
		Scheme:   driverName,
		User:     url.UserPassword(t.Username, t.Password),
		Host:     net.JoinHostPort(t.Host, t.Port),
		Path:     "/" + t.DBName,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}

func connect(cfg *config.Config, target Target) *sqlx.DB {
	pg := cfg.DB.Postgres
	logger := log.With().
		Str("name", target.Role).
		Str("host", target.Host).
		Str("port", target.Port).
		Str("dbName", target.DBName).
		Logger()

	for attempt := 1; attempt <= max(1, pg.MaxRetry); attempt++ {
		db, err := sqlx.Connect(driverName, target.DSN(nil))
		if err == nil {
			db.SetMaxOpenConns(pg.Pool.MaxOpenConns)
			db.SetMaxIdleConns(pg.Pool.MaxIdleConns)
			db.SetConnMaxLifetime(time.Duration(pg.Pool.ConnMaxLifetimeSeconds) * time.Second)

			logger.Info().Int("maxOpen", pg.Pool.MaxOpenConns).Msg("Connected to database")

			return db
		}

		logger.Error().Err(err).Int("attempt", attempt).Msg("Failed connecting to database, retrying")

		time.Sleep(time.Duration(pg.RetryWaitTime) * time.Second)
	}

	logger.Fatal().Int("attempts", max(1, pg.MaxRetry)).Msg("Giving up connecting to database")

	return nil
}
