package helper

//nolint:revive
import (
	"errors"
	"fmt"
	"net/url"

	"roombook/config"
	"roombook/infras/postgres"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const migrationSource = "file://migrations/postgres"

type Action string

const (
	ActionUp      Action = "up"
	ActionDown    Action = "down"
	ActionStepUp  Action = "step-up"
	ActionDrop    Action = "drop"
	ActionVersion Action = "version"
)

var ErrUnknownAction = errors.New("unknown migration action")

// Actions lists what Runner accepts, in the order the CLI documents them.
var Actions = []Action{ActionUp, ActionDown, ActionStepUp, ActionDrop, ActionVersion}

// connectionString targets the writer, migrations never run against a replica.
func connectionString(cfg *config.Config) string {
	write, _ := postgres.Targets(cfg)

	extra := url.Values{}
	if table := cfg.DB.Postgres.MigrationTable; table != "" {
		extra.Set("x-migrations-table", table)
	}

	return write.DSN(extra)
}

func Runner(cfg *config.Config, action Action) error {
	mig, err := migrate.New(migrationSource, connectionString(cfg))
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	defer func() {
		if srcErr, dbErr := mig.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("Failed to close migrate instance")
		}
	}()

	switch action {
	case ActionUp:
		err = ignoreNoChange(mig.Up())
	case ActionDown:
		err = ignoreNoChange(mig.Steps(-1))
	case ActionStepUp:
		err = ignoreNoChange(mig.Steps(1))
	case ActionDrop:
		err = ignoreNoChange(mig.Down())
	case ActionVersion:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if err != nil {
		return fmt.Errorf("error running %s migration: %w", action, err)
	}

	logVersion(mig, action)

	return nil
}

func logVersion(mig *migrate.Migrate, action Action) {
	version, dirty, err := mig.Version()

	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info().Str("action", string(action)).Msg("Database has no migrations applied")
	case err != nil:
		log.Warn().Err(err).Str("action", string(action)).Msg("Failed to read migration version")
	default:
		log.Info().Str("action", string(action)).Uint("version", version).Bool("dirty", dirty).Msg("Database migrations completed")
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}

	return err
}

func Up(cfg *config.Config) error {
	return Runner(cfg, ActionUp)
}
