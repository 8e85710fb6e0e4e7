package main

import (
	"os"
	"slices"

	"roombook/config"
	"roombook/helper"
	"roombook/shared/logger"

	"github.com/rs/zerolog/log"
)

const (
	argLength = 2
)

func main() {
	cfg := config.Get()

	logger.InitLogger(cfg.Server.Env)

	if len(os.Args) < argLength {
		log.Fatal().Msgf("Migration action is required, one of %v", helper.Actions)
	}

	action := helper.Action(os.Args[1])
	if !slices.Contains(helper.Actions, action) {
		log.Fatal().Str("action", string(action)).Msgf("Invalid action. Use one of %v", helper.Actions)
	}

	if err := helper.Runner(cfg, action); err != nil {
		log.Fatal().Err(err).Str("action", string(action)).Msg("Migration failed")
	}
}
