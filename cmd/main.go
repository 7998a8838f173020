package main

import (
	"bitfrost-bridge/internal/logger"
	"os"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Error().Interface("panic", r).Msg("Application panicked, recovering")
			os.Exit(1)
		}
	}()

	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
