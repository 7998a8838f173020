package main

import (
	"bitfrost-bridge/internal/database"
	"bitfrost-bridge/internal/emitters"
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/logger"
	"fmt"
)

// attachSinks subscribes the configured event sinks to bus: the log emitter
// always, Kafka and the Postgres journal when configured. The returned
// cleanup flushes and closes them in reverse order.
func attachSinks(bus *events.Bus) (func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	bus.SubscribeEmitter("log", &events.LogEmitter{Logger: logger.Component("events"), Network: cfg.Network})

	if cfg.Kafka.BrokerAddress != "" {
		kafkaEmitter := emitters.NewKafkaEmitter(
			cfg.Kafka.BrokerAddress,
			cfg.Kafka.Topic,
			cfg.Kafka.BatchSize,
			cfg.Kafka.BatchTimeout,
			logger.Component("kafka"),
		)
		closers = append(closers, func() { _ = kafkaEmitter.Close() })
		bus.SubscribeEmitter("kafka", kafkaEmitter)
	}

	if cfg.Database.Host != "" {
		if err := database.InitDB(cfg.Database); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		closers = append(closers, func() { _ = database.Close() })

		if err := database.RunMigrations(cfg.Database); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		journal := database.NewJournal(database.DB, database.DefaultJournalBuffer, logger.Component("journal"))
		closers = append(closers, func() { _ = journal.Close() })
		bus.SubscribeEmitter("journal", journal)
	}

	return cleanup, nil
}
