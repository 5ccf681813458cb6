// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"account_agent/internal/app"
	"account_agent/internal/auth"
	"account_agent/internal/config"
	"account_agent/internal/identity"
	"account_agent/internal/jobs"
	"account_agent/internal/profile"
	"account_agent/internal/retry"
	"account_agent/internal/storage"

	"github.com/google/wire"
)

var profileSet = wire.NewSet(
	provideContext,
	provideLogger,
	provideDatabase,
	provideFirebase,
	storage.NewKeyValue,
	provideCache,
	retry.NewFromConfig,
	profile.NewDocumentStore,
	profile.NewOutbox,
	profile.NewService,
	wire.Bind(new(profile.Service), new(*profile.ServiceImplementation)),
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		profileSet,

		// Identity
		identity.NewFirebaseProvider,
		wire.Bind(new(identity.Provider), new(*identity.FirebaseProvider)),
		identity.NewSessionStore,

		// Session manager
		auth.NewBroker,
		auth.NewManager,

		// Handlers
		auth.NewHandler,
		profile.NewHandler,

		jobs.NewOutboxReplayJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}

// initializeReplayJob builds only what a one-off outbox replay needs.
func initializeReplayJob(cfg *config.Config) (*jobs.OutboxReplayJob, func(), error) {
	wire.Build(
		profileSet,
		jobs.NewOutboxReplayJob,
	)
	return nil, nil, nil
}
