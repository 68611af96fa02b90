// Package di assembles the gateway's construction graph: identity,
// session store, speech, query, and gateway components wired around a
// shared database handle and configuration, grounded on the teacher's
// Container shape (pkg/di/container.go's New/Config/DefaultConfig
// pattern), rewired for the gateway's component set.
package di

import (
	"context"
	"fmt"

	"voxgate/backend/gateway"
	"voxgate/backend/identity/service"
	"voxgate/backend/pkg/config"
	"voxgate/backend/pkg/jwt"
	"voxgate/backend/pkg/logger"
	"voxgate/backend/pkg/secrets"
	"voxgate/backend/query"
	sharedredis "voxgate/backend/shared/redis"
	"voxgate/backend/speech"
	"voxgate/backend/speech/voiceprofile"
	"voxgate/backend/store/archive"
	storerepo "voxgate/backend/store/repository"
	storesvc "voxgate/backend/store/service"

	"gorm.io/gorm"
)

// Container holds every collaborator the gateway's HTTP/WS entrypoints
// depend on.
type Container struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config

	JWTService *jwt.Service
	Verifier   service.Verifier

	Store         *storesvc.Store
	VoiceProfiles *voiceprofile.Registry
	Archive       *archive.Archive

	STT   *speech.STTClient
	TTS   *speech.TTSClient
	Query *query.Resolver

	Pipeline  *gateway.Pipeline
	Registry  *gateway.Registry
	Acceptor  *gateway.Acceptor
	Bootstrap *gateway.BootstrapHandler
}

// New builds a Container around a live database connection, the
// process-wide configuration singleton, and a logger.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	verifier, err := buildVerifier(cfg, jwtService, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build token verifier: %w", err)
	}

	var cache *sharedredis.RedisClient
	if cfg.Cache.Enabled {
		cache = sharedredis.NewRedisClient()
	}

	sessionRepo := storerepo.NewGormSessionRepository(db)
	store := storesvc.New(sessionRepo, cache, log)

	voiceRepo := voiceprofile.NewGormRepository(db)
	voiceRegistry := voiceprofile.New(voiceRepo)
	if _, getErr := voiceRepo.GetByName(voiceprofile.DefaultProfile.Name); getErr != nil {
		_ = voiceRegistry.Create(&voiceprofile.DefaultProfile)
	}

	archiveRepo := archive.NewGormRepository(db)
	audioArchive := archive.New(archiveRepo, log, archive.Config{
		Enabled: cfg.Archive.Enabled,
		TTL:     cfg.Archive.DefaultTTL,
	})

	sttAPIKey := secretOrEnv(cfg.Adapters.STTAPIKey, "STT_API_KEY")
	ttsAPIKey := secretOrEnv(cfg.Adapters.TTSAPIKey, "TTS_API_KEY")
	queryAPIKey := secretOrEnv(cfg.Adapters.QueryAPIKey, "QUERY_API_KEY")

	sttClient := speech.NewSTTClient(cfg.Adapters.STTEndpoint, sttAPIKey, audioArchive, log)
	ttsClient := speech.NewTTSClient(cfg.Adapters.TTSEndpoint, ttsAPIKey, voiceRegistry, log)
	resolver := query.New(cfg.Adapters.QueryEndpoint, queryAPIKey, log)

	timeouts := gateway.Timeouts{
		STT:   cfg.Gateway.STTTimeout,
		Query: cfg.Gateway.QueryTimeout,
		TTS:   cfg.Gateway.TTSTimeout,
		Store: cfg.Gateway.StoreTimeout,
	}
	pipeline := gateway.NewPipeline(sttClient, resolver, ttsClient, store, timeouts, log)

	registry := gateway.NewRegistry()
	acceptor := gateway.NewAcceptor(verifier, store, pipeline, registry, cfg.Security.RequireAuth, cfg.Gateway.SendHighWaterMark, log)
	bootstrap := gateway.NewBootstrapHandler(verifier, store, log)

	return &Container{
		DB:            db,
		Logger:        log,
		Config:        cfg,
		JWTService:    jwtService,
		Verifier:      verifier,
		Store:         store,
		VoiceProfiles: voiceRegistry,
		Archive:       audioArchive,
		STT:           sttClient,
		TTS:           ttsClient,
		Query:         resolver,
		Pipeline:      pipeline,
		Registry:      registry,
		Acceptor:      acceptor,
		Bootstrap:     bootstrap,
	}, nil
}

// buildVerifier picks the Token Verifier implementation: a RemoteVerifier
// when an identity-provider endpoint is configured, otherwise the local
// HS256 codec backing development and test environments.
func buildVerifier(cfg *config.Config, jwtService *jwt.Service, log *logger.Logger) (service.Verifier, error) {
	if cfg.Adapters.IdentityProviderURL != "" {
		return service.NewRemoteVerifier(cfg.Adapters.IdentityProviderURL, secretOrEnv("", "IDENTITY_PROVIDER_API_KEY"), log), nil
	}
	return service.NewLocalVerifier(jwtService), nil
}

func secretOrEnv(configured, secretKey string) string {
	if configured != "" {
		return configured
	}
	return secrets.GetSecretWithDefault(context.Background(), secretKey, "")
}
