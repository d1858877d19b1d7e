//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/carefinder/internal/bootstrap"
	"github.com/yanqian/carefinder/internal/domain/evaluation"
	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/domain/recommender"
	"github.com/yanqian/carefinder/internal/infra/config"
	"github.com/yanqian/carefinder/internal/infra/telemetry"
	httpiface "github.com/yanqian/carefinder/internal/interface/http"
	"github.com/yanqian/carefinder/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		telemetry.New,
		provideCatalogConfig,
		provideRecommenderConfig,
		provideEvaluationConfig,
		provideHospitalSource,
		provideValkeyClient,
		provideTableStore,
		providePostgresPool,
		provideHospitalRepository,
		provideCatalogReader,
		provideEvaluationObserver,
		provideJobQueue,
		hospital.NewCatalog,
		recommender.NewService,
		evaluation.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
