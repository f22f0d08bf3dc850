package main

import (
	"context"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-celebration/infrastructure/audio"
	"github.com/vfg2006/sales-celebration/infrastructure/database/postgres"
	"github.com/vfg2006/sales-celebration/infrastructure/repository"
	"github.com/vfg2006/sales-celebration/infrastructure/stream"
	"github.com/vfg2006/sales-celebration/internal/api"
	"github.com/vfg2006/sales-celebration/internal/config"
	"github.com/vfg2006/sales-celebration/internal/usecases/aggregating"
	"github.com/vfg2006/sales-celebration/internal/usecases/celebrating"
	"github.com/vfg2006/sales-celebration/internal/view"
)

func main() {
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Nível de log inválido: %s, usando 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	logrus.Infof("Nível de log configurado para: %s", logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	transactionRepo := repository.NewTransactionRepository(pgConn)
	sellerRepo := repository.NewSellerRepository(pgConn)

	subscriber := stream.NewPGSubscriber(cfg.Database)

	audioCache := audio.NewAssetCache(cfg.Audio)
	defer audioCache.Close()

	audioManager := audio.NewContextManager(cfg.Audio)
	defer audioManager.Close()

	if err := audioManager.StartMaintenance(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar a sonda de vitalidade do áudio")
	}

	viewState := view.NewState()

	orchestrator := celebrating.NewOrchestrator(audioCache, audioManager, viewState, cfg.Celebration)
	defer orchestrator.Stop()

	if cfg.Audio.PreloadOnStart {
		// Pré-carrega os sons antes da primeira venda para a celebração não
		// esperar download em hora de festa.
		if sellers, err := sellerRepo.List(ctx); err != nil {
			logrus.WithError(err).Warn("Erro ao listar vendedores para o pré-carregamento dos sons")
		} else {
			audioCache.PreloadAll(ctx, sellers)
		}
	}

	aggregator := aggregating.NewService(transactionRepo, sellerRepo, subscriber, cfg.Aggregator)

	unsubscribe, err := aggregator.Subscribe(ctx, viewState.OnSnapshot, orchestrator.OnTransaction)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao assinar o fluxo de vendas")
	}
	defer unsubscribe()

	server, err := api.New(
		cfg,
		viewState,
		transactionRepo,
		sellerRepo,
		audioManager,
		audioCache,
	)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// configureLogger configura o formato e comportamento dos logs
func configureLogger() {
	_, file, _, _ := runtime.Caller(0)
	dir := path.Dir(file)
	os.Chdir(dir)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// pgconn cria uma conexão com o banco de dados
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}

	err = conn.Ping(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao testar conexão com PostgreSQL")
	}

	logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn
}
