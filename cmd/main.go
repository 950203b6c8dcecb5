package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dtroode/keybox/internal/algorithm"
	"github.com/dtroode/keybox/internal/cli"
	"github.com/dtroode/keybox/internal/codec"
	"github.com/dtroode/keybox/internal/config"
	"github.com/dtroode/keybox/internal/container"
	"github.com/dtroode/keybox/internal/logger"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/random"
	"github.com/dtroode/keybox/internal/repository/postgres"
	"github.com/dtroode/keybox/internal/service"
	"github.com/dtroode/keybox/internal/storage/file"
	storage "github.com/dtroode/keybox/internal/storage/minio"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "version" {
		logAppVersion()
		return
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	source, err := randomSource(cfg.Random.Device)
	if err != nil {
		logger.Fatal("failed to initialize random source", "error", err)
	}
	random.SetIdentifierSource(source)

	snapshotCodec, err := codec.ByName(cfg.Keybox.Format)
	if err != nil {
		logger.Fatal("failed to select snapshot format", "error", err)
	}

	loader, err := container.NewLoader(source, snapshotCodec, file.NewStore(), container.Params{
		Iterations:          cfg.KDF.Iterations,
		MinPassphraseLength: cfg.Keybox.MinPassphraseLength,
		Cipher:              algorithm.Cipher(cfg.KDF.Cipher),
		Digest:              algorithm.Digest(cfg.KDF.Digest),
	})
	if err != nil {
		logger.Fatal("failed to initialize container loader", "error", err)
	}

	var backups model.BackupStore
	if cfg.Storage.Enabled {
		minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
			Secure: cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to create minio client", "error", err)
		}
		storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
		if err != nil {
			logger.Fatal("failed to initialize storage client", "error", err)
		}
		backups = storageClient
	}

	var archive model.ArchiveStore
	if cfg.Database.DSN != "" {
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Fatal("failed to initialize archive", "error", err)
		}
		defer db.Close()
		archive = postgres.NewArchiveRepository(db.DB)
	}

	svc := service.NewKeybox(loader, file.NewStore(), backups, archive, cfg.Storage.Retain, logger)
	app := cli.New(svc, os.Stdout, cli.Options{
		Path:          cfg.Keybox.DBPath,
		Passphrase:    cfg.Keybox.Passphrase,
		NewPassphrase: cfg.Keybox.NewPassphrase,
	})

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		logger.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func randomSource(device string) (model.RandomSource, error) {
	if device == "" {
		return random.Default()
	}
	return random.SetDefault(device)
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
