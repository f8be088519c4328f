package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"profanity/pkg/api"
	"profanity/pkg/config"
	"profanity/pkg/detect"
	"profanity/pkg/embedding"
	"profanity/pkg/index"
	"profanity/pkg/index/elastic"
	"profanity/pkg/index/memory"
	"profanity/pkg/index/mongo"
	"profanity/pkg/index/postgres"
	"profanity/pkg/index/sqlite"
	"profanity/pkg/seed"
)

func main() {
	var (
		configPath string
		httpAddr   string
		logLevel   string
		provider   string
		backend    string
		kafkaAddr  string
		kafkaTopic string
		kafkaBatch int
	)

	flag.StringVar(&configPath, "config", "cmd/server/config.toml", "Path to TOML config file")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.StringVar(&provider, "embedder", "", "Embedding provider: openai, workersai, hash.")
	flag.StringVar(&backend, "index", "", "Vector index: memory, sqlite, elastic, postgres, mongo.")
	flag.StringVar(&kafkaAddr, "kafka", "", "Kafka server address in the form 'host:port'.")
	flag.StringVar(&kafkaTopic, "topic", "", "Kafka topic.")
	flag.IntVar(&kafkaBatch, "batch", 0, "Kafka batch size.")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	// Override config with flags if set
	if httpAddr != "" {
		cfg.Server.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if provider != "" {
		cfg.Embedding.Provider = provider
	}
	if backend != "" {
		cfg.Index.Backend = backend
	}
	if kafkaAddr != "" {
		cfg.Kafka.Addr = kafkaAddr
	}
	if kafkaTopic != "" {
		cfg.Kafka.Topic = kafkaTopic
	}
	if kafkaBatch != 0 {
		cfg.Kafka.Batch = kafkaBatch
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[server] %v", err)
	}

	if !strings.Contains(cfg.Server.HTTPAddr, ":") {
		log.Warn("[server] use ':' before port number, e.g. ':8080'")
	}

	config.SetLogLevel(cfg.Server.LogLevel)

	embedder, err := cfg.Embedding.NewEmbedder()
	if err != nil {
		log.Fatalf("[server] failed to create embedder: %v", err)
	}
	log.Infof("[server] embedding with %s (%d dims)", embedder.ModelName(), embedder.Dimensions())

	store, closeStore, err := openIndex(cfg.Index, embedder)
	if err != nil {
		log.Fatalf("[server] failed to open %s index: %v", cfg.Index.Backend, err)
	}
	defer closeStore()

	var kafkaWriter api.MessageWriter
	if cfg.Kafka.Addr != "" && cfg.Kafka.Topic != "" {
		kw := &kafka.Writer{
			Addr:      kafka.TCP(cfg.Kafka.Addr),
			Topic:     cfg.Kafka.Topic,
			BatchSize: cfg.Kafka.Batch,
		}
		defer kw.Close()
		if err := createTopic(kw.Addr.String(), kw.Topic); err != nil {
			log.Warnf("[server] failed to create Kafka topic: %v", err)
		}
		kafkaWriter = kw
	} else {
		log.Warnf("[server] kafka was not configured, logs will not be sent to Kafka")
	}

	detector := detect.New(embedder, store, cfg.Detection)
	seeder := seed.New(embedder, store)

	api := api.New(cfg.Server.ServiceName, detector, seeder, kafkaWriter)
	api.UploadToken = cfg.Admin.UploadToken
	if api.UploadToken == "" {
		log.Warn("[server] UPLOAD_TOKEN is not set, admin endpoints are disabled")
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Infof("[server] starting on port %v", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
			return
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}
}

// openIndex connects to the configured backend and prepares its schema. The
// returned func releases the connection.
func openIndex(cfg config.Index, e embedding.Embedder) (index.Store, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.Backend {
	case config.BackendMemory:
		log.Info("[server] using in-memory index, seed it through the admin endpoints")
		return memory.New(), func() {}, nil

	case config.BackendSQLite:
		db, err := sqlite.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil

	case config.BackendElastic:
		if cfg.Elastic.Dimensions == 0 {
			cfg.Elastic.Dimensions = e.Dimensions()
		}
		es, err := elastic.New(cfg.Elastic)
		if err != nil {
			return nil, nil, err
		}
		if err := es.EnsureIndex(ctx); err != nil {
			return nil, nil, err
		}
		return es, func() {}, nil

	case config.BackendPostgres:
		if cfg.Postgres.Dimensions == 0 {
			cfg.Postgres.Dimensions = e.Dimensions()
		}
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Infof("[server] connected to postgres: %s", cfg.Postgres)
		return db, db.Close, nil

	case config.BackendMongo:
		db, err := mongo.New(ctx, &cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			db.Close(ctx)
		}
		if err := db.Ping(ctx); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("%w: %w", mongo.ErrDBNotResponding, err)
		}
		return db, closeDB, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown index backend %q", config.ErrInvalidConfig, cfg.Backend)
}

func createTopic(broker, topic string) error {
	conn, err := kafka.DialContext(context.Background(), "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
