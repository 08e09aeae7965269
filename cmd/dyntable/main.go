package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/leengari/dyntable/internal/engine"
	"github.com/leengari/dyntable/internal/infrastructure/logging"
	"github.com/leengari/dyntable/internal/storage"
	"github.com/leengari/dyntable/internal/storage/dynamo"
	"github.com/leengari/dyntable/internal/storage/jsonfile"
	"github.com/leengari/dyntable/internal/storage/memory"
)

type options struct {
	store          string
	dataDir        string
	dynamoTable    string
	dynamoEndpoint string
	table          string
	drop           bool
}

func main() {
	var opts options
	flag.StringVar(&opts.store, "store", "memory", "Storage backend: memory, json or dynamodb")
	flag.StringVar(&opts.dataDir, "data", "data", "Data directory for the json store")
	flag.StringVar(&opts.dynamoTable, "dynamo-table", dynamo.DefaultConfig().Table, "DynamoDB table name")
	flag.StringVar(&opts.dynamoEndpoint, "dynamo-endpoint", "", "DynamoDB endpoint override, e.g. http://localhost:8000")
	flag.StringVar(&opts.table, "table", "Employee Records", "Name of the demo table")
	flag.BoolVar(&opts.drop, "drop", false, "Drop the demo table when done")
	seqURL := flag.String("seq", "", "Seq server URL, e.g. http://localhost:5341")
	level := flag.String("level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Level = *level
	logCfg.SeqURL = *seqURL
	logger, closeFn := logging.SetupLogger(logCfg)
	defer closeFn()

	slog.SetDefault(logger)
	slog.Info("Starting dyntable...", "store", opts.store)

	ctx := context.Background()

	gw, err := newGateway(ctx, opts, logger)
	if err != nil {
		slog.Error("failed to open storage", "store", opts.store, "error", err)
		closeFn()
		os.Exit(1)
	}

	eng := engine.New(gw, engine.Options{Logger: logger})
	eng.AddObserver(engine.NewLoggingObserver(logger))

	if err := runDemo(ctx, eng, opts, os.Stdout); err != nil {
		slog.Error("demo failed", "error", err)
		closeFn()
		os.Exit(1)
	}

	slog.Info("Done")
}

// newGateway opens the storage backend selected by -store
func newGateway(ctx context.Context, opts options, logger *slog.Logger) (storage.Gateway, error) {
	switch opts.store {
	case "memory":
		return memory.New(), nil

	case "json":
		return jsonfile.New(opts.dataDir, logger)

	case "dynamodb":
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if opts.dynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(opts.dynamoEndpoint)
			}
		})
		cfg := dynamo.DefaultConfig()
		cfg.Table = opts.dynamoTable
		return dynamo.New(client, cfg, logger), nil
	}
	return nil, fmt.Errorf("unknown store %q", opts.store)
}
