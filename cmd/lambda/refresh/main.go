package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/parizob/Peardox-2.0-sub001/backend"
	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/snapshot"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

var appLogger *logger.Logger

func init() {
	appLogger = logger.New("snapshot-refresh")
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(handleRefresh)
		return
	}

	fmt.Println("Snapshot Refresh - Local Development Mode")
	if err := handleRefresh(context.Background()); err != nil {
		appLogger.Error("local refresh failed", err)
		os.Exit(1)
	}
}

// handleRefresh pulls the full summarized paper set and rewrites the S3
// snapshot so the service has a fresh fallback tier.
func handleRefresh(ctx context.Context) error {
	start := time.Now()
	appLogger.Info("snapshot refresh started")

	baseURL := os.Getenv("PEARDOX_BACKEND_URL")
	bucket := os.Getenv("SNAPSHOT_BUCKET")
	if baseURL == "" || bucket == "" {
		return logger.NewAppError(logger.ErrorTypeConfig,
			"PEARDOX_BACKEND_URL and SNAPSHOT_BUCKET are required", nil)
	}
	prefix := os.Getenv("SNAPSHOT_PREFIX")
	if prefix == "" {
		prefix = "snapshots"
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	papers := backend.New(baseURL, os.Getenv("PEARDOX_API_KEY"), 30*time.Second, appLogger)
	fetched, err := papers.GetAllPapersWithSummaries(ctx, types.DefaultSkillLevel)
	if err != nil {
		return logger.WrapError(err, logger.ErrorTypeAPI, "paper fetch failed")
	}
	if len(fetched) == 0 {
		appLogger.Warn("backend returned no papers, keeping previous snapshot")
		return nil
	}

	snapStore, err := snapshot.NewStore(bucket, prefix, region, appLogger)
	if err != nil {
		return logger.WrapError(err, logger.ErrorTypeStorage, "snapshot store init failed")
	}
	if err := snapStore.Save(ctx, fetched, time.Now()); err != nil {
		return logger.WrapError(err, logger.ErrorTypeStorage, "snapshot save failed")
	}

	appLogger.InfoWithDuration("snapshot refresh completed", time.Since(start), map[string]interface{}{
		"paper_count": len(fetched),
	})
	return nil
}
