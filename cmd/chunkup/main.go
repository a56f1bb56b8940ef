// Command chunkup uploads a local file or an S3/MinIO object to a folder
// through a chunked upload session.
//
// Usage:
//
//	chunkup [-multi N] [-name NAME] [-abort-on-failure] <folder-id> <path|s3://bucket/key|minio://bucket/key>
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/joho/godotenv/autoload"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/chunked"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/source"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chunkup:", err)
		if code := errors.CodeOf(err); code != errors.CodeUnknown {
			fmt.Fprintln(os.Stderr, "code:", code)
		}
		os.Exit(1)
	}
}

func run() error {
	multi := flag.Int("multi", 0, "number of parts uploaded in parallel (default from CHUNKUP_CONCURRENCY)")
	name := flag.String("name", "", "name of the uploaded file (default is the source's base name)")
	abortOnFailure := flag.Bool("abort-on-failure", false, "abort the session when the upload fails")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"usage: %s [flags] <folder-id> <path|s3://bucket/key|minio://bucket/key>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		return fmt.Errorf("expected 2 arguments, got %d", flag.NArg())
	}

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := ParseLocation(flag.Arg(1))
	if err != nil {
		return err
	}

	src, err := openSource(ctx, cfg, loc)
	if err != nil {
		return err
	}
	defer src.Close()

	client, err := chunked.New(
		chunked.WithUploadURL(cfg.UploadURL),
		chunked.WithToken(cfg.Token),
		chunked.WithTimeout(cfg.Timeout),
		chunked.WithConcurrency(cfg.Concurrency),
		chunked.WithRetry(cfg.MaxAttempts, 0),
		chunked.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	done := 0
	opts := []chunktypes.UploadOption{
		chunked.WithAbortOnFailure(*abortOnFailure),
		chunked.WithContentModifiedAt(src.ModTime()),
		chunked.WithProgress(func(_ chunktypes.PartRecord, _ int64, totalParts int) {
			done++
			fmt.Printf("%d/%d\n", done, totalParts)
		}),
	}
	if *multi > 0 {
		opts = append(opts, chunked.WithUploadConcurrency(*multi))
	}
	if *name != "" {
		opts = append(opts, chunked.WithFileName(*name))
	}

	result, err := client.Folder(flag.Arg(0)).Upload(ctx, src, opts...)
	if err != nil {
		return err
	}

	logger.Info("upload complete",
		"file_id", result.File.ID,
		"name", result.File.Name,
		"size", result.Size,
		"parts", len(result.Parts),
		"content_type", result.ContentType,
		"duration", result.Duration,
	)
	fmt.Println(result.File.ID)
	return nil
}

func openSource(ctx context.Context, cfg *Config, loc Location) (source.Source, error) {
	switch loc.Scheme {
	case "s3":
		var opts []func(*config.LoadOptions) error
		if cfg.AWS.Region != "" {
			opts = append(opts, config.WithRegion(cfg.AWS.Region))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return source.S3(ctx, s3.NewFromConfig(awsCfg), loc.Bucket, loc.Key)

	case "minio":
		if cfg.Minio.Endpoint == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required for minio:// sources")
		}
		core, err := minio.NewCore(cfg.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return source.Minio(ctx, core, loc.Bucket, loc.Key)

	default:
		return source.OpenFile(loc.Path)
	}
}
