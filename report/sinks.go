package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"

	"github.com/sharedcode/gocmocka"
)

// Sink publishes a finished group's RunSummary to some external system.
// All sink implementations are best-effort: a failure is retried via
// withRetry and, if still failing, logged and swallowed (SPEC_FULL.md §4.L
// — sink failures never fail the test run itself).
type Sink interface {
	Publish(ctx context.Context, summary *gocmocka.RunSummary) error
}

// SinkListener adapts a Sink into a gocmocka.Listener, publishing on every
// GROUP_FINISH event.
type SinkListener struct {
	Sink Sink
	Ctx  context.Context
}

func (l SinkListener) Handle(ev gocmocka.Event) {
	if ev.Kind != gocmocka.EventGroupFinish {
		return
	}
	ctx := l.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := l.Sink.Publish(ctx, ev.Summary); err != nil {
		// Publish already retried internally; a final failure here is
		// strictly non-fatal to the run (SPEC_FULL.md §7 SINK_ERROR).
		slog.Warn("sink publish failed", "kind", gocmocka.KindSinkError.String(), "error", err)
	}
}

// RedisSink caches the latest RunSummary per group under a TTL key, for
// dashboard consumption and regression detection against the previous run.
// Grounded on the teacher's redis/connection.go client wrapper.
type RedisSink struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisSink dials addr with sane defaults (DB 0, no password), matching
// the teacher's redis.DefaultOptions.
func NewRedisSink(addr string) *RedisSink {
	return &RedisSink{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		TTL:    24 * time.Hour,
	}
}

func (s *RedisSink) Publish(ctx context.Context, summary *gocmocka.RunSummary) error {
	return withRetry(ctx, func(ctx context.Context) error {
		b, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		key := "gocmocka:group:" + summary.Group
		return s.Client.Set(ctx, key, b, s.TTL).Err()
	})
}

// CassandraSink appends one row per finished test to a history table for
// trend queries across CI runs. Grounded on the teacher's
// in_red_ck/cassandra/connection.go session wrapper.
type CassandraSink struct {
	Session  *gocql.Session
	Keyspace string
}

// NewCassandraSink opens a session against hosts using SimpleStrategy
// defaults, matching the teacher's cassandra.Config.
func NewCassandraSink(hosts []string, keyspace string) (*CassandraSink, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 10 * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("report: opening cassandra session: %w", err)
	}
	return &CassandraSink{Session: session, Keyspace: keyspace}, nil
}

func (s *CassandraSink) Publish(ctx context.Context, summary *gocmocka.RunSummary) error {
	return withRetry(ctx, func(ctx context.Context) error {
		for _, ts := range summary.Tests {
			q := s.Session.Query(
				`INSERT INTO test_history (group_name, test_name, status, runtime_ms, error_message, recorded_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				summary.Group, ts.Name, ts.Status.String(), ts.Runtime.Milliseconds(), ts.ErrorMessage, time.Now().UTC(),
			).WithContext(ctx)
			if err := q.Exec(); err != nil {
				return err
			}
		}
		return nil
	})
}

// S3Sink uploads the rendered XML report, erasure-coded into
// s3DataShards+s3ParityShards shard objects (SPEC_FULL.md §4.M), so the
// archive survives the loss of up to s3ParityShards of its objects. Grounded
// on the teacher's aws_s3/connect.go client construction and
// aws_s3/manage_bucket.go's use of the s3 manager uploader.
type S3Sink struct {
	Bucket   string
	Uploader *manager.Uploader
	Erasure  *Erasure
}

const (
	s3DataShards   = 4
	s3ParityShards = 2
)

// NewS3Sink builds an S3Sink against bucket using static credentials,
// matching the teacher's aws_s3.Connect.
func NewS3Sink(bucket, region, accessKey, secretKey string) (*S3Sink, error) {
	erasure, err := NewErasure(s3DataShards, s3ParityShards)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(aws.Config{Region: region}, func(o *s3.Options) {
		o.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
	})
	return &S3Sink{Bucket: bucket, Uploader: manager.NewUploader(client), Erasure: erasure}, nil
}

func (s *S3Sink) Publish(ctx context.Context, summary *gocmocka.RunSummary) error {
	return withRetry(ctx, func(ctx context.Context) error {
		body, err := RenderXML(summary)
		if err != nil {
			return err
		}
		shards, err := s.Erasure.Encode(body)
		if err != nil {
			return err
		}
		prefix := fmt.Sprintf("%s/%d", summary.Group, time.Now().UTC().UnixNano())
		for i, shard := range shards {
			key := fmt.Sprintf("%s/shard-%02d.bin", prefix, i)
			if _, err := s.Uploader.Upload(ctx, &s3.PutObjectInput{
				Bucket: aws.String(s.Bucket),
				Key:    aws.String(key),
				Body:   bytes.NewReader(shard),
			}); err != nil {
				return fmt.Errorf("report: uploading shard %d of %s: %w", i, prefix, err)
			}
		}
		return nil
	})
}
