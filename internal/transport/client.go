package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cognitive-radio/crts/internal/feedback"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/models"
	"github.com/cognitive-radio/crts/pkg/utils"
)

// ClientOptions tunes delivery of a single record.
type ClientOptions struct {
	Attempts int
	Timeout  time.Duration
	Backoff  utils.BackoffStrategy
}

// DefaultClientOptions returns three attempts with exponential backoff
// starting at 20ms, each attempt bounded by 500ms.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Attempts: 3,
		Timeout:  500 * time.Millisecond,
		Backoff:  utils.BackoffFromConfig("exponential", 20, 200),
	}
}

// Client publishes feedback records to a remote controller. It implements
// feedback.Publisher.
type Client struct {
	conn   *grpc.ClientConn
	opts   ClientOptions
	logger *slog.Logger
}

// Dial creates a client for addr. The connection is established lazily on
// the first Publish.
func Dial(addr string, opts ClientOptions, dialOpts ...grpc.DialOption) (*Client, error) {
	dialOpts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, dialOpts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback client for %s: %w", addr, err)
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Backoff == nil {
		opts.Backoff = DefaultClientOptions().Backoff
	}
	return &Client{conn: conn, opts: opts, logger: logger.Default}, nil
}

// SetLogger sets a custom logger for the client
func (c *Client) SetLogger(l *slog.Logger) {
	c.logger = l
}

// Publish sends rec, retrying transient failures.
func (c *Client) Publish(rec models.FeedbackRecord) error {
	return c.PublishContext(context.Background(), rec)
}

// PublishContext sends rec, retrying transient failures until ctx is done.
func (c *Client) PublishContext(ctx context.Context, rec models.FeedbackRecord) error {
	req := &wrapperspb.BytesValue{Value: feedback.MarshalRecord(rec)}
	err := utils.Retry(ctx, c.opts.Attempts, c.opts.Backoff, func(ctx context.Context) error {
		if c.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
		}
		err := c.conn.Invoke(ctx, PublishMethod, req, new(emptypb.Empty))
		if status.Code(err) == codes.InvalidArgument {
			return utils.Permanent(err)
		}
		if err != nil {
			c.logger.Debug("feedback publish attempt failed", "frame", rec.Iteration, "error", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to publish feedback for frame %d: %w", rec.Iteration, err)
	}
	return nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

var _ feedback.Publisher = (*Client)(nil)
