package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognitive-radio/crts/internal/transport"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/models"
)

type sendOptions struct {
	addr      string
	timeout   time.Duration
	attempts  int
	frame     uint32
	headerOK  bool
	payloadOK bool
	length    uint32
	byteErrs  uint32
	bitErrs   uint32
	evm       float32
	rssi      float32
	cfo       float32
}

var sendOpts sendOptions

var feedbackSendCmd = &cobra.Command{
	Use:   "feedback-send",
	Short: "Publish one feedback record to a running controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendFeedback(cmd.Context(), sendOpts)
	},
}

func init() {
	rootCmd.AddCommand(feedbackSendCmd)

	f := feedbackSendCmd.Flags()
	f.StringVar(&sendOpts.addr, "addr", "localhost:1402", "controller feedback address")
	f.DurationVar(&sendOpts.timeout, "timeout", 2*time.Second, "overall delivery timeout")
	f.IntVar(&sendOpts.attempts, "attempts", 3, "delivery attempts")
	f.Uint32Var(&sendOpts.frame, "frame", 0, "frame number the record reports on")
	f.BoolVar(&sendOpts.headerOK, "header-valid", true, "header decoded correctly")
	f.BoolVar(&sendOpts.payloadOK, "payload-valid", true, "payload decoded correctly")
	f.Uint32Var(&sendOpts.length, "payload-len", 0, "payload length in bytes")
	f.Uint32Var(&sendOpts.byteErrs, "byte-errors", 0, "payload byte errors")
	f.Uint32Var(&sendOpts.bitErrs, "bit-errors", 0, "payload bit errors")
	f.Float32Var(&sendOpts.evm, "evm", 0, "error vector magnitude (dB)")
	f.Float32Var(&sendOpts.rssi, "rssi", 0, "received signal strength (dB)")
	f.Float32Var(&sendOpts.cfo, "cfo", 0, "carrier frequency offset estimate")
	_ = feedbackSendCmd.MarkFlagRequired("frame")
}

func sendFeedback(ctx context.Context, o sendOptions) error {
	opts := transport.DefaultClientOptions()
	opts.Attempts = o.attempts
	c, err := transport.Dial(o.addr, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	rec := models.FeedbackRecord{
		HeaderValid:       o.headerOK,
		PayloadValid:      o.payloadOK,
		PayloadLen:        o.length,
		PayloadByteErrors: o.byteErrs,
		PayloadBitErrors:  o.bitErrs,
		Iteration:         o.frame,
		EVM:               o.evm,
		RSSI:              o.rssi,
		CFO:               o.cfo,
	}
	if err := c.PublishContext(ctx, rec); err != nil {
		return err
	}
	logger.Info("feedback sent", "addr", o.addr, "frame", o.frame)
	return nil
}
