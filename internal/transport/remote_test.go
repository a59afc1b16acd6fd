package transport

import (
	"context"
	"io"
	"testing"

	"github.com/cognitive-radio/crts/internal/feedback"
	"github.com/cognitive-radio/crts/internal/harness"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/models"
)

// The receiver reports over gRPC instead of straight into the channel.
func TestRemoteFeedbackLoop(t *testing.T) {
	ch := feedback.NewChannel()
	lis := startServer(t, ch)
	c := dialBuf(t, lis, DefaultClientOptions())

	lb := harness.NewLoopback(c, nil)
	lb.SetLogger(logger.New("error", io.Discard))
	o := harness.NewOrchestrator(lb, ch, harness.Options{
		MaxFrames: 10,
		Logger:    logger.New("error", io.Discard),
	})

	res, err := o.RunTest(context.Background(), harness.Test{
		Params:   models.DefaultParameterSet(),
		Scenario: models.DefaultScenario(),
	})
	if err != nil {
		t.Fatalf("RunTest: %v", err)
	}
	if !res.Converged || res.Lost != 0 {
		t.Errorf("converged=%v lost=%d, want converged with no lost frames", res.Converged, res.Lost)
	}
	if res.Final.LastReceivedFrame != res.Frames {
		t.Errorf("last received frame %d, want %d", res.Final.LastReceivedFrame, res.Frames)
	}
}
