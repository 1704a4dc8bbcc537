// Replays a recorded JSONL session.
//
// By default the frames run through a local monitor and every alert is
// printed, which makes threshold tuning repeatable. With -push the frames are
// sent to a running monitor's ingest endpoint instead, acting as a producer.
//
// Usage:
//
//	drowsy-replay -in trip.jsonl
//	drowsy-replay -in trip.jsonl -ear 0.27 -eye-frames 12 -v
//	drowsy-replay -in trip.jsonl -fps 30 -push ws://localhost:8090/ws/ingest/replay
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/debug"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/ingest"
	"github.com/teslashibe/go-drowsy/pkg/pipeline"
	"github.com/teslashibe/go-drowsy/pkg/protocol"
)

func main() {
	in := flag.String("in", "", "Recorded JSONL session (required)")
	fps := flag.Float64("fps", 0, "Pacing in frames per second (0 = as fast as possible, 30 with -push)")
	push := flag.String("push", "", "Send frames to a monitor's ingest URL instead of analyzing locally")
	verbose := flag.Bool("v", false, "Print every frame")
	sensitive := flag.Bool("sensitive", false, "Start from the sensitive threshold preset")

	cfg := drowsiness.DefaultConfig()
	flag.Float64Var(&cfg.EARThreshold, "ear", cfg.EARThreshold, "Smoothed EAR threshold")
	flag.IntVar(&cfg.EyeFrames, "eye-frames", cfg.EyeFrames, "Closed-eye frames before alerting")
	flag.Float64Var(&cfg.YawnThreshold, "yawn", cfg.YawnThreshold, "Lip distance threshold (pixels)")
	flag.IntVar(&cfg.YawnFrames, "yawn-frames", cfg.YawnFrames, "Yawn frames before alerting")
	flag.IntVar(&cfg.SmoothingWindow, "smoothing", cfg.SmoothingWindow, "EAR smoothing window")
	flag.Parse()

	log.Init("info")

	if *in == "" {
		fmt.Fprintln(os.Stderr, "❌ -in is required")
		flag.Usage()
		os.Exit(2)
	}
	if *sensitive {
		cfg = applyFlags(drowsiness.SensitiveConfig())
	}

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	// A producer streams in real time
	if *push != "" && *fps == 0 {
		*fps = 30
	}

	src := pipeline.NewJSONLSource(f)
	if *fps > 0 {
		src.Interval = time.Duration(float64(time.Second) / *fps)
	}
	defer src.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *push != "" {
		err = pushSession(ctx, src, *push)
	} else {
		err = analyze(ctx, src, cfg, *verbose)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// applyFlags re-applies explicitly set threshold flags on top of a preset.
func applyFlags(base drowsiness.Config) drowsiness.Config {
	flag.Visit(func(f *flag.Flag) {
		v := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "ear":
			base.EARThreshold = v.(float64)
		case "eye-frames":
			base.EyeFrames = v.(int)
		case "yawn":
			base.YawnThreshold = v.(float64)
		case "yawn-frames":
			base.YawnFrames = v.(int)
		case "smoothing":
			base.SmoothingWindow = v.(int)
		}
	})
	return base
}

func analyze(ctx context.Context, src pipeline.Source, cfg drowsiness.Config, verbose bool) error {
	monitor, err := drowsiness.NewMonitor(cfg)
	if err != nil {
		return err
	}

	debug.Frames = verbose
	monitor.Subscribe(drowsiness.HandlerFunc(func(e drowsiness.Event) {
		fmt.Printf("🚨 %-18s frame %-6d value %.3f after %d frames\n",
			protocol.AlertText(e.Kind), e.Seq, e.Value, e.Count)
	}))

	fmt.Printf("⏯️  EAR < %.2f for %d frames, lip > %.1f for %d frames, smoothing %d\n",
		cfg.EARThreshold, cfg.EyeFrames, cfg.YawnThreshold, cfg.YawnFrames, cfg.SmoothingWindow)

	runner := pipeline.NewRunner(monitor, src, nil)
	if err := runner.Run(ctx); err != nil {
		return err
	}

	snap := runner.Stats().Snapshot()
	fmt.Println("──────────────────────────────")
	fmt.Printf("Frames:        %d (%d with face, %d without)\n", snap.Frames, snap.FaceFrames, snap.NoFaceFrames)
	fmt.Printf("Drowsy alerts: %d\n", snap.DrowsyAlerts)
	fmt.Printf("Yawn alerts:   %d\n", snap.YawnAlerts)
	if snap.Errors > 0 {
		fmt.Printf("Bad frames:    %d\n", snap.Errors)
	}
	return nil
}

func pushSession(ctx context.Context, src pipeline.Source, url string) error {
	client, err := ingest.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer client.Close()

	client.OnAlert = func(a protocol.AlertData) {
		fmt.Printf("🚨 %s (frame %d)\n", a.Message, a.FrameID)
	}

	var n int
	for {
		sample, err := src.Next(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			break
		}
		if err != nil {
			return err
		}

		select {
		case <-client.Done():
			return fmt.Errorf("monitor closed the connection after %d frames", n)
		default:
		}

		if err := client.SendFrame(sample.Frame); err != nil {
			log.Warn("frame not sent", "seq", sample.Frame.Seq, "error", err)
			continue
		}
		n++
	}

	// Give queued frames and late alerts a moment
	time.Sleep(500 * time.Millisecond)
	fmt.Printf("📤 Sent %d frames (%d dropped)\n", client.Sent(), client.Dropped())
	return nil
}
