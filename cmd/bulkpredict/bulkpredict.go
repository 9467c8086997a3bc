package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/scopelabel/scopelabel/server/analysis"
	"github.com/scopelabel/scopelabel/server/engine"
	"github.com/scopelabel/scopelabel/server/remote"
)

func main() {
	godotenv.Load()

	defaultService := os.Getenv("SCOPELABEL_SERVICE_URL")
	if defaultService == "" {
		defaultService = "http://localhost:9449"
	}

	parser := argparse.NewParser("bulkpredict", "Run bulk analysis over all registered assets, headless")
	serviceURL := parser.String("s", "service", &argparse.Options{Help: "Inference service base URL", Default: defaultService})
	modelHash := parser.String("m", "model", &argparse.Options{Help: "Model hash to analyze with", Required: true})
	filter := parser.Selector("f", "filter", []string{"image", "video", "both"}, &argparse.Options{Help: "Asset types to analyze", Default: "both"})
	iou := parser.Float("", "iou", &argparse.Options{Help: "IOU threshold", Default: 0.8})
	frameInterval := parser.Int("", "frameinterval", &argparse.Options{Help: "Analyze every Nth video frame", Default: 1})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	client := remote.NewClient(logger, *serviceURL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Heartbeat(ctx); err != nil {
		logger.Errorf("Inference service is not reachable at %v: %v", *serviceURL, err)
		os.Exit(1)
	}

	store := engine.NewStore(logger, &engine.NullSurface{}, nil)
	tags, err := client.ModelTags(ctx, *modelHash)
	if err != nil {
		logger.Errorf("Failed to load model %v: %v", *modelHash, err)
		os.Exit(1)
	}
	store.SetTags(tags)

	urls, err := client.ListAssets(ctx)
	if err != nil {
		logger.Errorf("Failed to list assets: %v", err)
		os.Exit(1)
	}
	cached, err := client.CacheList(ctx, *modelHash)
	if err != nil {
		logger.Errorf("Failed to fetch cache list: %v", err)
		os.Exit(1)
	}
	store.SetAssetList(urls, cached)

	opts := analysis.DefaultOptions()
	opts.IOU = float32(*iou)
	opts.FrameInterval = *frameInterval
	orch := analysis.NewOrchestrator(logger, store, client, opts)
	orch.SetModel(*modelHash)

	bar := progressbar.NewOptions(len(store.Assets()),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	finishOnce := sync.Once{}
	orch.OnStatus = func(st analysis.JobStatus) {
		bar.Set(st.Done)
		switch st.State {
		case analysis.StateCompleted, analysis.StateCancelled, analysis.StateFailed:
			finishOnce.Do(func() { close(done) })
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Infof("Interrupted, cancelling")
		cancelCtx, c := context.WithTimeout(context.Background(), 10*time.Second)
		defer c()
		orch.Cancel(cancelCtx)
	}()

	if err := orch.StartBulk(ctx, analysis.FilterMode(*filter)); err != nil {
		logger.Errorf("Failed to start bulk analysis: %v", err)
		os.Exit(1)
	}
	<-done
	bar.Finish()

	st := orch.Status()
	switch st.State {
	case analysis.StateCompleted:
		logger.Infof("Analyzed %v assets", st.Done)
	case analysis.StateCancelled:
		logger.Warnf("Cancelled after %v of %v assets", st.Done, st.Total)
	case analysis.StateFailed:
		logger.Errorf("Bulk analysis failed: %v", st.Message)
		os.Exit(1)
	}
}
