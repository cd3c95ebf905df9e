package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cogentcore.org/core/math32"

	"github.com/avatarsync/avatarsync/internal/core/asset"
	"github.com/avatarsync/avatarsync/internal/core/avatar"
	"github.com/avatarsync/avatarsync/internal/core/config"
	"github.com/avatarsync/avatarsync/internal/core/events/bus"
	"github.com/avatarsync/avatarsync/internal/core/observability/log"
	"github.com/avatarsync/avatarsync/internal/core/scene"
	"github.com/avatarsync/avatarsync/internal/server"
)

func main() {
	configPath := flag.String("config", "avatarsync.yaml", "path to the YAML config file")
	avatarID := flag.String("avatar", "dr", "avatar id to host")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	logger := log.New(log.ParseLevel(cfg.Log.Level))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-stopCh
		cancel()
	}()

	b := bus.New()
	deps := avatar.Deps{
		Registry:   avatar.NewRegistry(logger),
		Normalizer: avatar.NewNormalizer(logger),
		Bus:        b,
		Logger:     logger,
	}

	loader := asset.NewStaticLoader(demoAsset(*avatarID))
	a, err := loader.Load(ctx, *avatarID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading avatar asset:", err)
		os.Exit(1)
	}

	root := scene.NewNode("world")
	loop := server.NewLoop(cfg.Server, root, logger)
	loop.Add(avatar.New(a, cfg.Avatar, deps))

	srv := server.New(cfg.Server, loop, b, logger)
	if err = srv.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "Error running server:", err)
		os.Exit(1)
	}
}

// demoAsset builds a placeholder humanoid: a 9-unit tall box model with the
// standard locomotion clip set, standing in for a real mesh import.
func demoAsset(id string) *asset.Asset {
	model := scene.NewNode(id + "-model")
	model.SetBounds(math32.B3(-0.6, 0, -0.4, 0.6, 9, 0.4))
	return &asset.Asset{
		ID:    id,
		Model: model,
		Clips: []*asset.Clip{
			{Name: "Idle", Duration: 2.4},
			{Name: "Walk", Duration: 1.1, Tracks: []asset.Track{
				{Node: "Hips", Property: asset.PropertyPosition, Times: []float32{0, 1.1}, Values: []float32{0, 0, 0, 0, 0, -1}, Stride: 3},
			}},
			{Name: "Run", Duration: 0.8, Tracks: []asset.Track{
				{Node: "Hips", Property: asset.PropertyPosition, Times: []float32{0, 0.8}, Values: []float32{0, 0, 0, 0, 0, -2}, Stride: 3},
			}},
		},
	}
}
