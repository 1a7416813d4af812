package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kyiv-estate/rentscout/internal/archive"
	"github.com/kyiv-estate/rentscout/internal/collage"
	"github.com/kyiv-estate/rentscout/internal/pipeline"
	"github.com/kyiv-estate/rentscout/internal/session"
	"github.com/kyiv-estate/rentscout/internal/source"
	"github.com/kyiv-estate/rentscout/internal/storage"
)

// appEnv holds everything the commands need wired together.
type appEnv struct {
	Archive  archive.Store
	Cache    *collage.Cache
	Service  *pipeline.Service
	Sessions *session.Store
}

// Close flushes background uploads and releases the archive.
func (a *appEnv) Close() {
	if a.Cache != nil {
		a.Cache.Wait()
	}
	if a.Archive != nil {
		_ = a.Archive.Close()
	}
}

// initEnv validates config for the mode and builds the full pipeline stack.
// Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	arch, err := archive.New(ctx, cfg.Archive.Driver, cfg.Archive.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := arch.Migrate(ctx); err != nil {
		_ = arch.Close()
		return nil, eris.Wrap(err, "migrate archive")
	}

	src := source.NewWeb(source.Options{
		BaseURL:        cfg.Channels.Base,
		MaxPages:       cfg.Source.MaxPages,
		RequestsPerSec: cfg.Source.RequestsPerSec,
		Timeout:        time.Duration(cfg.Source.TimeoutSecs) * time.Second,
	})

	// The remote collage tier is optional: without FTP credentials the cache
	// runs on memory and disk only.
	var blobs collage.BlobStore
	if cfg.Storage.Addr != "" {
		blobs = storage.NewFTPStore(storage.FTPOptions{
			Addr:       cfg.Storage.Addr,
			User:       cfg.Storage.User,
			Password:   cfg.Storage.Password,
			PublicBase: cfg.Storage.PublicBase,
		})
		zap.L().Info("remote collage storage enabled", zap.String("addr", cfg.Storage.Addr))
	} else {
		zap.L().Debug("RENTSCOUT_STORAGE_ADDR not set, remote collage tier disabled")
	}

	comp := collage.NewCompositor(cfg.Collage.Width, cfg.Collage.Height, cfg.Collage.Quality)
	index := collage.LoadIndex(cfg.Collage.IndexPath)
	zap.L().Debug("collage url index loaded", zap.Int("entries", index.Len()))
	cache := collage.NewCache(comp, src, blobs, index, collage.CacheOptions{
		Dir:               cfg.Collage.Dir,
		RemoteFolder:      cfg.Collage.RemoteFolder,
		MaxParallelPhotos: cfg.Collage.MaxParallelPhotos,
	})

	sessions := session.NewStore()
	svc := pipeline.NewService(src, arch, cache, sessions, pipeline.Options{
		ChannelBase:      cfg.Channels.Base,
		OfficeChannel:    cfg.Channels.Office,
		WarehouseChannel: cfg.Channels.Warehouse,
		PageSize:         cfg.Search.PageSize,
		ArchiveLimit:     cfg.Archive.ReadLimit,
	})

	return &appEnv{Archive: arch, Cache: cache, Service: svc, Sessions: sessions}, nil
}
