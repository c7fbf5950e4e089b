package source

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// Play pulls frames from src and hands each to fn, at most fps per second
// (unpaced when fps <= 0). It returns the number of frames played; reaching
// the end of src is not an error.
func Play(ctx context.Context, src Source, fps int, fn func(ctx context.Context, f frame.Frame) error) (int, error) {
	log := logger.WithComponent("source")

	var tick <-chan time.Time
	if fps > 0 {
		interval := time.Second / time.Duration(fps)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
		log.Info().
			Str("source", src.Name()).
			Int("fps", fps).
			Dur("interval", interval).
			Msg("Playback started")
	}

	frames := 0
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Info().Int("frames", frames).Msg("Source ended")
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		if err := fn(ctx, f); err != nil {
			return frames, err
		}
		frames++

		if tick == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return frames, ctx.Err()
		case <-tick:
		}
	}
}
