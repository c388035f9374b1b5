package run

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"jobwatch/internal/dedup"
	"jobwatch/internal/logger"
	"jobwatch/internal/scrape/types"
	"jobwatch/internal/state"
)

type Deps struct {
	Store     state.Store
	Fetcher   types.Fetcher
	Extractor types.Extractor
	Pipeline  dedup.Pipeline

	// LockPath, when set, is locked for the duration of the run.
	LockPath string

	JitterMin time.Duration
	JitterMax time.Duration
	Rand      *rand.Rand
	Sleep     func(ctx context.Context, d time.Duration) error

	Log *logger.Logger
}

// Result describes one completed (or aborted) run.
type Result struct {
	Jitter time.Duration
	Load   state.LoadResult
	Scrape types.ScrapeResult
	Report dedup.Report
	Save   state.SaveResult
	Saved  bool
}

// Once performs a single fetch, dedup, notify cycle. Once the state has been
// loaded it is saved on every exit path, including fetch and extract failures
// and panics.
func Once(ctx context.Context, d Deps) (res Result, err error) {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	log = log.Component("run")

	sleep := d.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	if d.LockPath != "" {
		lock, lerr := state.AcquireRunLock(d.LockPath)
		if lerr != nil {
			return res, lerr
		}
		defer func() {
			if uerr := lock.Release(); uerr != nil {
				log.Warn("release run lock", "path", d.LockPath, "err", uerr)
			}
		}()
	}

	// jitter so the schedule doesn't look perfectly robotic
	res.Jitter = pickJitter(d.JitterMin, d.JitterMax, d.Rand)
	if res.Jitter > 0 {
		log.Info("jitter sleep", "delay", res.Jitter.String())
		if err := sleep(ctx, res.Jitter); err != nil {
			return res, fmt.Errorf("jitter sleep: %w", err)
		}
	}

	seen, lr := d.Store.Load(ctx)
	res.Load = lr
	switch lr.Status {
	case state.LoadOK:
		log.Info("loaded state", "path", lr.Path, "keys", lr.Count)
	case state.LoadAbsent:
		log.Info("no prior state, starting empty", "path", lr.Path)
	default:
		log.Warn("state unreadable, starting empty", "path", lr.Path, "status", lr.Status, "err", lr.Err)
	}

	defer func() {
		// Save still runs after ctx is cancelled.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		res.Save = d.Store.Save(saveCtx, seen)
		res.Saved = res.Save.OK()
		if res.Saved {
			log.Info("saved state", "path", res.Save.Path, "keys", res.Save.Count, "bytes", res.Save.Bytes)
		} else {
			log.Error("save state failed", "path", res.Save.Path, "err", res.Save.Err)
		}
	}()

	res.Scrape.Source = d.Fetcher.Name()
	log.Info("fetching", "source", res.Scrape.Source)
	markup, err := d.Fetcher.Fetch(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", res.Scrape.Source, err)
	}
	res.Scrape.Bytes = len(markup)

	records, err := d.Extractor.Extract(markup)
	if err != nil {
		return res, fmt.Errorf("extract %s: %w", res.Scrape.Source, err)
	}
	res.Scrape.Records = records
	log.Info("extracted records", "source", res.Scrape.Source, "records", len(records), "bytes", len(markup))

	res.Report = d.Pipeline.ProcessInto(ctx, records, &seen)
	return res, nil
}

// IsLocked reports whether err means another run was already in progress.
func IsLocked(err error) bool {
	return errors.Is(err, state.ErrLocked)
}
