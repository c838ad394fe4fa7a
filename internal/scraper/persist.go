package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"animehub/internal/anime"
	animesync "animehub/internal/sync"
	"animehub/pkg/models"
)

// Store persists merged records into the catalog.
type Store interface {
	Upsert(ctx context.Context, items []models.AnimeCanonical) ([]anime.EpisodeGrowth, error)
}

// EpisodeNotifier delivers new-episode alerts to subscribed users.
type EpisodeNotifier interface {
	NotifyEpisodes(ctx context.Context, ev animesync.EpisodeEvent) int
}

// Pipeline runs one ingestion pass: fetch, merge, store, then announce
// episode growth on the hub and through the notifier.
type Pipeline struct {
	Aggregator *Aggregator
	Store      Store
	Hub        animesync.Broadcaster
	Notifier   EpisodeNotifier
	Logger     *zap.Logger
}

type Report struct {
	Sources  []SourceResult
	Merged   int
	Grown    []animesync.EpisodeEvent
	Notified int
}

func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	items, sources, err := p.Aggregator.FetchAndMerge(ctx)
	rep := Report{Sources: sources, Merged: len(items)}
	if err != nil {
		return rep, fmt.Errorf("fetch: %w", err)
	}
	if len(items) == 0 {
		log.Warn("no records fetched")
		return rep, nil
	}

	grown, err := p.Store.Upsert(ctx, items)
	if err != nil {
		return rep, fmt.Errorf("store: %w", err)
	}
	log.Info("catalog updated", zap.Int("records", len(items)), zap.Int("grown", len(grown)))

	now := time.Now().UTC()
	for _, g := range grown {
		ev := animesync.EpisodeEvent{
			Type:     animesync.EventNewEpisodes,
			AnimeID:  g.ID,
			Title:    g.Title,
			Episodes: g.Current,
			Previous: g.Previous,
			At:       now,
		}
		rep.Grown = append(rep.Grown, ev)
		if p.Hub != nil {
			p.Hub.BroadcastJSON(ev)
		}
		if p.Notifier != nil {
			rep.Notified += p.Notifier.NotifyEpisodes(ctx, ev)
		}
	}
	return rep, nil
}
