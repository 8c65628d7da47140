package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/confsite/agendacache/internal/config"
	"github.com/confsite/agendacache/internal/dal"
	"github.com/confsite/agendacache/internal/favorites"
	"github.com/confsite/agendacache/internal/scheduler"
	"github.com/confsite/agendacache/internal/store"
	syncengine "github.com/confsite/agendacache/internal/sync"
	"github.com/confsite/agendacache/pkg/agenda"
	"github.com/confsite/agendacache/pkg/notify"
	"github.com/confsite/agendacache/pkg/provider"
	"github.com/confsite/agendacache/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// openStore opens the SQLite cache file. When local storage is unavailable
// the process degrades to an in-memory store instead of failing: reads
// still work, persistence is lost across restarts.
func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	db, err := store.New(cfg.Database.Path)
	if err == nil {
		return db, nil
	}
	if errors.Is(err, store.ErrStorageUnavailable) {
		logger.Warn("local storage unavailable, running in-memory", "error", err)
		return store.NewMemory(), nil
	}
	return nil, err
}

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider.Kind {
	case "static":
		return provider.NewStatic(), nil
	case "remote":
		if cfg.Provider.Remote.BaseURL == "" {
			return nil, fmt.Errorf("remote provider requires remote.base_url")
		}
		return provider.NewRemote(cfg.Provider.Remote.BaseURL, nil), nil
	case "feed":
		if cfg.Provider.Feed.URL == "" {
			return nil, fmt.Errorf("feed provider requires feed.url")
		}
		return provider.NewFeed(cfg.Provider.Feed.URL, nil), nil
	}
	return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
}

func buildNotifier(cfg *config.Config) *notify.Manager {
	var notifiers []notify.Notifier

	if cfg.Reminders.Slack.Enabled && cfg.Reminders.Slack.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.Reminders.Slack.WebhookURL))
	}
	if cfg.Reminders.Discord.Enabled && cfg.Reminders.Discord.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscord(cfg.Reminders.Discord.WebhookURL))
	}
	if cfg.Reminders.Webhook.Enabled && cfg.Reminders.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Reminders.Webhook.URL, cfg.Reminders.Webhook.Secret))
	}

	return notify.NewManager(notifiers)
}

// buildStack wires store, provider, engine, DAL and favorites from config.
// The caller owns the returned store and must Close it.
func buildStack(logger *slog.Logger) (*config.Config, store.Store, *dal.Service, *favorites.Service, *syncengine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	db, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	src, err := buildProvider(cfg)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, nil, err
	}

	engine := syncengine.New(db, src, logger, cfg.Sync.ParseMaxAge())
	svc := dal.New(db, engine, logger)
	favs := favorites.New(db, logger)
	return cfg, db, svc, favs, engine, nil
}

func runSync() error {
	logger := newLogger()
	_, db, svc, _, _, err := buildStack(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := svc.Refresh(context.Background()); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	fmt.Fprintln(os.Stderr, "agenda synced")
	return nil
}

func runAgenda(jsonOutput bool, day, track, talkType, room string) error {
	logger := newLogger()
	_, db, svc, _, _, err := buildStack(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	res := svc.GetAgenda(context.Background(), agenda.Filter{
		Day:   day,
		Track: track,
		Type:  talkType,
		Room:  room,
	})
	if res.Err != nil && len(res.Talks) == 0 {
		return fmt.Errorf("get agenda: %w", res.Err)
	}
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "warning: serving cached data, last refresh failed: %v\n", res.Err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Talks)
	}

	if len(res.Talks) == 0 {
		fmt.Println("no talks match (try: agendacache sync)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tTIME\tROOM\tTYPE\tTITLE\tSPEAKER")
	for _, t := range res.Talks {
		fmt.Fprintf(w, "%s\t%s-%s\t%s\t%s\t%s\t%s\n",
			t.Day, t.StartTime, t.EndTime, t.Room, t.Type, t.Title, t.Speaker)
	}
	return w.Flush()
}

func runSpeakers(name string) error {
	logger := newLogger()
	_, db, svc, _, _, err := buildStack(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	speakers, err := svc.GetSpeakers(context.Background(), name)
	if err != nil {
		return fmt.Errorf("list speakers: %w", err)
	}
	if len(speakers) == 0 {
		fmt.Println("no speakers cached (try: agendacache sync)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSLUG\tTALKS")
	for _, sp := range speakers {
		talks, err := svc.GetTalksBySpeaker(context.Background(), sp.ID)
		if err != nil {
			return fmt.Errorf("list talks for %s: %w", sp.Name, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", sp.Name, sp.Slug, len(talks))
	}
	return w.Flush()
}

func runFavorites(toggle string) error {
	logger := newLogger()
	_, db, svc, favs, _, err := buildStack(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	if toggle != "" {
		talk, err := svc.GetTalk(ctx, toggle)
		if err != nil {
			return fmt.Errorf("look up talk: %w", err)
		}
		if talk == nil {
			return fmt.Errorf("no talk %q", toggle)
		}
		favorited, err := favs.ToggleFavorite(ctx, talk.ID)
		if err != nil {
			return fmt.Errorf("toggle favorite: %w", err)
		}
		if favorited {
			fmt.Fprintf(os.Stderr, "favorited: %s\n", talk.Title)
		} else {
			fmt.Fprintf(os.Stderr, "unfavorited: %s\n", talk.Title)
		}
		return nil
	}

	talks, err := favs.FavoriteTalks(ctx)
	if err != nil {
		return fmt.Errorf("list favorites: %w", err)
	}
	if len(talks) == 0 {
		fmt.Println("no favorites")
		return nil
	}

	conflicted := make(map[string]bool)
	conflicts, err := favs.Conflicts(ctx)
	if err != nil {
		return fmt.Errorf("detect conflicts: %w", err)
	}
	for _, id := range conflicts {
		conflicted[id] = true
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tTIME\tROOM\tTITLE\tCONFLICT")
	for _, t := range talks {
		mark := ""
		if conflicted[t.ID] {
			mark = "!"
		}
		fmt.Fprintf(w, "%s\t%s-%s\t%s\t%s\t%s\n",
			t.Day, t.StartTime, t.EndTime, t.Room, t.Title, mark)
	}
	return w.Flush()
}

func runClear() error {
	logger := newLogger()
	_, db, svc, _, _, err := buildStack(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := svc.ClearAll(context.Background()); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintln(os.Stderr, "cache cleared")
	return nil
}

func runServe(port int) error {
	logger := newLogger()
	cfg, db, svc, favs, _, err := buildStack(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if port == 0 {
		port = cfg.Server.Port
	}

	srv := server.New(svc, favs, logger, port)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	logger := newLogger()
	cfg, db, svc, favs, engine, err := buildStack(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(engine, favs, db, buildNotifier(cfg), logger,
		cfg.Sync.ParseInterval(),
		cfg.Reminders.ParseCheckInterval(),
	)

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	srv := server.New(svc, favs, logger, port)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}
