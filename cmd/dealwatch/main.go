// Command dealwatch connects to the deal channel as one user and logs every
// reconciled deal. It is a manual debugging aid for the push path.
package main

import (
	"bytes"
	"context"
	"dealwire/pkg/dealclient"
	"dealwire/pkg/logging"
	"dealwire/pkg/protocol"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		wsURL    string
		apiURL   string
		token    string
		watch    []int64
		interval time.Duration
	)

	flagSet := pflag.NewFlagSet("dealwatch", pflag.ContinueOnError)
	flagSet.StringVar(&wsURL, "url", "ws://localhost:8080/ws", "websocket endpoint")
	flagSet.StringVar(&apiURL, "api", "http://localhost:8080", "REST base URL used for refetches")
	flagSet.StringVar(&token, "token", os.Getenv("DEALWIRE_TOKEN"), "session token (default $DEALWIRE_TOKEN)")
	flagSet.Int64SliceVar(&watch, "deal", nil, "deal ids to print on --interval and at exit (repeatable)")
	flagSet.DurationVar(&interval, "interval", 0, "also print the watched deals on this interval")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if token == "" {
		return errors.New("--token is required")
	}

	log := logging.NewLogger(os.Stderr, "dealwatch")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchDeals(ctx, log, wsURL, apiURL, token, watch, interval)
}

func watchDeals(ctx context.Context, log *slog.Logger, wsURL, apiURL, token string, watch []int64, interval time.Duration) error {
	cache := dealclient.NewCache()
	rec := dealclient.NewReconciler(log, cache, dealclient.NewHTTPFetcher(apiURL, token, nil))
	defer rec.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, err := dealclient.Dial(ctx, wsURL, header, rec, log)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("dealwatch - dial - open", slog.String("url", wsURL))

	if interval > 0 && len(watch) > 0 {
		go func() {
			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					printDeals(log, cache, watch)
				}
			}
		}()
	}

	err = conn.Run(ctx)
	log.Info("dealwatch - run - closed", slog.String("state", conn.State().String()))
	printDeals(log, cache, watch)
	return err
}

func printDeals(log *slog.Logger, cache *dealclient.Cache, ids []int64) {
	for _, id := range ids {
		raw, ok := cache.Entity(id)
		if !ok {
			log.Info("dealwatch - deal - not seen", logging.Deal(id))
			continue
		}
		ref, _ := protocol.ParseDealRef(raw)
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(raw)
		}
		log.Info("dealwatch - deal - cached",
			logging.Deal(id),
			logging.Version(ref.Version),
			slog.Bool("stale", cache.IsStale(id)),
			slog.String("deal", pretty.String()),
		)
	}
}
