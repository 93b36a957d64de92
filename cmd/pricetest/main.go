package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/event"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/coincap"
)

// pricetest checks both CoinCap endpoints from the command line:
// one REST snapshot of the asset list, then a few seconds of live ticks.
func main() {
	configPath := flag.String("config", "", "config file (default: auto-detect)")
	top := flag.Int("top", 5, "number of assets to watch")
	listen := flag.Duration("listen", 10*time.Second, "how long to stream live prices")
	flag.Parse()

	infra.LoadDotEnv()
	path := *configPath
	if path == "" {
		path = infra.ResolveConfigPath()
	}
	cfg, _, err := infra.LoadConfigOrDefault(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("=== Crypto Dash Price Probe ===")
	fmt.Println()

	// 1. REST snapshot
	client := coincap.NewClientFromConfig(cfg)
	assets, err := client.Assets(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ GET /assets failed: %v\n", err)
		os.Exit(1)
	}
	if len(assets) > *top {
		assets = assets[:*top]
	}
	for _, a := range assets {
		fmt.Printf("📊 %s (%s)\n", a.Name, a.Symbol)
		fmt.Printf("   raw:        %s\n", a.PriceUsd)
		fmt.Printf("   price:      %s\n", domain.FormatUSD(a.PriceUsd, 2))
		fmt.Printf("   market cap: %s\n", domain.FormatUSD(a.MarketCapUsd, 0))
	}
	fmt.Println()

	// 2. Live ticks
	inbox := make(chan event.Event, cfg.Live.InboxSize)
	feed := coincap.NewPriceFeed(cfg.API.WSURL, domain.IDs(assets), inbox)
	feed.Worker().ReadTimeout = time.Duration(cfg.Live.ReadTimeoutSec) * time.Second
	if err := feed.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ live feed: %v\n", err)
		os.Exit(1)
	}
	defer feed.Disconnect()

	deadline := time.After(*listen)
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			fmt.Printf("\n✅ %d tick message(s) in %s\n", ticks, *listen)
			return
		case <-feed.Done():
			fmt.Println("\n⚠️  feed stopped")
			return
		case ev := <-inbox:
			switch e := ev.(type) {
			case *event.FeedStatusEvent:
				fmt.Printf("🔌 feed %s %s\n", e.Status, e.Err)
			case *event.PriceTickEvent:
				ticks++
				ids := make([]string, 0, len(e.Prices))
				for id := range e.Prices {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					fmt.Printf("💹 #%d %-12s %s\n", e.Seq, id, domain.FormatUSD(e.Prices[id], 2))
				}
			}
		}
	}
}
