package infra

import (
	"fmt"
	"strings"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner with the active endpoints and storage backend.
func PrintBanner(cfg *Config) {
	color := ColorCyan
	backend := strings.ToUpper(cfg.Storage.Backend)
	live := "NO RECONNECT"
	if cfg.Live.Reconnect {
		live = "RECONNECT (BACKOFF)"
	}
	if cfg.API.APIKey == "" {
		color = ColorYellow
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#               📈 Crypto Dash                            #%s\n", color, ColorReset)
	fmt.Printf("%s#   REST:    %-44s #%s\n", color, truncate(cfg.API.RestURL, 44), ColorReset)
	fmt.Printf("%s#   LIVE:    %-44s #%s\n", color, truncate(cfg.API.WSURL, 44), ColorReset)
	fmt.Printf("%s#   FEED:    %-44s #%s\n", color, live, ColorReset)
	fmt.Printf("%s#   STORE:   %-44s #%s\n", color, backend, ColorReset)
	fmt.Printf("%s#   VERSION: %-44s #%s\n", color, cfg.App.Version, ColorReset)
	if cfg.API.APIKey == "" {
		fmt.Printf("%s#   ⚠️  No API key: public rate limits apply              #%s\n", ColorYellow, ColorReset)
	}
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
