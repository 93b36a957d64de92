package domain

// FeedStatus is the live price feed's connection state as shown to the user.
type FeedStatus string

const (
	FeedIdle       FeedStatus = "idle"
	FeedConnecting FeedStatus = "connecting"
	FeedLive       FeedStatus = "live"
	FeedError      FeedStatus = "error" // prices are stale
	FeedClosed     FeedStatus = "closed"
)
