package tui

import (
	"fmt"
	"strings"

	"crypto_dash/internal/detail"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/table"

	"github.com/shopspring/decimal"
)

func (m *Model) View() string {
	switch m.screen {
	case screenDetail:
		return m.detailView()
	default:
		return m.tableView()
	}
}

func feedBadge(s domain.FeedStatus, errMsg string) string {
	switch s {
	case domain.FeedLive:
		return PositiveStyle.Render("● LIVE")
	case domain.FeedConnecting:
		return WarningStyle.Render("◌ CONNECTING")
	case domain.FeedError:
		return NegativeStyle.Render("● STALE: " + errMsg)
	default:
		return InfoStyle.Render("○ " + strings.ToUpper(string(s)))
	}
}

func sortMark(v domain.ViewState, key domain.SortKey) string {
	if v.SortKey != key {
		return ""
	}
	if v.SortDirection == domain.Descending {
		return " ▼"
	}
	return " ▲"
}

// tableView renders the asset list screen
func (m *Model) tableView() string {
	model := m.dash.Table()
	view := model.View()
	page := model.Page(m.favs.Has)
	status, feedErr := model.FeedStatus()

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("📈 CRYPTO DASH") + "  " + feedBadge(status, feedErr) + "\n\n")

	search := view.Query
	if m.searching {
		search += "│"
	}
	b.WriteString("Search: " + search + "\n\n")

	if model.Loading() {
		b.WriteString(InfoStyle.Render("🔄 Loading assets...") + "\n")
	} else if len(page.Rows) == 0 {
		b.WriteString(InfoStyle.Render("No assets found") + "\n")
	} else {
		b.WriteString(fmt.Sprintf("   %-8s %-22s %20s %22s\n",
			"Symbol"+sortMark(view, domain.SortBySymbol),
			"Name"+sortMark(view, domain.SortByName),
			"Price"+sortMark(view, domain.SortByPrice),
			"Market Cap"+sortMark(view, domain.SortByMarketCap)))
		b.WriteString(strings.Repeat("─", 76) + "\n")
		for i, row := range page.Rows {
			b.WriteString(m.renderRow(i, row) + "\n")
		}
	}

	pageCount := max(page.PageCount, 1)
	b.WriteString("\n" + InfoStyle.Render(fmt.Sprintf("Page %d/%d · %d of %d assets · %d per page",
		view.PageIndex+1, pageCount, page.Total, page.TotalAssets, view.PageSize)) + "\n")

	if m.status != "" {
		if m.statusErr {
			b.WriteString(NegativeStyle.Render("❌ "+m.status) + "\n")
		} else {
			b.WriteString(PositiveStyle.Render(m.status) + "\n")
		}
	}

	b.WriteString(InfoStyle.Render("/ search · 1-4 sort · ←/→ page · z size · f favorite · enter details · r reload · q quit"))
	return b.String()
}

func (m *Model) renderRow(i int, row table.Row) string {
	star := " "
	if row.Favorite {
		star = FavoriteStyle.Render("★")
	}
	line := fmt.Sprintf("%-8s %-22s %20s %22s", strings.ToUpper(row.Symbol), truncate(row.Name, 22), row.Price, row.MarketCap)
	if i == m.cursor {
		return SelectedStyle.Render("▶") + star + " " + SelectedStyle.Render(line)
	}
	return " " + star + " " + line
}

// detailView renders one asset with its price chart
func (m *Model) detailView() string {
	if m.detail == nil {
		return ""
	}
	snap := m.detail.Snapshot()

	var b strings.Builder
	switch snap.State {
	case detail.StateLoading:
		b.WriteString(InfoStyle.Render("🔄 "+snap.Message) + "\n")
	case detail.StateMissing:
		b.WriteString(NegativeStyle.Render(snap.Message) + "\n")
	case detail.StateReady:
		s := snap.Summary
		title := fmt.Sprintf("%s (%s)", s.Name, s.Symbol)
		if m.favs.Has(s.ID) {
			title = "★ " + title
		}
		b.WriteString(HeaderStyle.Render(title) + "\n\n")
		b.WriteString(fmt.Sprintf("Price:       %s\n", s.Price))
		b.WriteString(fmt.Sprintf("Market Cap:  %s\n\n", s.MarketCap))

		if snap.Series.Len() == 0 {
			b.WriteString(InfoStyle.Render("No price history") + "\n")
		} else {
			width := 60
			if m.Width > 10 {
				width = min(m.Width-6, 120)
			}
			chart := Sparkline(snap.Series.Prices, width)
			first, last := snap.Series.Labels[0], snap.Series.Labels[snap.Series.Len()-1]
			lo, hi := seriesRange(snap.Series.Prices)
			b.WriteString(BoxStyle.Render(chart) + "\n")
			b.WriteString(InfoStyle.Render(fmt.Sprintf("%s → %s · low $%s · high $%s", first, last, lo, hi)) + "\n")
		}
	}

	b.WriteString("\n" + InfoStyle.Render("esc back · f favorite · q quit"))
	return b.String()
}

// seriesRange returns the lowest and highest price of the series.
func seriesRange(prices []string) (string, string) {
	var lo, hi decimal.Decimal
	seen := false
	for _, p := range prices {
		d, err := decimal.NewFromString(p)
		if err != nil {
			continue
		}
		if !seen {
			lo, hi, seen = d, d, true
			continue
		}
		lo = decimal.Min(lo, d)
		hi = decimal.Max(hi, d)
	}
	return lo.StringFixed(2), hi.StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
