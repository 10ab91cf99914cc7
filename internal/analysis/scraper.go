// ABOUTME: Market-data scraper implementing the Analyzer interface.
// ABOUTME: Pulls box prices, sold counts, and listing supply, then derives velocity metrics.

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/2389/chase-gateway/internal/config"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; ChaseGateway/1.0)"
	soldWindow   = 30 // days covered by the completed-sales query
	topChaseSize = 5
)

var (
	priceRe    = regexp.MustCompile(`\$\s?([0-9,]+(?:\.[0-9]{1,2})?)`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	slugDropRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugDashRe = regexp.MustCompile(`\s+`)
	boosterRe  = regexp.MustCompile(`(?i)(.{0,120}booster.{0,120})`)
	soldItemRe = regexp.MustCompile(`(?is)<li[^>]*class="[^"]*s-item[^"]*"[^>]*>(.*?)</li>`)
	rowRe      = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cardLinkRe = regexp.MustCompile(`(?is)<a[^>]*href="[^"]*/product/[^"]*"[^>]*>(.*?)</a>`)
	sealedRe   = regexp.MustCompile(`(?i)\b(box|booster|pack|set|sealed|bundle)\b`)

	listingsRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([0-9,]+)\s+(?:available\s+)?listings?`),
		regexp.MustCompile(`(?i)listings?[:\s]+([0-9,]+)`),
		regexp.MustCompile(`(?i)([0-9,]+)\s+results?`),
		regexp.MustCompile(`(?i)showing\s+([0-9,]+)`),
	}
)

// Scraper gathers market data for a set from public price and marketplace
// pages. Individual sources failing is normal; the document is built from
// whatever could be fetched, and Analyze fails only when every source came
// back empty.
type Scraper struct {
	client           *http.Client
	priceChartingURL string
	ebayURL          string
	tcgPlayerURL     string
	logger           *slog.Logger
}

// NewScraper creates a scraper using the configured base URLs and timeout.
func NewScraper(cfg config.AnalyzerConfig, logger *slog.Logger) *Scraper {
	return &Scraper{
		client:           &http.Client{Timeout: cfg.RequestTimeout},
		priceChartingURL: strings.TrimRight(cfg.PriceChartingURL, "/"),
		ebayURL:          strings.TrimRight(cfg.EbayURL, "/"),
		tcgPlayerURL:     strings.TrimRight(cfg.TCGPlayerURL, "/"),
		logger:           logger.With("component", "analysis"),
	}
}

// Analyze fetches the market sources concurrently and assembles the metrics
// document. The useAI flag is advisory and does not change what is gathered.
func (s *Scraper) Analyze(ctx context.Context, setName string, useAI bool) (json.RawMessage, error) {
	boxQuery := setName + " booster box"

	var (
		wg       sync.WaitGroup
		boxPrice *float64
		ebay     SoldStats
		listings int
		top      TopChase
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		boxPrice = s.boxPrice(ctx, setName)
	}()
	go func() {
		defer wg.Done()
		ebay = s.ebaySoldStats(ctx, boxQuery)
	}()
	go func() {
		defer wg.Done()
		listings = s.tcgPlayerListings(ctx, boxQuery)
	}()
	go func() {
		defer wg.Done()
		top = s.topChaseCards(ctx, setName)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if boxPrice == nil && ebay.CountSold == 0 && listings == 0 && len(top.TopCards) == 0 {
		return nil, fmt.Errorf("no market data found for %q", setName)
	}

	m := Metrics{
		SetName:       setName,
		BoxPrice:      boxPrice,
		SoldCount30d:  ebay.CountSold,
		DailySales:    float64(ebay.CountSold) / soldWindow,
		ListingsCount: listings,
		TopChase:      top,
		EbaySales:     ebay,
	}
	m.WeeklySales = m.DailySales * 7
	if m.DailySales > 0 {
		d := float64(listings) / m.DailySales
		m.DaysToClear = &d
	}
	m.Summary = buildSummary(m)

	s.logger.Debug("analysis complete",
		"set_name", setName,
		"sold_30d", m.SoldCount30d,
		"listings", m.ListingsCount)

	doc, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding metrics: %w", err)
	}
	return doc, nil
}

// boxPrice returns the sealed booster box price from the set's price page,
// or nil if none was found.
func (s *Scraper) boxPrice(ctx context.Context, setName string) *float64 {
	page, err := s.fetch(ctx, s.priceChartingURL+"/console/pokemon-card-game/sets/"+slugify(setName))
	if err != nil {
		s.logger.Debug("box price fetch failed", "set_name", setName, "error", err)
		return nil
	}

	text := stripTags(page)
	for _, m := range boosterRe.FindAllString(text, -1) {
		if price := parsePrice(m); price != nil {
			return price
		}
	}
	return nil
}

// ebaySoldStats counts completed sales for the query and averages the
// observed prices.
func (s *Scraper) ebaySoldStats(ctx context.Context, query string) SoldStats {
	u := fmt.Sprintf("%s/sch/i.html?_nkw=%s&_sop=10&LH_Sold=1&LH_Complete=1",
		s.ebayURL, url.QueryEscape(query))
	page, err := s.fetch(ctx, u)
	if err != nil {
		s.logger.Debug("sold listings fetch failed", "query", query, "error", err)
		return SoldStats{}
	}

	var prices []float64
	for _, item := range soldItemRe.FindAllStringSubmatch(page, -1) {
		if price := parsePrice(stripTags(item[1])); price != nil {
			prices = append(prices, *price)
		}
	}

	stats := SoldStats{CountSold: len(prices)}
	if len(prices) > 0 {
		var sum float64
		for _, p := range prices {
			sum += p
		}
		avg := sum / float64(len(prices))
		stats.AvgPrice = &avg
	}
	return stats
}

// tcgPlayerListings estimates current supply from the marketplace search
// page. Returns 0 when no count could be parsed.
func (s *Scraper) tcgPlayerListings(ctx context.Context, query string) int {
	u := fmt.Sprintf("%s/search/pokemon/product?productLineName=pokemon&q=%s",
		s.tcgPlayerURL, url.QueryEscape(query))
	page, err := s.fetch(ctx, u)
	if err != nil {
		s.logger.Debug("listings fetch failed", "query", query, "error", err)
		return 0
	}

	text := stripTags(page)
	for _, re := range listingsRes {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
				return n
			}
		}
	}
	return 0
}

// topChaseCards collects the highest-priced single cards from the set's
// price page, skipping sealed products.
func (s *Scraper) topChaseCards(ctx context.Context, setName string) TopChase {
	u := s.priceChartingURL + "/console/pokemon-card-game/sets/" + slugify(setName)
	page, err := s.fetch(ctx, u)
	if err != nil {
		s.logger.Debug("chase cards fetch failed", "set_name", setName, "error", err)
		return TopChase{TopCards: []ChaseCard{}}
	}

	// Keep the highest observed price per card name.
	best := make(map[string]float64)
	for _, row := range rowRe.FindAllStringSubmatch(page, -1) {
		link := cardLinkRe.FindStringSubmatch(row[1])
		if link == nil {
			continue
		}
		name := strings.TrimSpace(stripTags(link[1]))
		if name == "" || sealedRe.MatchString(name) {
			continue
		}
		price := parsePrice(stripTags(row[1]))
		if price == nil {
			continue
		}
		if prev, ok := best[name]; !ok || *price > prev {
			best[name] = *price
		}
	}

	cards := make([]ChaseCard, 0, len(best))
	for name, price := range best {
		cards = append(cards, ChaseCard{Name: name, Price: price})
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Price != cards[j].Price {
			return cards[i].Price > cards[j].Price
		}
		return cards[i].Name < cards[j].Name
	})
	if len(cards) > topChaseSize {
		cards = cards[:topChaseSize]
	}

	top := TopChase{TopCards: cards, Source: u}
	for _, c := range cards {
		top.SumTop += c.Price
	}
	if len(cards) > 0 {
		avg := top.SumTop / float64(len(cards))
		top.AvgTop = &avg
	}
	return top
}

// fetch retrieves a page body, failing on any non-200 status.
func (s *Scraper) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// buildSummary renders the one-line human-readable digest of the metrics.
func buildSummary(m Metrics) string {
	parts := make([]string, 0, 6)

	if m.BoxPrice != nil {
		parts = append(parts, fmt.Sprintf("current box price $%.2f", *m.BoxPrice))
	} else {
		parts = append(parts, "current box price N/A")
	}
	parts = append(parts, fmt.Sprintf("~%d sold/week on eBay", int(m.WeeklySales)))
	parts = append(parts, fmt.Sprintf("%d listings on market", m.ListingsCount))
	if m.DaysToClear != nil {
		parts = append(parts, fmt.Sprintf("~%d days to clear", int(*m.DaysToClear)))
	} else {
		parts = append(parts, "days-to-clear: N/A")
	}
	if len(m.TopChase.TopCards) > 0 {
		top := m.TopChase.TopCards[0]
		parts = append(parts, fmt.Sprintf("top card %s ~$%.2f", top.Name, top.Price))
	}

	return m.SetName + ": " + strings.Join(parts, ", ")
}

// slugify converts a set name to the lowercase-dashed form used in price
// page URLs.
func slugify(name string) string {
	s := strings.ToLower(name)
	s = slugDropRe.ReplaceAllString(s, "")
	s = slugDashRe.ReplaceAllString(strings.TrimSpace(s), "-")
	return s
}

// parsePrice extracts the first dollar amount from text.
func parsePrice(text string) *float64 {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// stripTags flattens markup into whitespace-separated text.
func stripTags(html string) string {
	return tagRe.ReplaceAllString(html, " ")
}
