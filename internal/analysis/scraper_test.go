// ABOUTME: Tests for the market-data scraper using httptest fixtures.
// ABOUTME: Covers the full document, partial source failures, and parsing helpers.

package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chase-gateway/internal/config"
)

const setPageHTML = `<html><body>
<table>
<tr><td><a href="/game/pokemon-evolving-skies/sealed">Booster Box</a></td><td>$120.50</td></tr>
<tr><td><a href="/product/123">Umbreon VMAX (Alternate Art)</a></td><td>$520.00</td></tr>
<tr><td><a href="/product/124">Rayquaza VMAX (Alternate Art)</a></td><td>$310.25</td></tr>
<tr><td><a href="/product/125">Glaceon VMAX (Alternate Art)</a></td><td>$150.00</td></tr>
</table>
</body></html>`

const soldPageHTML = `<html><body><ul>
<li class="s-item"><span>Evolving Skies Booster Box</span><span>$118.00</span><span>Sold Mar 10, 2025</span></li>
<li class="s-item"><span>Evolving Skies Booster Box sealed</span><span>$125.00</span><span>3 days ago</span></li>
<li class="s-item"><span>Evolving Skies Booster Box</span><span>$117.00</span></li>
</ul></body></html>`

const listingsPageHTML = `<html><body><div class="search-summary">42 listings as low as $115.00</div></body></html>`

// newFixtureServer serves price page, sold listings, and marketplace search
// fixtures from one host so all three base URLs can point at it.
func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/console/pokemon-card-game/sets/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(setPageHTML))
	})
	mux.HandleFunc("/sch/i.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(soldPageHTML))
	})
	mux.HandleFunc("/search/pokemon/product", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingsPageHTML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(baseURL string) *Scraper {
	return NewScraper(config.AnalyzerConfig{
		PriceChartingURL: baseURL,
		EbayURL:          baseURL,
		TCGPlayerURL:     baseURL,
		RequestTimeout:   5 * time.Second,
	}, slog.Default())
}

func TestScraper_Analyze(t *testing.T) {
	srv := newFixtureServer(t)
	s := newTestScraper(srv.URL)

	doc, err := s.Analyze(context.Background(), "Evolving Skies", false)
	require.NoError(t, err)

	var m Metrics
	require.NoError(t, json.Unmarshal(doc, &m))

	assert.Equal(t, "Evolving Skies", m.SetName)

	require.NotNil(t, m.BoxPrice)
	assert.InDelta(t, 120.50, *m.BoxPrice, 0.001)

	assert.Equal(t, 3, m.SoldCount30d)
	assert.InDelta(t, 0.1, m.DailySales, 0.001)
	assert.InDelta(t, 0.7, m.WeeklySales, 0.001)
	require.NotNil(t, m.EbaySales.AvgPrice)
	assert.InDelta(t, 120.0, *m.EbaySales.AvgPrice, 0.001)

	assert.Equal(t, 42, m.ListingsCount)
	require.NotNil(t, m.DaysToClear)
	assert.InDelta(t, 420.0, *m.DaysToClear, 0.001)

	require.Len(t, m.TopChase.TopCards, 3)
	assert.Equal(t, "Umbreon VMAX (Alternate Art)", m.TopChase.TopCards[0].Name)
	assert.InDelta(t, 520.0, m.TopChase.TopCards[0].Price, 0.001)
	assert.Equal(t, "Rayquaza VMAX (Alternate Art)", m.TopChase.TopCards[1].Name)
	assert.Equal(t, "Glaceon VMAX (Alternate Art)", m.TopChase.TopCards[2].Name)
	assert.InDelta(t, 980.25, m.TopChase.SumTop, 0.001)

	assert.Contains(t, m.Summary, "Evolving Skies:")
	assert.Contains(t, m.Summary, "current box price $120.50")
	assert.Contains(t, m.Summary, "42 listings on market")
	assert.Contains(t, m.Summary, "top card Umbreon VMAX (Alternate Art)")
}

func TestScraper_Analyze_NoSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := newTestScraper(srv.URL)

	_, err := s.Analyze(context.Background(), "Phantom Set", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no market data")
}

func TestScraper_Analyze_PartialSources(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/console/pokemon-card-game/sets/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(setPageHTML))
	})
	// Sold listings and marketplace search are down.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestScraper(srv.URL)

	doc, err := s.Analyze(context.Background(), "Evolving Skies", false)
	require.NoError(t, err, "one reachable source is enough")

	var m Metrics
	require.NoError(t, json.Unmarshal(doc, &m))

	require.NotNil(t, m.BoxPrice)
	assert.Zero(t, m.SoldCount30d)
	assert.Zero(t, m.ListingsCount)
	assert.Nil(t, m.DaysToClear, "no sales velocity means no clear estimate")
	assert.Contains(t, m.Summary, "days-to-clear: N/A")
}

func TestScraper_Analyze_Canceled(t *testing.T) {
	srv := newFixtureServer(t)
	s := newTestScraper(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Analyze(ctx, "Evolving Skies", false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Evolving Skies", want: "evolving-skies"},
		{in: "Scarlet & Violet 151", want: "scarlet-violet-151"},
		{in: "  Crown  Zenith  ", want: "crown-zenith"},
		{in: "Hidden-Fates", want: "hidden-fates"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		none bool
	}{
		{in: "Booster Box $120.50", want: 120.50},
		{in: "sold for $1,234.99 yesterday", want: 1234.99},
		{in: "$ 42", want: 42},
		{in: "no price here", none: true},
		{in: "", none: true},
	}
	for _, tt := range tests {
		got := parsePrice(tt.in)
		if tt.none {
			assert.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		assert.InDelta(t, tt.want, *got, 0.001, tt.in)
	}
}

func TestStripTags(t *testing.T) {
	got := stripTags(`<tr><td><b>Booster Box</b></td><td>$120.50</td></tr>`)
	assert.Equal(t, "Booster Box", strings.Fields(got)[0]+" "+strings.Fields(got)[1])
	assert.Contains(t, got, "$120.50")
}
