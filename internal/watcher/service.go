package watcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/itemtype"
	"github.com/valuehound/valuehound/internal/storage"
)

const (
	// DefaultPollInterval is the time between polling cycles.
	DefaultPollInterval = 15 * time.Minute

	// DelayBetweenQueries is the delay between processing each unique query.
	DelayBetweenQueries = 2 * time.Second

	// MaxResultsPerSearch is the maximum number of results to fetch per search.
	MaxResultsPerSearch = 20

	// PruneInterval is how often to prune old seen listings.
	PruneInterval = 24 * time.Hour

	// SeenListingsMaxAge is how long to keep seen listings before pruning.
	SeenListingsMaxAge = 30 * 24 * time.Hour // 30 days
)

// BotSender abstracts the Telegram bot API for sending messages.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Service is the background service that polls saved hunts for new
// undervalued listings.
type Service struct {
	store    *storage.SQLiteStore
	search   *ebay.Client
	analyzer *arb.Analyzer
	bot      BotSender
	interval time.Duration
}

// NewService creates a new watcher service. A non-positive interval falls
// back to DefaultPollInterval.
func NewService(store *storage.SQLiteStore, search *ebay.Client, analyzer *arb.Analyzer, bot BotSender, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Service{
		store:    store,
		search:   search,
		analyzer: analyzer,
		bot:      bot,
		interval: interval,
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("starting watcher service")

	// Run initial poll after a short delay to let the bot fully start
	select {
	case <-ctx.Done():
		return
	case <-time.After(5 * time.Second):
	}
	s.poll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	pruneTicker := time.NewTicker(PruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("watcher service stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		case <-pruneTicker.C:
			s.pruneOldSeenListings()
		}
	}
}

// huntKey groups hunts that share a search, so one eBay call serves all of
// them.
type huntKey struct {
	query    string
	itemType string
}

// poll executes one polling cycle for all hunts.
func (s *Service) poll(ctx context.Context) {
	log.Debug().Msg("starting poll cycle")

	hunts, err := s.store.GetAllHunts()
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch hunts")
		return
	}

	if len(hunts) == 0 {
		log.Debug().Msg("no hunts to poll")
		return
	}

	grouped := make(map[huntKey][]storage.Hunt)
	for _, h := range hunts {
		key := huntKey{query: h.Query, itemType: h.ItemType}
		grouped[key] = append(grouped[key], h)
	}

	log.Debug().Int("hunts", len(hunts)).Int("unique_queries", len(grouped)).Msg("processing hunts")

	processedQueries := 0
	for key, huntGroup := range grouped {
		// Rate limit between queries, bailing out promptly on shutdown
		if processedQueries > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(DelayBetweenQueries):
			}
		}
		if ctx.Err() != nil {
			return
		}
		processedQueries++

		s.processQuery(ctx, key, huntGroup)
	}

	log.Debug().Msg("poll cycle complete")
}

// processQuery executes one search and checks every hunt in the group.
func (s *Service) processQuery(ctx context.Context, key huntKey, hunts []storage.Hunt) {
	log.Debug().Str("query", key.query).Int("hunters", len(hunts)).Msg("searching")

	typ := itemtype.Type(key.itemType)
	results, err := s.search.Search(ctx, ebay.SearchParams{
		Query:       key.query,
		Limit:       MaxResultsPerSearch,
		CategoryIDs: itemtype.CategoryID(typ),
	})
	if err != nil {
		log.Error().Err(err).Str("query", key.query).Msg("search failed during poll")
		return
	}

	log.Debug().Str("query", key.query).Int("results", len(results.Items)).Msg("search completed")

	for _, hunt := range hunts {
		s.processHuntResults(ctx, hunt, typ, results.Items)
	}
}

// processHuntResults values unseen search results and notifies the hunt's
// owner about the undervalued ones. All new listings are marked seen
// regardless of their valuation, so fair and overvalued items never come
// back on the next cycle.
func (s *Service) processHuntResults(ctx context.Context, hunt storage.Hunt, typ itemtype.Type, items []ebay.Item) {
	seenIDs, err := s.store.GetSeenListingIDs(hunt.ID)
	if err != nil {
		log.Error().Err(err).Str("huntID", hunt.ID).Msg("failed to get seen listings")
		return
	}

	var newItems []ebay.Item
	for _, item := range items {
		if !seenIDs[item.ItemID] {
			newItems = append(newItems, item)
		}
	}

	if len(newItems) == 0 {
		return
	}

	log.Info().Str("huntID", hunt.ID).Int("new", len(newItems)).Str("query", hunt.Query).Msg("found new listings")

	// Mark all as seen before valuation so an engine failure cannot cause
	// duplicate alerts on the next cycle
	newIDs := make([]string, 0, len(newItems))
	for _, item := range newItems {
		newIDs = append(newIDs, item.ItemID)
	}
	if err := s.store.MarkListingsSeenBatch(hunt.ID, newIDs); err != nil {
		log.Error().Err(err).Str("huntID", hunt.ID).Msg("failed to mark listings as seen")
	}

	results, summary := s.analyzer.Analyze(ctx, ebay.Listings(newItems), typ)
	log.Debug().
		Str("huntID", hunt.ID).
		Int("undervalued", summary.Undervalued).
		Int("total", summary.Total).
		Msg("valued new listings")

	for _, r := range results {
		if r.Opportunity.ValuationStatus == arb.StatusUndervalued {
			s.sendNotification(hunt.UserID, hunt.Query, r)
		}
	}
}

// sendNotification sends an alert message for one undervalued listing.
func (s *Service) sendNotification(userID int64, query string, r arb.Result) {
	var sb strings.Builder

	opp := r.Opportunity

	sb.WriteString(fmt.Sprintf("🔔 *Undervalued find:* \"%s\"\n\n", escapeMarkdown(query)))
	sb.WriteString(fmt.Sprintf("*%s*\n", escapeMarkdown(r.Listing.Title)))
	sb.WriteString(fmt.Sprintf("💰 $%.0f", r.Listing.Price))
	if opp.MarketPriceUSD != nil {
		sb.WriteString(fmt.Sprintf(" (market $%.0f)", *opp.MarketPriceUSD))
	}
	sb.WriteString("\n")
	if opp.SpreadPct != nil {
		sb.WriteString(fmt.Sprintf("📉 %.1f%% below market\n", *opp.SpreadPct))
	}
	sb.WriteString(fmt.Sprintf("⚖️ risk %s · confidence %s\n", opp.RiskLevel, opp.Confidence))

	msg := tgbotapi.NewMessage(userID, sb.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	if r.Listing.URL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("Open on eBay", r.Listing.URL),
			),
		)
	}

	_, err := s.bot.Send(msg)
	if err != nil {
		log.Error().
			Err(err).
			Int64("userID", userID).
			Str("listingID", r.Listing.ItemID).
			Msg("failed to send notification")
	} else {
		log.Debug().
			Int64("userID", userID).
			Str("listingID", r.Listing.ItemID).
			Msg("notification sent")
	}
}

// pruneOldSeenListings removes old seen listings to prevent database bloat.
func (s *Service) pruneOldSeenListings() {
	count, err := s.store.PruneOldSeenListings(SeenListingsMaxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune old seen listings")
		return
	}
	if count > 0 {
		log.Info().Int64("pruned", count).Msg("pruned old seen listings")
	}
}

// escapeMarkdown escapes special characters for Telegram Markdown V1.
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}
