package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/itemtype"
	"github.com/valuehound/valuehound/internal/vision"
)

const (
	// analyzeResultsLimit is how many eBay listings are fetched and valued
	// per chat request.
	analyzeResultsLimit = 10

	// maxShownResults caps the listings rendered in one reply.
	maxShownResults = 5
)

// AnalyzeHandler runs the photo/query valuation flow: identify the item
// (photos only), search eBay, value the listings and reply with the best
// opportunities.
type AnalyzeHandler struct {
	tg         BotAPI
	identifier vision.Identifier
	search     *ebay.Client
	analyzer   *arb.Analyzer
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(tg BotAPI, identifier vision.Identifier, search *ebay.Client, analyzer *arb.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{
		tg:         tg,
		identifier: identifier,
		search:     search,
		analyzer:   analyzer,
	}
}

// HandlePhoto identifies the item in a photo and values its eBay listings.
func (h *AnalyzeHandler) HandlePhoto(ctx context.Context, session *session, message *tgbotapi.Message) {
	if h.identifier == nil {
		session.reply(MsgAnalysisNotAvail)
		return
	}

	// Telegram orders photo sizes smallest first
	photos := message.Photo
	largest := photos[len(photos)-1]

	typingCtx, cancelTyping := context.WithCancel(ctx)
	defer cancelTyping()
	go session.startTypingLoop(typingCtx)

	data, err := fetchPhoto(ctx, h.tg.GetFileDirectURL, largest.FileID)
	if err != nil {
		log.Error().Err(err).Str("fileID", largest.FileID).Msg("photo download failed")
		session.reply(MsgDownloadFailed)
		return
	}

	result, err := h.identifier.IdentifyImage(ctx, data, "image/jpeg")
	if err != nil {
		session.replyWithError(err)
		return
	}

	item := result.Item
	var query string
	if item != nil {
		query = item.Query()
	}
	if query == "" {
		session.reply(MsgIdentifyFailed)
		return
	}

	log.Info().
		Str("query", query).
		Str("itemType", string(item.ItemType)).
		Float64("costUSD", result.Usage.CostUSD).
		Msg("item identified from photo")

	if item.ItemType == itemtype.Card {
		session.reply(MsgIdentifiedCard, escapeMarkdown(query))
	} else {
		session.reply(MsgIdentifiedWatch, escapeMarkdown(query))
	}

	h.runAnalysis(ctx, session, query, item.ItemType)
}

// HandleQuery values eBay listings for a free-text search query.
func (h *AnalyzeHandler) HandleQuery(ctx context.Context, session *session, text string) {
	query := strings.TrimSpace(text)
	if query == "" {
		session.reply(MsgStartPrompt)
		return
	}

	typingCtx, cancelTyping := context.WithCancel(ctx)
	defer cancelTyping()
	go session.startTypingLoop(typingCtx)

	h.runAnalysis(ctx, session, query, itemtype.Detect(query))
}

// runAnalysis searches eBay for the query and replies with valued listings.
func (h *AnalyzeHandler) runAnalysis(ctx context.Context, session *session, query string, typ itemtype.Type) {
	results, err := h.search.Search(ctx, ebay.SearchParams{
		Query:       query,
		Limit:       analyzeResultsLimit,
		CategoryIDs: itemtype.CategoryID(typ),
	})
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("ebay search failed")
		session.reply(MsgSearchError, err.Error())
		return
	}

	if len(results.Items) == 0 {
		session.reply(MsgSearchNoResults, escapeMarkdown(query))
		return
	}

	arbResults, summary := h.analyzer.Analyze(ctx, ebay.Listings(results.Items), typ)

	msg := tgbotapi.MessageConfig{
		Text:      formatAnalysis(query, arbResults, summary),
		ParseMode: tgbotapi.ModeMarkdown,
	}
	msg.DisableWebPagePreview = true
	session.replyWithMessage(msg)
}

// statusBadge maps a valuation status to its emoji badge.
func statusBadge(status arb.ValuationStatus) string {
	switch status {
	case arb.StatusUndervalued:
		return "🟢"
	case arb.StatusFairValue:
		return "⚪"
	case arb.StatusOvervalued:
		return "🔴"
	default:
		return "❔"
	}
}

// statusRank orders valuation buckets for display, best first.
func statusRank(status arb.ValuationStatus) int {
	switch status {
	case arb.StatusUndervalued:
		return 0
	case arb.StatusFairValue:
		return 1
	case arb.StatusOvervalued:
		return 2
	default:
		return 3
	}
}

// rankResults returns results ordered for display: undervalued first,
// within a bucket by spread descending.
func rankResults(results []arb.Result) []arb.Result {
	ranked := make([]arb.Result, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ranked[i].Opportunity, ranked[j].Opportunity
		if statusRank(ri.ValuationStatus) != statusRank(rj.ValuationStatus) {
			return statusRank(ri.ValuationStatus) < statusRank(rj.ValuationStatus)
		}
		var si, sj float64
		if ri.SpreadPct != nil {
			si = *ri.SpreadPct
		}
		if rj.SpreadPct != nil {
			sj = *rj.SpreadPct
		}
		return si > sj
	})

	return ranked
}

// formatAnalysis renders the valuation reply: a summary header followed by
// up to maxShownResults listings, best opportunities first.
func formatAnalysis(query string, results []arb.Result, summary arb.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		MsgAnalysisHeaderFmt,
		escapeMarkdown(query),
		summary.Total,
		summary.Undervalued,
		summary.FairValue,
		summary.Overvalued,
	))

	for i, r := range rankResults(results) {
		if i >= maxShownResults {
			break
		}
		sb.WriteString(formatResult(r))
	}

	return sb.String()
}

// formatResult renders one listing as two lines: badge, linked title and
// price, then the valuation detail line.
func formatResult(r arb.Result) string {
	var sb strings.Builder

	opp := r.Opportunity
	title := escapeMarkdown(truncate(r.Listing.Title, 60))

	sb.WriteString(statusBadge(opp.ValuationStatus))
	sb.WriteString(" ")
	if r.Listing.URL != "" {
		sb.WriteString(fmt.Sprintf("[%s](%s)", title, r.Listing.URL))
	} else {
		sb.WriteString(title)
	}
	sb.WriteString(fmt.Sprintf(" — $%.0f\n", r.Listing.Price))

	var details []string
	if opp.MarketPriceUSD != nil {
		details = append(details, fmt.Sprintf("market $%.0f", *opp.MarketPriceUSD))
	}
	if opp.SpreadPct != nil {
		details = append(details, fmt.Sprintf("spread %+.1f%%", *opp.SpreadPct))
	}
	details = append(details,
		fmt.Sprintf("risk %s", opp.RiskLevel),
		fmt.Sprintf("confidence %s", opp.Confidence),
	)

	sb.WriteString("      ")
	sb.WriteString(strings.Join(details, " · "))
	sb.WriteString("\n")

	return sb.String()
}
