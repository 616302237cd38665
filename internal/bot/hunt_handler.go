package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/itemtype"
	"github.com/valuehound/valuehound/internal/storage"
)

const (
	// seedResultsLimit is how many current results are marked seen when a
	// hunt is created, so the watcher only alerts about listings that
	// appear afterwards.
	seedResultsLimit = 50

	// DefaultMaxHuntsPerUser caps saved hunts per user.
	DefaultMaxHuntsPerUser = 5
)

// HuntHandler handles saved-search commands and callbacks.
type HuntHandler struct {
	tg       BotAPI
	store    *storage.SQLiteStore
	search   *ebay.Client
	maxHunts int
}

// NewHuntHandler creates a new HuntHandler.
func NewHuntHandler(tg BotAPI, store *storage.SQLiteStore, search *ebay.Client, maxHunts int) *HuntHandler {
	if maxHunts <= 0 {
		maxHunts = DefaultMaxHuntsPerUser
	}
	return &HuntHandler{
		tg:       tg,
		store:    store,
		search:   search,
		maxHunts: maxHunts,
	}
}

// HandleHuntCommand handles the /hunt command - create a saved search.
func (h *HuntHandler) HandleHuntCommand(ctx context.Context, session *session, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		session.reply(MsgHuntQueryMissing)
		return
	}

	// Check if hunt already exists
	exists, err := h.store.HuntExistsForQuery(session.userId, query)
	if err != nil {
		log.Error().Err(err).Msg("failed to check existing hunt")
		session.replyWithError(err)
		return
	}
	if exists {
		session.reply(MsgHuntExists, query)
		return
	}

	// Check hunt limit
	count, err := h.store.CountHuntsByUser(session.userId)
	if err != nil {
		log.Error().Err(err).Msg("failed to count hunts")
		session.replyWithError(err)
		return
	}
	if count >= h.maxHunts {
		session.reply(MsgHuntLimit, h.maxHunts)
		return
	}

	typ := itemtype.Detect(query)
	hunt, err := h.store.CreateHunt(session.userId, query, string(typ))
	if err != nil {
		log.Error().Err(err).Msg("failed to create hunt")
		session.replyWithError(err)
		return
	}

	log.Info().
		Str("huntID", hunt.ID).
		Int64("userId", session.userId).
		Str("query", query).
		Str("itemType", string(typ)).
		Msg("hunt created")

	// Seed seen listings with current results to avoid notifying about existing listings
	go h.seedSeenListings(context.Background(), hunt.ID, query, typ)

	session.reply(MsgHuntCreated, query)
}

// HandleHuntsCommand handles the /hunts command - list saved hunts.
func (h *HuntHandler) HandleHuntsCommand(ctx context.Context, session *session) {
	hunts, err := h.store.GetHuntsByUser(session.userId)
	if err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Msg("failed to get hunts")
		session.replyWithError(err)
		return
	}

	if len(hunts) == 0 {
		session.reply(MsgNoHunts)
		return
	}

	msg := tgbotapi.NewMessage(session.userId, huntListText(hunts))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = huntListKeyboard(hunts)

	session.replyWithMessage(msg)
}

// HandleStopHuntCommand handles the /stophunt command. With an argument it
// removes the hunt whose query matches; without one it shows the hunt list
// with delete buttons.
func (h *HuntHandler) HandleStopHuntCommand(ctx context.Context, session *session, args string) {
	args = strings.TrimSpace(args)
	if args == "" {
		h.HandleHuntsCommand(ctx, session)
		return
	}

	hunts, err := h.store.GetHuntsByUser(session.userId)
	if err != nil {
		session.replyWithError(err)
		return
	}

	for _, hunt := range hunts {
		if strings.EqualFold(hunt.Query, args) {
			if err := h.store.DeleteHunt(hunt.ID, session.userId); err != nil {
				log.Error().Err(err).Str("huntID", hunt.ID).Msg("failed to delete hunt")
				session.replyWithError(err)
				return
			}
			session.reply(MsgHuntDeleted)
			return
		}
	}

	session.reply(MsgHuntNotFound)
}

// HandleHuntCallback handles hunt-related callbacks.
func (h *HuntHandler) HandleHuntCallback(ctx context.Context, session *session, query *tgbotapi.CallbackQuery) {
	data := query.Data

	switch {
	case strings.HasPrefix(data, "hunt:delete:"):
		huntID := strings.TrimPrefix(data, "hunt:delete:")
		h.handleDeleteHuntCallback(session, query, huntID)
	case data == "hunt:close":
		h.handleCloseCallback(session, query)
	}
}

// handleDeleteHuntCallback handles delete button callbacks.
func (h *HuntHandler) handleDeleteHuntCallback(session *session, query *tgbotapi.CallbackQuery, huntID string) {
	err := h.store.DeleteHunt(huntID, session.userId)
	if err != nil {
		log.Error().Err(err).Str("huntID", huntID).Msg("failed to delete hunt")
		session.reply(MsgHuntNotFound)
		return
	}

	log.Info().Str("huntID", huntID).Int64("userId", session.userId).Msg("hunt deleted")

	// Update the message with the refreshed list
	hunts, err := h.store.GetHuntsByUser(session.userId)
	if err != nil {
		log.Error().Err(err).Msg("failed to refresh hunts")
		session.reply(MsgHuntDeleted)
		return
	}

	if len(hunts) == 0 {
		// Delete the message and show "no hunts"
		if query.Message != nil {
			h.tg.Request(tgbotapi.NewDeleteMessage(query.Message.Chat.ID, query.Message.MessageID))
		}
		session.reply(MsgHuntDeleted + "\n\n" + MsgNoHunts)
		return
	}

	if query.Message != nil {
		edit := tgbotapi.NewEditMessageTextAndMarkup(
			query.Message.Chat.ID,
			query.Message.MessageID,
			huntListText(hunts),
			huntListKeyboard(hunts),
		)
		edit.ParseMode = tgbotapi.ModeMarkdown
		h.tg.Request(edit)
	}
}

// handleCloseCallback handles the close button callback.
func (h *HuntHandler) handleCloseCallback(session *session, query *tgbotapi.CallbackQuery) {
	if query.Message != nil {
		h.tg.Request(tgbotapi.NewDeleteMessage(query.Message.Chat.ID, query.Message.MessageID))
	}
}

// seedSeenListings fetches current search results and marks them as seen.
// This prevents notifying about listings that already exist when the hunt is created.
func (h *HuntHandler) seedSeenListings(ctx context.Context, huntID, query string, typ itemtype.Type) {
	results, err := h.search.Search(ctx, ebay.SearchParams{
		Query:       query,
		Limit:       seedResultsLimit,
		CategoryIDs: itemtype.CategoryID(typ),
	})
	if err != nil {
		log.Warn().Err(err).Str("huntID", huntID).Msg("failed to seed seen listings")
		return
	}

	var listingIDs []string
	for _, item := range results.Items {
		listingIDs = append(listingIDs, item.ItemID)
	}

	if len(listingIDs) > 0 {
		if err := h.store.MarkListingsSeenBatch(huntID, listingIDs); err != nil {
			log.Warn().Err(err).Str("huntID", huntID).Msg("failed to mark listings as seen")
			return
		}
		log.Info().Str("huntID", huntID).Int("count", len(listingIDs)).Msg("seeded seen listings")
	}
}

// huntListText builds the Markdown body for the hunt list message.
func huntListText(hunts []storage.Hunt) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(MsgHuntsHeader, len(hunts)))
	for i, hunt := range hunts {
		sb.WriteString(fmt.Sprintf(MsgHuntItem, i+1, escapeMarkdown(hunt.Query)))
	}
	return sb.String()
}

// huntListKeyboard builds delete buttons (4 per row) plus a close button.
func huntListKeyboard(hunts []storage.Hunt) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var currentRow []tgbotapi.InlineKeyboardButton

	for i, hunt := range hunts {
		btn := tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d", BtnDeleteHunt, i+1),
			fmt.Sprintf("hunt:delete:%s", hunt.ID),
		)
		currentRow = append(currentRow, btn)

		// 4 buttons per row
		if len(currentRow) == 4 || i == len(hunts)-1 {
			rows = append(rows, currentRow)
			currentRow = nil
		}
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(BtnClose, "hunt:close"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
