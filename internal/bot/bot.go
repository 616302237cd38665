package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/storage"
	"github.com/valuehound/valuehound/internal/vision"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg      BotAPI
	store   *storage.SQLiteStore
	search  *ebay.Client
	adminID int64

	// Handlers
	huntHandler    *HuntHandler
	analyzeHandler *AnalyzeHandler
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, store *storage.SQLiteStore, search *ebay.Client, adminID int64, maxHunts int) *Bot {
	bot := &Bot{
		tg:      tg,
		store:   store,
		search:  search,
		adminID: adminID,
	}

	bot.huntHandler = NewHuntHandler(tg, store, search, maxHunts)

	return bot
}

// SetAnalysisClients sets the vision identifier and the valuation engine.
// identifier: handles photo identification (can be cached)
// analyzer: runs the listing valuation pipeline
func (b *Bot) SetAnalysisClients(identifier vision.Identifier, analyzer *arb.Analyzer) {
	b.analyzeHandler = NewAnalyzeHandler(b.tg, identifier, b.search, analyzer)
}

// HandleUpdate is the main message router.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var userId int64

	// Determine user ID from the update
	if update.CallbackQuery != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// Check if user is allowed (admin always allowed)
	if userId != b.adminID {
		allowed, err := b.store.IsUserAllowed(userId)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userId).Msg("whitelist check failed")
			return // Fail closed
		}
		if !allowed {
			return // Silent drop
		}
	}

	session := &session{userId: userId, sender: b.tg}

	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, session, update.CallbackQuery)
		return
	}

	if update.Message != nil {
		log.Info().Str("text", update.Message.Text).Str("caption", update.Message.Caption).Msg("got message")

		if len(update.Message.Photo) > 0 {
			b.handlePhotoMessage(ctx, session, update.Message)
		} else {
			b.handleTextMessage(ctx, session, update.Message)
		}
	}
}

// handlePhotoMessage processes photo messages.
func (b *Bot) handlePhotoMessage(ctx context.Context, session *session, message *tgbotapi.Message) {
	if b.analyzeHandler == nil {
		session.reply(MsgAnalysisNotAvail)
		return
	}
	b.analyzeHandler.HandlePhoto(ctx, session, message)
}

// handleTextMessage processes text messages. Commands go to the command
// router; any other text is treated as a marketplace search query.
func (b *Bot) handleTextMessage(ctx context.Context, session *session, message *tgbotapi.Message) {
	if strings.HasPrefix(message.Text, "/") {
		b.handleCommand(ctx, session, message)
		return
	}

	if b.analyzeHandler == nil {
		session.reply(MsgAnalysisNotAvail)
		return
	}
	b.analyzeHandler.HandleQuery(ctx, session, message.Text)
}

// handleCommand processes bot commands.
func (b *Bot) handleCommand(ctx context.Context, session *session, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	argsStr := strings.Join(args, " ")
	switch command {
	case "/start":
		session.reply(MsgStartPrompt)
	case "/help":
		session.reply(MsgHelp)
	case "/hunt":
		b.huntHandler.HandleHuntCommand(ctx, session, argsStr)
	case "/hunts":
		b.huntHandler.HandleHuntsCommand(ctx, session)
	case "/stophunt":
		b.huntHandler.HandleStopHuntCommand(ctx, session, argsStr)
	case "/admin":
		b.handleAdminCommand(session, argsStr)
	default:
		session.reply(MsgStartPrompt)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *session, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	b.tg.Request(callback)

	if strings.HasPrefix(query.Data, "hunt:") {
		b.huntHandler.HandleHuntCallback(ctx, session, query)
	}
}

// handleAdminCommand handles /admin command with subcommands.
// Only the admin user can use this command (defense in depth check).
func (b *Bot) handleAdminCommand(session *session, args string) {
	// Defense in depth: verify caller is admin even though whitelist check passed
	if session.userId != b.adminID {
		return // Silent drop for non-admin users
	}

	parts := strings.Fields(args)
	if len(parts) == 0 {
		session.reply(MsgAdminUsage)
		return
	}

	switch parts[0] {
	case "users":
		if len(parts) < 2 {
			session.reply(MsgAdminUsage)
			return
		}
		b.handleAdminUsersCommand(session, parts[1], parts[2:])
	default:
		session.reply(MsgAdminUsage)
	}
}

// handleAdminUsersCommand handles /admin users subcommands.
func (b *Bot) handleAdminUsersCommand(session *session, action string, args []string) {
	switch action {
	case "add":
		if len(args) < 1 {
			session.reply(MsgAdminUserAddUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.AddAllowedUser(userID, session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserAdded, userID)

	case "remove":
		if len(args) < 1 {
			session.reply(MsgAdminUserRemoveUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.RemoveAllowedUser(userID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserRemoved, userID)

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminAllowedUsers)
		for _, u := range users {
			sb.WriteString(fmt.Sprintf("• `%d` (added %s)\n", u.TelegramID, u.AddedAt.Format("2006-01-02")))
		}
		session.reply(sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
