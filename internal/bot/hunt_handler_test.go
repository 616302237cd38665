package bot

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/valuehound/valuehound/internal/storage"
)

// setupHuntTest creates test infrastructure for hunt handler tests.
func setupHuntTest(t *testing.T) (*storage.SQLiteStore, *botApiMock, *Bot, *session) {
	t.Helper()
	store := newTestStore(t)
	tg := new(botApiMock)
	bot := NewBot(tg, store, newTestSearchClient(t, emptySearchBody), testAdminID, 5)
	session := &session{userId: int64(1), sender: tg}
	return store, tg, bot, session
}

func TestHandleHuntCommand_CreatesHunt(t *testing.T) {
	store, tg, bot, session := setupHuntTest(t)

	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgHuntCreated, "omega speedmaster"))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.huntHandler.HandleHuntCommand(context.Background(), session, "omega speedmaster")

	tg.AssertExpectations(t)

	hunts, err := store.GetHuntsByUser(session.userId)
	require.NoError(t, err)
	require.Len(t, hunts, 1)
	require.Equal(t, "omega speedmaster", hunts[0].Query)
	require.Equal(t, "watch", hunts[0].ItemType)
}

func TestHandleHuntCommand_DetectsCardType(t *testing.T) {
	store, tg, bot, session := setupHuntTest(t)

	tg.On("Send", mock.Anything).Return(tgbotapi.Message{}, nil).Once()

	bot.huntHandler.HandleHuntCommand(context.Background(), session, "charizard psa 10")

	hunts, err := store.GetHuntsByUser(session.userId)
	require.NoError(t, err)
	require.Len(t, hunts, 1)
	require.Equal(t, "trading_card", hunts[0].ItemType)
}

func TestHandleHuntCommand_NoQuery(t *testing.T) {
	_, tg, bot, session := setupHuntTest(t)

	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgHuntQueryMissing))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.huntHandler.HandleHuntCommand(context.Background(), session, "  ")

	tg.AssertExpectations(t)
}

func TestHandleHuntCommand_Duplicate(t *testing.T) {
	store, tg, bot, session := setupHuntTest(t)

	_, err := store.CreateHunt(session.userId, "rolex gmt", "watch")
	require.NoError(t, err)

	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgHuntExists, "rolex gmt"))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.huntHandler.HandleHuntCommand(context.Background(), session, "rolex gmt")

	tg.AssertExpectations(t)
}

func TestHandleHuntCommand_LimitReached(t *testing.T) {
	store, tg, bot, session := setupHuntTest(t)
	bot.huntHandler.maxHunts = 2

	_, err := store.CreateHunt(session.userId, "query one", "watch")
	require.NoError(t, err)
	_, err = store.CreateHunt(session.userId, "query two", "watch")
	require.NoError(t, err)

	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgHuntLimit, 2))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.huntHandler.HandleHuntCommand(context.Background(), session, "query three")

	tg.AssertExpectations(t)

	count, err := store.CountHuntsByUser(session.userId)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestHandleHuntsCommand_Empty(t *testing.T) {
	_, tg, bot, session := setupHuntTest(t)

	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgNoHunts))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.huntHandler.HandleHuntsCommand(context.Background(), session)

	tg.AssertExpectations(t)
}

func TestHandleHuntsCommand_ListsWithDeleteButtons(t *testing.T) {
	store, tg, bot, session := setupHuntTest(t)

	_, err := store.CreateHunt(session.userId, "omega speedmaster", "watch")
	require.NoError(t, err)
	_, err = store.CreateHunt(session.userId, "charizard psa 10", "trading_card")
	require.NoError(t, err)

	tg.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		hasQueries := strings.Contains(msg.Text, "omega speedmaster") &&
			strings.Contains(msg.Text, "charizard psa 10")
		keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		// 2 delete buttons in one row plus the close row
		return hasQueries && ok && len(keyboard.InlineKeyboard) == 2
	})).Return(tgbotapi.Message{}, nil).Once()

	bot.huntHandler.HandleHuntsCommand(context.Background(), session)

	tg.AssertExpectations(t)
}

func TestHandleStopHuntCommand_ByQuery(t *testing.T) {
	store, tg, bot, session := setupHuntTest(t)

	_, err := store.CreateHunt(session.userId, "rolex gmt", "watch")
	require.NoError(t, err)

	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgHuntDeleted))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.huntHandler.HandleStopHuntCommand(context.Background(), session, "Rolex GMT")

	tg.AssertExpectations(t)

	count, err := store.CountHuntsByUser(session.userId)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestHandleStopHuntCommand_UnknownQuery(t *testing.T) {
	_, tg, bot, session := setupHuntTest(t)

	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgHuntNotFound))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.huntHandler.HandleStopHuntCommand(context.Background(), session, "nothing saved")

	tg.AssertExpectations(t)
}

func TestHuntCallback_DeleteRemovesHuntAndMessage(t *testing.T) {
	store, tg, bot, session := setupHuntTest(t)

	hunt, err := store.CreateHunt(session.userId, "rolex gmt", "watch")
	require.NoError(t, err)

	// The last hunt was deleted: the list message is removed entirely
	tg.On("Request", mock.AnythingOfType("tgbotapi.DeleteMessageConfig")).
		Return(&tgbotapi.APIResponse{}, nil).Once()
	tg.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		return strings.Contains(msg.Text, formatReplyText(MsgHuntDeleted))
	})).Return(tgbotapi.Message{}, nil).Once()

	query := &tgbotapi.CallbackQuery{
		Data: "hunt:delete:" + hunt.ID,
		Message: &tgbotapi.Message{
			MessageID: 77,
			Chat:      &tgbotapi.Chat{ID: session.userId},
		},
	}
	bot.huntHandler.HandleHuntCallback(context.Background(), session, query)

	tg.AssertExpectations(t)

	count, err := store.CountHuntsByUser(session.userId)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestHuntCallback_DeleteWrongUser(t *testing.T) {
	store, tg, bot, session := setupHuntTest(t)

	// Hunt belongs to a different user
	hunt, err := store.CreateHunt(int64(999), "rolex gmt", "watch")
	require.NoError(t, err)

	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgHuntNotFound))).
		Return(tgbotapi.Message{}, nil).Once()

	query := &tgbotapi.CallbackQuery{Data: "hunt:delete:" + hunt.ID}
	bot.huntHandler.HandleHuntCallback(context.Background(), session, query)

	tg.AssertExpectations(t)

	count, err := store.CountHuntsByUser(int64(999))
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
