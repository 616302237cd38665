package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/storage"
)

const testAdminID = int64(42)

type botApiMock struct {
	mock.Mock
}

func (m *botApiMock) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *botApiMock) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *botApiMock) GetFileDirectURL(fileID string) (string, error) {
	args := m.Called(fileID)
	return args.Get(0).(string), args.Error(1)
}

func makeMessage(userId int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(userId, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func makeUpdateWithMessageText(userId int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{
				ID: userId,
			},
			Text: text,
		},
	}
}

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(
		filepath.Join(t.TempDir(), "test.db"),
		storage.DeriveKey("test-passphrase"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// newTestSearchClient returns an eBay client backed by a test server that
// always responds with the given body.
func newTestSearchClient(t *testing.T, body string) *ebay.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ebay.NewClient(ebay.ClientOpts{BaseURL: ts.URL, StaticToken: "test-token"})
}

const emptySearchBody = `{"total": 0, "itemSummaries": []}`

func TestHandleUpdate_UnallowedUserSilentlyDropped(t *testing.T) {
	store := newTestStore(t)
	tg := new(botApiMock)
	bot := NewBot(tg, store, newTestSearchClient(t, emptySearchBody), testAdminID, 5)

	// No expectations set: any Send/Request would fail the test
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(99999, "/start"))

	tg.AssertExpectations(t)
}

func TestHandleUpdate_AdminAlwaysAllowed(t *testing.T) {
	store := newTestStore(t)
	tg := new(botApiMock)
	bot := NewBot(tg, store, newTestSearchClient(t, emptySearchBody), testAdminID, 5)

	tg.On("Send", makeMessage(testAdminID, formatReplyText(MsgStartPrompt))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(testAdminID, "/start"))

	tg.AssertExpectations(t)
}

func TestHandleUpdate_AllowedUser(t *testing.T) {
	store := newTestStore(t)
	tg := new(botApiMock)
	bot := NewBot(tg, store, newTestSearchClient(t, emptySearchBody), testAdminID, 5)

	userId := int64(1234)
	require.NoError(t, store.AddAllowedUser(userId, testAdminID))

	tg.On("Send", makeMessage(userId, formatReplyText(MsgHelp))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/help"))

	tg.AssertExpectations(t)
}

func TestAdminUsersCommand_AddAndRemove(t *testing.T) {
	store := newTestStore(t)
	tg := new(botApiMock)
	bot := NewBot(tg, store, newTestSearchClient(t, emptySearchBody), testAdminID, 5)

	tg.On("Send", makeMessage(testAdminID, formatReplyText(MsgAdminUserAdded, int64(555)))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(testAdminID, "/admin users add 555"))

	allowed, err := store.IsUserAllowed(555)
	require.NoError(t, err)
	require.True(t, allowed)

	tg.On("Send", makeMessage(testAdminID, formatReplyText(MsgAdminUserRemoved, int64(555)))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(testAdminID, "/admin users remove 555"))

	allowed, err = store.IsUserAllowed(555)
	require.NoError(t, err)
	require.False(t, allowed)

	tg.AssertExpectations(t)
}

func TestAdminCommand_NonAdminSilentlyDropped(t *testing.T) {
	store := newTestStore(t)
	tg := new(botApiMock)
	bot := NewBot(tg, store, newTestSearchClient(t, emptySearchBody), testAdminID, 5)

	userId := int64(1234)
	require.NoError(t, store.AddAllowedUser(userId, testAdminID))

	// Allowed but not admin: the admin command produces no reply at all
	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(userId, "/admin users add 666"))

	allowed, err := store.IsUserAllowed(666)
	require.NoError(t, err)
	require.False(t, allowed)

	tg.AssertExpectations(t)
}

func TestAdminUsersCommand_InvalidID(t *testing.T) {
	store := newTestStore(t)
	tg := new(botApiMock)
	bot := NewBot(tg, store, newTestSearchClient(t, emptySearchBody), testAdminID, 5)

	tg.On("Send", makeMessage(testAdminID, formatReplyText(MsgAdminUserInvalidID))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.HandleUpdate(context.Background(), makeUpdateWithMessageText(testAdminID, "/admin users add notanumber"))

	tg.AssertExpectations(t)
}
