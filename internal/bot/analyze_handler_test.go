package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/itemtype"
	"github.com/valuehound/valuehound/internal/oracle"
	"github.com/valuehound/valuehound/internal/vision"
)

const analyzeSearchBody = `{
  "total": 2,
  "itemSummaries": [
    {
      "itemId": "v1|111|0",
      "title": "Rolex Submariner Date 126610LN Full Set",
      "itemWebUrl": "https://www.ebay.com/itm/111",
      "price": {"value": "8000.00", "currency": "USD"},
      "condition": "Pre-owned",
      "localizedAspects": [
        {"name": "Brand", "value": "Rolex"},
        {"name": "Model", "value": "Submariner"}
      ]
    },
    {
      "itemId": "v1|222|0",
      "title": "Rolex Submariner 126610LN Box and Papers",
      "itemWebUrl": "https://www.ebay.com/itm/222",
      "price": {"value": "12500.00", "currency": "USD"},
      "condition": "Pre-owned"
    }
  ]
}`

// newAnalyzeHandler builds a handler with a mock oracle quoting a fixed
// market price, so the first fixture listing is undervalued and the second
// overvalued.
func newAnalyzeHandler(t *testing.T, tg *botApiMock, identifier vision.Identifier) *AnalyzeHandler {
	t.Helper()
	market := 11000.0
	mockOracle := &oracle.Mock{
		WatchPriceFunc: func(ctx context.Context, brand, model, title string) (oracle.Quote, error) {
			return oracle.Quote{MarketPrice: &market, Source: "Watch Database"}, nil
		},
	}
	analyzer := arb.NewAnalyzer(arb.NewEvaluator(mockOracle, arb.Config{})).WithBatching(5, 0)
	return NewAnalyzeHandler(tg, identifier, newTestSearchClient(t, analyzeSearchBody), analyzer)
}

func TestHandleQuery_RepliesWithValuations(t *testing.T) {
	tg := new(botApiMock)
	handler := newAnalyzeHandler(t, tg, nil)
	session := &session{userId: int64(1), sender: tg}

	// Typing actions happen on a background loop
	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{}, nil).Maybe()

	tg.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		return strings.Contains(msg.Text, "2 listings analyzed") &&
			strings.Contains(msg.Text, "🟢 1 undervalued") &&
			strings.Contains(msg.Text, "market $11000") &&
			strings.Contains(msg.Text, "https://www.ebay.com/itm/111") &&
			msg.DisableWebPagePreview
	})).Return(tgbotapi.Message{}, nil).Once()

	handler.HandleQuery(context.Background(), session, "rolex submariner 126610")

	tg.AssertExpectations(t)
}

func TestHandleQuery_UndervaluedListedFirst(t *testing.T) {
	tg := new(botApiMock)
	handler := newAnalyzeHandler(t, tg, nil)
	session := &session{userId: int64(1), sender: tg}

	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{}, nil).Maybe()

	tg.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		// The $8000 listing beats market by ~25% and must come before the
		// overvalued $12500 one
		underIdx := strings.Index(msg.Text, "itm/111")
		overIdx := strings.Index(msg.Text, "itm/222")
		return underIdx >= 0 && overIdx >= 0 && underIdx < overIdx
	})).Return(tgbotapi.Message{}, nil).Once()

	handler.HandleQuery(context.Background(), session, "rolex submariner")

	tg.AssertExpectations(t)
}

func TestHandleQuery_NoResults(t *testing.T) {
	tg := new(botApiMock)
	analyzer := arb.NewAnalyzer(arb.NewEvaluator(&oracle.Mock{}, arb.Config{}))
	handler := NewAnalyzeHandler(tg, nil, newTestSearchClient(t, emptySearchBody), analyzer)
	session := &session{userId: int64(1), sender: tg}

	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{}, nil).Maybe()
	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgSearchNoResults, "rare watch xyz"))).
		Return(tgbotapi.Message{}, nil).Once()

	handler.HandleQuery(context.Background(), session, "rare watch xyz")

	tg.AssertExpectations(t)
}

func TestHandlePhoto_IdentifiesAndAnalyzes(t *testing.T) {
	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer fileServer.Close()

	identifier := &vision.Mock{
		IdentifyFunc: func(ctx context.Context, images [][]byte) (*vision.Result, error) {
			require.Equal(t, [][]byte{[]byte("jpeg-bytes")}, images)
			return &vision.Result{
				Item: &vision.Identification{
					ItemType:    itemtype.Watch,
					Brand:       "Rolex",
					Model:       "Submariner",
					SearchQuery: "rolex submariner 126610ln",
				},
			}, nil
		},
	}

	tg := new(botApiMock)
	handler := newAnalyzeHandler(t, tg, identifier)
	session := &session{userId: int64(1), sender: tg}

	tg.On("GetFileDirectURL", "photo-file-id").Return(fileServer.URL+"/photo.jpg", nil).Once()
	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{}, nil).Maybe()

	// First the identification confirmation, then the valuation reply
	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgIdentifiedWatch, "rolex submariner 126610ln"))).
		Return(tgbotapi.Message{}, nil).Once()
	tg.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		return strings.Contains(msg.Text, "2 listings analyzed")
	})).Return(tgbotapi.Message{}, nil).Once()

	message := &tgbotapi.Message{
		From:  &tgbotapi.User{ID: session.userId},
		Photo: []tgbotapi.PhotoSize{{FileID: "thumb-id"}, {FileID: "photo-file-id"}},
	}
	handler.HandlePhoto(context.Background(), session, message)

	tg.AssertExpectations(t)
}

func TestHandlePhoto_CardIdentification(t *testing.T) {
	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer fileServer.Close()

	identifier := &vision.Mock{
		IdentifyFunc: func(ctx context.Context, images [][]byte) (*vision.Result, error) {
			return &vision.Result{
				Item: &vision.Identification{
					ItemType: itemtype.Card,
					CardName: "Charizard",
					SetName:  "Base Set",
					Grade:    "PSA 9",
				},
			}, nil
		},
	}

	tg := new(botApiMock)
	handler := newAnalyzeHandler(t, tg, identifier)
	session := &session{userId: int64(1), sender: tg}

	tg.On("GetFileDirectURL", "photo-file-id").Return(fileServer.URL+"/photo.jpg", nil).Once()
	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{}, nil).Maybe()

	// No search_query from the model: falls back to name + set + grade
	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgIdentifiedCard, "Charizard Base Set PSA 9"))).
		Return(tgbotapi.Message{}, nil).Once()
	tg.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		return strings.Contains(msg.Text, "listings analyzed")
	})).Return(tgbotapi.Message{}, nil).Once()

	message := &tgbotapi.Message{
		From:  &tgbotapi.User{ID: session.userId},
		Photo: []tgbotapi.PhotoSize{{FileID: "photo-file-id"}},
	}
	handler.HandlePhoto(context.Background(), session, message)

	tg.AssertExpectations(t)
}

func TestHandlePhoto_IdentificationEmpty(t *testing.T) {
	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer fileServer.Close()

	identifier := &vision.Mock{
		IdentifyFunc: func(ctx context.Context, images [][]byte) (*vision.Result, error) {
			return &vision.Result{Item: &vision.Identification{}}, nil
		},
	}

	tg := new(botApiMock)
	handler := newAnalyzeHandler(t, tg, identifier)
	session := &session{userId: int64(1), sender: tg}

	tg.On("GetFileDirectURL", "photo-file-id").Return(fileServer.URL+"/photo.jpg", nil).Once()
	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{}, nil).Maybe()
	tg.On("Send", makeMessage(session.userId, formatReplyText(MsgIdentifyFailed))).
		Return(tgbotapi.Message{}, nil).Once()

	message := &tgbotapi.Message{
		From:  &tgbotapi.User{ID: session.userId},
		Photo: []tgbotapi.PhotoSize{{FileID: "photo-file-id"}},
	}
	handler.HandlePhoto(context.Background(), session, message)

	tg.AssertExpectations(t)
}

func TestFormatResult_UnknownStatus(t *testing.T) {
	r := arb.Result{
		Listing: arb.Listing{Title: "Some watch", Price: 100},
		Opportunity: arb.Opportunity{
			ValuationStatus: arb.StatusUnknown,
			RiskLevel:       arb.RiskMedium,
			Confidence:      arb.ConfidenceLow,
		},
	}

	out := formatResult(r)
	require.Contains(t, out, "❔")
	require.Contains(t, out, "Some watch")
	require.Contains(t, out, "risk medium")
	require.Contains(t, out, "confidence low")
	require.NotContains(t, out, "market $")
	require.NotContains(t, out, "spread")
}
