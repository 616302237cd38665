package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
)

// fileClient is shared by all photo downloads from Telegram's file CDN.
var fileClient = resty.New().SetTimeout(30 * time.Second)

// fetchPhoto resolves a Telegram file ID to its direct URL and downloads
// the image bytes.
func fetchPhoto(ctx context.Context, directURL func(fileID string) (string, error), fileID string) ([]byte, error) {
	url, err := directURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolving file %s: %w", fileID, err)
	}

	res, err := fileClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("photo download failed with status %d", res.StatusCode())
	}

	log.Debug().Str("fileID", fileID).Int("bytes", len(res.Body())).Msg("downloaded photo")
	return res.Body(), nil
}

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Split(s, " ")
	return parts[0], parts[1:]
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}

// truncate shortens s to at most n runes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
