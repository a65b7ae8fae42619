// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram implements the parts of the Telegram Bot API the bot uses
// to reply.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go.astrophena.name/truckdoc/internal/request"
)

const (
	tgAPI = "https://api.telegram.org"
	// MaxMessageLength is the longest text, in runes, of one message.
	MaxMessageLength = 4096
)

// ErrNoToken is returned when the client has no bot token.
var ErrNoToken = errors.New("telegram: bot token is not set")

// Client sends requests to the Telegram Bot API.
type Client struct {
	Token string
	// HTTPClient is an optional HTTP client to use for requests. Defaults to
	// request.DefaultClient.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
}

// Button is an inline keyboard button that sends Data back as a callback
// query.
type Button struct {
	Text string
	Data string
}

// https://core.telegram.org/bots/api#sendmessage
type message struct {
	ChatID             int64  `json:"chat_id"`
	Text               string `json:"text"`
	ParseMode          string `json:"parse_mode,omitempty"`
	LinkPreviewOptions struct {
		IsDisabled bool `json:"is_disabled"`
	} `json:"link_preview_options"`
	ReplyMarkup *tgbotapi.InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendMessage sends Markdown text to a chat. Text longer than
// [MaxMessageLength] is sent as several messages.
//
// If Telegram can't parse the markup of a message, it is sent again as plain
// text.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitMessage(text) {
		msg := &message{
			ChatID:    chatID,
			Text:      chunk,
			ParseMode: tgbotapi.ModeMarkdown,
		}
		msg.LinkPreviewOptions.IsDisabled = true
		err := c.call(ctx, "sendMessage", msg)
		if isBadRequest(err) {
			msg.ParseMode = ""
			err = c.call(ctx, "sendMessage", msg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func isBadRequest(err error) bool {
	var se *request.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusBadRequest
}

// SendMenu sends text with buttons in a single row below it.
func (c *Client) SendMenu(ctx context.Context, chatID int64, text string, buttons []Button) error {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)

	msg := &message{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: &markup,
	}
	msg.LinkPreviewOptions.IsDisabled = true
	return c.call(ctx, "sendMessage", msg)
}

// AnswerCallback dismisses the loading state of a pressed inline button.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]string{
		"callback_query_id": callbackID,
	})
}

// SetWebhook tells Telegram to deliver updates to url.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	return c.call(ctx, "setWebhook", map[string]string{"url": url})
}

func (c *Client) call(ctx context.Context, method string, args any) error {
	if c.Token == "" {
		return ErrNoToken
	}
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method:     http.MethodPost,
		URL:        tgAPI + "/bot" + c.Token + "/" + method,
		Body:       args,
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
	return err
}

func splitMessage(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= MaxMessageLength {
		return []string{text}
	}

	var chunks []string
	for text != "" {
		if utf8.RuneCountInString(text) <= MaxMessageLength {
			chunks = append(chunks, text)
			break
		}

		var (
			lastNewline    = -1
			lastWhitespace = -1
			byteCap        = len(text)
			runeCount      int
		)

		for i, r := range text {
			if runeCount == MaxMessageLength {
				byteCap = i
				break
			}
			runeCount++

			if r == '\n' {
				lastNewline = i
				continue
			}
			if unicode.IsSpace(r) {
				lastWhitespace = i
			}
		}

		splitAt := byteCap
		switch {
		case lastNewline > 0:
			splitAt = lastNewline
		case lastWhitespace > 0:
			splitAt = lastWhitespace
		}

		chunk := strings.TrimSpace(text[:splitAt])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(text[splitAt:])
	}

	return chunks
}
