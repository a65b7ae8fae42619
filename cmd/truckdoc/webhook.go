// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"go.astrophena.name/truckdoc/internal/metrics"
	"go.astrophena.name/truckdoc/internal/web"
)

var errNoHost = errors.New("host hasn't set; pass it with HOST environment variable")

func (e *engine) setWebhook(ctx context.Context) error {
	if e.host == "" {
		return errNoHost
	}
	u := &url.URL{
		Scheme: "https",
		Host:   e.host,
		Path:   "/telegram",
	}
	return e.tg.SetWebhook(ctx, u.String())
}

type webhookResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

const maxUpdateSize = 1 << 20

func (e *engine) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		web.RespondJSON(w, webhookResponse{OK: true, Message: "Bot is running."})
		return
	}

	// Don't respond with an error because Telegram will start retrying the
	// update. Users learn about failures from chat messages.
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("panic while handling update", zap.Any("panic", rec), zap.Stack("stack"))
		}
		web.RespondJSON(w, webhookResponse{OK: true})
	}()

	var u tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateSize)).Decode(&u); err != nil {
		metrics.RecordUpdate("malformed")
		e.logger.Warn("decoding update failed", zap.Error(err))
		return
	}

	if err := e.bot.HandleUpdate(r.Context(), u); err != nil {
		e.logger.Error("handling update failed", zap.Int("update_id", u.UpdateID), zap.Error(err))
	}
}
