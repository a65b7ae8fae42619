// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package bot dispatches Telegram updates: it answers commands, handles
// language selection and looks up trucks.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"go.astrophena.name/truckdoc/internal/advisory"
	"go.astrophena.name/truckdoc/internal/fleet"
	"go.astrophena.name/truckdoc/internal/metrics"
	"go.astrophena.name/truckdoc/internal/store"
	"go.astrophena.name/truckdoc/internal/telegram"
	"go.astrophena.name/truckdoc/internal/telemetry"
)

// Messenger sends replies to chats.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMenu(ctx context.Context, chatID int64, text string, buttons []telegram.Button) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Fleet looks up vehicles and their faults.
type Fleet interface {
	FindVehicle(ctx context.Context, text string) (fleet.Vehicle, bool, error)
	Faults(ctx context.Context, vehicleID string) (fleet.Faults, error)
}

// Advisor explains faults in plain language.
type Advisor interface {
	Summarize(ctx context.Context, r advisory.Request) string
}

var (
	_ Messenger = (*telegram.Client)(nil)
	_ Fleet     = (*fleet.Resolver)(nil)
	_ Advisor   = (*advisory.Chain)(nil)
)

// Bot handles Telegram updates. It has no per-update state; language
// preferences are kept in Store.
type Bot struct {
	Messenger Messenger
	Fleet     Fleet
	// Advisor is optional.
	Advisor Advisor
	Store   store.Store
	Logger  *zap.Logger
	// LanguageMenu makes /start offer a reply language choice instead of
	// greeting.
	LanguageMenu bool
}

// Update kinds used in logs and metrics.
const (
	kindMessage  = "message"
	kindCommand  = "command"
	kindCallback = "callback"
	kindIgnored  = "ignored"
)

// HandleUpdate processes a single update. Errors that the user should know
// about are reported to the chat; the returned error is only for logging.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) error {
	requestID := uuid.New().String()
	kind := classify(u)
	metrics.RecordUpdate(kind)

	ctx, span := telemetry.StartUpdateSpan(ctx, requestID, kind)
	log := b.logger().With(
		zap.String("request_id", requestID),
		zap.Int("update_id", u.UpdateID),
		zap.String("kind", kind),
	)

	var err error
	switch kind {
	case kindCallback:
		err = b.handleCallback(ctx, log, u.CallbackQuery)
	case kindMessage, kindCommand:
		msg := message(u)
		err = b.handleMessage(ctx, log, msg.Chat.ID, msg.Text)
	default:
		log.Debug("ignoring update")
	}
	telemetry.End(span, err)
	return err
}

func (b *Bot) handleMessage(ctx context.Context, log *zap.Logger, chatID int64, text string) error {
	log = log.With(zap.Int64("chat_id", chatID))
	s := b.session(ctx, log, chatID)

	text = strings.TrimSpace(text)
	switch {
	case text == "":
		s.send(ctx, s.messages().EmptyQuery)
		return nil
	case isStart(text):
		return s.fire(ctx, eventStart)
	default:
		return s.fire(ctx, eventLookup, text)
	}
}

func (b *Bot) handleCallback(ctx context.Context, log *zap.Logger, cq *tgbotapi.CallbackQuery) error {
	log = log.With(zap.String("callback_id", cq.ID), zap.String("data", cq.Data))
	if err := b.Messenger.AnswerCallback(ctx, cq.ID); err != nil {
		log.Warn("answering callback failed", zap.Error(err))
	}

	tag, ok := parseLanguageData(cq.Data)
	if !ok {
		log.Debug("unknown callback data")
		return nil
	}
	if cq.Message == nil || cq.Message.Chat == nil {
		log.Debug("callback without message")
		return nil
	}

	chatID := cq.Message.Chat.ID
	s := b.session(ctx, log.With(zap.Int64("chat_id", chatID)), chatID)
	return s.fire(ctx, eventSelectLanguage, tag)
}

func (b *Bot) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func classify(u tgbotapi.Update) string {
	if u.CallbackQuery != nil {
		return kindCallback
	}
	msg := message(u)
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return kindIgnored
	}
	if isStart(strings.TrimSpace(msg.Text)) {
		return kindCommand
	}
	return kindMessage
}

func message(u tgbotapi.Update) *tgbotapi.Message {
	if u.Message != nil {
		return u.Message
	}
	return u.EditedMessage
}

// isStart reports whether text is the /start command, possibly addressed to
// a bot by username.
func isStart(text string) bool {
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == "/start"
}
