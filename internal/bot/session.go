// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"go.astrophena.name/truckdoc/internal/advisory"
	"go.astrophena.name/truckdoc/internal/fleet"
	"go.astrophena.name/truckdoc/internal/format"
	"go.astrophena.name/truckdoc/internal/i18n"
	"go.astrophena.name/truckdoc/internal/metrics"
	"go.astrophena.name/truckdoc/internal/telegram"
)

// Chat states.
const (
	StateAwaitingLanguage = "awaiting-language"
	StateReady            = "ready"
)

const (
	eventStart          = "start"
	eventSelectLanguage = "select-language"
	eventLookup         = "lookup"
)

const languageDataPrefix = "lang:"

// prefs is what is remembered about a chat.
type prefs struct {
	Lang  i18n.Tag `json:"lang,omitempty"`
	State string   `json:"state,omitempty"`
}

// session handles one update for one chat.
type session struct {
	b      *Bot
	log    *zap.Logger
	chatID int64
	prefs  prefs
	fsm    *fsm.FSM
	err    error
}

func prefsKey(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) session(ctx context.Context, log *zap.Logger, chatID int64) *session {
	s := &session{b: b, log: log, chatID: chatID}
	s.prefs = s.load(ctx)

	startDst := StateReady
	if b.LanguageMenu {
		startDst = StateAwaitingLanguage
	}
	both := []string{StateAwaitingLanguage, StateReady}

	s.fsm = fsm.NewFSM(
		s.prefs.State,
		fsm.Events{
			{Name: eventStart, Src: both, Dst: startDst},
			{Name: eventSelectLanguage, Src: both, Dst: StateReady},
			{Name: eventLookup, Src: []string{StateReady}, Dst: StateReady},
			{Name: eventLookup, Src: []string{StateAwaitingLanguage}, Dst: StateAwaitingLanguage},
		},
		fsm.Callbacks{
			"after_" + eventStart:          s.wrap(s.onStart),
			"after_" + eventSelectLanguage: s.wrap(s.onSelectLanguage),
			"after_" + eventLookup:         s.wrap(s.onLookup),
		},
	)
	return s
}

// wrap adapts fn to a callback. The error is kept in the session because
// self-transitions report it wrapped in fsm.NoTransitionError.
func (s *session) wrap(fn func(ctx context.Context, e *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		if err := fn(ctx, e); err != nil {
			s.err = err
		}
	}
}

// fire triggers event and saves the chat preferences if they changed.
func (s *session) fire(ctx context.Context, event string, args ...any) error {
	before := s.prefs
	err := s.fsm.Event(ctx, event, args...)
	if isRealError(err) {
		return fmt.Errorf("%s event: %w", event, err)
	}
	s.prefs.State = s.fsm.Current()
	if s.prefs != before {
		s.save(ctx)
	}
	return s.err
}

func isRealError(err error) bool {
	if err == nil {
		return false
	}
	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError
	return !errors.As(err, &noTransition) && !errors.As(err, &canceled)
}

func (s *session) onStart(ctx context.Context, e *fsm.Event) error {
	msgs := s.messages()
	if e.Dst != StateAwaitingLanguage {
		s.send(ctx, msgs.Greeting)
		return nil
	}
	buttons := make([]telegram.Button, 0, len(i18n.Tags))
	for _, tag := range i18n.Tags {
		buttons = append(buttons, telegram.Button{
			Text: i18n.For(tag).LanguageName,
			Data: languageDataPrefix + string(tag),
		})
	}
	if err := s.b.Messenger.SendMenu(ctx, s.chatID, msgs.ChooseLanguage, buttons); err != nil {
		s.log.Warn("sending language menu failed", zap.Error(err))
	}
	return nil
}

func (s *session) onSelectLanguage(ctx context.Context, e *fsm.Event) error {
	s.prefs.Lang = e.Args[0].(i18n.Tag)
	s.log.Info("language selected", zap.String("lang", string(s.prefs.Lang)))
	s.send(ctx, s.messages().LanguageSet)
	return nil
}

func (s *session) onLookup(ctx context.Context, e *fsm.Event) error {
	query := e.Args[0].(string)
	msgs := s.messages()
	log := s.log.With(zap.String("query", query))

	s.send(ctx, fmt.Sprintf(msgs.Searchingf, format.Code(query)))

	v, ok, err := s.b.Fleet.FindVehicle(ctx, query)
	if err != nil {
		s.fail(ctx, log, err)
		return nil
	}
	if !ok {
		metrics.RecordLookup("not_found")
		log.Info("vehicle not found")
		s.send(ctx, fmt.Sprintf(msgs.NotFoundf, format.Code(query)))
		return nil
	}
	log = log.With(zap.String("vehicle_id", v.ID))

	faults, err := s.b.Fleet.Faults(ctx, v.ID)
	if err != nil {
		s.fail(ctx, log, err)
		return nil
	}
	metrics.RecordLookup("found")
	metrics.RecordFaults(len(faults.Records))
	log.Info("vehicle found", zap.Int("faults", len(faults.Records)))

	var advice string
	if s.b.Advisor != nil {
		advice = s.b.Advisor.Summarize(ctx, advisory.Request{
			Vehicle: v,
			Label:   query,
			Faults:  faults.Records,
			Lang:    s.lang(),
		})
	}

	s.send(ctx, format.Reply(msgs, query, v, faults, advice))
	return nil
}

func (s *session) fail(ctx context.Context, log *zap.Logger, err error) {
	msgs := s.messages()
	var ue *fleet.UpstreamError
	if errors.As(err, &ue) {
		metrics.RecordLookup("upstream_error")
		log.Error("fleet provider request failed",
			zap.String("op", ue.Op),
			zap.Int("status", ue.StatusCode),
			zap.String("body", ue.Body),
		)
		s.send(ctx, msgs.UpstreamFailed)
		return
	}
	metrics.RecordLookup("error")
	log.Error("lookup failed", zap.Error(err))
	s.send(ctx, msgs.Failed)
}

// send delivers text to the chat. Delivery failures are only logged.
func (s *session) send(ctx context.Context, text string) {
	if err := s.b.Messenger.SendMessage(ctx, s.chatID, text); err != nil {
		s.log.Warn("sending message failed", zap.Error(err))
	}
}

func (s *session) lang() i18n.Tag {
	if tag, ok := i18n.Parse(string(s.prefs.Lang)); ok {
		return tag
	}
	return i18n.Default
}

func (s *session) messages() i18n.Messages { return i18n.For(s.lang()) }

func (s *session) load(ctx context.Context) prefs {
	p := prefs{State: StateReady}
	if s.b.Store == nil {
		return p
	}
	b, err := s.b.Store.Get(ctx, prefsKey(s.chatID))
	if err != nil {
		s.log.Warn("loading chat preferences failed", zap.Error(err))
		return p
	}
	if b == nil {
		return p
	}
	if err := json.Unmarshal(b, &p); err != nil {
		s.log.Warn("decoding chat preferences failed", zap.Error(err))
		return prefs{State: StateReady}
	}
	if p.State != StateAwaitingLanguage {
		p.State = StateReady
	}
	return p
}

func (s *session) save(ctx context.Context) {
	if s.b.Store == nil {
		return
	}
	b, err := json.Marshal(s.prefs)
	if err != nil {
		s.log.Warn("encoding chat preferences failed", zap.Error(err))
		return
	}
	if err := s.b.Store.Set(ctx, prefsKey(s.chatID), b); err != nil {
		s.log.Warn("saving chat preferences failed", zap.Error(err))
	}
}

func parseLanguageData(data string) (i18n.Tag, bool) {
	rest, ok := strings.CutPrefix(data, languageDataPrefix)
	if !ok {
		return "", false
	}
	return i18n.Parse(rest)
}
