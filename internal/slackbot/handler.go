// Package slackbot adapts the Slack Events API to the message router.
//
// Only app_mention events are acted on. Each mention is acknowledged at once
// and routed in the background; the reply is posted back to the channel,
// threaded under the mention when the mention itself was in a thread.
package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/aceteam-ai/skillcraft/internal/dedupe"
	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"
)

const (
	// maxBodyBytes caps the size of an inbound event payload.
	maxBodyBytes = 1 << 20

	apologyText     = "Lo siento, no pude procesar tu mensaje. Inténtalo de nuevo más tarde."
	rateLimitedText = "Estás enviando mensajes muy rápido; espera un momento e inténtalo de nuevo."
)

// Router answers a single free-text message.
type Router interface {
	Route(ctx context.Context, message string) (string, error)
}

// Poster posts a message to a channel. *slack.Client satisfies it.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Limiter decides whether a user may send another message.
type Limiter interface {
	Allow(key string) bool
}

// Config wires a Handler.
type Config struct {
	SigningSecret string
	Router        Router
	Poster        Poster
	Dedupe        dedupe.Store
	Limiter       Limiter
	Logger        *zap.Logger
}

// Handler serves POST /slack/events.
type Handler struct {
	signingSecret string
	router        Router
	poster        Poster
	dedupe        dedupe.Store
	limiter       Limiter
	logger        *zap.Logger

	// dispatch runs mention processing; tests replace it to run inline.
	dispatch func(func())
	inflight sync.WaitGroup
}

// NewHandler builds a Handler. A nil Dedupe uses an in-memory store.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		signingSecret: cfg.SigningSecret,
		router:        cfg.Router,
		poster:        cfg.Poster,
		dedupe:        cfg.Dedupe,
		limiter:       cfg.Limiter,
		logger:        cfg.Logger,
	}
	if h.dedupe == nil {
		h.dedupe = dedupe.NewMemoryStore(dedupe.DefaultTTL)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	h.dispatch = func(f func()) {
		h.inflight.Add(1)
		go func() {
			defer h.inflight.Done()
			f()
		}()
	}
	return h
}

// Wait blocks until every dispatched mention has been answered.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.verify(r.Header, body); err != nil {
		h.logger.Warn("rejected slack request", zap.Error(err))
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "Invalid event payload", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "Invalid challenge", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(challenge.Challenge))

	case slackevents.CallbackEvent:
		var eventID string
		if cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent); ok {
			eventID = cb.EventID
		}

		mention, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent)
		if !ok || mention.BotID != "" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if eventID != "" {
			seen, err := h.dedupe.Seen(r.Context(), eventID)
			if err != nil {
				// Better to answer twice than not at all.
				h.logger.Warn("event dedupe failed", zap.String("event_id", eventID), zap.Error(err))
			} else if seen {
				h.logger.Debug("dropping redelivered event", zap.String("event_id", eventID))
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		ctx := context.WithoutCancel(r.Context())
		m := *mention
		h.dispatch(func() { h.handleMention(ctx, eventID, &m) })
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handler) verify(header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

func (h *Handler) handleMention(ctx context.Context, eventID string, ev *slackevents.AppMentionEvent) {
	logger := h.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("event_id", eventID),
		zap.String("user", ev.User),
		zap.String("channel", ev.Channel),
	)

	var reply string
	if h.limiter != nil && !h.limiter.Allow(ev.User) {
		logger.Info("user rate limited")
		reply = rateLimitedText
	} else {
		out, err := h.router.Route(ctx, ev.Text)
		if err != nil {
			logger.Error("routing failed", zap.Error(err))
			reply = apologyText
		} else {
			reply = out
		}
	}

	opts := []slack.MsgOption{slack.MsgOptionText(reply, false)}
	if ev.ThreadTimeStamp != "" {
		opts = append(opts, slack.MsgOptionTS(ev.ThreadTimeStamp))
	}
	if _, _, err := h.poster.PostMessageContext(ctx, ev.Channel, opts...); err != nil {
		logger.Error("failed to post reply", zap.Error(err))
		return
	}
	logger.Info("replied to mention", zap.Int("chars", len(reply)))
}
