package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

// ValueAlert is one flagged edge: the model's probability for a market
// against the averaged bookmaker price.
type ValueAlert struct {
	HomeTeam    string
	AwayTeam    string
	Market      string
	Probability float64
	Odds        float64
	EV          float64
	KickOff     time.Time
}

// Notifier sends Telegram value-bet alerts through a buffered queue so a
// refit that flags a dozen edges at once never trips the bot API rate
// limit. A nil *Notifier is valid: alerts are silently dropped, so the
// system runs identically when Telegram is not configured.
type Notifier struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	interval time.Duration
	lastSend time.Time

	queue     chan ValueAlert
	queueDone chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a notifier and starts its background sender. interval is the
// minimum gap between any two messages.
func New(token string, chatID int64, interval time.Duration) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("failed to verify telegram bot: %w", err)
	}

	if interval <= 0 {
		interval = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		bot:       bot,
		chatID:    chatID,
		interval:  interval,
		queue:     make(chan ValueAlert, 100),
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	go n.sender()

	log.Info().Int64("chat_id", chatID).Dur("interval", interval).Msg("Telegram notifier initialized")
	return n, nil
}

// SendValueAlert queues an alert without blocking. A full queue drops the
// alert with a warning rather than stalling the caller.
func (n *Notifier) SendValueAlert(ctx context.Context, alert ValueAlert) error {
	if n == nil {
		return nil
	}

	select {
	case <-n.ctx.Done():
		return fmt.Errorf("notifier stopped")
	case <-ctx.Done():
		return ctx.Err()
	case n.queue <- alert:
		return nil
	default:
		log.Warn().
			Str("home", alert.HomeTeam).
			Str("away", alert.AwayTeam).
			Str("market", alert.Market).
			Msg("Telegram queue is full, dropping alert")
		return fmt.Errorf("message queue is full")
	}
}

// QueueLen returns the number of alerts waiting to send.
func (n *Notifier) QueueLen() int {
	if n == nil {
		return 0
	}
	return len(n.queue)
}

// Stop shuts the sender down after draining whatever is already queued.
// Safe on nil.
func (n *Notifier) Stop() {
	if n == nil {
		return
	}
	n.cancel()
	<-n.queueDone
}

// sender delivers queued alerts, spacing sends by the configured interval.
func (n *Notifier) sender() {
	for {
		select {
		case <-n.ctx.Done():
			// Drain remaining alerts before exit
			for {
				select {
				case alert := <-n.queue:
					n.send(alert)
				default:
					close(n.queueDone)
					return
				}
			}
		case alert := <-n.queue:
			n.send(alert)
		}
	}
}

func (n *Notifier) send(alert ValueAlert) {
	if elapsed := time.Since(n.lastSend); elapsed < n.interval {
		select {
		case <-n.ctx.Done():
			// Shutting down; deliver without the pause so the drain finishes.
		case <-time.After(n.interval - elapsed):
		}
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatValueAlert(alert))
	msg.ParseMode = tgbotapi.ModeMarkdown

	n.lastSend = time.Now()
	if _, err := n.bot.Send(msg); err != nil {
		log.Error().
			Err(err).
			Str("home", alert.HomeTeam).
			Str("away", alert.AwayTeam).
			Str("market", alert.Market).
			Msg("Telegram send failed")
		return
	}

	log.Info().
		Str("home", alert.HomeTeam).
		Str("away", alert.AwayTeam).
		Str("market", alert.Market).
		Float64("ev", alert.EV).
		Int("queue_length", len(n.queue)).
		Msg("Value alert sent")
}

// FormatValueAlert renders an alert as a Markdown Telegram message.
func FormatValueAlert(alert ValueAlert) string {
	var b strings.Builder

	b.WriteString("🚨 *Value Bet Alert*\n\n")
	b.WriteString(fmt.Sprintf("*%s vs %s*\n",
		escapeMarkdown(alert.HomeTeam), escapeMarkdown(alert.AwayTeam)))
	b.WriteString(fmt.Sprintf("⚽ Market: %s\n", MarketLabel(alert.Market)))
	b.WriteString(fmt.Sprintf("💰 Odds: %.2f | Model: %.1f%%\n", alert.Odds, alert.Probability*100))
	b.WriteString(fmt.Sprintf("📈 *EV: %+.2f%%*\n", alert.EV))
	if !alert.KickOff.IsZero() {
		b.WriteString(fmt.Sprintf("🕐 Kick-off: %s\n", alert.KickOff.Format("2006-01-02 15:04 UTC")))
	}
	return b.String()
}

// MarketLabel maps a market key to its display name.
func MarketLabel(market string) string {
	switch market {
	case poisson.MarketHome:
		return "Home win"
	case poisson.MarketDraw:
		return "Draw"
	case poisson.MarketAway:
		return "Away win"
	case poisson.MarketOver2p5:
		return "Over 2.5 goals"
	case poisson.MarketUnder2p5:
		return "Under 2.5 goals"
	default:
		return market
	}
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
