package reporter

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go-bosszp-automation/internal/config"
	"go-bosszp-automation/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

var ErrNotConfigured = errors.New("telegram token or chat id not set")

// defaultMaxJobs is how many matched postings follow the summary.
const defaultMaxJobs = 10

// Summary describes one finished search run.
type Summary struct {
	SessionID string
	Keywords  []string
	Criteria  models.UserCriteria
	LoggedIn  bool
	Jobs      int
	Details   int
	Matched   int
	// New counts matched postings not archived by an earlier run.
	New      int
	Duration time.Duration
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramReporter struct {
	bot     sender
	chatID  int64
	site    config.Site
	limiter *rate.Limiter
	maxJobs int
}

func NewTelegramReporter(cfg config.Telegram, site config.Site) (*TelegramReporter, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, ErrNotConfigured
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//bot.Debug = true

	// Telegram allows about one message per second in a chat
	return newReporter(bot, cfg.ChatID, site, rate.NewLimiter(rate.Every(time.Second), 1)), nil
}

func newReporter(bot sender, chatID int64, site config.Site, limiter *rate.Limiter) *TelegramReporter {
	return &TelegramReporter{
		bot:     bot,
		chatID:  chatID,
		site:    site,
		limiter: limiter,
		maxJobs: defaultMaxJobs,
	}
}

func (t *TelegramReporter) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

func (t *TelegramReporter) SendMessage(ctx context.Context, text string) error {
	return t.send(ctx, tgbotapi.NewMessage(t.chatID, text))
}

// Report sends the run summary followed by the first matched postings.
func (t *TelegramReporter) Report(ctx context.Context, s Summary, matched []models.JobDetailItem) error {
	if err := t.SendMessage(ctx, FormatSummary(s)); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	for i, detail := range matched {
		if i >= t.maxJobs {
			break
		}
		if err := t.SendJob(ctx, detail); err != nil {
			return fmt.Errorf("send job %s: %w", detail.JobInfo.EncryptID, err)
		}
	}
	return nil
}

func (t *TelegramReporter) SendJob(ctx context.Context, detail models.JobDetailItem) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatJob(detail))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 View Job", t.site.JobURL(detail.JobInfo.EncryptID)),
		),
	)
	return t.send(ctx, msg)
}

func (t *TelegramReporter) SendError(ctx context.Context, errReq error) error {
	return t.SendMessage(ctx, fmt.Sprintf("⚠️ <b>BOSS Search Error</b>:\n%s", html.EscapeString(errReq.Error())))
}

func FormatSummary(s Summary) string {
	login := "✅ logged in"
	if !s.LoggedIn {
		login = "⚠️ guest"
	}
	return fmt.Sprintf(
		"📊 <b>BOSS直聘 search finished</b>\n"+
			"🔑 %s\n"+
			"🎓 %s | 💰 %s | 🧑‍💻 %s\n"+
			"📄 %d jobs, %d details, <b>%d matched</b> (%d new)\n"+
			"⏱️ %s | %s\n"+
			"🆔 <code>%s</code>",
		html.EscapeString(strings.Join(s.Keywords, ", ")),
		html.EscapeString(s.Criteria.Degree),
		html.EscapeString(s.Criteria.Salary),
		html.EscapeString(s.Criteria.Experience),
		s.Jobs, s.Details, s.Matched, s.New,
		s.Duration.Round(time.Second), login,
		s.SessionID,
	)
}

func FormatJob(detail models.JobDetailItem) string {
	info := detail.JobInfo
	text := fmt.Sprintf("🔥 <b>%s</b>\n🏢 %s\n💰 %s\n",
		html.EscapeString(info.JobName),
		html.EscapeString(detail.BrandComInfo.BrandName),
		html.EscapeString(info.SalaryDesc),
	)
	if info.LocationName != "" {
		text += fmt.Sprintf("📍 %s\n", html.EscapeString(info.LocationName))
	}
	if info.DegreeName != "" || info.ExperienceName != "" {
		text += fmt.Sprintf("🎓 %s %s\n", html.EscapeString(info.DegreeName), html.EscapeString(info.ExperienceName))
	}
	if len(info.ShowSkills) > 0 {
		text += fmt.Sprintf("🛠 %s\n", html.EscapeString(strings.Join(info.ShowSkills, ", ")))
	}
	return strings.TrimRight(text, "\n")
}
