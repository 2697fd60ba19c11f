package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apidomain "github.com/cuongbtq/editor-bot/internal/api/domain"
	"github.com/cuongbtq/editor-bot/internal/provider"
	"github.com/cuongbtq/editor-bot/shared/telegram"
)

func (b *Bot) handleAdminCommand(ctx context.Context, msg *telegram.Message, cmd string) {
	if !b.IsAdmin(msg.From.ID) {
		b.logger.Warn("Rejected admin command",
			slog.Int64("user_id", msg.From.ID),
			slog.String("command", cmd),
		)
		b.reply(ctx, msg, msgAccessDenied)
		return
	}

	switch cmd {
	case "/settings":
		b.showSettings(ctx, msg)
	case "/set_setting":
		b.setSetting(ctx, msg)
	case "/stats":
		b.stats(ctx, msg)
	case "/queue":
		b.queueStatus(ctx, msg)
	case "/force_provider":
		b.forceProvider(ctx, msg)
	case "/reload_keys":
		b.reloadKeys(ctx, msg)
	}
}

func (b *Bot) showSettings(ctx context.Context, msg *telegram.Message) {
	lines := []string{msgSettingsHeader}
	for _, kv := range b.settings.All(ctx) {
		lines = append(lines, fmt.Sprintf("%s = %s", kv.Key, kv.Value))
	}
	b.reply(ctx, msg, strings.Join(lines, "\n"))
}

func (b *Bot) setSetting(ctx context.Context, msg *telegram.Message) {
	key, value, ok := strings.Cut(msg.CommandArgs(), " ")
	if !ok || strings.TrimSpace(value) == "" {
		b.reply(ctx, msg, msgSetSettingUsage)
		return
	}

	stored, err := b.settings.Set(ctx, key, value)
	if err != nil {
		b.reply(ctx, msg, "⛔ "+settingErrorText(err))
		return
	}
	b.reply(ctx, msg, fmt.Sprintf(msgSettingSavedFmt, key, stored))
}

func settingErrorText(err error) string {
	switch {
	case errors.Is(err, apidomain.ErrUnknownSetting):
		return "This key cannot be changed from the bot."
	case errors.Is(err, apidomain.ErrInvalidSettingValue):
		return err.Error()
	}
	return "The setting could not be saved."
}

func (b *Bot) stats(ctx context.Context, msg *telegram.Message) {
	users, err := b.users.CountUsers(ctx)
	if err != nil {
		b.adminQueryFailed(ctx, msg, err)
		return
	}
	s, err := b.jobs.Stats(ctx)
	if err != nil {
		b.adminQueryFailed(ctx, msg, err)
		return
	}

	b.reply(ctx, msg, fmt.Sprintf(msgStatsFmt,
		users,
		s.Total,
		s.ByStatus[apidomain.JobStatusPending],
		s.ByStatus[apidomain.JobStatusProcessing],
		s.ByStatus[apidomain.JobStatusDone],
		s.ByStatus[apidomain.JobStatusError],
		s.Failovers,
	))
}

func (b *Bot) queueStatus(ctx context.Context, msg *telegram.Message) {
	var processing int64
	if s, err := b.jobs.Stats(ctx); err == nil {
		processing = s.ByStatus[apidomain.JobStatusProcessing]
	} else {
		b.logger.Warn("Failed to read job stats", slog.String("error", err.Error()))
	}
	b.reply(ctx, msg, fmt.Sprintf(msgQueueStatusFmt, b.queue.QueueLen(), processing, b.queue.Concurrency()))
}

func (b *Bot) forceProvider(ctx context.Context, msg *telegram.Message) {
	name := strings.ToLower(msg.CommandArgs())
	if !provider.Valid(name) {
		b.reply(ctx, msg, msgForceProviderUsage)
		return
	}
	if _, err := b.settings.Set(ctx, apidomain.SettingDefaultProvider, name); err != nil {
		b.adminQueryFailed(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, fmt.Sprintf(msgForceProviderFmt, name))
}

func (b *Bot) reloadKeys(ctx context.Context, msg *telegram.Message) {
	counts := b.keys.ReloadKeys()
	b.logger.Info("Provider keys reloaded",
		slog.Int("openai", counts[provider.OpenAI]),
		slog.Int("gemini", counts[provider.Gemini]),
	)
	b.reply(ctx, msg, fmt.Sprintf(msgKeysFmt, counts[provider.OpenAI], counts[provider.Gemini]))
}

func (b *Bot) adminQueryFailed(ctx context.Context, msg *telegram.Message, err error) {
	b.logger.Error("Admin command failed", slog.String("error", err.Error()))
	b.reply(ctx, msg, msgInternalError)
}
