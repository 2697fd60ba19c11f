package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/cuongbtq/editor-bot/shared/telegram"
)

func (b *Bot) help(ctx context.Context, msg *telegram.Message) {
	langs := strings.Join(b.settings.AllowedLanguages(ctx), ", ")
	b.reply(ctx, msg, fmt.Sprintf(msgHelpFmt,
		langs,
		b.settings.DefaultProvider(ctx),
		b.settings.MaxWords(ctx),
		b.settings.RateLimitSeconds(ctx),
	))
}

// instructions saves the command argument directly, or waits for the next
// message. "/instructions clear" restores the default instruction.
func (b *Bot) instructions(ctx context.Context, msg *telegram.Message) {
	switch arg := msg.CommandArgs(); {
	case arg == "":
		b.setState(msg.From.ID, stateAwaitingInstruction)
		b.reply(ctx, msg, msgAskInstruction)
	case strings.EqualFold(arg, "clear"):
		if err := b.users.SetInstructions(ctx, msg.From.ID, nil); err != nil {
			b.userUpdateFailed(ctx, msg, "instructions", err)
			return
		}
		b.reply(ctx, msg, msgInstructionCleared)
	default:
		b.storeInstruction(ctx, msg, arg)
	}
}

func (b *Bot) saveInstruction(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.setState(msg.From.ID, stateAwaitingInstruction)
		b.reply(ctx, msg, msgAskInstruction)
		return
	}
	b.storeInstruction(ctx, msg, text)
}

func (b *Bot) storeInstruction(ctx context.Context, msg *telegram.Message, text string) {
	if err := b.users.SetInstructions(ctx, msg.From.ID, &text); err != nil {
		b.userUpdateFailed(ctx, msg, "instructions", err)
		return
	}
	b.reply(ctx, msg, msgInstructionSaved)
}

func (b *Bot) language(ctx context.Context, msg *telegram.Message) {
	if arg := strings.ToLower(msg.CommandArgs()); arg != "" {
		b.storeLanguage(ctx, msg, arg)
		return
	}
	b.setState(msg.From.ID, stateAwaitingLanguage)
	b.reply(ctx, msg, fmt.Sprintf(msgAskLanguageFmt, strings.Join(b.settings.AllowedLanguages(ctx), ", ")))
}

func (b *Bot) saveLanguage(ctx context.Context, msg *telegram.Message) {
	b.storeLanguage(ctx, msg, strings.ToLower(strings.TrimSpace(msg.Text)))
}

func (b *Bot) storeLanguage(ctx context.Context, msg *telegram.Message, lang string) {
	if !slices.Contains(b.settings.AllowedLanguages(ctx), lang) {
		b.setState(msg.From.ID, stateAwaitingLanguage)
		b.reply(ctx, msg, msgInvalidLanguage)
		return
	}
	if err := b.users.SetLanguage(ctx, msg.From.ID, lang); err != nil {
		b.userUpdateFailed(ctx, msg, "language", err)
		return
	}
	b.reply(ctx, msg, fmt.Sprintf(msgLanguageSavedFmt, lang))
}

func (b *Bot) setProvider(ctx context.Context, msg *telegram.Message, name, label string) {
	if err := b.users.SetProvider(ctx, msg.From.ID, &name); err != nil {
		b.userUpdateFailed(ctx, msg, "provider", err)
		return
	}
	b.reply(ctx, msg, fmt.Sprintf(msgProviderSavedFmt, label))
}

func (b *Bot) userUpdateFailed(ctx context.Context, msg *telegram.Message, field string, err error) {
	b.logger.Error("Failed to update user preference",
		slog.Int64("user_id", msg.From.ID),
		slog.String("field", field),
		slog.String("error", err.Error()),
	)
	b.reply(ctx, msg, msgInternalError)
}
