package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	apidomain "github.com/cuongbtq/editor-bot/internal/api/domain"
	"github.com/cuongbtq/editor-bot/internal/intake"
	"github.com/cuongbtq/editor-bot/internal/settings"
	"github.com/cuongbtq/editor-bot/internal/worker/domain"
	"github.com/cuongbtq/editor-bot/internal/worker/storage"
	"github.com/cuongbtq/editor-bot/shared/telegram"
)

// Sender sends chat messages
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// FileFetcher downloads uploaded documents
type FileFetcher interface {
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFile(ctx context.Context, filePath string, limit int64) ([]byte, error)
}

// UserStore persists per-user preferences
type UserStore interface {
	UpsertUser(ctx context.Context, id int64, fullName, username string) error
	GetUser(ctx context.Context, id int64) (*apidomain.User, error)
	SetInstructions(ctx context.Context, id int64, instructions *string) error
	SetLanguage(ctx context.Context, id int64, language string) error
	SetProvider(ctx context.Context, id int64, provider *string) error
	CountUsers(ctx context.Context) (int64, error)
}

// SettingsService reads and writes runtime settings
type SettingsService interface {
	All(ctx context.Context) []settings.KeyValue
	Set(ctx context.Context, key, value string) (string, error)
	RateLimitSeconds(ctx context.Context) int
	MaxWords(ctx context.Context) int
	AllowedLanguages(ctx context.Context) []string
	DefaultProvider(ctx context.Context) string
}

// Submitter hands text to the queue
type Submitter interface {
	Submit(ctx context.Context, req intake.Request) (*intake.Receipt, error)
}

// QueueInspector reports in-memory queue state
type QueueInspector interface {
	QueueLen() int
	Concurrency() int
}

// JobStats reports persisted job counts
type JobStats interface {
	Stats(ctx context.Context) (*storage.Stats, error)
}

// KeyReloader re-reads provider credentials
type KeyReloader interface {
	ReloadKeys() map[string]int
}

// Config holds bot dependencies
type Config struct {
	Logger   *slog.Logger
	Sender   Sender
	Files    FileFetcher
	Users    UserStore
	Settings SettingsService
	Intake   Submitter
	Queue    QueueInspector
	Jobs     JobStats
	Keys     KeyReloader
	AdminIDs []int64
}

type convState int

const (
	stateIdle convState = iota
	stateAwaitingInstruction
	stateAwaitingLanguage
)

// Bot routes chat updates to command handlers and the intake service
type Bot struct {
	logger   *slog.Logger
	sender   Sender
	files    FileFetcher
	users    UserStore
	settings SettingsService
	intake   Submitter
	queue    QueueInspector
	jobs     JobStats
	keys     KeyReloader
	admins   map[int64]bool

	mu     sync.Mutex
	states map[int64]convState
}

// New creates a new bot
func New(cfg *Config) *Bot {
	admins := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}

	return &Bot{
		logger:   cfg.Logger,
		sender:   cfg.Sender,
		files:    cfg.Files,
		users:    cfg.Users,
		settings: cfg.Settings,
		intake:   cfg.Intake,
		queue:    cfg.Queue,
		jobs:     cfg.Jobs,
		keys:     cfg.Keys,
		admins:   admins,
		states:   make(map[int64]convState),
	}
}

// IsAdmin reports whether userID is on the admin allow-list
func (b *Bot) IsAdmin(userID int64) bool {
	return b.admins[userID]
}

// HandleUpdate processes one update. Errors are reported to the chat and logged.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}

	if err := b.users.UpsertUser(ctx, msg.From.ID, msg.From.FullName(), msg.From.Username); err != nil {
		b.logger.Error("Failed to upsert user",
			slog.Int64("user_id", msg.From.ID),
			slog.String("error", err.Error()),
		)
	}

	if cmd := msg.Command(); cmd != "" {
		b.setState(msg.From.ID, stateIdle)
		b.handleCommand(ctx, msg, cmd)
		return
	}

	switch b.takeState(msg.From.ID) {
	case stateAwaitingInstruction:
		b.saveInstruction(ctx, msg)
		return
	case stateAwaitingLanguage:
		b.saveLanguage(ctx, msg)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}
	if msg.Text != "" {
		b.submit(ctx, msg, msg.Text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message, cmd string) {
	switch strings.ToLower(cmd) {
	case "/start":
		b.reply(ctx, msg, msgWelcome)
	case "/help":
		b.help(ctx, msg)
	case "/send_text":
		b.reply(ctx, msg, msgSendText)
	case "/instructions":
		b.instructions(ctx, msg)
	case "/language":
		b.language(ctx, msg)
	case "/openai":
		b.setProvider(ctx, msg, "openai", "OpenAI")
	case "/gemini":
		b.setProvider(ctx, msg, "gemini", "Gemini")
	case "/settings", "/set_setting", "/stats", "/queue", "/force_provider", "/reload_keys":
		b.handleAdminCommand(ctx, msg, strings.ToLower(cmd))
	default:
		b.reply(ctx, msg, msgUnknownCommand)
	}
}

func (b *Bot) setState(userID int64, s convState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == stateIdle {
		delete(b.states, userID)
		return
	}
	b.states[userID] = s
}

// takeState returns and clears the pending conversation state
func (b *Bot) takeState(userID int64) convState {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.states[userID]
	delete(b.states, userID)
	return s
}

func (b *Bot) submit(ctx context.Context, msg *telegram.Message, text string) {
	receipt, err := b.intake.Submit(ctx, intake.Request{
		UserID: msg.From.ID,
		ChatID: msg.Chat.ID,
		Text:   text,
	})
	if err != nil {
		b.reply(ctx, msg, b.submitErrorMessage(err))
		return
	}

	if receipt.LanguageMismatch {
		b.reply(ctx, msg, fmt.Sprintf(msgLanguageMismatch, receipt.DetectedLanguage, receipt.PreferredLanguage))
	}
	b.reply(ctx, msg, fmt.Sprintf(msgQueuedFmt, receipt.Position))
}

func (b *Bot) submitErrorMessage(err error) string {
	var tooMany *intake.TooManyWordsError
	var rateLimited *intake.RateLimitError

	switch {
	case errors.Is(err, intake.ErrEmptyText):
		return msgEmptyText
	case errors.As(err, &tooMany):
		return fmt.Sprintf(msgTooManyWordsFmt, tooMany.Max)
	case errors.As(err, &rateLimited):
		return fmt.Sprintf(msgRateLimitedFmt, int(rateLimited.Interval.Seconds()), rateLimited.WaitSeconds())
	case errors.Is(err, domain.ErrQueueFull), errors.Is(err, domain.ErrPoolStopped):
		return msgQueueFull
	}

	b.logger.Error("Failed to submit text", slog.String("error", err.Error()))
	return msgSubmitFailed
}

func (b *Bot) handleDocument(ctx context.Context, msg *telegram.Message) {
	doc := msg.Document
	if !intake.IsTextFileName(doc.FileName) {
		b.reply(ctx, msg, msgNotTextFile)
		return
	}
	if doc.FileSize > intake.MaxDocumentBytes {
		b.reply(ctx, msg, msgDocumentTooLarge)
		return
	}

	file, err := b.files.GetFile(ctx, doc.FileID)
	if err != nil {
		b.logger.Error("Failed to resolve document", slog.String("file_id", doc.FileID), slog.String("error", err.Error()))
		b.reply(ctx, msg, msgInternalError)
		return
	}

	data, err := b.files.DownloadFile(ctx, file.FilePath, intake.MaxDocumentBytes)
	if err != nil {
		if errors.Is(err, telegram.ErrFileTooLarge) {
			b.reply(ctx, msg, msgDocumentTooLarge)
			return
		}
		b.logger.Error("Failed to download document", slog.String("file_id", doc.FileID), slog.String("error", err.Error()))
		b.reply(ctx, msg, msgInternalError)
		return
	}

	text, err := intake.DecodeDocument(doc.FileName, data)
	if err != nil {
		if errors.Is(err, intake.ErrDocumentTooLarge) {
			b.reply(ctx, msg, msgDocumentTooLarge)
		} else {
			b.reply(ctx, msg, msgNotTextFile)
		}
		return
	}

	b.submit(ctx, msg, text)
}

func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string) {
	if err := b.sender.SendMessage(ctx, msg.Chat.ID, text); err != nil {
		b.logger.Warn("Failed to send reply",
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("error", err.Error()),
		)
	}
}
