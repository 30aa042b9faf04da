// Package discord hosts the Discord-facing bot: it routes mention commands,
// forwards chat messages to the conversation pipeline, and posts scheduled
// cat content.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"whisker/internal/catapi"
	"whisker/internal/chat"
	"whisker/internal/schedule"
)

// Discord rejects messages longer than this.
const maxMessageRunes = 2000

const emptyMentionReply = "Meow? You called, but said nothing. Try `help` if you forgot how to talk to a cat."

// timeNow is swapped out in tests.
var timeNow = time.Now

// BotOption mutates bot configuration.
type BotOption func(*Bot)

// WithBotLogger injects a structured logger.
func WithBotLogger(logger *slog.Logger) BotOption {
	return func(bot *Bot) {
		if logger != nil {
			bot.logger = logger
		}
	}
}

// Bot is the Discord front end.
type Bot struct {
	session *discordgo.Session
	chat    *chat.Service
	cats    *catapi.Client
	slots   []schedule.Slot
	channel string
	logger  *slog.Logger
}

// NewBot creates a bot over one Discord session. channelID is where scheduled
// posts go; mention commands work in any channel the bot can read.
func NewBot(
	token, channelID string,
	chatService *chat.Service,
	cats *catapi.Client,
	slots []schedule.Slot,
	options ...BotOption,
) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("new bot: missing token")
	}
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("new bot: missing channel id")
	}
	if chatService == nil {
		return nil, fmt.Errorf("new bot: nil chat service")
	}
	if cats == nil {
		return nil, fmt.Errorf("new bot: nil cat api client")
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("new bot: empty schedule")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("new bot: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	bot := &Bot{
		session: session,
		chat:    chatService,
		cats:    cats,
		slots:   slots,
		channel: channelID,
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(bot)
	}
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onReady)

	return bot, nil
}

// Open connects to the Discord gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open bot session: %w", err)
	}

	return nil
}

// Close disconnects from the Discord gateway.
func (b *Bot) Close() error {
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close bot session: %w", err)
	}

	return nil
}

// PostSlot posts one scheduled slot to the configured channel, decorating it
// with a fresh GIF and fact.
func (b *Bot) PostSlot(ctx context.Context, slot schedule.Slot) {
	gifURL := b.cats.FetchGIF(ctx)
	fact := b.cats.FetchFact(ctx)

	if _, err := b.session.ChannelMessageSendEmbed(b.channel, slotEmbed(slot, gifURL, fact)); err != nil {
		b.logger.ErrorContext(ctx, "failed to post scheduled slot",
			"slot", slot.Name,
			"error", err,
		)
	}
}

func (b *Bot) onReady(session *discordgo.Session, _ *discordgo.Ready) {
	if err := session.UpdateGameStatus(0, "with yarn | mention me"); err != nil {
		b.logger.Warn("failed to set presence", "error", err)
	}
	b.logger.Info("connected to discord", "user", session.State.User.Username)
}

func (b *Bot) onMessageCreate(session *discordgo.Session, event *discordgo.MessageCreate) {
	if event.Author == nil || event.Author.Bot {
		return
	}
	content, mentioned := stripMention(event.Content, session.State.User.ID)
	if !mentioned {
		return
	}

	ctx := context.Background()
	reply := b.dispatch(ctx, event, content)
	if reply.text == "" && reply.embed == nil {
		return
	}

	var err error
	if reply.embed != nil {
		_, err = session.ChannelMessageSendEmbed(event.ChannelID, reply.embed)
	} else {
		_, err = session.ChannelMessageSend(event.ChannelID, clampMessage(reply.text))
	}
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to send reply",
			"channel_id", event.ChannelID,
			"error", err,
		)
	}
}

type reply struct {
	text  string
	embed *discordgo.MessageEmbed
}

func (b *Bot) dispatch(ctx context.Context, event *discordgo.MessageCreate, content string) reply {
	if content == "" {
		return reply{text: emptyMentionReply}
	}

	switch strings.ToLower(firstWord(content)) {
	case "now":
		return b.handleNow(ctx)
	case "fact":
		return reply{text: "🐾 " + b.cats.FetchFact(ctx)}
	case "gif":
		return reply{text: b.cats.FetchGIF(ctx)}
	case "schedule":
		return b.handleSchedule()
	case "help":
		return reply{embed: helpEmbed()}
	case "forget":
		return b.handleForget(ctx, event)
	case "memory":
		return b.handleMemory(ctx, event)
	default:
		return b.handleChat(ctx, event, content)
	}
}

func (b *Bot) handleNow(ctx context.Context) reply {
	current, err := schedule.CurrentSlot(b.slots, timeNow())
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to resolve current slot", "error", err)
		return reply{text: "The schedule seems to have wandered off. Try again later."}
	}

	return reply{embed: slotEmbed(current, b.cats.FetchGIF(ctx), b.cats.FetchFact(ctx))}
}

func (b *Bot) handleSchedule() reply {
	current, err := schedule.CurrentSlot(b.slots, timeNow())
	if err != nil {
		return reply{text: "The schedule seems to have wandered off. Try again later."}
	}

	return reply{embed: scheduleEmbed(b.slots, current)}
}

func (b *Bot) handleForget(ctx context.Context, event *discordgo.MessageCreate) reply {
	userID, err := parseUserID(event.Author.ID)
	if err != nil {
		b.logger.WarnContext(ctx, "unparseable author id", "author_id", event.Author.ID)
		return reply{text: "I can't quite place who you are. How embarrassing, for you."}
	}

	if b.chat.Forget(ctx, userID) {
		return reply{text: "Poof. I have no idea who you are anymore. Blissful, really."}
	}

	return reply{text: "I wasn't remembering anything about you in the first place."}
}

func (b *Bot) handleMemory(ctx context.Context, event *discordgo.MessageCreate) reply {
	userID, err := parseUserID(event.Author.ID)
	if err != nil {
		b.logger.WarnContext(ctx, "unparseable author id", "author_id", event.Author.ID)
		return reply{text: "I can't quite place who you are. How embarrassing, for you."}
	}

	export, found := b.chat.ExportMemory(userID)
	if !found {
		return reply{text: "I don't remember you at all. Say something memorable."}
	}

	return reply{text: "```json\n" + export + "\n```"}
}

func (b *Bot) handleChat(ctx context.Context, event *discordgo.MessageCreate, content string) reply {
	userID, err := parseUserID(event.Author.ID)
	if err != nil {
		b.logger.WarnContext(ctx, "unparseable author id", "author_id", event.Author.ID)
		return reply{text: "I can't quite place who you are. How embarrassing, for you."}
	}

	answer, err := b.chat.HandleMessage(ctx, userID, event.Author.Username, content)
	if err != nil {
		b.logger.ErrorContext(ctx, "chat pipeline failed",
			"user_id", userID,
			"error", err,
		)
		return reply{text: "My brain is busy chasing a laser pointer. Ask me again in a moment."}
	}

	return reply{text: answer}
}

// stripMention removes a leading bot mention from content. It reports false
// when the message does not start by mentioning the bot.
func stripMention(content, botID string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	for _, prefix := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		if strings.HasPrefix(trimmed, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, prefix)), true
		}
	}

	return "", false
}

func firstWord(content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse user id: %w", err)
	}

	return id, nil
}

func clampMessage(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageRunes {
		return text
	}

	return string(runes[:maxMessageRunes-1]) + "…"
}
