package discord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"whisker/internal/catapi"
	"whisker/internal/chat"
	"whisker/internal/memory"
	"whisker/internal/schedule"
	"whisker/pkg/whisker"
)

type completerStub struct {
	reply string
}

func (s completerStub) Complete(
	context.Context,
	string,
	[]whisker.Turn,
	string,
) (string, error) {
	return s.reply, nil
}

type noopExtractor struct{}

func (noopExtractor) Extract(context.Context, string, string, string) (string, error) {
	return whisker.NoNewFactsMarker, nil
}

func newBotFixture(t *testing.T, reply string) (*Bot, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	file, err := memory.NewSnapshotFile(filepath.Join(t.TempDir(), "memory.json"))
	if err != nil {
		t.Fatalf("new snapshot file failed: %v", err)
	}
	worker, err := memory.NewExtractWorker(store, file, noopExtractor{})
	if err != nil {
		t.Fatalf("new extract worker failed: %v", err)
	}
	service, err := chat.NewService(store, file, completerStub{reply: reply}, worker)
	if err != nil {
		t.Fatalf("new chat service failed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.RawQuery, "mime_types") {
			_, _ = w.Write([]byte(`[{"url": "https://cdn.example/cat.gif"}]`))
			return
		}
		_, _ = w.Write([]byte(`{"fact": "Cats sleep a lot."}`))
	}))
	t.Cleanup(server.Close)

	cats := catapi.NewClient(
		catapi.WithGIFURL(server.URL+"/images/search"),
		catapi.WithFactURL(server.URL+"/fact"),
	)

	bot, err := NewBot("token", "channel-1", service, cats, schedule.DefaultSlots())
	if err != nil {
		t.Fatalf("new bot failed: %v", err)
	}

	return bot, store
}

func newMessageEvent(authorID, username, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ChannelID: "channel-1",
			Content:   content,
			Author:    &discordgo.User{ID: authorID, Username: username},
		},
	}
}

func TestNewBotValidation(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	file, err := memory.NewSnapshotFile(filepath.Join(t.TempDir(), "memory.json"))
	if err != nil {
		t.Fatalf("new snapshot file failed: %v", err)
	}
	worker, err := memory.NewExtractWorker(store, file, noopExtractor{})
	if err != nil {
		t.Fatalf("new extract worker failed: %v", err)
	}
	service, err := chat.NewService(store, file, completerStub{reply: "hi"}, worker)
	if err != nil {
		t.Fatalf("new chat service failed: %v", err)
	}
	cats := catapi.NewClient()
	slots := schedule.DefaultSlots()

	if _, err := NewBot("", "channel", service, cats, slots); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewBot("token", "", service, cats, slots); err == nil {
		t.Fatal("expected error for missing channel")
	}
	if _, err := NewBot("token", "channel", nil, cats, slots); err == nil {
		t.Fatal("expected error for nil chat service")
	}
	if _, err := NewBot("token", "channel", service, nil, slots); err == nil {
		t.Fatal("expected error for nil cat client")
	}
	if _, err := NewBot("token", "channel", service, cats, nil); err == nil {
		t.Fatal("expected error for empty schedule")
	}
}

func TestStripMention(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		wantContent   string
		wantMentioned bool
	}{
		{
			name:          "plain mention prefix",
			content:       "<@99> hello there",
			wantContent:   "hello there",
			wantMentioned: true,
		},
		{
			name:          "nickname mention prefix",
			content:       "<@!99> fact",
			wantContent:   "fact",
			wantMentioned: true,
		},
		{
			name:          "bare mention",
			content:       "<@99>",
			wantContent:   "",
			wantMentioned: true,
		},
		{
			name:          "no mention",
			content:       "just chatting",
			wantMentioned: false,
		},
		{
			name:          "mention of someone else",
			content:       "<@100> hello",
			wantMentioned: false,
		},
		{
			name:          "mention mid-message is ignored",
			content:       "hello <@99>",
			wantMentioned: false,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, mentioned := stripMention(testCase.content, "99")
			if mentioned != testCase.wantMentioned {
				t.Fatalf("mentioned = %v, want %v", mentioned, testCase.wantMentioned)
			}
			if got != testCase.wantContent {
				t.Fatalf("content = %q, want %q", got, testCase.wantContent)
			}
		})
	}
}

func TestClampMessage(t *testing.T) {
	t.Parallel()

	short := "meow"
	if got := clampMessage(short); got != short {
		t.Fatalf("clampMessage = %q, want unchanged", got)
	}

	long := strings.Repeat("a", maxMessageRunes+50)
	got := clampMessage(long)
	if runeCount := len([]rune(got)); runeCount != maxMessageRunes {
		t.Fatalf("clamped length = %d, want %d", runeCount, maxMessageRunes)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatal("clamped message must end with an ellipsis")
	}
}

func TestDispatchCommands(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantEmbed    bool
		wantContains string
	}{
		{
			name:         "empty mention gets canned reply",
			content:      "",
			wantContains: "Meow?",
		},
		{
			name:         "fact command",
			content:      "fact",
			wantContains: "Cats sleep a lot.",
		},
		{
			name:         "gif command",
			content:      "gif",
			wantContains: "https://cdn.example/cat.gif",
		},
		{
			name:      "now command builds an embed",
			content:   "now",
			wantEmbed: true,
		},
		{
			name:      "schedule command builds an embed",
			content:   "schedule",
			wantEmbed: true,
		},
		{
			name:      "help command builds an embed",
			content:   "help",
			wantEmbed: true,
		},
		{
			name:         "command casing is ignored",
			content:      "FACT",
			wantContains: "Cats sleep a lot.",
		},
		{
			name:         "anything else goes to chat",
			content:      "tell me a story",
			wantContains: "purr, once upon a time",
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			bot, _ := newBotFixture(t, "purr, once upon a time")
			event := newMessageEvent("12345", "sam", testCase.content)

			got := bot.dispatch(context.Background(), event, testCase.content)
			if testCase.wantEmbed {
				if got.embed == nil {
					t.Fatalf("reply = %+v, want an embed", got)
				}
				return
			}
			if !strings.Contains(got.text, testCase.wantContains) {
				t.Fatalf("reply text = %q, want substring %q", got.text, testCase.wantContains)
			}
		})
	}
}

func TestDispatchChatRecordsExchange(t *testing.T) {
	t.Parallel()

	bot, store := newBotFixture(t, "hello Sam")
	event := newMessageEvent("12345", "sam", "my name is Sam")

	got := bot.dispatch(context.Background(), event, "my name is Sam")
	if got.text != "hello Sam" {
		t.Fatalf("reply = %q, want %q", got.text, "hello Sam")
	}

	record, found := store.Get(12345)
	if !found {
		t.Fatal("exchange was not recorded")
	}
	if record.Username != "sam" {
		t.Fatalf("Username = %q, want %q", record.Username, "sam")
	}
	if len(record.RecentTurns) != 2 {
		t.Fatalf("RecentTurns length = %d, want 2", len(record.RecentTurns))
	}
}

func TestDispatchForgetAndMemory(t *testing.T) {
	t.Parallel()

	bot, store := newBotFixture(t, "hi")
	event := newMessageEvent("12345", "sam", "")

	got := bot.dispatch(context.Background(), event, "memory")
	if !strings.Contains(got.text, "don't remember you") {
		t.Fatalf("memory reply = %q, want unknown-user text", got.text)
	}

	store.GetOrCreate(12345, "sam")
	store.MergeNotes(12345, "- Name: Sam")

	got = bot.dispatch(context.Background(), event, "memory")
	if !strings.Contains(got.text, `"long_term_notes": "- Name: Sam"`) {
		t.Fatalf("memory reply = %q, want exported notes", got.text)
	}

	got = bot.dispatch(context.Background(), event, "forget")
	if !strings.Contains(got.text, "Poof") {
		t.Fatalf("forget reply = %q, want wipe confirmation", got.text)
	}

	record, _ := store.Get(12345)
	if record.LongTermNotes != "" {
		t.Fatalf("notes after forget = %q, want empty", record.LongTermNotes)
	}

	got = bot.dispatch(context.Background(), event, "forget")
	if strings.Contains(got.text, "Poof") {
		t.Fatalf("second forget reply = %q, want nothing-to-forget text", got.text)
	}
}

func TestSlotEmbed(t *testing.T) {
	t.Parallel()

	slot := schedule.Slot{
		Name:     "morning",
		Hour:     8,
		Greeting: "Good morning!",
		Message:  "Breakfast time.",
		Emoji:    "🌅",
		Color:    0xFFB347,
	}

	embed := slotEmbed(slot, "https://cdn.example/cat.gif", "Cats purr.")
	if !strings.Contains(embed.Title, "Good morning!") {
		t.Fatalf("title = %q, want greeting", embed.Title)
	}
	if embed.Image == nil || embed.Image.URL != "https://cdn.example/cat.gif" {
		t.Fatalf("image = %+v, want gif url", embed.Image)
	}
	if len(embed.Fields) != 1 || embed.Fields[0].Value != "Cats purr." {
		t.Fatalf("fields = %+v, want one fact field", embed.Fields)
	}
	if embed.Color != 0xFFB347 {
		t.Fatalf("color = %#x, want %#x", embed.Color, 0xFFB347)
	}
}

func TestScheduleEmbedMarksCurrentSlot(t *testing.T) {
	t.Parallel()

	slots := schedule.DefaultSlots()
	current, err := schedule.CurrentSlot(slots, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("current slot failed: %v", err)
	}

	embed := scheduleEmbed(slots, current)
	if len(embed.Fields) != len(slots) {
		t.Fatalf("fields = %d, want %d", len(embed.Fields), len(slots))
	}

	marked := 0
	for _, field := range embed.Fields {
		if strings.Contains(field.Name, "(current)") {
			marked++
			if !strings.Contains(field.Name, "morning") {
				t.Fatalf("marked slot = %q, want morning", field.Name)
			}
		}
	}
	if marked != 1 {
		t.Fatalf("marked slots = %d, want 1", marked)
	}
}
