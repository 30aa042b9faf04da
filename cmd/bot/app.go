package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"whisker/internal/catapi"
	"whisker/internal/chat"
	"whisker/internal/discord"
	"whisker/internal/memory"
	"whisker/internal/schedule"
	"whisker/pkg/llm"
	"whisker/pkg/llm/providers/gemini"
	"whisker/pkg/llm/providers/openai"
	"whisker/pkg/whisker"
)

const (
	envDiscordToken  = "DISCORD_TOKEN"
	envCatChannelID  = "CAT_CHANNEL_ID"
	envLLMProvider   = "LLM_PROVIDER"
	envOpenAIAPIKey  = "OPENAI_API_KEY"
	envOpenAIBaseURL = "OPENAI_BASE_URL"
	envGeminiAPIKey  = "GEMINI_API_KEY"
	envChatModel     = "CHAT_MODEL"
	envExtractModel  = "EXTRACT_MODEL"
	envMemoryFile    = "MEMORY_FILE"
	envMaxTurnPairs  = "MEMORY_MAX_TURN_PAIRS"
	envMaxNotesChars = "MEMORY_MAX_NOTES_CHARS"
	envMemoryTTL     = "MEMORY_TTL"
	envSweepInterval = "MEMORY_SWEEP_INTERVAL"
	envCatAPIKey     = "CAT_API_KEY"
	envLogLevel      = "LOG_LEVEL"

	envMorningHour   = "SCHEDULE_MORNING_HOUR"
	envAfternoonHour = "SCHEDULE_AFTERNOON_HOUR"
	envNightHour     = "SCHEDULE_NIGHT_HOUR"

	providerOpenAI = "openai"
	providerGemini = "gemini"

	defaultMemoryFilePath     = "data/memory.json"
	defaultOpenAIChatModel    = "gpt-4o"
	defaultOpenAIExtractModel = "gpt-4o-mini"
	defaultGeminiChatModel    = "gemini-2.0-flash"
	defaultGeminiExtractModel = "gemini-2.0-flash-lite"
)

type appConfig struct {
	logLevel slog.Level

	discordToken string
	catChannelID string
	catAPIKey    string

	provider      string
	openAIAPIKey  string
	openAIBaseURL string
	geminiAPIKey  string
	chatModel     string
	extractModel  string

	memoryFile    string
	maxTurnPairs  int
	maxNotesChars int
	memoryTTL     time.Duration
	sweepInterval time.Duration

	slots []schedule.Slot
}

func run() error {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel}))
	slog.SetDefault(logger)

	registry, err := buildProviderRegistry(cfg)
	if err != nil {
		return fmt.Errorf("build provider registry: %w", err)
	}
	provider, err := registry.Resolve(cfg.provider)
	if err != nil {
		return fmt.Errorf("resolve provider: %w", err)
	}

	store := memory.NewStore(
		memory.WithLogger(logger),
		memory.WithMaxTurnPairs(cfg.maxTurnPairs),
		memory.WithMaxNotesChars(cfg.maxNotesChars),
	)
	file, err := memory.NewSnapshotFile(cfg.memoryFile, memory.WithFileLogger(logger))
	if err != nil {
		return fmt.Errorf("new snapshot file: %w", err)
	}

	snapshot, err := file.Load()
	if err != nil {
		logger.Warn("failed to load memory snapshot, starting empty", "error", err)
	}
	store.Restore(snapshot)
	logger.Info("memory loaded", "records", store.Len(), "path", cfg.memoryFile)

	completer, err := chat.NewCompleter(chat.CompleterConfig{
		Provider: provider,
		Model:    cfg.chatModel,
	})
	if err != nil {
		return fmt.Errorf("new completer: %w", err)
	}
	extractor, err := chat.NewExtractor(chat.ExtractorConfig{
		Provider: provider,
		Model:    cfg.extractModel,
	})
	if err != nil {
		return fmt.Errorf("new extractor: %w", err)
	}

	worker, err := memory.NewExtractWorker(store, file, extractor,
		memory.WithWorkerLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("new extract worker: %w", err)
	}
	sweeper, err := memory.NewSweeper(store, file,
		memory.WithSweeperLogger(logger),
		memory.WithTTL(cfg.memoryTTL),
		memory.WithSweepInterval(cfg.sweepInterval),
	)
	if err != nil {
		return fmt.Errorf("new sweeper: %w", err)
	}

	chatService, err := chat.NewService(store, file, completer, worker,
		chat.WithServiceLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("new chat service: %w", err)
	}

	cats := catapi.NewClient(
		catapi.WithLogger(logger),
		catapi.WithAPIKey(cfg.catAPIKey),
	)

	bot, err := discord.NewBot(cfg.discordToken, cfg.catChannelID, chatService, cats, cfg.slots,
		discord.WithBotLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("new bot: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper.Sweep(ctx)

	var background sync.WaitGroup
	background.Add(2)
	go func() {
		defer background.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer background.Done()
		sweeper.Run(ctx)
	}()

	poster, err := schedule.NewPoster(cfg.slots, bot.PostSlot,
		schedule.WithPosterLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("new poster: %w", err)
	}
	if err := poster.Start(ctx); err != nil {
		return fmt.Errorf("start poster: %w", err)
	}

	if err := bot.Open(); err != nil {
		return fmt.Errorf("open bot: %w", err)
	}
	logger.Info("bot is running", "provider", cfg.provider, "chat_model", cfg.chatModel)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := bot.Close(); err != nil {
		logger.Warn("failed to close bot session", "error", err)
	}
	poster.Stop()
	background.Wait()

	if err := file.Save(store.Snapshot()); err != nil {
		logger.Warn("failed to persist final snapshot", "error", err)
	}

	return nil
}

func loadConfig() (appConfig, error) {
	cfg := defaultAppConfig()

	if err := applyEnv(&cfg); err != nil {
		return appConfig{}, err
	}
	if err := validateAppConfig(&cfg); err != nil {
		return appConfig{}, err
	}

	return cfg, nil
}

func defaultAppConfig() appConfig {
	return appConfig{
		logLevel: slog.LevelInfo,

		provider: providerOpenAI,

		memoryFile:    defaultMemoryFilePath,
		maxTurnPairs:  memory.DefaultMaxTurnPairs,
		maxNotesChars: memory.DefaultMaxNotesChars,
		memoryTTL:     memory.DefaultTTL,

		slots: schedule.DefaultSlots(),
	}
}

func applyEnv(cfg *appConfig) error {
	if cfg == nil {
		return fmt.Errorf("apply env: nil config")
	}

	cfg.discordToken = strings.TrimSpace(os.Getenv(envDiscordToken))
	cfg.catChannelID = strings.TrimSpace(os.Getenv(envCatChannelID))
	cfg.catAPIKey = strings.TrimSpace(os.Getenv(envCatAPIKey))
	cfg.openAIAPIKey = strings.TrimSpace(os.Getenv(envOpenAIAPIKey))
	cfg.openAIBaseURL = strings.TrimSpace(os.Getenv(envOpenAIBaseURL))
	cfg.geminiAPIKey = strings.TrimSpace(os.Getenv(envGeminiAPIKey))

	if rawLevel := strings.TrimSpace(os.Getenv(envLogLevel)); rawLevel != "" {
		level, err := parseLogLevel(rawLevel)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envLogLevel, err)
		}
		cfg.logLevel = level
	}
	if rawProvider := strings.TrimSpace(os.Getenv(envLLMProvider)); rawProvider != "" {
		cfg.provider = strings.ToLower(rawProvider)
	}
	if rawModel := strings.TrimSpace(os.Getenv(envChatModel)); rawModel != "" {
		cfg.chatModel = rawModel
	}
	if rawModel := strings.TrimSpace(os.Getenv(envExtractModel)); rawModel != "" {
		cfg.extractModel = rawModel
	}
	if rawPath := strings.TrimSpace(os.Getenv(envMemoryFile)); rawPath != "" {
		cfg.memoryFile = rawPath
	}

	if rawPairs := strings.TrimSpace(os.Getenv(envMaxTurnPairs)); rawPairs != "" {
		pairs, err := strconv.Atoi(rawPairs)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envMaxTurnPairs, err)
		}
		if pairs <= 0 {
			return fmt.Errorf("parse %s: must be > 0", envMaxTurnPairs)
		}
		cfg.maxTurnPairs = pairs
	}
	if rawChars := strings.TrimSpace(os.Getenv(envMaxNotesChars)); rawChars != "" {
		chars, err := strconv.Atoi(rawChars)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envMaxNotesChars, err)
		}
		if chars <= 0 {
			return fmt.Errorf("parse %s: must be > 0", envMaxNotesChars)
		}
		cfg.maxNotesChars = chars
	}
	if rawTTL := strings.TrimSpace(os.Getenv(envMemoryTTL)); rawTTL != "" {
		ttl, err := time.ParseDuration(rawTTL)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envMemoryTTL, err)
		}
		if ttl <= 0 {
			return fmt.Errorf("parse %s: must be > 0", envMemoryTTL)
		}
		cfg.memoryTTL = ttl
	}
	if rawInterval := strings.TrimSpace(os.Getenv(envSweepInterval)); rawInterval != "" {
		interval, err := time.ParseDuration(rawInterval)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envSweepInterval, err)
		}
		if interval <= 0 {
			return fmt.Errorf("parse %s: must be > 0", envSweepInterval)
		}
		cfg.sweepInterval = interval
	}

	slotHourEnvs := map[string]string{
		"morning":   envMorningHour,
		"afternoon": envAfternoonHour,
		"night":     envNightHour,
	}
	for index := range cfg.slots {
		envName, known := slotHourEnvs[cfg.slots[index].Name]
		if !known {
			continue
		}
		rawHour := strings.TrimSpace(os.Getenv(envName))
		if rawHour == "" {
			continue
		}
		hour, err := strconv.Atoi(rawHour)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envName, err)
		}
		if hour < 0 || hour > 23 {
			return fmt.Errorf("parse %s: hour %d out of range", envName, hour)
		}
		cfg.slots[index].Hour = hour
	}

	return nil
}

func validateAppConfig(cfg *appConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.discordToken == "" {
		return fmt.Errorf("%s is required", envDiscordToken)
	}
	if cfg.catChannelID == "" {
		return fmt.Errorf("%s is required", envCatChannelID)
	}

	switch cfg.provider {
	case providerOpenAI:
		if cfg.openAIAPIKey == "" {
			return fmt.Errorf("%s is required for provider %s", envOpenAIAPIKey, providerOpenAI)
		}
		if cfg.chatModel == "" {
			cfg.chatModel = defaultOpenAIChatModel
		}
		if cfg.extractModel == "" {
			cfg.extractModel = defaultOpenAIExtractModel
		}
	case providerGemini:
		if cfg.geminiAPIKey == "" {
			return fmt.Errorf("%s is required for provider %s", envGeminiAPIKey, providerGemini)
		}
		if cfg.chatModel == "" {
			cfg.chatModel = defaultGeminiChatModel
		}
		if cfg.extractModel == "" {
			cfg.extractModel = defaultGeminiExtractModel
		}
	default:
		return fmt.Errorf("%s: unsupported provider %q", envLLMProvider, cfg.provider)
	}

	return nil
}

func buildProviderRegistry(cfg appConfig) (*llm.Registry, error) {
	providers := make(map[string]whisker.ChatProvider, 2)

	if cfg.openAIAPIKey != "" {
		provider, err := openai.New(openai.ProviderConfig{
			APIKey:  cfg.openAIAPIKey,
			BaseURL: cfg.openAIBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("new openai provider: %w", err)
		}
		providers[providerOpenAI] = provider
	}
	if cfg.geminiAPIKey != "" {
		provider, err := gemini.New(gemini.ProviderConfig{APIKey: cfg.geminiAPIKey})
		if err != nil {
			return nil, fmt.Errorf("new gemini provider: %w", err)
		}
		providers[providerGemini] = provider
	}

	registry, err := llm.NewRegistry(providers)
	if err != nil {
		return nil, fmt.Errorf("new registry: %w", err)
	}

	return registry, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}
