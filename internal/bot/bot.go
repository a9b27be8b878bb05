package bot

import (
	"context"
	"fmt"

	problemservice "leetbot/internal/problem/service"
	threadrepo "leetbot/internal/thread/repository"
	threadservice "leetbot/internal/thread/service"
	"leetbot/pkg/utils/logger"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds Discord bot settings.
type Config struct {
	Token string `yaml:"token"`
	// GuildID scopes slash-command registration to one guild when set,
	// which propagates faster than global registration. Empty means global.
	GuildID string `yaml:"guildID"`
}

// Bot wires the Discord session to the problem and thread services.
type Bot struct {
	session    *discordgo.Session
	problems   *problemservice.ProblemService
	reconciler *threadservice.Reconciler
	registry   threadrepo.Registry

	guildID    string
	commandIDs []string
	handlers   map[string]commandHandler
}

type commandHandler func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate)

// New creates the bot and its interaction dispatcher. The reconciler is
// attached afterwards via SetReconciler since it needs the session's
// platform adapter. Open must be called to connect.
func New(cfg Config, problems *problemservice.ProblemService, registry threadrepo.Registry) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session failed: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session:  session,
		problems: problems,
		registry: registry,
		guildID:  cfg.GuildID,
	}
	b.handlers = b.commandHandlers()

	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		name := i.ApplicationCommandData().Name
		handler, ok := b.handlers[name]
		if !ok {
			return
		}

		ctx := logger.WithTraceID(context.Background(), uuid.NewString())
		if i.GuildID != "" {
			ctx = logger.WithGuildID(ctx, i.GuildID)
		}
		logger.Info(ctx, "handling interaction", zap.String("command", name))
		handler(ctx, s, i)
	})

	return b, nil
}

// Open connects the session and registers the slash commands.
func (b *Bot) Open(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session failed: %w", err)
	}

	appID := b.session.State.User.ID
	for _, cmd := range commandDefinitions() {
		created, err := b.session.ApplicationCommandCreate(appID, b.guildID, cmd)
		if err != nil {
			return fmt.Errorf("register command %q failed: %w", cmd.Name, err)
		}
		b.commandIDs = append(b.commandIDs, created.ID)
	}

	logger.Info(ctx, "discord bot connected",
		zap.String("user", b.session.State.User.Username),
		zap.Int("commands", len(b.commandIDs)))
	return nil
}

// Close disconnects the session.
func (b *Bot) Close() error {
	return b.session.Close()
}

// Platform returns the reconciler-facing platform adapter over this session.
func (b *Bot) Platform() threadservice.Platform {
	return &discordPlatform{session: b.session}
}

// SetReconciler attaches the thread reconciler. Must be called before Open.
func (b *Bot) SetReconciler(reconciler *threadservice.Reconciler) {
	b.reconciler = reconciler
}
