package bot

import (
	"context"
	"fmt"

	problemrepo "leetbot/internal/problem/repository"
	threadservice "leetbot/internal/thread/service"
	"leetbot/pkg/utils/logger"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	minID := float64(1)
	return []*discordgo.ApplicationCommand{
		{
			Name:        "daily",
			Description: "Get today's daily challenge and open its discussion thread",
		},
		{
			Name:        "problem",
			Description: "Get a problem by number and open its discussion thread",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "Problem number",
					Required:    true,
					MinValue:    &minID,
				},
			},
		},
		{
			Name:        "random",
			Description: "Get a random problem and open its discussion thread",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "difficulty",
					Description: "Restrict to one difficulty",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Easy", Value: "Easy"},
						{Name: "Medium", Value: "Medium"},
						{Name: "Hard", Value: "Hard"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "premium",
					Description: "Include premium-only problems",
				},
			},
		},
		{
			Name:        "desc",
			Description: "Show a problem's description without opening a thread",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "Problem number",
					Required:    true,
					MinValue:    &minID,
				},
			},
		},
		{
			Name:        "statistics",
			Description: "Show a LeetCode user's profile and solve counts",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "username",
					Description: "LeetCode username",
					Required:    true,
				},
			},
		},
		{
			Name:        "set_forum_channel",
			Description: "Set the forum channel for discussion threads (admin only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Forum channel to use",
					Required:    true,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildForum,
					},
				},
			},
		},
		{
			Name:        "refresh",
			Description: "Re-sync the stored problem catalog (admin only)",
		},
		{
			Name:        "check_api",
			Description: "Check whether the problem API is reachable (admin only)",
		},
	}
}

func (b *Bot) commandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"daily":             b.handleDaily,
		"problem":           b.handleProblem,
		"random":            b.handleRandom,
		"desc":              b.handleDesc,
		"statistics":        b.handleStatistics,
		"set_forum_channel": b.handleSetForumChannel,
		"refresh":           b.handleRefresh,
		"check_api":         b.handleCheckAPI,
	}
}

// deferReply acknowledges the interaction so the slow path (API, platform
// writes) stays within Discord's response window.
func deferReply(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		logger.Error(ctx, "defer interaction response failed", zap.Error(err))
		return false
	}
	return true
}

func followUp(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, params *discordgo.WebhookParams) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		logger.Error(ctx, "send follow-up failed", zap.Error(err))
	}
}

func followUpText(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	followUp(ctx, s, i, &discordgo.WebhookParams{Content: content})
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// replyWithThread reconciles the discussion thread for the problem and sends
// the outcome-specific reply.
func (b *Bot) replyWithThread(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, problem problemrepo.Problem, tags []problemrepo.TopicTag) {
	thread, outcome, err := b.reconciler.Reconcile(ctx, i.GuildID, problem, tags)
	if err != nil {
		followUpText(ctx, s, i, userMessage(err))
		return
	}

	var content string
	switch outcome {
	case threadservice.OutcomeCreate:
		content = fmt.Sprintf("Opened a discussion thread for **%d. %s**: <#%s>",
			problem.FrontendID, problem.Title, thread.ID)
	default:
		content = fmt.Sprintf("A discussion thread for **%d. %s** already exists: <#%s>",
			problem.FrontendID, problem.Title, thread.ID)
	}
	followUp(ctx, s, i, &discordgo.WebhookParams{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{problemEmbed(problem, tags)},
	})
}

func (b *Bot) handleDaily(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		replyText(ctx, s, i, "This command only works inside a server.")
		return
	}
	if !deferReply(ctx, s, i) {
		return
	}
	problem, tags, err := b.problems.Daily(ctx)
	if err != nil {
		followUpText(ctx, s, i, userMessage(err))
		return
	}
	b.replyWithThread(ctx, s, i, problem, tags)
}

func (b *Bot) handleProblem(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		replyText(ctx, s, i, "This command only works inside a server.")
		return
	}
	if !deferReply(ctx, s, i) {
		return
	}
	id := optionMap(i)["id"].IntValue()
	problem, tags, err := b.problems.ByFrontendID(ctx, id)
	if err != nil {
		followUpText(ctx, s, i, userMessage(err))
		return
	}
	b.replyWithThread(ctx, s, i, problem, tags)
}

func (b *Bot) handleRandom(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		replyText(ctx, s, i, "This command only works inside a server.")
		return
	}
	if !deferReply(ctx, s, i) {
		return
	}

	opts := optionMap(i)
	var difficulty problemrepo.Difficulty
	if opt, ok := opts["difficulty"]; ok {
		difficulty = problemrepo.ParseDifficulty(opt.StringValue())
	}
	includePremium := false
	if opt, ok := opts["premium"]; ok {
		includePremium = opt.BoolValue()
	}

	problem, tags, err := b.problems.Random(ctx, difficulty, includePremium)
	if err != nil {
		followUpText(ctx, s, i, userMessage(err))
		return
	}
	b.replyWithThread(ctx, s, i, problem, tags)
}

func (b *Bot) handleDesc(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !deferReply(ctx, s, i) {
		return
	}
	id := optionMap(i)["id"].IntValue()
	problem, tags, err := b.problems.ByFrontendID(ctx, id)
	if err != nil {
		followUpText(ctx, s, i, userMessage(err))
		return
	}
	followUp(ctx, s, i, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{problemEmbed(problem, tags)},
	})
}

func (b *Bot) handleStatistics(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !deferReply(ctx, s, i) {
		return
	}
	username := optionMap(i)["username"].StringValue()
	stats, err := b.problems.UserStats(ctx, username)
	if err != nil {
		followUpText(ctx, s, i, userMessage(err))
		return
	}
	followUp(ctx, s, i, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{statsEmbed(stats)},
	})
}

func (b *Bot) handleSetForumChannel(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		replyText(ctx, s, i, "This command only works inside a server.")
		return
	}
	if !isAdmin(i) {
		replyText(ctx, s, i, "You need administrator permissions to use this command.")
		return
	}
	if !deferReply(ctx, s, i) {
		return
	}

	channel := optionMap(i)["channel"].ChannelValue(s)
	if channel == nil || channel.Type != discordgo.ChannelTypeGuildForum {
		followUpText(ctx, s, i, "Please pick a forum channel.")
		return
	}

	if _, err := b.registry.SetForumChannel(ctx, i.GuildID, channel.ID); err != nil {
		followUpText(ctx, s, i, userMessage(err))
		return
	}
	followUpText(ctx, s, i, fmt.Sprintf("Discussion threads will be created in <#%s>.", channel.ID))
}

func (b *Bot) handleRefresh(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !isAdmin(i) {
		replyText(ctx, s, i, "You need administrator permissions to use this command.")
		return
	}
	if !deferReply(ctx, s, i) {
		return
	}
	count, err := b.problems.RefreshAll(ctx)
	if err != nil {
		followUpText(ctx, s, i, userMessage(err))
		return
	}
	followUpText(ctx, s, i, fmt.Sprintf("Catalog refreshed, %d problems stored.", count))
}

func (b *Bot) handleCheckAPI(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !isAdmin(i) {
		replyText(ctx, s, i, "You need administrator permissions to use this command.")
		return
	}
	if !deferReply(ctx, s, i) {
		return
	}
	status, err := b.problems.CheckAPI(ctx)
	if err != nil {
		followUpText(ctx, s, i, userMessage(err))
		return
	}
	followUpText(ctx, s, i, fmt.Sprintf("Problem API is reachable: %s", status))
}

// replyText sends an immediate (non-deferred) ephemeral reply, used for
// guard failures before any slow work starts.
func replyText(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.Error(ctx, "send interaction response failed", zap.Error(err))
	}
}
