package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	threadservice "leetbot/internal/thread/service"

	"github.com/bwmarrin/discordgo"
)

// discordPlatform implements threadservice.Platform on a discordgo session.
type discordPlatform struct {
	session *discordgo.Session
}

func (p *discordPlatform) ForumChannel(ctx context.Context, channelID string) (threadservice.ForumChannel, error) {
	ch, err := p.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return threadservice.ForumChannel{}, threadservice.ErrChannelInvalid
		}
		return threadservice.ForumChannel{}, fmt.Errorf("fetch channel %s failed: %w", channelID, err)
	}
	if ch.Type != discordgo.ChannelTypeGuildForum {
		return threadservice.ForumChannel{}, threadservice.ErrChannelInvalid
	}

	tags := make([]threadservice.ForumTag, 0, len(ch.AvailableTags))
	for _, t := range ch.AvailableTags {
		tags = append(tags, threadservice.ForumTag{ID: t.ID, Name: t.Name})
	}
	return threadservice.ForumChannel{
		ID:            ch.ID,
		GuildID:       ch.GuildID,
		AvailableTags: tags,
	}, nil
}

func (p *discordPlatform) LiveThread(ctx context.Context, threadID string) (threadservice.Thread, error) {
	ch, err := p.session.Channel(threadID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return threadservice.Thread{}, threadservice.ErrThreadGone
		}
		return threadservice.Thread{}, fmt.Errorf("fetch thread %s failed: %w", threadID, err)
	}
	if !ch.IsThread() {
		return threadservice.Thread{}, threadservice.ErrThreadGone
	}
	return threadservice.Thread{
		ID:        ch.ID,
		ChannelID: ch.ParentID,
		Name:      ch.Name,
	}, nil
}

func (p *discordPlatform) CreateForumTag(ctx context.Context, channelID, name string) (threadservice.ForumTag, error) {
	ch, err := p.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return threadservice.ForumTag{}, fmt.Errorf("fetch channel %s failed: %w", channelID, err)
	}

	tags := append([]discordgo.ForumTag{}, ch.AvailableTags...)
	tags = append(tags, discordgo.ForumTag{Name: name})
	updated, err := p.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		AvailableTags: &tags,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return threadservice.ForumTag{}, fmt.Errorf("add forum tag %q failed: %w", name, err)
	}

	for _, t := range updated.AvailableTags {
		if t.Name == name {
			return threadservice.ForumTag{ID: t.ID, Name: t.Name}, nil
		}
	}
	return threadservice.ForumTag{}, fmt.Errorf("forum tag %q missing after edit", name)
}

func (p *discordPlatform) CreateThread(ctx context.Context, channelID string, req threadservice.ThreadRequest) (threadservice.Thread, error) {
	start := &discordgo.ThreadStart{
		Name:                req.Name,
		AutoArchiveDuration: 60 * 24 * 7,
		AppliedTags:         req.AppliedTagIDs,
	}
	msg := &discordgo.MessageSend{
		Content: req.Content,
		Embeds:  []*discordgo.MessageEmbed{problemCardEmbed(req.Card)},
	}

	th, err := p.session.ForumThreadStartComplex(channelID, start, msg, discordgo.WithContext(ctx))
	if err != nil {
		return threadservice.Thread{}, fmt.Errorf("start forum thread %q failed: %w", req.Name, err)
	}
	return threadservice.Thread{
		ID:        th.ID,
		ChannelID: th.ParentID,
		Name:      th.Name,
	}, nil
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
