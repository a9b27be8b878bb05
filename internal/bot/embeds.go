package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"leetbot/internal/leetcode"
	problemrepo "leetbot/internal/problem/repository"
	threadservice "leetbot/internal/thread/service"

	"github.com/bwmarrin/discordgo"
)

const descriptionPreviewLen = 600

func difficultyColor(d problemrepo.Difficulty) int {
	switch d {
	case problemrepo.DifficultyEasy:
		return 0x2ECC71
	case problemrepo.DifficultyMedium:
		return 0xE67E22
	case problemrepo.DifficultyHard:
		return 0xE74C3C
	default:
		return 0x3498DB
	}
}

// problemEmbed renders a stored problem for a direct reply.
func problemEmbed(problem problemrepo.Problem, tags []problemrepo.TopicTag) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%d. %s", problem.FrontendID, problem.Title),
		URL:   problem.URL,
		Color: difficultyColor(problem.Difficulty),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Difficulty", Value: problem.Difficulty.String(), Inline: true},
		},
	}

	if problem.Premium {
		embed.Description = "This problem is premium only, so there is no description available."
	} else {
		embed.Description = truncate(problem.Description, descriptionPreviewLen)
	}

	if len(tags) > 0 {
		names := make([]string, 0, len(tags))
		for _, t := range tags {
			names = append(names, t.Name)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Tags", Value: strings.Join(names, ", "), Inline: true,
		})
	}
	return embed
}

// problemCardEmbed renders the pinned message of a discussion thread.
func problemCardEmbed(card threadservice.ProblemCard) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%d. %s", card.FrontendID, card.Title),
		URL:   card.URL,
		Color: difficultyColor(card.Difficulty),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Difficulty", Value: card.Difficulty.String(), Inline: true},
		},
	}
	if card.Premium {
		embed.Description = "This problem is premium only, so there is no description available."
	} else {
		embed.Description = truncate(card.Description, descriptionPreviewLen)
	}
	if len(card.TagNames) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Tags", Value: strings.Join(card.TagNames, ", "), Inline: true,
		})
	}
	return embed
}

// statsEmbed renders a user's public profile and accepted-submission counts.
func statsEmbed(stats leetcode.UserStats) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: stats.Username,
		URL:   "https://leetcode.com/" + stats.Username + "/",
		Color: 0x3498DB,
	}
	if stats.AvatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: stats.AvatarURL}
	}
	if stats.AboutMe != "" {
		embed.Description = truncate(stats.AboutMe, descriptionPreviewLen)
	}

	addField := func(name, value string) {
		if value == "" {
			return
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: name, Value: value, Inline: true,
		})
	}
	addField("Country", stats.Country)
	addField("Company", stats.Company)
	addField("Job Title", stats.JobTitle)
	addField("School", stats.School)
	addField("GitHub", stats.GitHubURL)
	addField("Twitter", stats.TwitterURL)
	addField("LinkedIn", stats.LinkedinURL)
	if len(stats.Websites) > 0 {
		addField("Websites", strings.Join(stats.Websites, "\n"))
	}

	for _, count := range stats.AcCounts {
		addField(count.Difficulty+" solved",
			fmt.Sprintf("%d (%d submissions)", count.Count, count.Submissions))
	}
	return embed
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	// Never cut a multi-byte rune in half.
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
