package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"whisker/internal/schedule"
)

const helpEmbedColor = 0x3498DB

// slotEmbed builds the embed posted at one scheduled slot.
func slotEmbed(slot schedule.Slot, gifURL, fact string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       slot.Emoji + " " + slot.Greeting,
		Description: slot.Message,
		Color:       slot.Color,
		Image:       &discordgo.MessageEmbedImage{URL: gifURL},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Cat fact", Value: fact},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// scheduleEmbed lists the daily posting slots.
func scheduleEmbed(slots []schedule.Slot, current schedule.Slot) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(slots))
	for _, slot := range slots {
		name := slot.Emoji + " " + slot.Name
		if slot.Name == current.Name {
			name += " (current)"
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  formatHourUTC(slot.Hour),
			Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:  "Daily cat schedule",
		Color:  current.Color,
		Fields: fields,
	}
}

func formatHourUTC(hour int) string {
	return fmt.Sprintf("%02d:00 UTC", hour)
}

// helpEmbed lists the commands understood after a mention.
func helpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Whisker commands",
		Description: "Mention me followed by a command, or just talk to me " +
			"and I'll answer in character.",
		Color: helpEmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "now", Value: "Show the current schedule slot with a GIF and a fact."},
			{Name: "fact", Value: "One random cat fact."},
			{Name: "gif", Value: "One random cat GIF."},
			{Name: "schedule", Value: "The daily posting schedule."},
			{Name: "memory", Value: "What I remember about you."},
			{Name: "forget", Value: "Wipe everything I remember about you."},
			{Name: "help", Value: "This message."},
		},
	}
}
