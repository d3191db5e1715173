package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestMockResponder_Embeds(t *testing.T) {
	responder := &MockResponder{}

	if responder.Embeds() != nil {
		t.Error("expected no embeds before any response")
	}

	_ = responder.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{Description: "first"}},
		},
	})
	if got := responder.Embeds(); len(got) != 1 || got[0].Description != "first" {
		t.Errorf("expected response embed, got %v", got)
	}

	edited := []*discordgo.MessageEmbed{{Description: "edited"}}
	_ = responder.Edit(&discordgo.WebhookEdit{Embeds: &edited})
	if got := responder.Embeds(); len(got) != 1 || got[0].Description != "edited" {
		t.Errorf("expected edited embed, got %v", got)
	}
}
