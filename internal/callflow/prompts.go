package callflow

import (
	"context"
	"html"
	"log/slog"
	"strings"

	"callpower/internal/campaign"
	"callpower/internal/media"
	"callpower/internal/telephony"

	"github.com/cbroglie/mustache"
)

// prompter turns a campaign audio slot into a Play or Say verb.
type prompter struct {
	media media.Resolver
	log   *slog.Logger
}

// verb plays the slot's recording when one is stored and resolvable,
// otherwise renders its text-to-speech template with params.
func (p prompter) verb(ctx context.Context, c campaign.Campaign, slot campaign.Slot, params map[string]any) any {
	audio := c.Audio(slot)

	if audio.HasFile() && p.media != nil {
		u, err := p.media.AudioURL(ctx, audio)
		if err == nil {
			return telephony.Play{URL: u}
		}
		p.log.Warn("audio url unavailable, falling back to speech",
			"err", err, "campaign_id", c.ID, "slot", string(slot))
	}

	text := audio.TextToSpeech
	if strings.TrimSpace(text) == "" {
		// file-only recording with no usable URL
		text = campaign.Campaign{}.Audio(slot).TextToSpeech
	}
	return telephony.Say{Text: p.render(text, params, c.ID, slot)}
}

func (p prompter) render(tmpl string, params map[string]any, campaignID int64, slot campaign.Slot) string {
	if params == nil {
		params = map[string]any{}
	}
	out, err := mustache.Render(tmpl, params)
	if err != nil {
		p.log.Warn("prompt template failed", "err", err, "campaign_id", campaignID, "slot", string(slot))
		return tmpl
	}
	// Speech is escaped once by the TwiML encoder; undo the template's HTML escaping.
	return html.UnescapeString(out)
}
