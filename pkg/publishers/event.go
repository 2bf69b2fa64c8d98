package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

// Event is the JSON envelope queue and webhook publishers deliver.
type Event struct {
	NaturalKey string    `json:"natural_key"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	Link       string    `json:"link,omitempty"`
	Source     string    `json:"source,omitempty"`
	Company    string    `json:"company,omitempty"`
	MediaPath  string    `json:"media_path,omitempty"`
	ReplyTo    string    `json:"reply_to,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewEvent builds the envelope for a payload.
func NewEvent(p domain.Payload) Event {
	evt := Event{
		NaturalKey: p.Item.NaturalKey,
		Title:      p.Item.DisplayTitle,
		Text:       p.Text,
		Link:       p.Item.Attribute(domain.AttrLink),
		Source:     p.Item.Attribute(domain.AttrSource),
		Company:    p.Item.Attribute(domain.AttrCompany),
		MediaPath:  p.MediaPath,
		CreatedAt:  time.Now().UTC(),
	}
	if p.Thread != nil {
		evt.ReplyTo = p.Thread.Parent.ID
	}
	return evt
}

// messageAttributes are copied onto queue messages for routing and filtering.
func (e Event) messageAttributes() map[string]string {
	attrs := map[string]string{"natural_key": e.NaturalKey}
	if e.Source != "" {
		attrs["source"] = e.Source
	}
	return attrs
}
