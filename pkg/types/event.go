package types

import "encoding/json"

// Outer event types delivered to the Events API endpoint
const (
	EventTypeURLVerification = "url_verification"
	EventTypeCallback        = "event_callback"
	EventTypeFileShared      = "file_shared"
)

// EventEnvelope is the outer Events API payload
// Reference: https://api.slack.com/apis/connections/events-api
type EventEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
}

// InnerEvent is the event wrapped by an event_callback envelope.
// Slack and our own test fixtures disagree on a few field names, so both
// spellings are accepted.
type InnerEvent struct {
	Type      string      `json:"type"`
	ChannelID string      `json:"channel_id,omitempty"`
	Channel   string      `json:"channel,omitempty"`
	TS        string      `json:"ts,omitempty"`
	EventTS   string      `json:"event_ts,omitempty"`
	File      *SlackFile  `json:"file,omitempty"`
	Files     []SlackFile `json:"files,omitempty"`
}

// SlackFile is the file reference carried by file_shared
type SlackFile struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	URLPrivate string `json:"url_private,omitempty"`
}

// ChannelRef returns the originating channel
func (e InnerEvent) ChannelRef() string {
	if e.ChannelID != "" {
		return e.ChannelID
	}
	return e.Channel
}

// ThreadTS returns the timestamp token replies are threaded to
func (e InnerEvent) ThreadTS() string {
	if e.TS != "" {
		return e.TS
	}
	return e.EventTS
}

// FileRef returns the shared file, or nil when the event carries none
func (e InnerEvent) FileRef() *SlackFile {
	if e.File != nil && e.File.URLPrivate != "" {
		return e.File
	}
	for i := range e.Files {
		if e.Files[i].URLPrivate != "" {
			return &e.Files[i]
		}
	}
	return nil
}
