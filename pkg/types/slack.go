package types

// SlackMessage represents a chat.postMessage payload
// Reference: https://api.slack.com/methods/chat.postMessage
type SlackMessage struct {
	Channel  string       `json:"channel,omitempty"`
	Text     string       `json:"text,omitempty"`
	Blocks   []SlackBlock `json:"blocks,omitempty"`
	ThreadTS string       `json:"thread_ts,omitempty"`
}

// SlackBlock represents a Slack Block Kit element
type SlackBlock struct {
	Type      string            `json:"type"`
	Text      *SlackTextObject  `json:"text,omitempty"`
	Fields    []SlackTextObject `json:"fields,omitempty"`
	Elements  []any             `json:"elements,omitempty"` // *SlackTextObject for context, *SlackButton for actions
	Accessory *SlackSelect      `json:"accessory,omitempty"`
}

// SlackTextObject represents text within a Slack block
type SlackTextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// SlackButton is an interactive button element
type SlackButton struct {
	Type     string           `json:"type"`
	Text     *SlackTextObject `json:"text"`
	Style    string           `json:"style,omitempty"`
	Value    string           `json:"value"`
	ActionID string           `json:"action_id"`
}

// SlackSelect is a static_select menu element
type SlackSelect struct {
	Type        string           `json:"type"`
	Placeholder *SlackTextObject `json:"placeholder,omitempty"`
	Options     []SlackOption    `json:"options"`
	ActionID    string           `json:"action_id"`
}

// SlackOption is a single entry of a select menu
type SlackOption struct {
	Text  *SlackTextObject `json:"text,omitempty"`
	Value string           `json:"value"`
}

// SlackResponse represents the response from Slack API
type SlackResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	TS      string `json:"ts,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// BlockActionsPayload is the interactivity payload Slack posts when a user
// clicks a button or picks a select option.
// Reference: https://api.slack.com/reference/interaction-payloads/block-actions
type BlockActionsPayload struct {
	Type    string        `json:"type"`
	User    SlackRef      `json:"user"`
	Channel SlackRef      `json:"channel"`
	Actions []BlockAction `json:"actions"`
}

// SlackRef is the {id} object Slack uses for users and channels
type SlackRef struct {
	ID string `json:"id"`
}

// BlockAction is one element of BlockActionsPayload.Actions
type BlockAction struct {
	ActionID       string       `json:"action_id"`
	Value          string       `json:"value,omitempty"`
	SelectedOption *SlackOption `json:"selected_option,omitempty"`
}
