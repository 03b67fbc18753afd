package slack

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/valentinpelus/birdwatch/pkg/types"
)

// Action IDs of the interactive elements in a result message
const (
	ActionIDCorrect   = "feedback_correct"
	ActionIDIncorrect = "feedback_incorrect"
)

// FallbackSpecies are always offered as corrections after the ranked alternatives
var FallbackSpecies = []string{"House Finch", "Mourning Dove"}

const maxRankedResults = 3

// BuildResultMessage renders ranked predictions as an interactive message.
// The message carries no channel; the caller addresses and threads it.
func BuildResultMessage(envelope types.InferenceEnvelope, filename, threadTS string) (types.SlackMessage, error) {
	if len(envelope.Predictions) == 0 {
		return types.SlackMessage{}, fmt.Errorf("no predictions to present")
	}

	topThree := envelope.Top(maxRankedResults)
	topSpecies := topThree[0].Species

	base := types.ActionPayload{
		TopSpecies:   topSpecies,
		ModelVersion: envelope.ModelVersion,
		Filename:     filename,
		ThreadTS:     threadTS,
	}

	correct := base
	correct.Action = types.ActionCorrect
	correctValue, err := encodeAction(correct)
	if err != nil {
		return types.SlackMessage{}, err
	}

	// option values must be unique within a static_select
	corrections := make([]string, 0, len(topThree)-1+len(FallbackSpecies))
	listed := make(map[string]bool, cap(corrections))
	for _, p := range topThree[1:] {
		corrections = append(corrections, p.Species)
		listed[p.Species] = true
	}
	for _, species := range FallbackSpecies {
		if !listed[species] {
			corrections = append(corrections, species)
			listed[species] = true
		}
	}

	options := make([]types.SlackOption, 0, len(corrections))
	for _, species := range corrections {
		incorrect := base
		incorrect.Action = types.ActionIncorrect
		incorrect.CorrectedSpecies = species
		value, err := encodeAction(incorrect)
		if err != nil {
			return types.SlackMessage{}, err
		}
		options = append(options, types.SlackOption{
			Text:  plainText(species),
			Value: value,
		})
	}

	blocks := []types.SlackBlock{
		{
			Type: "header",
			Text: &types.SlackTextObject{Type: "plain_text", Text: "🔎 AI Model Analysis Results", Emoji: true},
		},
		{
			Type: "context",
			Elements: []any{
				mrkdwn(fmt.Sprintf("*File:* `%s`", filename)),
				mrkdwn(fmt.Sprintf("*Model Version:* `%s`", envelope.ModelVersion)),
			},
		},
		{Type: "divider"},
		{
			Type: "section",
			Fields: []types.SlackTextObject{
				*mrkdwn("*Species Identification*"),
				*mrkdwn("*Confidence Score*"),
			},
		},
	}

	for _, p := range topThree {
		blocks = append(blocks, types.SlackBlock{
			Type: "section",
			Fields: []types.SlackTextObject{
				*mrkdwn(fmt.Sprintf("*%s*", p.Species)),
				*mrkdwn(fmt.Sprintf("`%d%%`", ConfidencePercent(p.Confidence))),
			},
		})
	}

	blocks = append(blocks,
		types.SlackBlock{Type: "divider"},
		types.SlackBlock{
			Type: "section",
			Text: mrkdwn("*Is the top prediction correct?*"),
		},
		types.SlackBlock{
			Type: "actions",
			Elements: []any{
				&types.SlackButton{
					Type:     "button",
					Text:     &types.SlackTextObject{Type: "plain_text", Text: fmt.Sprintf("✅ Yes, it's a %s", topSpecies), Emoji: true},
					Style:    "primary",
					Value:    correctValue,
					ActionID: ActionIDCorrect,
				},
			},
		},
		types.SlackBlock{
			Type: "section",
			Text: mrkdwn("If not, select the correct species from this list. Your selection is your submission."),
			Accessory: &types.SlackSelect{
				Type:        "static_select",
				Placeholder: &types.SlackTextObject{Type: "plain_text", Text: "Select correct species...", Emoji: true},
				Options:     options,
				ActionID:    ActionIDIncorrect,
			},
		},
	)

	return types.SlackMessage{
		ThreadTS: threadTS,
		Text:     fmt.Sprintf("AI analysis complete for %s", filename),
		Blocks:   blocks,
	}, nil
}

// ConfidencePercent rounds a (0,1] confidence to a whole percent
func ConfidencePercent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

func encodeAction(payload types.ActionPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode action value: %w", err)
	}
	return string(data), nil
}

func mrkdwn(text string) *types.SlackTextObject {
	return &types.SlackTextObject{Type: "mrkdwn", Text: text}
}

func plainText(text string) *types.SlackTextObject {
	return &types.SlackTextObject{Type: "plain_text", Text: text}
}
