package campaign

import "strings"

// Campaign identifies a calling effort.
//
// Read-only to the call flow: it is owned by the administration subsystem
// and re-read by id on every webhook.
type Campaign struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// PhoneNumbers is the pool of originating numbers for outbound calls.
	PhoneNumbers []string `json:"phone_numbers"`

	TargetOrdering TargetOrdering `json:"target_ordering" db:"target_ordering"`
	IncludeCustom  IncludeCustom  `json:"include_custom" db:"include_custom"`

	// CustomTargetIDs are targets configured directly on the campaign.
	CustomTargetIDs []int64 `json:"custom_target_ids"`

	// CallMaximum caps how many targets one session calls; 0 means no cap.
	CallMaximum int `json:"call_maximum" db:"call_maximum"`

	Recordings map[Slot]AudioRecording `json:"audio"`
}

type TargetOrdering string

const (
	OrderingInOrder TargetOrdering = "in-order"
	OrderingShuffle TargetOrdering = "shuffle"
)

type IncludeCustom string

const (
	IncludeCustomFirst IncludeCustom = "first"
	IncludeCustomLast  IncludeCustom = "last"
	IncludeCustomOnly  IncludeCustom = "only"
)

// Slot names a campaign prompt.
type Slot string

const (
	SlotIntro          Slot = "msg_intro"
	SlotIntroConfirm   Slot = "msg_intro_confirm"
	SlotAskZip         Slot = "msg_ask_zip"
	SlotInvalidZip     Slot = "msg_invalid_zip"
	SlotCallBlockIntro Slot = "msg_call_block_intro"
	SlotRepIntro       Slot = "msg_rep_intro"
	SlotBetweenThanks  Slot = "msg_between_thanks"
	SlotFinalThanks    Slot = "msg_final_thanks"
)

var defaultPrompts = map[Slot]string{
	SlotIntro:          "Thank you for calling.",
	SlotIntroConfirm:   "Press any key to be connected.",
	SlotAskZip:         "Please enter your five digit zip code.",
	SlotInvalidZip:     "Sorry, that zip code didn't work. Please try again.",
	SlotCallBlockIntro: "{{#many_reps}}We'll now connect you to {{n_targets}} offices. Please stay on the line between calls.{{/many_reps}}{{^many_reps}}We'll now connect you.{{/many_reps}}",
	SlotRepIntro:       "Connecting you to {{name}}.",
	SlotBetweenThanks:  "Thank you. Connecting you to the next office.",
	SlotFinalThanks:    "Thank you for making your voice heard. Goodbye.",
}

// AudioRecording is one prompt. A stored file is played; otherwise the
// text-to-speech template is rendered and spoken.
type AudioRecording struct {
	Key Slot `json:"key" db:"key"`

	// FileKey is the object key of an uploaded recording.
	FileKey string `json:"file_key,omitempty" db:"file_key"`
	// FileURL is played as stored. A FileKey needs a bucket or public base URL.
	FileURL string `json:"file_url,omitempty" db:"file_url"`

	TextToSpeech string `json:"text_to_speech,omitempty" db:"text_to_speech"`
}

func (a AudioRecording) HasFile() bool { return a.FileKey != "" || a.FileURL != "" }

// Audio returns the recording for slot, falling back to the built-in prompt.
func (c Campaign) Audio(slot Slot) AudioRecording {
	if a, ok := c.Recordings[slot]; ok && (a.HasFile() || strings.TrimSpace(a.TextToSpeech) != "") {
		return a
	}
	return AudioRecording{Key: slot, TextToSpeech: defaultPrompts[slot]}
}

// Target is a callable person or office.
type Target struct {
	ID     int64  `json:"id" db:"id"`
	UID    string `json:"uid" db:"uid"`
	Name   string `json:"name" db:"name"`
	Title  string `json:"title" db:"title"`
	Number string `json:"number" db:"number"`
}

func (t Target) FullName() string {
	return strings.TrimSpace(t.Title + " " + t.Name)
}

// Office is a secondary contact point for a Target.
type Office struct {
	ID       int64  `json:"id" db:"id"`
	TargetID int64  `json:"target_id" db:"target_id"`
	UID      string `json:"uid" db:"uid"`
	Name     string `json:"name" db:"name"`
	Address  string `json:"address" db:"address"`
	Number   string `json:"number" db:"number"`
	Location string `json:"location,omitempty" db:"location"`
}
