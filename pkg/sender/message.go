package sender

import (
	"net/url"
	"strconv"
)

// Sound is a device notification sound identifier.
// Values are sent verbatim; unknown sounds are not rejected.
type Sound string

const (
	SoundIntermission Sound = "intermission"
	SoundBugle        Sound = "bugle"
	SoundSpaceAlarm   Sound = "spacealarm"
	SoundIncoming     Sound = "incoming"
	SoundSilent       Sound = "silent"
	SoundCashRegister Sound = "cashregister"
	SoundClassic      Sound = "classic"
	SoundDefault      Sound = "default"
	SoundUpDown       Sound = "updown"
	SoundCosmic       Sound = "cosmic"
	SoundPersistent   Sound = "persistent"
	SoundPianoBar     Sound = "pianobar"
	SoundEcho         Sound = "echo"
	SoundFailing      Sound = "failing"
	SoundBike         Sound = "bike"
	SoundMagic        Sound = "magic"
	SoundTugboat      Sound = "tugboat"
	SoundSystem       Sound = "system"
)

var knownSounds = map[Sound]struct{}{
	SoundIntermission: {}, SoundBugle: {}, SoundSpaceAlarm: {}, SoundIncoming: {},
	SoundSilent: {}, SoundCashRegister: {}, SoundClassic: {}, SoundDefault: {},
	SoundUpDown: {}, SoundCosmic: {}, SoundPersistent: {}, SoundPianoBar: {},
	SoundEcho: {}, SoundFailing: {}, SoundBike: {}, SoundMagic: {},
	SoundTugboat: {}, SoundSystem: {},
}

// Known reports whether s is one of the sounds the API documents.
// Send does not call it; it is here for callers that want to validate input.
func (s Sound) Known() bool {
	_, ok := knownSounds[s]
	return ok
}

// Message holds the caller-provided fields of one notification.
type Message struct {
	Title   string
	Urgent  bool
	Sound   Sound
	Content string
	URL     string
}

// Request is the wire form of a notification.
type Request struct {
	Source   string
	Receiver string
	Title    string
	Priority int
	Sound    Sound
	Content  string
	URL      string
}

// NewRequest builds the request for msg. Urgent maps to priority 1,
// everything else to 0. An empty sound becomes SoundDefault.
func NewRequest(source, receiver string, msg Message) Request {
	priority := 0
	if msg.Urgent {
		priority = 1
	}
	sound := msg.Sound
	if sound == "" {
		sound = SoundDefault
	}
	return Request{
		Source:   source,
		Receiver: receiver,
		Title:    msg.Title,
		Priority: priority,
		Sound:    sound,
		Content:  msg.Content,
		URL:      msg.URL,
	}
}

// Form encodes the request as form values.
func (r Request) Form() url.Values {
	v := url.Values{}
	v.Set("source", r.Source)
	v.Set("receiver", r.Receiver)
	v.Set("title", r.Title)
	v.Set("priority", strconv.Itoa(r.Priority))
	v.Set("sound", string(r.Sound))
	v.Set("content", r.Content)
	v.Set("url", r.URL)
	return v
}
