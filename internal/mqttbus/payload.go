package mqttbus

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Payload is a decoded message body. Publishers send either a JSON object
// or plain text; both end up here.
type Payload struct {
	Raw      string
	JSON     bool
	Text     string
	VideoURL string

	active   bool
	hasState bool
}

type jsonPayload struct {
	Active   *bool  `json:"active"`
	State    string `json:"state"`
	Text     string `json:"text"`
	Message  string `json:"message"`
	VideoURL string `json:"video_url"`
}

// Decode parses b. It never fails: anything that is not a JSON object is
// kept as raw text.
func Decode(b []byte) Payload {
	p := Payload{Raw: string(bytes.TrimSpace(b))}

	var j jsonPayload
	if strings.HasPrefix(p.Raw, "{") && json.Unmarshal(b, &j) == nil {
		p.JSON = true
		p.Text = j.Text
		if p.Text == "" {
			p.Text = j.Message
		}
		p.VideoURL = j.VideoURL
		switch {
		case j.Active != nil:
			p.active, p.hasState = *j.Active, true
		case j.State != "":
			p.active, p.hasState = parseState(j.State)
		}
		return p
	}

	p.Text = p.Raw
	p.active, p.hasState = parseState(p.Raw)
	return p
}

// State reports the on/off state carried by the payload, if any.
func (p Payload) State() (active, ok bool) {
	return p.active, p.hasState
}

func parseState(s string) (active, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "active", "true", "1", "pressed", "detected":
		return true, true
	case "off", "inactive", "false", "0", "released", "clear":
		return false, true
	}
	return false, false
}
