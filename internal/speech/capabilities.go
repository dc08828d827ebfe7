package speech

import "strings"

// Capabilities records which optional subsystems came up at startup.
type Capabilities struct {
	Microphone bool
	Voice      bool
	Classifier bool
}

func (c Capabilities) String() string {
	var on []string
	if c.Microphone {
		on = append(on, "microphone")
	}
	if c.Voice {
		on = append(on, "voice")
	}
	if c.Classifier {
		on = append(on, "classifier")
	}
	if len(on) == 0 {
		return "text-only"
	}
	return strings.Join(on, ",")
}
