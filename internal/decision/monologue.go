package decision

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// Monologue emotional coloring kicks in past these levels. They shape trace
// narration only; the dynamics thresholds live in the session and
// termination tuning.
const (
	monologueFrustrated = 0.6
	monologueConfused   = 0.6
	monologueImpatient  = 0.3
	monologueWary       = 0.3

	scentStrong = 0.7
	scentWeak   = 0.4
)

func engageMonologue(score float64, label string, st schemas.StateSnapshot) string {
	var b strings.Builder
	switch {
	case score > scentStrong:
		fmt.Fprintf(&b, "%q looks exactly right.", label)
	case score >= scentWeak:
		fmt.Fprintf(&b, "Not obvious, but %q seems the most promising option.", label)
	default:
		fmt.Fprintf(&b, "Nothing here feels right. Trying %q and hoping.", label)
	}
	appendMood(&b, st)
	return b.String()
}

func leaveMonologue(bestScore float64, st schemas.StateSnapshot) string {
	var b strings.Builder
	if bestScore <= 0.1 {
		b.WriteString("This page has nothing to do with what I need. Backing out.")
	} else {
		b.WriteString("I've given this page enough time; the trail is cold. Backing out.")
	}
	appendMood(&b, st)
	return b.String()
}

func abandonMonologue(st schemas.StateSnapshot) string {
	var b strings.Builder
	b.WriteString("There's nothing here I can interact with at all.")
	appendMood(&b, st)
	return b.String()
}

func appendMood(b *strings.Builder, st schemas.StateSnapshot) {
	if st.Confusion > monologueConfused {
		b.WriteString(" I'm not sure where I am anymore.")
	}
	if st.Frustration > monologueFrustrated {
		b.WriteString(" This site is really starting to annoy me.")
	}
	if st.Patience < monologueImpatient {
		b.WriteString(" I don't have all day for this.")
	}
	if st.Trust < monologueWary {
		b.WriteString(" Something about this site feels off.")
	}
}
