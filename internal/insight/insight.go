// Package insight turns the funnel's pain-point and time-spent answers into
// the personalized narrative shown before the offer. It is pure: no I/O, no
// state, identical output for identical input.
package insight

import (
	"fmt"

	"github.com/tbourn/vibe-compass/internal/domain"
)

type painCopy struct {
	headline string
	idea     string
}

type timeCopy struct {
	weekly  string
	yearly  int
	verdict string
}

var pains = map[string]painCopy{
	domain.PainMessages: {
		headline: "Answering the same questions again and again is the most common routine we see.",
		idea:     "A small FAQ assistant wired to your chat can take the first line of replies and hand you only the unusual ones.",
	},
	domain.PainData: {
		headline: "Stitching numbers together from a dozen spreadsheets quietly eats whole afternoons.",
		idea:     "A scheduled script can pull every source into one report and have it waiting for you each morning.",
	},
	domain.PainDeadlines: {
		headline: "Chasing the team about deadlines turns you into a human alarm clock.",
		idea:     "An automated reminder bot can nudge people from the task tracker so you only step in when something slips.",
	},
	domain.PainDocuments: {
		headline: "Building invoices and documents by hand is slow and easy to get wrong.",
		idea:     "Templates filled straight from your CRM or sheet can produce a ready document in seconds.",
	},
	domain.PainCopying: {
		headline: "Copying data from one system into another is the purest form of routine.",
		idea:     "A lightweight integration can sync the fields for you and log every transfer so nothing gets lost.",
	},
}

var times = map[string]timeCopy{
	domain.TimeLow: {
		weekly:  "under 5 hours a week",
		yearly:  200,
		verdict: "Small on paper, yet it is a full month of work every year.",
	},
	domain.TimeMedium: {
		weekly:  "5 to 10 hours a week",
		yearly:  390,
		verdict: "That is more than two months a year spent on work a script could do.",
	},
	domain.TimeHigh: {
		weekly:  "more than 10 hours a week",
		yearly:  520,
		verdict: "That is a quarter of your working year. Time to take it back.",
	},
}

// Fallback is returned when either answer is missing or unknown.
const Fallback = "Every routine you repeat by hand is a candidate for automation. " +
	"Start with the task you dread the most: a small script or bot there usually pays for itself within weeks."

// Generate returns the narrative for (painPoint, timeSpent). Unknown values
// yield Fallback.
func Generate(painPoint, timeSpent string) string {
	p, okPain := pains[painPoint]
	t, okTime := times[timeSpent]
	if !okPain || !okTime {
		return Fallback
	}
	return fmt.Sprintf("%s\n\nYou spend %s on it, roughly %d hours a year. %s\n\nIdea: %s",
		p.headline, t.weekly, t.yearly, t.verdict, p.idea)
}
