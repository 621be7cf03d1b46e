package domain

// labelUnknown is used when an answer is missing or not in the label tables.
const labelUnknown = "Not specified"

var painLabels = map[string]string{
	PainMessages:  "Answering the same client questions over and over",
	PainData:      "Consolidating data from many spreadsheets",
	PainDeadlines: "Reminding the team about deadlines",
	PainDocuments: "Preparing invoices and documents by hand",
	PainCopying:   "Copying data between systems",
}

var timeLabels = map[string]string{
	TimeLow:    "Less than 5 hours a week",
	TimeMedium: "5-10 hours a week",
	TimeHigh:   "More than 10 hours a week",
}

var emotionLabels = map[string]string{
	EmotionTired:    "Squeezed like a lemon",
	EmotionAnnoyed:  "Annoyed about missing the important work",
	EmotionConfused: "Confused about where the time went",
}

// PainLabel returns the human-readable description of a pain point code.
func PainLabel(code string) string { return lookup(painLabels, code) }

// TimeLabel returns the human-readable description of a time-spent code.
func TimeLabel(code string) string { return lookup(timeLabels, code) }

// EmotionLabel returns the human-readable description of an emotion code.
func EmotionLabel(code string) string { return lookup(emotionLabels, code) }

func lookup(m map[string]string, code string) string {
	if v, ok := m[code]; ok {
		return v
	}
	return labelUnknown
}
