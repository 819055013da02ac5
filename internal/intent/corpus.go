package intent

// hypothesisTemplates phrases each intent as a natural-language
// hypothesis for zero-shot classification. The zero-shot backend sends
// the template strings as candidate labels and maps the winner back to
// its intent.
var hypothesisTemplates = map[Intent]string{
	SetPreference:   "User is setting their preference or configuration",
	SetReminder:     "User is setting a reminder or alarm",
	ScheduleMeeting: "User is scheduling a meeting or appointment",
	RetrieveTask:    "User is retrieving or asking about stored information",
	CreateTask:      "User is creating a new task or to-do item",
	Unknown:         "User intent is unclear or unknown",
}

// intentExamples is the fixed per-intent corpus the embedding backend
// scores inputs against. Unknown has no examples on purpose: it is the
// floor the similarity search starts from, never a match target.
var intentExamples = map[Intent][]string{
	SetPreference:   {"I prefer coffee over tea", "Set my timezone to EST", "I like quiet hours from 9-5"},
	SetReminder:     {"Remind me about the meeting", "Alert me in 30 minutes", "Set an alarm for 6 AM"},
	ScheduleMeeting: {"Schedule a meeting for tomorrow", "Book an appointment with John", "Arrange a call next week"},
	RetrieveTask:    {"What did I say earlier", "Did I mention anything about the project", "Do you remember my preferences"},
	CreateTask:      {"Submit the report by Friday", "Call the client", "Prepare the presentation", "Send an email"},
}
