package domain

import "strings"

// Keyword groups for the qualifying heuristic. A message that touches two or
// more groups is surfaced as a qualifying signal for agent and AI review; it
// never advances the lead's status on its own.
var intentGroups = map[string][]string{
	"budget": {
		"budget", "price", "price range", "afford", "pre-approved",
		"preapproved", "financing", "mortgage", "down payment", "$",
	},
	"timeline": {
		"timeline", "how soon", "move in", "moving", "asap",
		"next month", "this month", "by the end of", "when can",
	},
	"area": {
		"area", "neighborhood", "location", "school district", "downtown",
		"east side", "west side", "north side", "south side", "close to", "near the",
	},
}

// Qualify runs the keyword heuristic over an inbound message. It returns true
// when at least two intent groups match, along with the names of the matched
// groups (sorted order not guaranteed).
func Qualify(text string) (bool, []string) {
	lowered := strings.ToLower(text)

	var matched []string
	for group, keywords := range intentGroups {
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				matched = append(matched, group)
				break
			}
		}
	}

	return len(matched) >= 2, matched
}
