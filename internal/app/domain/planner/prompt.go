// Package planner owns the streaming itinerary endpoints: fresh
// generation and follow-up chat about a saved plan.
package planner

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/FACorreiaa/tripflow/internal/app/llm"
	"github.com/FACorreiaa/tripflow/internal/app/models"
)

const dateLayout = "2006-01-02"

// Sampling knobs per flow. Generation gets a bigger token budget since
// it produces the whole plan; chat answers are shorter.
var (
	generateParams = llm.Params{MaxTokens: 4000, Temperature: 0.7, TopP: 0.95}
	chatParams     = llm.Params{MaxTokens: 2000, Temperature: 0.7}
)

// tripDuration returns the trip length in days, rounding partial days
// up. Same-day trips are allowed (duration 0); an end before the start
// is a validation error.
func tripDuration(startDate, endDate string) (int, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return 0, fmt.Errorf("invalid start date %q: %w", startDate, models.ErrValidation)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return 0, fmt.Errorf("invalid end date %q: %w", endDate, models.ErrValidation)
	}
	if end.Before(start) {
		return 0, fmt.Errorf("end date before start date: %w", models.ErrValidation)
	}
	return int(math.Ceil(end.Sub(start).Hours() / 24)), nil
}

// preludeSteps are the synthetic planning updates streamed while the
// provider warms up. Always seven, personalized from the request.
func preludeSteps(req models.GenerateItineraryRequest, duration int) []string {
	return []string{
		fmt.Sprintf("Analyzing destination: %s...", req.Destination),
		fmt.Sprintf("Considering %d days with %s budget...", duration, req.Budget),
		fmt.Sprintf("Matching activities to interests: %s...", req.Interests),
		fmt.Sprintf("Optimizing daily schedule for %s pace...", req.Pace),
		fmt.Sprintf("Finding best %s options...", req.Accommodation),
		"Adding hidden gems and local favorites...",
		"Creating detailed itinerary...",
	}
}

func buildGenerateMessages(req models.GenerateItineraryRequest, duration int) []llm.Message {
	systemPrompt := "You are an expert travel planner with deep knowledge of destinations worldwide. " +
		"Create detailed, personalized travel itineraries that are practical, exciting, and tailored " +
		"to the user's preferences. Include specific recommendations for activities, restaurants, " +
		"accommodations, and insider tips."

	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed %d-day travel itinerary for %s.\n\n", duration, req.Destination)
	b.WriteString("**Trip Details:**\n")
	fmt.Fprintf(&b, "- Dates: %s to %s (%d days)\n", req.StartDate, req.EndDate, duration)
	fmt.Fprintf(&b, "- Budget: %s\n", req.Budget)
	fmt.Fprintf(&b, "- Travelers: %s\n", req.Travelers)
	fmt.Fprintf(&b, "- Accommodation: %s\n", req.Accommodation)
	fmt.Fprintf(&b, "- Travel Pace: %s\n", req.Pace)
	fmt.Fprintf(&b, "- Interests: %s\n", req.Interests)
	if req.AdditionalNotes != "" {
		fmt.Fprintf(&b, "- Special Requests: %s\n", req.AdditionalNotes)
	}
	b.WriteString("\n**Please provide:**\n\n")
	fmt.Fprintf(&b, "1. **Trip Overview**: Brief introduction about %s and why it's perfect for this trip\n\n", req.Destination)
	b.WriteString("2. **Day-by-Day Itinerary**: For each day, include:\n")
	b.WriteString("   - Morning activities (with specific times and locations)\n")
	b.WriteString("   - Lunch recommendations (restaurant names and cuisine types)\n")
	b.WriteString("   - Afternoon activities\n")
	b.WriteString("   - Dinner recommendations\n")
	b.WriteString("   - Evening activities or entertainment\n")
	b.WriteString("   - Estimated daily budget breakdown\n\n")
	b.WriteString("3. **Must-Know Tips**:\n")
	b.WriteString("   - Best way to get around\n")
	b.WriteString("   - Money-saving tips\n")
	b.WriteString("   - Local customs and etiquette\n")
	b.WriteString("   - What to pack\n\n")
	b.WriteString("4. **Hidden Gems**: 3-5 less touristy spots that match their interests\n\n")
	b.WriteString("5. **Budget Summary**: Total estimated cost breakdown\n\n")
	b.WriteString("Format the response in clean Markdown with clear headings and bullet points. Make it engaging and exciting!")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: b.String()},
	}
}

// buildChatMessages assembles the follow-up conversation: itinerary
// context, the most recent stored turns, then the new question. Only
// user and assistant turns are replayed; anything else in the stored
// history is dropped before it reaches the provider.
func buildChatMessages(itinerary *models.Itinerary, userMessage string, historyLimit int) []llm.Message {
	systemPrompt := fmt.Sprintf("You are a helpful travel assistant. The user has a travel itinerary for %s. "+
		"Here's their itinerary:\n\n%s\n\nHelp them with questions about their trip, suggest modifications, "+
		"recommend additional activities, or provide travel tips. Be specific and reference their itinerary "+
		"when relevant.", itinerary.Destination, itinerary.Content)

	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}

	history := itinerary.ChatHistory
	if historyLimit > 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, turn := range history {
		if turn.Role != models.ChatRoleUser && turn.Role != models.ChatRoleAssistant {
			continue
		}
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
}
