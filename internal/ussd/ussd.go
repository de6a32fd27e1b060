// Package ussd implements the Africa's Talking USSD gateway for browsing
// learning resources from feature phones. Callers navigate a small menu
// tree, then have a download link texted to them or read a short summary
// on screen.
package ussd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/translearn/translearn/internal/domain"
	"github.com/translearn/translearn/internal/metrics"
	"github.com/translearn/translearn/internal/repository"
	"github.com/translearn/translearn/internal/worker"
)

// State identifies where in the menu tree a session is.
type State string

const (
	StateMain          State = "main"
	StateSubjects      State = "browse_subjects"
	StateGrades        State = "browse_grades"
	StateResources     State = "resource_list"
	StateSMSPrompt     State = "request_sms"
	StateSummaryPrompt State = "get_summary"
)

// Menu choices, in display order.
var (
	subjects = []string{"Mathematics", "Science", "English", "History", "Geography"}
	grades   = []string{"K-5", "6-8", "9-12", "college"}
)

// maxListedResources caps how many results fit on a USSD screen.
const maxListedResources = 5

// Request is the Africa's Talking USSD callback payload.
// Text carries the full input history joined with "*", e.g. "1*2*3".
type Request struct {
	SessionID   string
	ServiceCode string
	PhoneNumber string
	Text        string
}

// Response is what the gateway renders back to the handset. End closes the
// session (an "END" reply in Africa's Talking terms).
type Response struct {
	Text string
	End  bool
}

// Service drives the USSD menu state machine.
type Service struct {
	sessions *SessionStore
	queries  *repository.Queries
	logger   *slog.Logger
}

// NewService creates the USSD service.
func NewService(sessions *SessionStore, queries *repository.Queries, logger *slog.Logger) *Service {
	return &Service{
		sessions: sessions,
		queries:  queries,
		logger:   logger,
	}
}

// Handle processes one gateway callback and returns the screen to render.
// It never returns an error to the gateway; failures produce an apology
// screen so the handset doesn't show a raw network error.
func (s *Service) Handle(ctx context.Context, req Request) Response {
	sess, created := s.sessions.GetOrCreate(req.SessionID, req.PhoneNumber)
	if created {
		metrics.USSDSessions.Inc()
	}

	// The whole step runs under the session lock so the admin snapshot
	// never observes a half-updated menu state.
	sess.Lock()
	input := lastInput(req.Text)
	if input == "" && sess.State == StateMain {
		sess.Unlock()
		return Response{Text: mainMenu()}
	}

	resp, err := s.step(ctx, sess, input)
	state := sess.State
	sess.Unlock()
	if err != nil {
		s.logger.Error("ussd step failed",
			"session_id", req.SessionID,
			"state", state,
			"error", err,
		)
		return Response{Text: "Sorry, an error occurred. Please try again.", End: true}
	}
	if resp.End {
		s.sessions.Delete(sess.ID)
	}
	return resp
}

// lastInput extracts the most recent selection from the gateway's
// cumulative "*"-joined input history.
func lastInput(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "*")
	return parts[len(parts)-1]
}

func (s *Service) step(ctx context.Context, sess *Session, input string) (Response, error) {
	switch sess.State {
	case StateMain:
		return s.stepMain(sess, input)
	case StateSubjects:
		return s.stepSubjects(sess, input)
	case StateGrades:
		return s.stepGrades(ctx, sess, input)
	case StateResources:
		return s.stepResources(sess, input)
	case StateSMSPrompt:
		return s.stepSMSRequest(ctx, sess, input)
	case StateSummaryPrompt:
		return s.stepSummary(sess, input)
	default:
		sess.State = StateMain
		return Response{Text: mainMenu()}, nil
	}
}

func (s *Service) stepMain(sess *Session, input string) (Response, error) {
	switch input {
	case "1":
		sess.State = StateSubjects
		return Response{Text: subjectsMenu()}, nil
	case "2":
		sess.State = StateMain
		return Response{Text: helpScreen()}, nil
	case "3":
		return Response{Text: "Thank you for using TransLearn. Goodbye!", End: true}, nil
	default:
		return Response{Text: "Invalid selection. Please try again.\n\n" + mainMenu()}, nil
	}
}

func (s *Service) stepSubjects(sess *Session, input string) (Response, error) {
	n, err := strconv.Atoi(input)
	if err == nil && n >= 1 && n <= len(subjects) {
		sess.Subject = subjects[n-1]
		sess.State = StateGrades
		return Response{Text: gradesMenu()}, nil
	}
	if n == len(subjects)+1 {
		sess.State = StateMain
		return Response{Text: mainMenu()}, nil
	}
	return Response{Text: "Invalid selection. Please try again.\n\n" + subjectsMenu()}, nil
}

func (s *Service) stepGrades(ctx context.Context, sess *Session, input string) (Response, error) {
	n, err := strconv.Atoi(input)
	if err == nil && n >= 1 && n <= len(grades) {
		sess.Grade = grades[n-1]

		resources, err := s.queries.ListResources(ctx, domain.ResourceFilter{
			Subject: sess.Subject,
			Grade:   sess.Grade,
			Limit:   maxListedResources,
		})
		if err != nil {
			return Response{}, fmt.Errorf("list resources: %w", err)
		}
		sess.Resources = resources
		sess.State = StateResources

		if len(resources) == 0 {
			sess.State = StateSubjects
			return Response{Text: fmt.Sprintf(
				"No resources found for %s - %s.\n\n", sess.Subject, sess.Grade,
			) + subjectsMenu()}, nil
		}
		return Response{Text: resourcesMenu(resources)}, nil
	}
	if n == len(grades)+1 {
		sess.State = StateSubjects
		return Response{Text: subjectsMenu()}, nil
	}
	return Response{Text: "Invalid selection. Please try again.\n\n" + gradesMenu()}, nil
}

func (s *Service) stepResources(sess *Session, input string) (Response, error) {
	switch input {
	case "1":
		sess.State = StateSMSPrompt
		return Response{Text: fmt.Sprintf("Enter the resource number (1-%d) to receive an SMS link:", len(sess.Resources))}, nil
	case "2":
		sess.State = StateSummaryPrompt
		return Response{Text: fmt.Sprintf("Enter the resource number (1-%d) to see a summary:", len(sess.Resources))}, nil
	case "3":
		sess.State = StateSubjects
		return Response{Text: subjectsMenu()}, nil
	case "4":
		sess.State = StateMain
		return Response{Text: mainMenu()}, nil
	default:
		return Response{Text: "Invalid selection. Please try again.\n\n" + resourcesMenu(sess.Resources)}, nil
	}
}

func (s *Service) stepSMSRequest(ctx context.Context, sess *Session, input string) (Response, error) {
	resource, errText := pickResource(sess, input)
	if errText != "" {
		return Response{Text: errText}, nil
	}

	// Queue the send so the session can be answered before the SMS
	// gateway round trip completes.
	if _, err := worker.EnqueueSendSMSLink(ctx, s.queries, sess.PhoneNumber, resource.ID); err != nil {
		sess.State = StateResources
		return Response{Text: "Failed to send SMS. Please try again.\n\n" + resourcesMenu(sess.Resources)}, nil
	}

	// Attribute the browse to the caller's account when the phone number is
	// registered. Anonymous callers still get the SMS, just no audit entry.
	if caller, err := s.queries.GetUserByPhone(ctx, sess.PhoneNumber); err == nil {
		if err := s.queries.InsertActivityLog(ctx, caller.ID, domain.ActionUSSDBrowse, nil); err != nil {
			s.logger.Warn("ussd activity log failed", "error", err)
		}
	}

	sess.State = StateResources
	return Response{Text: fmt.Sprintf("SMS with a link to %q is on its way.\n\n", resource.Title) + resourcesMenu(sess.Resources)}, nil
}

func (s *Service) stepSummary(sess *Session, input string) (Response, error) {
	resource, errText := pickResource(sess, input)
	if errText != "" {
		return Response{Text: errText}, nil
	}

	sess.State = StateResources
	summary := resource.Description
	if summary == "" {
		summary = "No summary available for this resource."
	}
	if len(summary) > 200 {
		summary = summary[:200] + "..."
	}
	return Response{Text: fmt.Sprintf("Summary of %s:\n\n%s\n\n", resource.Title, summary) + resourcesMenu(sess.Resources)}, nil
}

// pickResource resolves a 1-based selection against the session's resource
// list. The second return is a re-prompt screen when the input is invalid.
func pickResource(sess *Session, input string) (*domain.Resource, string) {
	n, err := strconv.Atoi(input)
	if err != nil {
		return nil, "Please enter a valid number."
	}
	if n < 1 || n > len(sess.Resources) {
		return nil, "Invalid resource number. Please try again."
	}
	return sess.Resources[n-1], ""
}

// =============================================================================
// Screens
// =============================================================================

func mainMenu() string {
	return "Welcome to TransLearn\n\n1. Browse Resources\n2. Help\n3. Exit"
}

func subjectsMenu() string {
	var b strings.Builder
	b.WriteString("Select Subject:\n\n")
	for i, s := range subjects {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	fmt.Fprintf(&b, "%d. Back", len(subjects)+1)
	return b.String()
}

func gradesMenu() string {
	return "Select Grade:\n\n1. K-5 (Elementary)\n2. 6-8 (Middle)\n3. 9-12 (High)\n4. College\n5. Back"
}

func resourcesMenu(resources []*domain.Resource) string {
	var b strings.Builder
	b.WriteString("Resources found:\n\n")
	for i, r := range resources {
		title := r.Title
		if len(title) > 40 {
			title = title[:40] + "..."
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}
	b.WriteString("\n1. Request SMS Link\n2. Get Summary\n3. Browse More\n4. Back to Main")
	return b.String()
}

func helpScreen() string {
	return "TransLearn Help:\n\n" +
		"Browse educational resources, request SMS links, and read summaries.\n\n" +
		"Reply with a menu number to continue.\n\n" + mainMenu()
}
