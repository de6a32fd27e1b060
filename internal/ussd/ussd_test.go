package ussd

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/translearn/translearn/internal/domain"
)

func testService(store *SessionStore) *Service {
	return NewService(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLastInput(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", ""},
		{"single", "1", "1"},
		{"cumulative", "1*2*3", "3"},
		{"trailing whitespace", " 1*4 ", "4"},
		{"empty last segment", "1*", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lastInput(tt.text))
		})
	}
}

func TestHandle_InitialDial(t *testing.T) {
	svc := testService(NewSessionStore())

	resp := svc.Handle(context.Background(), Request{SessionID: "s1", PhoneNumber: "+254700000001"})

	assert.False(t, resp.End)
	assert.Contains(t, resp.Text, "Welcome to TransLearn")
	assert.Contains(t, resp.Text, "1. Browse Resources")
}

func TestHandle_MainMenu(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantText string
		wantEnd  bool
	}{
		{"browse", "1", "Select Subject", false},
		{"help", "2", "TransLearn Help", false},
		{"exit", "3", "Goodbye", true},
		{"invalid", "9", "Invalid selection", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testService(NewSessionStore())

			resp := svc.Handle(context.Background(), Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: tt.input})

			assert.Equal(t, tt.wantEnd, resp.End)
			assert.Contains(t, resp.Text, tt.wantText)
		})
	}
}

func TestHandle_SubjectSelectionAdvancesToGrades(t *testing.T) {
	store := NewSessionStore()
	svc := testService(store)
	ctx := context.Background()

	svc.Handle(ctx, Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "1"})
	resp := svc.Handle(ctx, Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "1*2"})

	assert.Contains(t, resp.Text, "Select Grade")
	sess, created := store.GetOrCreate("s1", "+254700000001")
	require.False(t, created)
	assert.Equal(t, "Science", sess.Subject)
	assert.Equal(t, StateGrades, sess.State)
}

func TestHandle_SubjectsBackOption(t *testing.T) {
	svc := testService(NewSessionStore())
	ctx := context.Background()

	svc.Handle(ctx, Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "1"})
	resp := svc.Handle(ctx, Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "1*6"})

	assert.Contains(t, resp.Text, "Welcome to TransLearn")
}

func TestHandle_ExitDeletesSession(t *testing.T) {
	store := NewSessionStore()
	svc := testService(store)

	svc.Handle(context.Background(), Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "3"})

	assert.Equal(t, 0, store.Count())
}

func TestHandle_SummaryFlow(t *testing.T) {
	store := NewSessionStore()
	svc := testService(store)
	ctx := context.Background()

	// Seed a session that has already browsed to a resource list.
	sess, _ := store.GetOrCreate("s1", "+254700000001")
	sess.State = StateResources
	sess.Resources = []*domain.Resource{
		{ID: uuid.New(), Title: "Algebra Basics", Description: "An introduction to variables and equations."},
	}

	resp := svc.Handle(ctx, Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "1*1*1*2"})
	assert.Contains(t, resp.Text, "Enter the resource number")

	resp = svc.Handle(ctx, Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "1*1*1*2*1"})
	assert.Contains(t, resp.Text, "Summary of Algebra Basics")
	assert.Contains(t, resp.Text, "introduction to variables")
	assert.Equal(t, StateResources, sess.State)
}

func TestHandle_SummaryMissingDescription(t *testing.T) {
	store := NewSessionStore()
	svc := testService(store)

	sess, _ := store.GetOrCreate("s1", "+254700000001")
	sess.State = StateSummaryPrompt
	sess.Resources = []*domain.Resource{{ID: uuid.New(), Title: "Untitled"}}

	resp := svc.Handle(context.Background(), Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "1"})

	assert.Contains(t, resp.Text, "No summary available")
}

func TestHandle_SummaryInvalidSelection(t *testing.T) {
	store := NewSessionStore()
	svc := testService(store)

	sess, _ := store.GetOrCreate("s1", "+254700000001")
	sess.State = StateSummaryPrompt
	sess.Resources = []*domain.Resource{{ID: uuid.New(), Title: "Only One"}}

	resp := svc.Handle(context.Background(), Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "7"})
	assert.Contains(t, resp.Text, "Invalid resource number")

	resp = svc.Handle(context.Background(), Request{SessionID: "s1", PhoneNumber: "+254700000001", Text: "abc"})
	assert.Contains(t, resp.Text, "valid number")
}

func TestHandle_ConcurrentWithSnapshot(t *testing.T) {
	store := NewSessionStore()
	svc := testService(store)
	ctx := context.Background()

	// One dialog flips between the main menu and the subject list while
	// the admin snapshot reads the same session. The snapshot must only
	// ever observe one of the two settled states.
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			input := "1" // main menu: browse subjects
			if i%2 == 1 {
				input = "6" // subject list: back to main
			}
			svc.Handle(ctx, Request{SessionID: "s-live", PhoneNumber: "+254700000001", Text: input})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < 200; i++ {
			for _, sess := range store.Snapshot() {
				state := sess.State
				assert.True(t, state == StateMain || state == StateSubjects,
					"snapshot saw intermediate state %q", state)
			}
		}
	}()

	wg.Wait()
}
