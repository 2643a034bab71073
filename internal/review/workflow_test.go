package review

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go-job-feed-watcher/internal/database"
	"go-job-feed-watcher/internal/models"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	text    string
	choices []models.Choice
}

type edit struct {
	chatID    int64
	messageID int
	text      string
}

type fakeMessenger struct {
	sent     []sent
	edits    []edit
	answered []string
	sendErr  error
}

func (f *fakeMessenger) SendWithChoices(text string, choices []models.Choice) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sent{text: text, choices: choices})
	return nil
}

func (f *fakeMessenger) SendText(text string) error {
	return f.SendWithChoices(text, nil)
}

func (f *fakeMessenger) EditText(chatID int64, messageID int, text string) error {
	f.edits = append(f.edits, edit{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (f *fakeMessenger) AnswerCallback(id string) error {
	f.answered = append(f.answered, id)
	return nil
}

func newWorkflow(t *testing.T) (*Workflow, *database.SQLiteStore, *fakeMessenger) {
	t.Helper()
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(context.Background()))

	log, _ := test.NewNullLogger()
	msgr := &fakeMessenger{}
	return NewWorkflow(store, msgr, log), store, msgr
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		data   string
		action Action
		id     int64
		err    bool
	}{
		{data: "yes_12", action: ActionAccept, id: 12},
		{data: "no_3", action: ActionReject, id: 3},
		{data: "maybe_3", err: true},
		{data: "yes_abc", err: true},
		{data: "yes", err: true},
		{data: "", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, id, err := ParseToken(tt.data)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnknownToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestWorkflow_Notify(t *testing.T) {
	wf, _, msgr := newWorkflow(t)

	require.NoError(t, wf.Notify(context.Background(), 7, "Backend role"))

	require.Len(t, msgr.sent, 1)
	assert.Equal(t, "Job ID: 7\n\nBackend role", msgr.sent[0].text)
	assert.Equal(t, []models.Choice{
		{Label: "✅ Yes", Data: "yes_7"},
		{Label: "❌ No", Data: "no_7"},
	}, msgr.sent[0].choices)
}

func TestWorkflow_NotifyErrors(t *testing.T) {
	wf, _, msgr := newWorkflow(t)
	msgr.sendErr = errors.New("telegram down")

	assert.Error(t, wf.Notify(context.Background(), 1, "x"))
	assert.Error(t, wf.NotifyNoMatches(context.Background()))
}

func TestWorkflow_NotifyNoMatches(t *testing.T) {
	wf, _, msgr := newWorkflow(t)

	require.NoError(t, wf.NotifyNoMatches(context.Background()))

	require.Len(t, msgr.sent, 1)
	assert.Equal(t, NoMatchesText, msgr.sent[0].text)
	assert.Empty(t, msgr.sent[0].choices)
}

func TestWorkflow_AcceptOutcomes(t *testing.T) {
	ctx := context.Background()
	wf, store, _ := newWorkflow(t)

	id, err := store.Create(ctx, "https://x/1", "job")
	require.NoError(t, err)

	outcome, err := wf.Accept(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)

	outcome, err = wf.Accept(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyApplied, outcome)

	outcome, err = wf.Accept(ctx, id+100)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotFound, outcome)

	p, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.StatusAccepted, p.Status)
}

func TestWorkflow_RejectOutcomes(t *testing.T) {
	ctx := context.Background()
	wf, store, _ := newWorkflow(t)

	id, err := store.Create(ctx, "https://x/1", "job")
	require.NoError(t, err)

	outcome, err := wf.Reject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)

	outcome, err = wf.Reject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotFound, outcome)

	p, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestWorkflow_RejectAfterAcceptKeepsPosting(t *testing.T) {
	ctx := context.Background()
	wf, store, _ := newWorkflow(t)

	id, err := store.Create(ctx, "https://x/1", "job")
	require.NoError(t, err)

	_, err = wf.Accept(ctx, id)
	require.NoError(t, err)
	outcome, err := wf.Reject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyApplied, outcome)

	p, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.StatusAccepted, p.Status)
}

func TestWorkflow_HandleCallbackRejectAfterAccept(t *testing.T) {
	ctx := context.Background()
	wf, store, msgr := newWorkflow(t)

	id, err := store.Create(ctx, "https://x/1", "job")
	require.NoError(t, err)

	cb := models.Callback{ID: "cb", Data: Token(ActionAccept, id), ChatID: 42, MessageID: 9}
	require.NoError(t, wf.HandleCallback(ctx, cb))
	cb.Data = Token(ActionReject, id)
	require.NoError(t, wf.HandleCallback(ctx, cb))

	p, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p, "accepted posting must survive a later reject")
	assert.Equal(t, models.StatusAccepted, p.Status)

	require.Len(t, msgr.edits, 2)
	assert.Equal(t, Acknowledgement(ActionReject, id, models.OutcomeAlreadyApplied), msgr.edits[1].text)
	assert.NotContains(t, msgr.edits[1].text, "deleted from database")
}

func TestWorkflow_HandleCallback(t *testing.T) {
	ctx := context.Background()
	wf, store, msgr := newWorkflow(t)

	id, err := store.Create(ctx, "https://x/1", "job")
	require.NoError(t, err)

	cb := models.Callback{ID: "cb-1", Data: Token(ActionAccept, id), ChatID: 42, MessageID: 9}
	require.NoError(t, wf.HandleCallback(ctx, cb))
	require.NoError(t, wf.HandleCallback(ctx, cb))

	assert.Equal(t, []string{"cb-1", "cb-1"}, msgr.answered)
	require.Len(t, msgr.edits, 2)
	assert.Equal(t, edit{chatID: 42, messageID: 9, text: Acknowledgement(ActionAccept, id, models.OutcomeApplied)}, msgr.edits[0])
	assert.Contains(t, msgr.edits[0].text, "status updated to 'yes'")
	assert.Contains(t, msgr.edits[1].text, "already accepted")

	other, err := store.Create(ctx, "https://x/2", "job")
	require.NoError(t, err)
	cb.Data = Token(ActionReject, other)
	require.NoError(t, wf.HandleCallback(ctx, cb))
	assert.Contains(t, msgr.edits[2].text, "deleted from database")
}

func TestWorkflow_HandleCallbackUnknownToken(t *testing.T) {
	wf, _, msgr := newWorkflow(t)

	err := wf.HandleCallback(context.Background(), models.Callback{ID: "cb", Data: "bogus"})

	assert.ErrorIs(t, err, ErrUnknownToken)
	assert.Equal(t, []string{"cb"}, msgr.answered)
	assert.Empty(t, msgr.edits)
}

func TestWorkflow_HandleCallbackStorageError(t *testing.T) {
	ctx := context.Background()
	wf, store, msgr := newWorkflow(t)
	require.NoError(t, store.Close())

	err := wf.HandleCallback(ctx, models.Callback{ID: "cb", Data: "yes_1", ChatID: 42, MessageID: 9})

	assert.Error(t, err)
	require.Len(t, msgr.edits, 1)
	assert.Contains(t, msgr.edits[0].text, "could not be saved")
}

func TestAcknowledgement(t *testing.T) {
	assert.Equal(t, "✅ YES - Job ID 4 status updated to 'yes'", Acknowledgement(ActionAccept, 4, models.OutcomeApplied))
	assert.Equal(t, "❌ NO - Job ID 4 deleted from database", Acknowledgement(ActionReject, 4, models.OutcomeApplied))
	assert.Contains(t, Acknowledgement(ActionAccept, 4, models.OutcomeNotFound), "not found")
	assert.Contains(t, Acknowledgement(ActionReject, 4, models.OutcomeNotFound), "already rejected")
	assert.Equal(t, "ℹ️ Job ID 4 was already accepted and was not deleted", Acknowledgement(ActionReject, 4, models.OutcomeAlreadyApplied))
}
