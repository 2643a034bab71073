package review

import (
	"context"
	"fmt"

	"go-job-feed-watcher/internal/models"

	"github.com/sirupsen/logrus"
)

const NoMatchesText = "❌ NO JOB OPPORTUNITIES FOUND\n\nNo matching job opportunities were found in this search."

// Store is the part of the posting store the workflow mutates.
type Store interface {
	Accept(ctx context.Context, id int64) (models.ReviewOutcome, error)
	Reject(ctx context.Context, id int64) (models.ReviewOutcome, error)
}

// Messenger is the operator chat.
type Messenger interface {
	SendWithChoices(text string, choices []models.Choice) error
	SendText(text string) error
	EditText(chatID int64, messageID int, text string) error
	AnswerCallback(callbackID string) error
}

// Workflow moves a posting from pending to accepted or deleted based on the
// operator's answer to its notification.
type Workflow struct {
	store     Store
	messenger Messenger
	log       logrus.FieldLogger
}

func NewWorkflow(store Store, messenger Messenger, log logrus.FieldLogger) *Workflow {
	return &Workflow{
		store:     store,
		messenger: messenger,
		log:       log,
	}
}

// Notify asks the operator to accept or reject a stored posting.
func (w *Workflow) Notify(_ context.Context, id int64, text string) error {
	msg := fmt.Sprintf("Job ID: %d\n\n%s", id, text)
	choices := []models.Choice{
		{Label: "✅ Yes", Data: Token(ActionAccept, id)},
		{Label: "❌ No", Data: Token(ActionReject, id)},
	}
	if err := w.messenger.SendWithChoices(msg, choices); err != nil {
		return fmt.Errorf("failed to send posting %d: %w", id, err)
	}
	return nil
}

func (w *Workflow) NotifyNoMatches(_ context.Context) error {
	if err := w.messenger.SendText(NoMatchesText); err != nil {
		return fmt.Errorf("failed to send no-match notice: %w", err)
	}
	return nil
}

// Accept marks the posting accepted.
func (w *Workflow) Accept(ctx context.Context, id int64) (models.ReviewOutcome, error) {
	outcome, err := w.store.Accept(ctx, id)
	if err != nil {
		return "", fmt.Errorf("accept posting %d: %w", id, err)
	}
	return outcome, nil
}

// Reject deletes a pending posting. Accepted postings are final and report
// OutcomeAlreadyApplied. A missing row reports OutcomeNotFound, which covers
// both an earlier rejection and an id that never existed.
func (w *Workflow) Reject(ctx context.Context, id int64) (models.ReviewOutcome, error) {
	outcome, err := w.store.Reject(ctx, id)
	if err != nil {
		return "", fmt.Errorf("reject posting %d: %w", id, err)
	}
	return outcome, nil
}

// HandleCallback applies the operator's decision and replaces the
// notification text with the result.
func (w *Workflow) HandleCallback(ctx context.Context, cb models.Callback) error {
	if err := w.messenger.AnswerCallback(cb.ID); err != nil {
		w.log.WithError(err).Warn("⚠️ Failed to answer callback")
	}

	action, id, err := ParseToken(cb.Data)
	if err != nil {
		return err
	}
	log := w.log.WithFields(logrus.Fields{"job_id": id, "action": action})

	var outcome models.ReviewOutcome
	switch action {
	case ActionAccept:
		outcome, err = w.Accept(ctx, id)
	case ActionReject:
		outcome, err = w.Reject(ctx, id)
	}
	if err != nil {
		if editErr := w.messenger.EditText(cb.ChatID, cb.MessageID, fmt.Sprintf("⚠️ Job ID %d: decision could not be saved, please retry", id)); editErr != nil {
			log.WithError(editErr).Warn("⚠️ Failed to report storage error")
		}
		return err
	}

	log.WithField("outcome", outcome).Info("📝 Review decision applied")
	if err := w.messenger.EditText(cb.ChatID, cb.MessageID, Acknowledgement(action, id, outcome)); err != nil {
		return fmt.Errorf("failed to acknowledge decision for job %d: %w", id, err)
	}
	return nil
}

// HandleCallbackLogged is HandleCallback for transports that cannot return errors.
func (w *Workflow) HandleCallbackLogged(ctx context.Context, cb models.Callback) {
	if err := w.HandleCallback(ctx, cb); err != nil {
		w.log.WithError(err).WithField("data", cb.Data).Error("❌ Failed to handle callback")
	}
}

// Acknowledgement is the text shown to the operator after a decision.
func Acknowledgement(action Action, id int64, outcome models.ReviewOutcome) string {
	switch {
	case outcome == models.OutcomeNotFound && action == ActionAccept:
		return fmt.Sprintf("⚠️ Job ID %d not found, it was rejected earlier or never saved", id)
	case outcome == models.OutcomeNotFound:
		return fmt.Sprintf("ℹ️ Job ID %d is not in the database, it was already rejected or never saved", id)
	case outcome == models.OutcomeAlreadyApplied && action == ActionAccept:
		return fmt.Sprintf("ℹ️ Job ID %d was already accepted", id)
	case outcome == models.OutcomeAlreadyApplied:
		return fmt.Sprintf("ℹ️ Job ID %d was already accepted and was not deleted", id)
	case action == ActionAccept:
		return fmt.Sprintf("✅ YES - Job ID %d status updated to 'yes'", id)
	default:
		return fmt.Sprintf("❌ NO - Job ID %d deleted from database", id)
	}
}
