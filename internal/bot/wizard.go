package bot

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/vcfbot/core/logger"
	"github.com/m3rciful/vcfbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/vcfbot/core/telegram/helpers"
	"github.com/m3rciful/vcfbot/core/telegram/state"
	"github.com/m3rciful/vcfbot/internal/plan"
	"github.com/m3rciful/vcfbot/internal/storage"
	"github.com/m3rciful/vcfbot/internal/vcf"
	"github.com/m3rciful/vcfbot/internal/wizard"
)

// handleCreateVCF opens a wizard session for users with an active plan.
func (b *Bot) handleCreateVCF(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	uid := c.Sender().ID

	u, err := b.store.GetUserByTelegramID(ctx, uid)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return b.internalError(c, "wizard.gate_failed", err)
	}
	var subject *plan.Subject
	if u != nil {
		subject = u.Subject()
	}
	st := plan.Evaluate(subject, b.now())
	switch st.Kind {
	case plan.Active:
	case plan.NotRegistered:
		return reply(c, textNotRegistered)
	case plan.Banned:
		return reply(c, textBannedUser)
	default:
		logger.Debug(ctx, "service.vcf", "wizard.denied", slog.String("plan", st.Kind.String()))
		return reply(c, textPlanInactive)
	}

	d := wizard.New()
	b.sessions.Clear(uid)
	b.sessions.SetState(uid, state.State(d.Step))
	b.sessions.SetTemp(uid, draftKey, d)
	b.metrics.Sessions.WithLabelValues("started").Inc()
	logger.Info(ctx, "service.vcf", "wizard.started", slog.Int("days_left", st.DaysLeft))
	return reply(c, textSendFile, cancelMarkup())
}

func (b *Bot) draft(uid int64) (*wizard.Draft, bool) {
	v, ok := b.sessions.GetTemp(uid, draftKey)
	if !ok {
		return nil, false
	}
	d, ok := v.(*wizard.Draft)
	return d, ok
}

// handleWizard feeds the update to the current wizard step.
func (b *Bot) handleWizard(c tele.Context) error {
	uid := c.Sender().ID
	d, ok := b.draft(uid)
	if !ok {
		b.sessions.Clear(uid)
		return reply(c, textSessionGone, mainMenu())
	}

	doc := c.Message().Document
	var err error
	switch {
	case d.ExpectsDocument() && doc == nil:
		return reply(c, textExpectFile, cancelMarkup())
	case !d.ExpectsDocument() && doc != nil:
		return reply(c, textExpectText, cancelMarkup())
	case doc != nil:
		err = b.acceptFile(c, d, doc)
	default:
		err = d.AcceptText(c.Text())
	}
	if err != nil {
		return b.stepError(c, err)
	}

	b.sessions.SetState(uid, state.State(d.Step))
	switch d.Step {
	case wizard.StepContactName:
		return reply(c, fmt.Sprintf(textFileReceived, len(d.Numbers)), cancelMarkup())
	case wizard.StepVCFName:
		return reply(c, textAskVCFName, cancelMarkup())
	case wizard.StepChunkSize:
		return reply(c, textAskChunkSize, cancelMarkup())
	case wizard.StepStartIndex:
		return reply(c, textAskStartIndex, cancelMarkup())
	}
	return b.finishWizard(c, d)
}

type downloadError struct{ err error }

func (e downloadError) Error() string { return "download: " + e.err.Error() }
func (e downloadError) Unwrap() error { return e.err }

func (b *Bot) acceptFile(c tele.Context, d *wizard.Draft, doc *tele.Document) error {
	limit := b.cfg.Wizard.MaxFileBytes
	if doc.FileSize > limit {
		return vcf.ErrFileTooLarge
	}
	rc, err := b.files(c, &doc.File)
	if err != nil {
		return downloadError{err}
	}
	defer rc.Close()

	numbers, err := vcf.ReadNumbers(rc, limit)
	if err != nil {
		return err
	}
	return d.AcceptNumbers(numbers)
}

// stepError answers a rejected step; the session stays where it was.
func (b *Bot) stepError(c tele.Context, err error) error {
	var dl downloadError
	switch {
	case errors.As(err, &dl):
		logger.Warn(tghelpers.BuildContext(c), "service.vcf", "wizard.download_failed",
			slog.String("err", dl.err.Error()),
		)
		return reply(c, textDownloadFail, cancelMarkup())
	case errors.Is(err, vcf.ErrFileTooLarge):
		return reply(c, fmt.Sprintf(textFileTooLarge, b.cfg.Wizard.MaxFileBytes/1024), cancelMarkup())
	case errors.Is(err, vcf.ErrNotText):
		return reply(c, textNotText, cancelMarkup())
	case errors.Is(err, vcf.ErrNoNumbers):
		return reply(c, textNoNumbers, cancelMarkup())
	case errors.Is(err, wizard.ErrEmptyText):
		return reply(c, textEmptyText, cancelMarkup())
	case errors.Is(err, wizard.ErrInvalidNumber):
		return reply(c, textInvalidNumber, cancelMarkup())
	case errors.Is(err, vcf.ErrInvalidChunkSize):
		return reply(c, textChunkPositive, cancelMarkup())
	case errors.Is(err, wizard.ErrUnexpectedInput):
		return reply(c, textUnknown)
	}
	return b.internalError(c, "wizard.step_failed", err)
}

func (b *Bot) finishWizard(c tele.Context, d *wizard.Draft) error {
	ctx := tghelpers.BuildContext(c)
	uid := c.Sender().ID
	b.sessions.Clear(uid)

	docs, err := vcf.Generate(d.Numbers, d.Options())
	if err != nil {
		b.metrics.Sessions.WithLabelValues("failed").Inc()
		return b.internalError(c, "wizard.generate_failed", err)
	}

	for _, doc := range docs {
		out := &tele.Document{
			File:     tele.FromReader(bytes.NewReader(doc.Body)),
			FileName: doc.Name,
			Caption:  fmt.Sprintf(textFileCaption, doc.Part, d.ContactName, doc.Contacts),
		}
		if err := tghelpers.SendNow(c, out); err != nil {
			b.metrics.Sessions.WithLabelValues("failed").Inc()
			return fmt.Errorf("send %s: %w", doc.Name, err)
		}
		b.metrics.Documents.Inc()
		b.metrics.Contacts.Add(float64(doc.Contacts))
	}

	b.metrics.Sessions.WithLabelValues("completed").Inc()
	logger.Info(ctx, "service.vcf", "wizard.completed",
		slog.Int("numbers", len(d.Numbers)),
		slog.Int("documents", len(docs)),
		slog.Int("chunk_size", d.ChunkSize),
		slog.Int("start_index", d.StartIndex),
	)
	return tghelpers.SendNow(c, textAllDone, mainMenu())
}

func (b *Bot) handleCancelCallback(c tele.Context) error {
	_ = callbacks.Respond(c, textCancelled, false)
	if !b.sessions.InProgress(c.Sender().ID) {
		return nil
	}
	b.cancelSession(c)
	return reply(c, textCancelled, mainMenu())
}
