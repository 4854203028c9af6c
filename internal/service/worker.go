package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"covermsg/internal/attachment"
	"covermsg/internal/models"
	"covermsg/internal/provider"
	"covermsg/internal/repository"
	"covermsg/internal/settings"
	"covermsg/internal/telemetry"
)

// AttachmentGenerator produces the bytes for one dynamic attachment spec
type AttachmentGenerator interface {
	Generate(ctx context.Context, tpl *models.AttachmentTemplate, params map[string]string) (*attachment.GeneratedFile, error)
}

// Worker claims due deliveries in batches and drives each one through
// attachment generation, rendering and dispatch. Multiple worker processes
// can run concurrently; the claim query guarantees disjoint batches.
type Worker struct {
	deliveryRepo           repository.DeliveryRepository
	attachmentRepo         repository.AttachmentRepository
	attachmentTemplateRepo repository.AttachmentTemplateRepository
	templates              *TemplateService
	settings               *settings.Cache
	smsProvider            provider.SMSProvider
	emailProvider          provider.EmailProvider
	generator              AttachmentGenerator
	store                  attachment.Store
	telemetry              telemetry.Reporter
	logger                 zerolog.Logger

	now     func() time.Time
	running atomic.Bool
	cron    *cron.Cron
}

// NewWorker creates a new delivery worker
func NewWorker(
	deliveryRepo repository.DeliveryRepository,
	attachmentRepo repository.AttachmentRepository,
	attachmentTemplateRepo repository.AttachmentTemplateRepository,
	templates *TemplateService,
	settingsCache *settings.Cache,
	smsProvider provider.SMSProvider,
	emailProvider provider.EmailProvider,
	generator AttachmentGenerator,
	store attachment.Store,
	reporter telemetry.Reporter,
	logger zerolog.Logger,
) *Worker {
	return &Worker{
		deliveryRepo:           deliveryRepo,
		attachmentRepo:         attachmentRepo,
		attachmentTemplateRepo: attachmentTemplateRepo,
		templates:              templates,
		settings:               settingsCache,
		smsProvider:            smsProvider,
		emailProvider:          emailProvider,
		generator:              generator,
		store:                  store,
		telemetry:              reporter,
		logger:                 logger.With().Str("component", "worker").Logger(),
	}
}

// Start schedules the polling loop. The interval is read from settings once
// at startup; changing it requires a worker restart.
func (w *Worker) Start(ctx context.Context) error {
	snapshot, err := w.settings.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	w.cron = cron.New()
	_, err = w.cron.AddFunc(fmt.Sprintf("@every %s", snapshot.PollInterval()), func() {
		w.Tick(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule worker: %w", err)
	}

	w.cron.Start()
	w.logger.Info().
		Dur("poll_interval", snapshot.PollInterval()).
		Msg("worker started")
	return nil
}

// Stop halts the polling loop and waits for an in-flight tick to finish
func (w *Worker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.logger.Info().Msg("worker stopped")
}

// Tick claims one batch of due deliveries and processes them. Overlapping
// ticks are skipped so a slow provider cannot pile up concurrent batches.
func (w *Worker) Tick(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	defer w.running.Store(false)

	snapshot, err := w.settings.Snapshot(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to read settings")
		return
	}

	claimed, err := w.deliveryRepo.ClaimEligible(ctx, snapshot.WorkerBatchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to claim deliveries")
		return
	}
	if len(claimed) == 0 {
		return
	}

	w.logger.Info().Int("count", len(claimed)).Msg("claimed deliveries")

	for _, delivery := range claimed {
		if err := w.process(ctx, snapshot, delivery); err != nil {
			w.fail(ctx, delivery, err)
		}
	}
}

// process drives one claimed delivery to sent. Any returned error is a
// failed attempt handled by the caller.
func (w *Worker) process(ctx context.Context, snapshot settings.Settings, delivery *models.DeliveryWithDetails) error {
	recipient := delivery.Recipient()
	if recipient == "" {
		return fmt.Errorf("delivery has no recipient")
	}

	if len(delivery.DynamicAttachmentSpecs) > 0 {
		if delivery.Channel == models.ChannelEmail {
			if err := w.generateAttachments(ctx, snapshot, delivery); err != nil {
				return err
			}
		}
		// Specs are cleared once handled so a retry never regenerates files
		if err := w.deliveryRepo.ClearAttachmentSpecs(ctx, delivery.ID); err != nil {
			return fmt.Errorf("failed to clear attachment specs: %w", err)
		}
		delivery.DynamicAttachmentSpecs = nil
	}

	if !delivery.IsRendered() {
		if err := w.render(ctx, snapshot, delivery); err != nil {
			return err
		}
	}

	providerMessageID, err := w.dispatch(ctx, delivery)
	if err != nil {
		return err
	}

	if err := w.deliveryRepo.MarkSent(ctx, delivery.ID, providerMessageID); err != nil {
		return fmt.Errorf("failed to mark delivery sent: %w", err)
	}

	w.logger.Info().
		Int("delivery_id", delivery.ID).
		Str("channel", string(delivery.Channel)).
		Str("provider_message_id", providerMessageID).
		Int("attempt", delivery.AttemptCount+1).
		Msg("delivery sent")
	return nil
}

// generateAttachments turns each pending spec into a stored file and an
// attachment row bound to the delivery
func (w *Worker) generateAttachments(ctx context.Context, snapshot settings.Settings, delivery *models.DeliveryWithDetails) error {
	for _, spec := range delivery.DynamicAttachmentSpecs {
		tpl, err := w.attachmentTemplateRepo.GetByID(ctx, spec.AttachmentTemplateID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("attachment template %d not found", spec.AttachmentTemplateID)
		}
		if err != nil {
			return fmt.Errorf("failed to load attachment template: %w", err)
		}

		generated, err := w.generator.Generate(ctx, tpl, spec.Params)
		if err != nil {
			return fmt.Errorf("failed to generate attachment: %w", err)
		}

		// The row is created first because its id is part of the storage key
		row := &models.Attachment{
			DeliveryID: delivery.ID,
			FileName:   generated.FileName,
			MimeType:   generated.MimeType,
			ExpiresAt:  attachment.ComputeExpiry(w.clock(), snapshot.AttachmentRetentionMonths),
		}
		if err := w.attachmentRepo.Create(ctx, row); err != nil {
			return fmt.Errorf("failed to create attachment row: %w", err)
		}

		storagePath, err := w.store.Upload(ctx, delivery.ID, row.ID, generated.FileName, generated.Data)
		if err != nil {
			// Without the soft-delete the empty-path row would be loaded on
			// the next claim and fail dispatch forever
			w.discardAttachmentRow(ctx, row.ID)
			return fmt.Errorf("failed to upload attachment: %w", err)
		}

		if err := w.attachmentRepo.SetStorageLocation(ctx, row.ID, w.store.Bucket(), storagePath, int64(len(generated.Data))); err != nil {
			w.discardAttachmentRow(ctx, row.ID)
			return fmt.Errorf("failed to record attachment location: %w", err)
		}

		row.StorageBucket = w.store.Bucket()
		row.StoragePath = storagePath
		row.SizeBytes = int64(len(generated.Data))
		delivery.Attachments = append(delivery.Attachments, row)
	}
	return nil
}

// discardAttachmentRow soft-deletes an attachment row whose upload failed.
// Best effort: the row carries no storage path, so dispatch skips it even if
// the soft-delete itself fails.
func (w *Worker) discardAttachmentRow(ctx context.Context, id int) {
	if err := w.attachmentRepo.SoftDelete(ctx, id); err != nil {
		w.logger.Warn().Err(err).Int("attachment_id", id).Msg("failed to discard attachment row")
	}
}

// render resolves the template and persists the rendered content on the row
func (w *Worker) render(ctx context.Context, snapshot settings.Settings, delivery *models.DeliveryWithDetails) error {
	requestedLanguage := ""
	if delivery.RequestedLanguage != nil {
		requestedLanguage = *delivery.RequestedLanguage
	}

	tpl, usedLanguage, err := w.templates.Resolve(ctx, delivery.TemplateKey, delivery.Channel, requestedLanguage, snapshot.DefaultLanguage)
	if err != nil {
		return err
	}

	content, err := w.templates.RenderContent(tpl, delivery.PlaceholderValues)
	if err != nil {
		return err
	}

	if err := w.deliveryRepo.SetRenderedContent(ctx, delivery.ID, usedLanguage, content.Subject, &content.Body, content.TextBody); err != nil {
		return fmt.Errorf("failed to store rendered content: %w", err)
	}

	delivery.UsedLanguage = &usedLanguage
	delivery.RenderedSubject = content.Subject
	delivery.RenderedBody = &content.Body
	delivery.RenderedTextBody = content.TextBody
	return nil
}

// dispatch hands the rendered delivery to the channel's provider
func (w *Worker) dispatch(ctx context.Context, delivery *models.DeliveryWithDetails) (string, error) {
	switch delivery.Channel {
	case models.ChannelSMS:
		return w.smsProvider.Send(ctx, delivery.Recipient(), *delivery.RenderedBody)

	case models.ChannelEmail:
		msg := &provider.EmailMessage{
			To:       delivery.Recipient(),
			HTMLBody: *delivery.RenderedBody,
		}
		if delivery.RenderedSubject != nil {
			msg.Subject = *delivery.RenderedSubject
		}
		if delivery.RenderedTextBody != nil {
			msg.TextBody = *delivery.RenderedTextBody
		}

		for _, att := range delivery.Attachments {
			if att.IsDeleted() {
				continue
			}
			// An empty path means the row was created but its upload never
			// finished (worker crash); the retry regenerates the file, so the
			// half-written row must not block dispatch
			if att.StoragePath == "" {
				continue
			}
			data, mimeType, err := w.store.Get(ctx, att.StoragePath)
			if err != nil {
				return "", fmt.Errorf("failed to load attachment %d: %w", att.ID, err)
			}
			msg.Attachments = append(msg.Attachments, provider.Attachment{
				FileName: att.FileName,
				MimeType: mimeType,
				Content:  data,
			})
		}

		return w.emailProvider.Send(ctx, msg)

	default:
		return "", fmt.Errorf("unknown channel %q", delivery.Channel)
	}
}

// fail records a failed attempt, scheduling a retry with exponential backoff
// or marking the delivery terminally failed when attempts are exhausted
func (w *Worker) fail(ctx context.Context, delivery *models.DeliveryWithDetails, cause error) {
	attempt := delivery.AttemptCount + 1
	lastError := cause.Error()

	if attempt >= delivery.MaxAttempts {
		if err := w.deliveryRepo.MarkFailed(ctx, delivery.ID, lastError); err != nil {
			w.logger.Error().Err(err).Int("delivery_id", delivery.ID).Msg("failed to mark delivery failed")
			return
		}
		w.logger.Warn().
			Int("delivery_id", delivery.ID).
			Int("attempt", attempt).
			Str("error", lastError).
			Msg("delivery failed permanently")
	} else {
		snapshot, err := w.settings.Snapshot(ctx)
		if err != nil {
			snapshot = settings.Defaults()
		}
		nextAttemptAt := w.clock().Add(backoffDelay(attempt, snapshot.BaseRetryDelay(), snapshot.MaxRetryDelay()))

		if err := w.deliveryRepo.MarkRetryWait(ctx, delivery.ID, lastError, nextAttemptAt); err != nil {
			w.logger.Error().Err(err).Int("delivery_id", delivery.ID).Msg("failed to schedule retry")
			return
		}
		w.logger.Warn().
			Int("delivery_id", delivery.ID).
			Int("attempt", attempt).
			Time("next_attempt_at", nextAttemptAt).
			Str("error", lastError).
			Msg("delivery attempt failed, retry scheduled")
	}

	w.telemetry.ReportFailure(telemetry.FailureEvent{
		DeliveryID:  delivery.ID,
		Channel:     string(delivery.Channel),
		TemplateKey: delivery.TemplateKey,
		Attempt:     attempt,
		MaxAttempts: delivery.MaxAttempts,
		Error:       lastError,
		FailedAt:    w.clock().UTC(),
	})
}

func (w *Worker) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

// backoffDelay returns the wait before the attempt after the given failed
// one: base doubled per prior failure, capped at max
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max || delay < 0 {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
