package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"covermsg/internal/attachment"
	"covermsg/internal/models"
	"covermsg/internal/provider"
	"covermsg/internal/repository"
	"covermsg/internal/telemetry"
)

// Mock repositories with overridable function fields. Tests set only the
// functions they need; unset functions panic, which surfaces unexpected
// calls immediately.

type mockDeliveryRepo struct {
	CreateFn               func(ctx context.Context, delivery *models.Delivery) error
	GetByIDFn              func(ctx context.Context, id int) (*models.Delivery, error)
	GetWithDetailsFn       func(ctx context.Context, id int) (*models.DeliveryWithDetails, error)
	ListFn                 func(ctx context.Context, filters repository.DeliveryFilters) ([]*models.Delivery, int, error)
	ClaimEligibleFn        func(ctx context.Context, batchSize int) ([]*models.DeliveryWithDetails, error)
	MarkSentFn             func(ctx context.Context, id int, providerMessageID string) error
	MarkRetryWaitFn        func(ctx context.Context, id int, lastError string, nextAttemptAt time.Time) error
	MarkFailedFn           func(ctx context.Context, id int, lastError string) error
	SetRenderedContentFn   func(ctx context.Context, id int, usedLanguage string, subject, body, textBody *string) error
	ClearAttachmentSpecsFn func(ctx context.Context, id int) error
	CountStuckProcessingFn func(ctx context.Context, olderThan time.Duration) (int, error)
}

func (m *mockDeliveryRepo) Create(ctx context.Context, delivery *models.Delivery) error {
	return m.CreateFn(ctx, delivery)
}

func (m *mockDeliveryRepo) GetByID(ctx context.Context, id int) (*models.Delivery, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockDeliveryRepo) GetWithDetails(ctx context.Context, id int) (*models.DeliveryWithDetails, error) {
	return m.GetWithDetailsFn(ctx, id)
}

func (m *mockDeliveryRepo) List(ctx context.Context, filters repository.DeliveryFilters) ([]*models.Delivery, int, error) {
	return m.ListFn(ctx, filters)
}

func (m *mockDeliveryRepo) ClaimEligible(ctx context.Context, batchSize int) ([]*models.DeliveryWithDetails, error) {
	return m.ClaimEligibleFn(ctx, batchSize)
}

func (m *mockDeliveryRepo) MarkSent(ctx context.Context, id int, providerMessageID string) error {
	return m.MarkSentFn(ctx, id, providerMessageID)
}

func (m *mockDeliveryRepo) MarkRetryWait(ctx context.Context, id int, lastError string, nextAttemptAt time.Time) error {
	return m.MarkRetryWaitFn(ctx, id, lastError, nextAttemptAt)
}

func (m *mockDeliveryRepo) MarkFailed(ctx context.Context, id int, lastError string) error {
	return m.MarkFailedFn(ctx, id, lastError)
}

func (m *mockDeliveryRepo) SetRenderedContent(ctx context.Context, id int, usedLanguage string, subject, body, textBody *string) error {
	return m.SetRenderedContentFn(ctx, id, usedLanguage, subject, body, textBody)
}

func (m *mockDeliveryRepo) ClearAttachmentSpecs(ctx context.Context, id int) error {
	return m.ClearAttachmentSpecsFn(ctx, id)
}

func (m *mockDeliveryRepo) CountStuckProcessing(ctx context.Context, olderThan time.Duration) (int, error) {
	return m.CountStuckProcessingFn(ctx, olderThan)
}

type mockAttachmentRepo struct {
	CreateFn                 func(ctx context.Context, attachment *models.Attachment) error
	SetStorageLocationFn     func(ctx context.Context, id int, bucket, path string, sizeBytes int64) error
	SoftDeleteFn             func(ctx context.Context, id int) error
	ListActiveByDeliveryIDFn func(ctx context.Context, deliveryID int) ([]*models.Attachment, error)
	CopyToDeliveryFn         func(ctx context.Context, sourceDeliveryID, targetDeliveryID int) error
}

func (m *mockAttachmentRepo) Create(ctx context.Context, attachment *models.Attachment) error {
	return m.CreateFn(ctx, attachment)
}

func (m *mockAttachmentRepo) SetStorageLocation(ctx context.Context, id int, bucket, path string, sizeBytes int64) error {
	return m.SetStorageLocationFn(ctx, id, bucket, path, sizeBytes)
}

func (m *mockAttachmentRepo) SoftDelete(ctx context.Context, id int) error {
	return m.SoftDeleteFn(ctx, id)
}

func (m *mockAttachmentRepo) ListActiveByDeliveryID(ctx context.Context, deliveryID int) ([]*models.Attachment, error) {
	return m.ListActiveByDeliveryIDFn(ctx, deliveryID)
}

func (m *mockAttachmentRepo) CopyToDelivery(ctx context.Context, sourceDeliveryID, targetDeliveryID int) error {
	return m.CopyToDeliveryFn(ctx, sourceDeliveryID, targetDeliveryID)
}

type mockCustomerRepo struct {
	CreateFn  func(ctx context.Context, customer *models.Customer) error
	GetByIDFn func(ctx context.Context, id int) (*models.Customer, error)
}

func (m *mockCustomerRepo) Create(ctx context.Context, customer *models.Customer) error {
	return m.CreateFn(ctx, customer)
}

func (m *mockCustomerRepo) GetByID(ctx context.Context, id int) (*models.Customer, error) {
	return m.GetByIDFn(ctx, id)
}

type mockRouteRepo struct {
	CreateFn           func(ctx context.Context, route *models.MessagingRoute) error
	GetByIDFn          func(ctx context.Context, id int) (*models.MessagingRoute, error)
	GetByTemplateKeyFn func(ctx context.Context, templateKey string) (*models.MessagingRoute, error)
	UpdateFn           func(ctx context.Context, route *models.MessagingRoute) error
	ListFn             func(ctx context.Context) ([]*models.MessagingRoute, error)
}

func (m *mockRouteRepo) Create(ctx context.Context, route *models.MessagingRoute) error {
	return m.CreateFn(ctx, route)
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id int) (*models.MessagingRoute, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockRouteRepo) GetByTemplateKey(ctx context.Context, templateKey string) (*models.MessagingRoute, error) {
	return m.GetByTemplateKeyFn(ctx, templateKey)
}

func (m *mockRouteRepo) Update(ctx context.Context, route *models.MessagingRoute) error {
	return m.UpdateFn(ctx, route)
}

func (m *mockRouteRepo) List(ctx context.Context) ([]*models.MessagingRoute, error) {
	return m.ListFn(ctx)
}

type mockTemplateRepo struct {
	CreateFn     func(ctx context.Context, template *models.MessagingTemplate) error
	GetByIDFn    func(ctx context.Context, id int) (*models.MessagingTemplate, error)
	UpdateFn     func(ctx context.Context, template *models.MessagingTemplate) error
	ListFn       func(ctx context.Context, filters repository.TemplateFilters) ([]*models.MessagingTemplate, error)
	FindActiveFn func(ctx context.Context, templateKey string, channel models.Channel, language string) (*models.MessagingTemplate, error)
}

func (m *mockTemplateRepo) Create(ctx context.Context, template *models.MessagingTemplate) error {
	return m.CreateFn(ctx, template)
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id int) (*models.MessagingTemplate, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockTemplateRepo) Update(ctx context.Context, template *models.MessagingTemplate) error {
	return m.UpdateFn(ctx, template)
}

func (m *mockTemplateRepo) List(ctx context.Context, filters repository.TemplateFilters) ([]*models.MessagingTemplate, error) {
	return m.ListFn(ctx, filters)
}

func (m *mockTemplateRepo) FindActive(ctx context.Context, templateKey string, channel models.Channel, language string) (*models.MessagingTemplate, error) {
	return m.FindActiveFn(ctx, templateKey, channel, language)
}

type mockAttachmentTemplateRepo struct {
	CreateFn  func(ctx context.Context, template *models.AttachmentTemplate) error
	GetByIDFn func(ctx context.Context, id int) (*models.AttachmentTemplate, error)
	UpdateFn  func(ctx context.Context, template *models.AttachmentTemplate) error
	ListFn    func(ctx context.Context) ([]*models.AttachmentTemplate, error)
}

func (m *mockAttachmentTemplateRepo) Create(ctx context.Context, template *models.AttachmentTemplate) error {
	return m.CreateFn(ctx, template)
}

func (m *mockAttachmentTemplateRepo) GetByID(ctx context.Context, id int) (*models.AttachmentTemplate, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockAttachmentTemplateRepo) Update(ctx context.Context, template *models.AttachmentTemplate) error {
	return m.UpdateFn(ctx, template)
}

func (m *mockAttachmentTemplateRepo) List(ctx context.Context) ([]*models.AttachmentTemplate, error) {
	return m.ListFn(ctx)
}

// staticSettingsRepo serves a fixed set of setting rows, enough to build a
// settings.Cache whose snapshot is deterministic
type staticSettingsRepo struct {
	rows []*models.SystemSetting
}

func (r *staticSettingsRepo) GetAll(context.Context) ([]*models.SystemSetting, error) {
	return r.rows, nil
}

func (r *staticSettingsRepo) GetMetaUpdatedAt(context.Context) (time.Time, error) {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func (r *staticSettingsRepo) Update(context.Context, map[string]string, string) error {
	return nil
}

// Mock providers

type mockSMSProvider struct {
	SendFn func(ctx context.Context, to, message string) (string, error)
}

func (m *mockSMSProvider) Send(ctx context.Context, to, message string) (string, error) {
	return m.SendFn(ctx, to, message)
}

type mockEmailProvider struct {
	SendFn func(ctx context.Context, msg *provider.EmailMessage) (string, error)
}

func (m *mockEmailProvider) Send(ctx context.Context, msg *provider.EmailMessage) (string, error) {
	return m.SendFn(ctx, msg)
}

// mockGenerator returns canned bytes for any attachment template
type mockGenerator struct {
	GenerateFn func(ctx context.Context, tpl *models.AttachmentTemplate, params map[string]string) (*attachment.GeneratedFile, error)
}

func (m *mockGenerator) Generate(ctx context.Context, tpl *models.AttachmentTemplate, params map[string]string) (*attachment.GeneratedFile, error) {
	return m.GenerateFn(ctx, tpl, params)
}

// memStore keeps uploaded files in memory. Tests set uploadErr to simulate a
// storage outage.
type memStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	uploadErr error
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (s *memStore) Upload(_ context.Context, deliveryID, attachmentID int, fileName string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	path := fmt.Sprintf("%d/%d/%s", deliveryID, attachmentID, fileName)
	s.files[path] = data
	return path, nil
}

func (s *memStore) Get(_ context.Context, storagePath string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[storagePath]
	if !ok {
		return nil, "", repository.ErrNotFound
	}
	return data, "application/pdf", nil
}

func (s *memStore) Delete(_ context.Context, storagePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, storagePath)
	return nil
}

func (s *memStore) Bucket() string { return "mem" }

// recordingReporter captures telemetry events for assertions
type recordingReporter struct {
	mu     sync.Mutex
	events []telemetry.FailureEvent
}

func (r *recordingReporter) ReportFailure(event telemetry.FailureEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingReporter) Events() []telemetry.FailureEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]telemetry.FailureEvent, len(r.events))
	copy(out, r.events)
	return out
}
