package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"covermsg/internal/models"
	"covermsg/internal/repository"
	"covermsg/internal/settings"
)

func testSettingsCache() *settings.Cache {
	return settings.NewCache(&staticSettingsRepo{}, zerolog.Nop())
}

func intPtr(n int) *int { return &n }

func TestDeliveryService_Enqueue(t *testing.T) {
	ctx := context.Background()

	route := &models.MessagingRoute{
		TemplateKey: "POLICY_CONFIRMED", SMSEnabled: true, EmailEnabled: true, IsActive: true,
	}
	customerWithPhoneOnly := &models.Customer{
		ID: 7, FirstName: strPtr("Joseph"), LastName: strPtr("Mwangi"), Phone: strPtr("+254722000002"),
	}

	newService := func(deliveryRepo *mockDeliveryRepo, customer *models.Customer, r *models.MessagingRoute) *DeliveryService {
		return NewDeliveryService(
			deliveryRepo,
			&mockAttachmentRepo{},
			&mockCustomerRepo{GetByIDFn: func(_ context.Context, id int) (*models.Customer, error) {
				if customer != nil && id == customer.ID {
					return customer, nil
				}
				return nil, repository.ErrNotFound
			}},
			&mockRouteRepo{GetByTemplateKeyFn: func(_ context.Context, key string) (*models.MessagingRoute, error) {
				if r != nil && key == r.TemplateKey {
					return r, nil
				}
				return nil, repository.ErrNotFound
			}},
			testSettingsCache(),
			zerolog.Nop(),
		)
	}

	t.Run("creates one row per enabled channel", func(t *testing.T) {
		var created []*models.Delivery
		deliveryRepo := &mockDeliveryRepo{
			CreateFn: func(_ context.Context, d *models.Delivery) error {
				d.ID = len(created) + 1
				created = append(created, d)
				return nil
			},
		}
		svc := newService(deliveryRepo, customerWithPhoneOnly, route)

		result, err := svc.Enqueue(ctx, &EnqueueRequest{
			TemplateKey: "POLICY_CONFIRMED",
			CustomerID:  7,
			PolicyID:    intPtr(1001),
			PlaceholderValues: map[string]interface{}{
				"first_name": "Joseph", "policy_number": "POL-1001", "start_date": "2026-09-01",
			},
		})
		require.NoError(t, err)
		require.Len(t, result.CreatedDeliveryIDs, 2)
		require.NotEmpty(t, result.CorrelationID)

		sms, email := created[0], created[1]

		require.Equal(t, models.ChannelSMS, sms.Channel)
		require.Equal(t, models.DeliveryStatusPending, sms.Status)
		require.Equal(t, "+254722000002", *sms.RecipientPhone)
		require.Nil(t, sms.RenderedBody)

		// No email on file: row is created terminally failed, never claimed
		require.Equal(t, models.ChannelEmail, email.Channel)
		require.Equal(t, models.DeliveryStatusFailed, email.Status)
		require.Equal(t, "Email not set for customer", *email.LastError)
		require.Nil(t, email.RecipientEmail)

		// Both rows share one correlation id
		require.Equal(t, sms.CorrelationID, email.CorrelationID)
		require.Equal(t, result.CorrelationID, sms.CorrelationID)
	})

	t.Run("caller supplied correlation id is kept", func(t *testing.T) {
		deliveryRepo := &mockDeliveryRepo{
			CreateFn: func(_ context.Context, d *models.Delivery) error { d.ID = 1; return nil },
		}
		svc := newService(deliveryRepo, customerWithPhoneOnly, route)

		result, err := svc.Enqueue(ctx, &EnqueueRequest{
			TemplateKey:   "POLICY_CONFIRMED",
			CustomerID:    7,
			CorrelationID: strPtr("batch-42"),
		})
		require.NoError(t, err)
		require.Equal(t, "batch-42", result.CorrelationID)
	})

	t.Run("max attempts come from settings per channel", func(t *testing.T) {
		var created []*models.Delivery
		deliveryRepo := &mockDeliveryRepo{
			CreateFn: func(_ context.Context, d *models.Delivery) error {
				d.ID = len(created) + 1
				created = append(created, d)
				return nil
			},
		}
		svc := newService(deliveryRepo, customerWithPhoneOnly, route)

		_, err := svc.Enqueue(ctx, &EnqueueRequest{TemplateKey: "POLICY_CONFIRMED", CustomerID: 7})
		require.NoError(t, err)
		for _, d := range created {
			require.Equal(t, 3, d.MaxAttempts)
		}
	})

	t.Run("unknown template key is a configuration error", func(t *testing.T) {
		svc := newService(&mockDeliveryRepo{}, customerWithPhoneOnly, nil)

		_, err := svc.Enqueue(ctx, &EnqueueRequest{TemplateKey: "NO_SUCH_KEY", CustomerID: 7})
		require.Error(t, err)
		require.IsType(t, &ConfigurationError{}, err)
	})

	t.Run("disabled route is a configuration error", func(t *testing.T) {
		disabled := &models.MessagingRoute{TemplateKey: "POLICY_CONFIRMED", SMSEnabled: true, IsActive: false}
		svc := newService(&mockDeliveryRepo{}, customerWithPhoneOnly, disabled)

		_, err := svc.Enqueue(ctx, &EnqueueRequest{TemplateKey: "POLICY_CONFIRMED", CustomerID: 7})
		require.Error(t, err)
		require.IsType(t, &ConfigurationError{}, err)
	})

	t.Run("unknown customer is not found", func(t *testing.T) {
		svc := newService(&mockDeliveryRepo{}, nil, route)

		_, err := svc.Enqueue(ctx, &EnqueueRequest{TemplateKey: "POLICY_CONFIRMED", CustomerID: 99})
		require.Error(t, err)
		require.IsType(t, &NotFoundError{}, err)
	})

	t.Run("request validation", func(t *testing.T) {
		svc := newService(&mockDeliveryRepo{}, customerWithPhoneOnly, route)

		_, err := svc.Enqueue(ctx, &EnqueueRequest{CustomerID: 7})
		require.IsType(t, &ValidationError{}, err)

		_, err = svc.Enqueue(ctx, &EnqueueRequest{TemplateKey: "X"})
		require.IsType(t, &ValidationError{}, err)

		_, err = svc.Enqueue(ctx, &EnqueueRequest{
			TemplateKey: "X", CustomerID: 7,
			DynamicAttachmentSpecs: models.AttachmentSpecs{{AttachmentTemplateID: 0}},
		})
		require.IsType(t, &ValidationError{}, err)
	})
}

func TestDeliveryService_Resend(t *testing.T) {
	ctx := context.Background()

	original := &models.Delivery{
		ID:                42,
		CorrelationID:     "orig-corr",
		Channel:           models.ChannelEmail,
		TemplateKey:       "POLICY_CONFIRMED",
		RequestedLanguage: strPtr("en"),
		UsedLanguage:      strPtr("en"),
		CustomerID:        7,
		PolicyID:          intPtr(1001),
		RecipientEmail:    strPtr("amina@example.com"),
		RenderedSubject:   strPtr("Policy POL-1001 active"),
		RenderedBody:      strPtr("<p>Hi Amina</p>"),
		RenderedTextBody:  strPtr("Hi Amina"),
		Status:            models.DeliveryStatusSent,
		AttemptCount:      1,
		MaxAttempts:       3,
	}

	t.Run("copies rendered content verbatim with lineage", func(t *testing.T) {
		var created *models.Delivery
		var copiedFrom, copiedTo int

		deliveryRepo := &mockDeliveryRepo{
			GetByIDFn: func(_ context.Context, id int) (*models.Delivery, error) {
				require.Equal(t, 42, id)
				return original, nil
			},
			CreateFn: func(_ context.Context, d *models.Delivery) error {
				d.ID = 100
				created = d
				return nil
			},
		}
		attachmentRepo := &mockAttachmentRepo{
			CopyToDeliveryFn: func(_ context.Context, from, to int) error {
				copiedFrom, copiedTo = from, to
				return nil
			},
		}

		svc := NewDeliveryService(
			deliveryRepo, attachmentRepo,
			&mockCustomerRepo{}, &mockRouteRepo{},
			testSettingsCache(), zerolog.Nop(),
		)

		newID, err := svc.Resend(ctx, 42)
		require.NoError(t, err)
		require.Equal(t, 100, newID)

		require.Equal(t, models.DeliveryStatusPending, created.Status)
		require.Equal(t, 0, created.AttemptCount)
		require.Equal(t, 42, *created.OriginalDeliveryID)
		require.NotEqual(t, "orig-corr", created.CorrelationID)

		// Content byte-identical to the original, never re-rendered
		require.Equal(t, *original.RenderedSubject, *created.RenderedSubject)
		require.Equal(t, *original.RenderedBody, *created.RenderedBody)
		require.Equal(t, *original.RenderedTextBody, *created.RenderedTextBody)
		require.Equal(t, *original.UsedLanguage, *created.UsedLanguage)
		require.Equal(t, *original.RecipientEmail, *created.RecipientEmail)

		require.Equal(t, 42, copiedFrom)
		require.Equal(t, 100, copiedTo)
	})

	t.Run("missing recipient is re-read from the customer record", func(t *testing.T) {
		noRecipient := *original
		noRecipient.RecipientEmail = nil

		var created *models.Delivery
		deliveryRepo := &mockDeliveryRepo{
			GetByIDFn: func(_ context.Context, _ int) (*models.Delivery, error) { return &noRecipient, nil },
			CreateFn:  func(_ context.Context, d *models.Delivery) error { d.ID = 101; created = d; return nil },
		}
		customerRepo := &mockCustomerRepo{
			GetByIDFn: func(_ context.Context, _ int) (*models.Customer, error) {
				return &models.Customer{ID: 7, Email: strPtr("fixed@example.com")}, nil
			},
		}

		svc := NewDeliveryService(
			deliveryRepo,
			&mockAttachmentRepo{CopyToDeliveryFn: func(_ context.Context, _, _ int) error { return nil }},
			customerRepo, &mockRouteRepo{},
			testSettingsCache(), zerolog.Nop(),
		)

		_, err := svc.Resend(ctx, 42)
		require.NoError(t, err)
		require.Equal(t, "fixed@example.com", *created.RecipientEmail)
	})

	t.Run("still no recipient fails the resend", func(t *testing.T) {
		noRecipient := *original
		noRecipient.RecipientEmail = nil

		deliveryRepo := &mockDeliveryRepo{
			GetByIDFn: func(_ context.Context, _ int) (*models.Delivery, error) { return &noRecipient, nil },
		}
		customerRepo := &mockCustomerRepo{
			GetByIDFn: func(_ context.Context, _ int) (*models.Customer, error) {
				return &models.Customer{ID: 7}, nil
			},
		}

		svc := NewDeliveryService(
			deliveryRepo, &mockAttachmentRepo{}, customerRepo, &mockRouteRepo{},
			testSettingsCache(), zerolog.Nop(),
		)

		_, err := svc.Resend(ctx, 42)
		require.Error(t, err)
		require.IsType(t, &BusinessLogicError{}, err)
	})

	t.Run("unknown delivery is not found", func(t *testing.T) {
		deliveryRepo := &mockDeliveryRepo{
			GetByIDFn: func(_ context.Context, _ int) (*models.Delivery, error) {
				return nil, repository.ErrNotFound
			},
		}

		svc := NewDeliveryService(
			deliveryRepo, &mockAttachmentRepo{}, &mockCustomerRepo{}, &mockRouteRepo{},
			testSettingsCache(), zerolog.Nop(),
		)

		_, err := svc.Resend(ctx, 9999)
		require.Error(t, err)
		require.IsType(t, &NotFoundError{}, err)
	})
}
