package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"covermsg/internal/models"
	"covermsg/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestTemplateService_Resolve(t *testing.T) {
	ctx := context.Background()

	swahili := &models.MessagingTemplate{
		ID: 1, TemplateKey: "POLICY_CONFIRMED", Channel: models.ChannelSMS,
		Language: "sw", Body: "Habari {first_name}", IsActive: true,
	}
	english := &models.MessagingTemplate{
		ID: 2, TemplateKey: "POLICY_CONFIRMED", Channel: models.ChannelSMS,
		Language: "en", Body: "Hi {first_name}", IsActive: true,
	}

	repoWith := func(byLanguage map[string]*models.MessagingTemplate) *mockTemplateRepo {
		return &mockTemplateRepo{
			FindActiveFn: func(_ context.Context, _ string, _ models.Channel, language string) (*models.MessagingTemplate, error) {
				if tpl, ok := byLanguage[language]; ok {
					return tpl, nil
				}
				return nil, repository.ErrNotFound
			},
		}
	}

	t.Run("requested language wins", func(t *testing.T) {
		svc := NewTemplateService(repoWith(map[string]*models.MessagingTemplate{"sw": swahili, "en": english}))

		tpl, used, err := svc.Resolve(ctx, "POLICY_CONFIRMED", models.ChannelSMS, "sw", "en")
		require.NoError(t, err)
		require.Equal(t, "sw", used)
		require.Equal(t, swahili.ID, tpl.ID)
	})

	t.Run("falls back to default language", func(t *testing.T) {
		svc := NewTemplateService(repoWith(map[string]*models.MessagingTemplate{"en": english}))

		tpl, used, err := svc.Resolve(ctx, "POLICY_CONFIRMED", models.ChannelSMS, "sw", "en")
		require.NoError(t, err)
		require.Equal(t, "en", used)
		require.Equal(t, english.ID, tpl.ID)
	})

	t.Run("no template in either language is a configuration error", func(t *testing.T) {
		svc := NewTemplateService(repoWith(nil))

		_, _, err := svc.Resolve(ctx, "POLICY_CONFIRMED", models.ChannelSMS, "sw", "en")
		require.Error(t, err)
		require.IsType(t, &ConfigurationError{}, err)
	})

	t.Run("blank requested language skips straight to default", func(t *testing.T) {
		lookups := []string{}
		repo := &mockTemplateRepo{
			FindActiveFn: func(_ context.Context, _ string, _ models.Channel, language string) (*models.MessagingTemplate, error) {
				lookups = append(lookups, language)
				return english, nil
			},
		}
		svc := NewTemplateService(repo)

		_, used, err := svc.Resolve(ctx, "POLICY_CONFIRMED", models.ChannelSMS, "", "en")
		require.NoError(t, err)
		require.Equal(t, "en", used)
		require.Equal(t, []string{"en"}, lookups)
	})
}

func TestTemplateService_RenderContent(t *testing.T) {
	svc := NewTemplateService(&mockTemplateRepo{})

	t.Run("renders subject, body and text body", func(t *testing.T) {
		tpl := &models.MessagingTemplate{
			Channel:  models.ChannelEmail,
			Subject:  strPtr("Policy {policy_number} active"),
			Body:     "<p>Hi {first_name}</p>",
			TextBody: strPtr("Hi {first_name}"),
		}

		content, err := svc.RenderContent(tpl, map[string]interface{}{
			"first_name":    "Amina",
			"policy_number": "POL-9",
		})
		require.NoError(t, err)
		require.Equal(t, "Policy POL-9 active", *content.Subject)
		require.Equal(t, "<p>Hi Amina</p>", content.Body)
		require.Equal(t, "Hi Amina", *content.TextBody)
	})

	t.Run("missing value in any text fails the whole render", func(t *testing.T) {
		tpl := &models.MessagingTemplate{
			Channel: models.ChannelEmail,
			Subject: strPtr("Policy {policy_number}"),
			Body:    "Hi {first_name}",
		}

		_, err := svc.RenderContent(tpl, map[string]interface{}{"first_name": "Amina"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "policy_number")
	})

	t.Run("sms template with body only", func(t *testing.T) {
		tpl := &models.MessagingTemplate{
			Channel: models.ChannelSMS,
			Body:    "Hi {first_name}",
		}

		content, err := svc.RenderContent(tpl, map[string]interface{}{"first_name": "Joe"})
		require.NoError(t, err)
		require.Nil(t, content.Subject)
		require.Nil(t, content.TextBody)
		require.Equal(t, "Hi Joe", content.Body)
	})
}
