package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"covermsg/internal/models"
	"covermsg/internal/repository"
)

// TemplateService resolves and renders messaging templates
type TemplateService struct {
	templateRepo repository.TemplateRepository
}

// NewTemplateService creates a new template service
func NewTemplateService(templateRepo repository.TemplateRepository) *TemplateService {
	return &TemplateService{templateRepo: templateRepo}
}

// Resolve picks the active template for (templateKey, channel), trying the
// requested language first and falling back to the default language. It
// returns the template and the language actually used. No active template in
// either language is a configuration gap, not a transient fault.
func (s *TemplateService) Resolve(ctx context.Context, templateKey string, channel models.Channel, requestedLanguage, defaultLanguage string) (*models.MessagingTemplate, string, error) {
	languages := dedupeLanguages(requestedLanguage, defaultLanguage)

	for _, language := range languages {
		template, err := s.templateRepo.FindActive(ctx, templateKey, channel, language)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve template: %w", err)
		}
		return template, language, nil
	}

	return nil, "", &ConfigurationError{
		Message: fmt.Sprintf(
			"no active %s template for key %q in language(s) %s",
			channel, templateKey, strings.Join(languages, ", "),
		),
	}
}

// RenderedContent holds the rendered parts of a message
type RenderedContent struct {
	Subject  *string
	Body     string
	TextBody *string
}

// RenderContent renders every text of the template with the given
// placeholder values
func (s *TemplateService) RenderContent(template *models.MessagingTemplate, values map[string]interface{}) (*RenderedContent, error) {
	body, err := Render(template.Body, values)
	if err != nil {
		return nil, err
	}

	content := &RenderedContent{Body: body}

	if template.Subject != nil && *template.Subject != "" {
		subject, err := Render(*template.Subject, values)
		if err != nil {
			return nil, err
		}
		content.Subject = &subject
	}

	if template.TextBody != nil && *template.TextBody != "" {
		textBody, err := Render(*template.TextBody, values)
		if err != nil {
			return nil, err
		}
		content.TextBody = &textBody
	}

	return content, nil
}

// dedupeLanguages returns the non-blank languages in order, first
// occurrence wins
func dedupeLanguages(languages ...string) []string {
	result := []string{}
	seen := map[string]bool{}
	for _, language := range languages {
		language = strings.TrimSpace(language)
		if language == "" || seen[language] {
			continue
		}
		seen[language] = true
		result = append(result, language)
	}
	return result
}
