package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"

	"covermsg/internal/models"
	"covermsg/internal/repository"
)

// memberCardHTML is the built-in membership card layout. The member-card
// kind is a fixed code path, not an editable template.
const memberCardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; margin: 0; }
  .card { width: 340px; border: 1px solid #1a3c6e; border-radius: 10px; padding: 18px 22px; }
  .plan { color: #1a3c6e; font-size: 13px; text-transform: uppercase; letter-spacing: 1px; }
  .name { font-size: 20px; font-weight: bold; margin: 10px 0 2px; }
  .number { font-family: monospace; font-size: 15px; margin-bottom: 10px; }
  .valid { font-size: 12px; color: #555; }
</style>
</head>
<body>
  <div class="card">
    <div class="plan">{{.PlanName}}</div>
    <div class="name">{{.FullName}}</div>
    <div class="number">{{.MemberNumber}}</div>
    <div class="valid">Valid until {{.ValidUntil.Format "02 Jan 2006"}}</div>
  </div>
</body>
</html>`

var memberCardTemplate = template.Must(template.New("member_card").Parse(memberCardHTML))

// GeneratedFile is the output of attachment generation
type GeneratedFile struct {
	Data     []byte
	FileName string
	MimeType string
}

// Generator renders PDF attachments from attachment templates
type Generator struct {
	members repository.PolicyMemberRepository

	// convert is swapped out in tests to avoid the wkhtmltopdf binary
	convert func(html string) ([]byte, error)
}

// NewGenerator creates a new attachment generator
func NewGenerator(members repository.PolicyMemberRepository) *Generator {
	return &Generator{
		members: members,
		convert: htmlToPDF,
	}
}

// Generate produces the PDF for one attachment template and parameter map.
// The two kinds are distinct code paths over a closed set.
func (g *Generator) Generate(ctx context.Context, tpl *models.AttachmentTemplate, params map[string]string) (*GeneratedFile, error) {
	switch tpl.Kind {
	case models.AttachmentKindMemberCard:
		return g.generateMemberCard(ctx, params)
	case models.AttachmentKindHTML:
		return g.generateHTML(tpl, params)
	default:
		return nil, fmt.Errorf("unknown attachment kind %q", tpl.Kind)
	}
}

func (g *Generator) generateMemberCard(ctx context.Context, params map[string]string) (*GeneratedFile, error) {
	policyID, err := strconv.Atoi(params["policy_id"])
	if err != nil {
		return nil, fmt.Errorf("member card requires a numeric policy_id param")
	}
	memberIndex, err := strconv.Atoi(params["member_index"])
	if err != nil {
		return nil, fmt.Errorf("member card requires a numeric member_index param")
	}

	member, err := g.members.GetMember(ctx, policyID, memberIndex)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("no member %d on policy %d", memberIndex, policyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy member: %w", err)
	}

	var html bytes.Buffer
	if err := memberCardTemplate.Execute(&html, member); err != nil {
		return nil, fmt.Errorf("failed to render member card: %w", err)
	}

	data, err := g.convert(html.String())
	if err != nil {
		return nil, fmt.Errorf("failed to convert member card to pdf: %w", err)
	}

	return &GeneratedFile{
		Data:     data,
		FileName: fmt.Sprintf("member-card-%d-%d.pdf", policyID, memberIndex),
		MimeType: "application/pdf",
	}, nil
}

func (g *Generator) generateHTML(tpl *models.AttachmentTemplate, params map[string]string) (*GeneratedFile, error) {
	if tpl.HTMLBody == nil || *tpl.HTMLBody == "" {
		return nil, fmt.Errorf("attachment template %d has no html body", tpl.ID)
	}

	parsed, err := template.New(tpl.Name).Parse(*tpl.HTMLBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse attachment template: %w", err)
	}

	var html bytes.Buffer
	if err := parsed.Execute(&html, params); err != nil {
		return nil, fmt.Errorf("failed to render attachment template: %w", err)
	}

	data, err := g.convert(html.String())
	if err != nil {
		return nil, fmt.Errorf("failed to convert attachment to pdf: %w", err)
	}

	return &GeneratedFile{
		Data:     data,
		FileName: slugify(tpl.Name) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

// htmlToPDF converts HTML to PDF bytes via wkhtmltopdf
func htmlToPDF(html string) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pdf generator: %w", err)
	}

	page := wkhtmltopdf.NewPageReader(strings.NewReader(html))
	page.DisableExternalLinks.Set(true)
	pdfg.AddPage(page)
	pdfg.MarginTop.Set(10)
	pdfg.MarginBottom.Set(10)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to generate pdf: %w", err)
	}

	return pdfg.Bytes(), nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	return strings.Trim(strings.Join(strings.FieldsFunc(slug, func(r rune) bool { return r == '-' }), "-"), "-")
}
