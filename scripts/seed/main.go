package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"covermsg/internal/config"
)

func main() {
	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fail("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		fail("Failed to open database connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fail("Failed to ping database: %v", err)
	}

	if err := seedCustomers(db); err != nil {
		fail("Failed to seed customers: %v", err)
	}
	if err := seedTemplates(db); err != nil {
		fail("Failed to seed templates: %v", err)
	}
	if err := seedRoutes(db); err != nil {
		fail("Failed to seed routes: %v", err)
	}
	if err := seedAttachmentTemplates(db); err != nil {
		fail("Failed to seed attachment templates: %v", err)
	}
	if err := seedSettings(db); err != nil {
		fail("Failed to seed settings: %v", err)
	}
	if err := seedPolicyMembers(db); err != nil {
		fail("Failed to seed policy members: %v", err)
	}

	fmt.Println("Seed data loaded")
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func seedCustomers(db *sql.DB) error {
	customers := []struct {
		firstName, lastName, phone, email, language string
	}{
		{"Amina", "Otieno", "+254722000001", "amina.otieno@example.com", "en"},
		{"Joseph", "Mwangi", "+254722000002", "", "sw"},
		{"Grace", "Njeri", "", "grace.njeri@example.com", "en"},
		{"Daniel", "Kiprop", "+254722000004", "daniel.kiprop@example.com", ""},
	}

	for _, c := range customers {
		var phone, email, language interface{}
		if c.phone != "" {
			phone = c.phone
		}
		if c.email != "" {
			email = c.email
		}
		if c.language != "" {
			language = c.language
		}

		_, err := db.Exec(`
			INSERT INTO customers (first_name, last_name, phone, email, preferred_language)
			VALUES ($1, $2, $3, $4, $5)
		`, c.firstName, c.lastName, phone, email, language)
		if err != nil {
			return err
		}
	}

	fmt.Printf("  seeded %d customers\n", len(customers))
	return nil
}

func seedTemplates(db *sql.DB) error {
	type tpl struct {
		key, channel, language string
		subject                string
		body                   string
		textBody               string
		placeholders           string
	}

	templates := []tpl{
		{
			key: "POLICY_CONFIRMED", channel: "sms", language: "en",
			body:         "Hi {first_name}, your policy {policy_number} is now active. Cover starts {start_date}.",
			placeholders: "{first_name,policy_number,start_date}",
		},
		{
			key: "POLICY_CONFIRMED", channel: "sms", language: "sw",
			body:         "Habari {first_name}, sera yako {policy_number} sasa inatumika. Ulinzi unaanza {start_date}.",
			placeholders: "{first_name,policy_number,start_date}",
		},
		{
			key: "POLICY_CONFIRMED", channel: "email", language: "en",
			subject:      "Your policy {policy_number} is active",
			body:         "<p>Dear {first_name},</p><p>Your policy <strong>{policy_number}</strong> is now active. Cover starts {start_date}.</p><p>Your membership card is attached.</p>",
			textBody:     "Dear {first_name}, your policy {policy_number} is now active. Cover starts {start_date}.",
			placeholders: "{first_name,policy_number,start_date}",
		},
		{
			key: "PAYMENT_REMINDER", channel: "sms", language: "en",
			body:         "Hi {first_name}, a premium of {amount} for policy {policy_number} is due on {due_date}.",
			placeholders: "{first_name,amount,policy_number,due_date}",
		},
	}

	for _, t := range templates {
		var subject, textBody interface{}
		if t.subject != "" {
			subject = t.subject
		}
		if t.textBody != "" {
			textBody = t.textBody
		}

		_, err := db.Exec(`
			INSERT INTO messaging_templates (template_key, channel, language, subject, body, text_body, placeholders, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		`, t.key, t.channel, t.language, subject, t.body, textBody, t.placeholders)
		if err != nil {
			return err
		}
	}

	fmt.Printf("  seeded %d templates\n", len(templates))
	return nil
}

func seedRoutes(db *sql.DB) error {
	routes := []struct {
		key                string
		sms, email, active bool
	}{
		{"POLICY_CONFIRMED", true, true, true},
		{"PAYMENT_REMINDER", true, false, true},
	}

	for _, r := range routes {
		_, err := db.Exec(`
			INSERT INTO messaging_routes (template_key, sms_enabled, email_enabled, is_active)
			VALUES ($1, $2, $3, $4)
		`, r.key, r.sms, r.email, r.active)
		if err != nil {
			return err
		}
	}

	fmt.Printf("  seeded %d routes\n", len(routes))
	return nil
}

func seedAttachmentTemplates(db *sql.DB) error {
	_, err := db.Exec(`
		INSERT INTO attachment_templates (name, kind, html_body, is_active)
		VALUES ('Membership Card', 'member_card', NULL, TRUE)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO attachment_templates (name, kind, html_body, is_active)
		VALUES (
			'Welcome Letter', 'html',
			'<h1>Welcome {{.first_name}}</h1><p>Thank you for choosing us. Your policy {{.policy_number}} is active.</p>',
			TRUE
		)
	`)
	if err != nil {
		return err
	}

	fmt.Println("  seeded 2 attachment templates")
	return nil
}

func seedSettings(db *sql.DB) error {
	defaults := map[string]string{
		"smsMaxAttempts":                    "3",
		"emailMaxAttempts":                  "3",
		"baseRetryDelaySeconds":             "30",
		"maxRetryDelaySeconds":              "3600",
		"workerBatchSize":                   "20",
		"workerPollIntervalSeconds":         "5",
		"attachmentRetentionMonths":         "6",
		"systemSettingsCacheRefreshSeconds": "60",
		"defaultLanguage":                   "en",
	}

	for key, value := range defaults {
		_, err := db.Exec(`
			INSERT INTO system_settings (key, value, updated_by)
			VALUES ($1, $2, 'seed')
			ON CONFLICT (key) DO NOTHING
		`, key, value)
		if err != nil {
			return err
		}
	}

	_, err := db.Exec(`UPDATE settings_meta SET updated_at = NOW() WHERE id = 1`)
	if err != nil {
		return err
	}

	fmt.Printf("  seeded %d settings\n", len(defaults))
	return nil
}

func seedPolicyMembers(db *sql.DB) error {
	validUntil := time.Now().AddDate(1, 0, 0)

	members := []struct {
		policyID, memberIndex int
		fullName, number, plan string
	}{
		{1001, 1, "Amina Otieno", "MBR-1001-01", "Family Gold"},
		{1001, 2, "Hassan Otieno", "MBR-1001-02", "Family Gold"},
		{1002, 1, "Joseph Mwangi", "MBR-1002-01", "Individual Silver"},
	}

	for _, m := range members {
		_, err := db.Exec(`
			INSERT INTO policy_members (policy_id, member_index, full_name, member_number, plan_name, valid_until)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (policy_id, member_index) DO NOTHING
		`, m.policyID, m.memberIndex, m.fullName, m.number, m.plan, validUntil)
		if err != nil {
			return err
		}
	}

	fmt.Printf("  seeded %d policy members\n", len(members))
	return nil
}
