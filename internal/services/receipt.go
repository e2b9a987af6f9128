package services

import (
	"bytes"
	"fmt"
	"html/template"
)

const signature = "The Docutrack Team"

type ReceiptInput struct {
	UserName   string
	UserEmail  string
	EventTitle string
	// DueDate is already formatted for reading.
	DueDate string
}

// Receipt is the rendered confirmation email.
type Receipt struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type ReminderInput struct {
	UserName     string
	EventTitle   string
	DueDate      string
	ReminderText string
	Progress     string
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;">
	<h2 style="color: #333;">Your event is set up</h2>
	<p>Hi {{.UserName}},</p>
	<p>Great news! Your event <strong>{{.EventTitle}}</strong> has been created in Docutrack.</p>
	<ul>
		<li><strong>Event:</strong> {{.EventTitle}}</li>
		<li><strong>Due date:</strong> {{.DueDate}}</li>
	</ul>
	<p>Add your documents whenever you are ready. We will keep track of their progress and mark the event complete once every document is done.</p>
	<p>You've got this!</p>
	<p>{{.Signature}}</p>
</div>`))

var reminderTemplate = template.Must(template.New("reminder").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;">
	<h2 style="color: #333;">Reminder: {{.EventTitle}}</h2>
	<p>Hi {{.UserName}},</p>
	<p>{{.ReminderText}}</p>
	<ul>
		<li><strong>Due date:</strong> {{.DueDate}}</li>
		{{- if .Progress}}
		<li><strong>Documents completed:</strong> {{.Progress}}</li>
		{{- end}}
	</ul>
	<p>{{.Signature}}</p>
</div>`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// GenerateReceipt renders the confirmation sent after an event is created.
func GenerateReceipt(in ReceiptInput) (Receipt, error) {
	body, err := render(receiptTemplate, struct {
		ReceiptInput
		Signature string
	}{in, signature})
	if err != nil {
		return Receipt{}, err
	}

	return Receipt{
		Subject: fmt.Sprintf("Event created: %s", in.EventTitle),
		Body:    body,
	}, nil
}

func GenerateReminder(in ReminderInput) (Receipt, error) {
	body, err := render(reminderTemplate, struct {
		ReminderInput
		Signature string
	}{in, signature})
	if err != nil {
		return Receipt{}, err
	}

	return Receipt{
		Subject: fmt.Sprintf("Reminder: %s is due %s", in.EventTitle, in.DueDate),
		Body:    body,
	}, nil
}
