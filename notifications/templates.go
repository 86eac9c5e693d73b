package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Message is a rendered notification
type Message struct {
	Subject string
	HTML    string
	Title   string // push title
	Body    string // push body
}

var assignmentTemplate = template.Must(template.New("assignment").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; border: 2px solid {{.Accent}}; border-radius: 8px; overflow: hidden;">
  <div style="background-color: #1a1612; color: #c4a57b; padding: 20px; text-align: center;">
    <h1 style="margin: 0; letter-spacing: 2px;">AlphaSafe</h1>
    <p style="margin: 5px 0 0; text-transform: uppercase; font-size: 12px;">{{.Label}}</p>
  </div>
  <div style="padding: 20px; color: #1a1612; line-height: 1.6;">
    <p>Hello <strong>{{.Recipient}}</strong>,</p>
    <p>{{.Intro}}</p>
    <div style="background-color: #f9f9f9; padding: 15px; border-left: 4px solid {{.Accent}}; margin: 20px 0;">
      <p style="margin: 0;"><strong>Client:</strong> {{.Client}}</p>
      <p style="margin: 5px 0 0;"><strong>Address:</strong> {{.Address}}</p>
      <p style="margin: 5px 0 0;"><strong>Service:</strong> {{.Services}}</p>
      <p style="margin: 5px 0 0;"><strong>Equipment:</strong> {{.Equipment}}</p>
      <p style="margin: 5px 0 0;"><strong>S/N:</strong> {{.Serial}}</p>
      {{if .When}}<p style="margin: 5px 0 0;"><strong>Scheduled:</strong> {{.When}}</p>{{end}}
    </div>
    <div style="background-color: #fff4ed; padding: 15px; border-radius: 4px; margin-bottom: 20px;">
      <p style="margin: 0;"><strong>Notes:</strong></p>
      <p style="margin: 5px 0 0; color: #431407;">{{.Notes}}</p>
    </div>
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{.Link}}" style="background-color: #1a1612; color: #c4a57b; padding: 12px 25px; text-decoration: none; border-radius: 4px; font-weight: bold; display: inline-block;">VIEW INTERVENTION</a>
    </div>
  </div>
</div>`))

var billingTemplate = template.Must(template.New("billing").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; border: 1px solid #c4a57b; border-radius: 8px; overflow: hidden;">
  <div style="background-color: #c4a57b; color: #1a1612; padding: 15px; text-align: center; font-weight: bold;">OFFICE NOTIFICATION</div>
  <div style="padding: 20px;">
    <h2 style="color: #1a1612; margin-top: 0;">Ready to invoice</h2>
    <p>The following intervention is technically complete and ready for billing:</p>
    <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
      <tr><td style="padding: 10px; border: 1px solid #eee;"><strong>Client</strong></td><td style="padding: 10px; border: 1px solid #eee;">{{.Client}}</td></tr>
      <tr><td style="padding: 10px; border: 1px solid #eee;"><strong>NIF</strong></td><td style="padding: 10px; border: 1px solid #eee;">{{.NIF}}</td></tr>
      <tr><td style="padding: 10px; border: 1px solid #eee;"><strong>Service</strong></td><td style="padding: 10px; border: 1px solid #eee;">{{.Services}}</td></tr>
      <tr><td style="padding: 10px; border: 1px solid #eee;"><strong>Technician</strong></td><td style="padding: 10px; border: 1px solid #eee;">{{.Technician}}</td></tr>
      <tr><td style="padding: 10px; border: 1px solid #eee;"><strong>Equipment</strong></td><td style="padding: 10px; border: 1px solid #eee;">{{.Equipment}}</td></tr>
    </table>
    <div style="background-color: #f0fdf4; padding: 15px; border-radius: 4px; color: #14532d; font-size: 14px;">
      <strong>Final notes:</strong><br>{{.Notes}}
    </div>
    <p style="text-align: center;"><a href="{{.Link}}">Open in AlphaSafe</a></p>
  </div>
</div>`))

type templateData struct {
	Accent     string
	Label      string
	Intro      string
	Recipient  string
	Client     string
	NIF        string
	Address    string
	Services   string
	Equipment  string
	Serial     string
	Technician string
	When       string
	Notes      string
	Link       string
}

// Render builds the message for req. appURL is used for links back to the
// web application.
func Render(req Request, appURL string) (Message, error) {
	in := req.Intervention
	data := templateData{
		Recipient:  req.Recipient.Name,
		Client:     in.Client.Name,
		NIF:        in.Client.NIF,
		Address:    valueOr(in.Client.Address, "Not specified"),
		Services:   strings.Join(in.ServiceType, ", "),
		Equipment:  in.EquipmentModel,
		Serial:     in.SerialNumber,
		Technician: in.Technician,
		Notes:      valueOr(in.Notes, "No additional notes."),
		Link:       fmt.Sprintf("%s/interventions/%d", strings.TrimRight(appURL, "/"), in.ID),
	}
	if in.AssistanceDate != nil {
		data.When = in.AssistanceDate.Format("2006-01-02 15:04")
	}

	var (
		msg  Message
		tmpl *template.Template
	)
	switch req.Kind {
	case KindAssistance:
		data.Accent = "#e11d48"
		data.Label = "URGENT: Assistance request"
		data.Intro = "A new assistance request needs your attention:"
		tmpl = assignmentTemplate
		msg.Title = "New assistance request"
	case KindAssignment:
		data.Accent = "#c4a57b"
		data.Label = "New installation / intervention"
		data.Intro = "A new installation or intervention has been assigned to you:"
		tmpl = assignmentTemplate
		msg.Title = "New intervention assigned"
	case KindBilling:
		data.Label = "BILLING"
		tmpl = billingTemplate
		msg.Title = "Ready to invoice"
	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", req.Kind)
	}

	if req.Kind == KindBilling {
		msg.Subject = fmt.Sprintf("BILLING: %s - ready to process", data.Client)
	} else {
		msg.Subject = fmt.Sprintf("%s: %s - %s", data.Label, data.Services, data.Client)
	}
	msg.Body = fmt.Sprintf("%s - %s (%s)", data.Client, data.Services, data.Equipment)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s template: %w", req.Kind, err)
	}
	msg.HTML = buf.String()
	return msg, nil
}

func valueOr(value *string, fallback string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return fallback
	}
	return *value
}
