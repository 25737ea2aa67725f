package email

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/k3a/html2text"
)

// DefaultAppURL is linked from emails when no dashboard URL is configured.
const DefaultAppURL = "http://localhost:3000"

const welcomeSubject = "Welcome to CoastCare - Your Coastal Alert Subscription"

// Template is a rendered email.
type Template struct {
	Subject string
	HTML    string
	Text    string
}

type alertView struct {
	Subject      string
	Heading      string
	Severity     string
	SeverityKey  string
	Message      string
	Location     string
	SensorName   string
	Timestamp    string
	Threshold    string
	Actual       string
	Unit         string
	DashboardURL string
}

type welcomeView struct {
	Name   string
	Email  string
	AppURL string
}

var (
	alertHTML   = htmltemplate.Must(htmltemplate.New("alert").Parse(alertHTMLSource))
	alertText   = texttemplate.Must(texttemplate.New("alert").Parse(alertTextSource))
	welcomeHTML = htmltemplate.Must(htmltemplate.New("welcome").Parse(welcomeHTMLSource))
	welcomeText = texttemplate.Must(texttemplate.New("welcome").Parse(welcomeTextSource))
)

// AlertSubject returns "Coastal Alert: <SEVERITY> - <location>".
func AlertSubject(data *alerting.NotificationData) string {
	return "Coastal Alert: " + strings.ToUpper(data.Severity) + " - " + data.Location
}

// AlertHeading upper-cases the alert type after replacing its first
// underscore with a space.
func AlertHeading(alertType string) string {
	return strings.ToUpper(strings.Replace(alertType, "_", " ", 1))
}

// RenderAlert renders the alert notification email. appURL defaults to
// DefaultAppURL.
func RenderAlert(data *alerting.NotificationData, appURL string) (Template, error) {
	view := alertView{
		Subject:      AlertSubject(data),
		Heading:      AlertHeading(data.AlertType),
		Severity:     strings.ToUpper(data.Severity),
		SeverityKey:  data.Severity,
		Message:      data.Message,
		Location:     data.Location,
		SensorName:   data.SensorName,
		Timestamp:    data.Timestamp,
		Threshold:    formatNumber(data.ThresholdValue),
		Actual:       formatNumber(data.ActualValue),
		Unit:         data.Unit,
		DashboardURL: baseURL(appURL) + "/dashboard",
	}
	return render(view.Subject, alertHTML, alertText, view)
}

// RenderWelcome renders the subscription welcome email. An empty name is
// greeted as "there".
func RenderWelcome(name, to, appURL string) (Template, error) {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	view := welcomeView{Name: name, Email: to, AppURL: baseURL(appURL)}
	return render(welcomeSubject, welcomeHTML, welcomeText, view)
}

func render(subject string, html *htmltemplate.Template, text *texttemplate.Template, view any) (Template, error) {
	var hb, tb bytes.Buffer
	if err := html.Execute(&hb, view); err != nil {
		return Template{}, err
	}
	if err := text.Execute(&tb, view); err != nil {
		return Template{}, err
	}
	return withTextFallback(Template{Subject: subject, HTML: hb.String(), Text: tb.String()}), nil
}

// withTextFallback derives the plain-text part from the HTML when the text
// part is blank.
func withTextFallback(t Template) Template {
	if strings.TrimSpace(t.Text) == "" && t.HTML != "" {
		t.Text = html2text.HTML2Text(t.HTML)
	}
	return t
}

func baseURL(appURL string) string {
	if appURL == "" {
		return DefaultAppURL
	}
	return strings.TrimRight(appURL, "/")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const alertHTMLSource = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Coastal Alert</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; border-radius: 8px 8px 0 0; }
    .content { background: #f9f9f9; padding: 20px; border-radius: 0 0 8px 8px; }
    .alert-box { background: white; border-left: 4px solid #ff6b6b; padding: 15px; margin: 15px 0; border-radius: 4px; }
    .severity-high { border-left-color: #ff6b6b; }
    .severity-medium { border-left-color: #feca57; }
    .severity-low { border-left-color: #48dbfb; }
    .severity-critical { border-left-color: #ff3838; }
    .metric { background: #f8f9fa; padding: 10px; margin: 10px 0; border-radius: 4px; }
    .footer { text-align: center; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; color: #666; font-size: 12px; }
    .btn { display: inline-block; padding: 10px 20px; background: #667eea; color: white; text-decoration: none; border-radius: 4px; margin: 10px 0; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>🌊 Coastal Alert Notification</h1>
      <p>Real-time coastal monitoring system</p>
    </div>
    <div class="content">
      <div class="alert-box severity-{{.SeverityKey}}">
        <h2>🚨 {{.Heading}}</h2>
        <p><strong>Severity:</strong> {{.Severity}}</p>
        <p><strong>Message:</strong> {{.Message}}</p>
      </div>
      <div class="metric">
        <h3>📍 Location Details</h3>
        <p><strong>Location:</strong> {{.Location}}</p>
        <p><strong>Sensor:</strong> {{.SensorName}}</p>
        <p><strong>Time:</strong> {{.Timestamp}}</p>
      </div>
      <div class="metric">
        <h3>📊 Sensor Readings</h3>
        <p><strong>Threshold:</strong> {{.Threshold}} {{.Unit}}</p>
        <p><strong>Actual Value:</strong> {{.Actual}} {{.Unit}}</p>
      </div>
      <div style="text-align: center; margin: 20px 0;">
        <a href="{{.DashboardURL}}" class="btn">View Dashboard</a>
      </div>
    </div>
    <div class="footer">
      <p>This is an automated alert from CoastCare monitoring system.</p>
      <p>To manage your alert preferences, visit your dashboard.</p>
    </div>
  </div>
</body>
</html>
`

const alertTextSource = `{{.Subject}}

ALERT TYPE: {{.Heading}}
SEVERITY: {{.Severity}}

MESSAGE: {{.Message}}

LOCATION DETAILS:
- Location: {{.Location}}
- Sensor: {{.SensorName}}
- Time: {{.Timestamp}}

SENSOR READINGS:
- Threshold: {{.Threshold}} {{.Unit}}
- Actual Value: {{.Actual}} {{.Unit}}

View dashboard: {{.DashboardURL}}

---
This is an automated alert from CoastCare monitoring system.
To manage your alert preferences, visit your dashboard.
`

const welcomeHTMLSource = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Welcome to CoastCare</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; border-radius: 8px 8px 0 0; text-align: center; }
    .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 8px 8px; }
    .welcome-box { background: white; padding: 20px; margin: 20px 0; border-radius: 8px; border-left: 4px solid #667eea; }
    .feature { background: #f8f9fa; padding: 15px; margin: 10px 0; border-radius: 4px; }
    .footer { text-align: center; margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; color: #666; font-size: 12px; }
    .btn { display: inline-block; padding: 12px 24px; background: #667eea; color: white; text-decoration: none; border-radius: 6px; margin: 10px 0; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>🌊 Welcome to CoastCare!</h1>
      <p>Your coastal monitoring and alert system</p>
    </div>
    <div class="content">
      <div class="welcome-box">
        <h2>Hello {{.Name}}!</h2>
        <p>Thank you for subscribing to CoastCare's coastal alert system. You're now part of our community dedicated to keeping Gujarat's coastline safe and monitored.</p>
      </div>
      <h3>What you can expect:</h3>
      <div class="feature"><strong>📧 Real-time Alerts:</strong> Get instant notifications about storm surges, extreme waves, and other coastal hazards.</div>
      <div class="feature"><strong>📍 Location-based Monitoring:</strong> Receive alerts specific to your area of interest along Gujarat's coastline.</div>
      <div class="feature"><strong>⚡ 24/7 Coverage:</strong> Continuous monitoring across 8 strategic locations in Gujarat.</div>
      <div class="feature"><strong>🔔 Multiple Alert Types:</strong> Storm surges, extreme waves, high water levels, and equipment failures.</div>
      <div style="text-align: center; margin: 30px 0;">
        <a href="{{.AppURL}}" class="btn">Visit CoastCare Dashboard</a>
      </div>
      <p><strong>Your subscription details:</strong></p>
      <ul>
        <li>Email: {{.Email}}</li>
        <li>Status: Active</li>
        <li>Notification Method: Email</li>
      </ul>
      <p><em>You'll receive your first alert when coastal conditions require attention. Stay safe!</em></p>
    </div>
    <div class="footer">
      <p>This is an automated welcome message from CoastCare monitoring system.</p>
      <p>To manage your alert preferences, visit your dashboard.</p>
    </div>
  </div>
</body>
</html>
`

const welcomeTextSource = `Welcome to CoastCare - Your Coastal Alert Subscription

Hello {{.Name}}!

Thank you for subscribing to CoastCare's coastal alert system. You're now part of our community dedicated to keeping Gujarat's coastline safe and monitored.

What you can expect:
- Real-time Alerts: Get instant notifications about storm surges, extreme waves, and other coastal hazards
- Location-based Monitoring: Receive alerts specific to your area of interest along Gujarat's coastline
- 24/7 Coverage: Continuous monitoring across 8 strategic locations in Gujarat
- Multiple Alert Types: Storm surges, extreme waves, high water levels, and equipment failures

Your subscription details:
- Email: {{.Email}}
- Status: Active
- Notification Method: Email

Visit dashboard: {{.AppURL}}

You'll receive your first alert when coastal conditions require attention. Stay safe!

---
This is an automated welcome message from CoastCare monitoring system.
To manage your alert preferences, visit your dashboard.
`

// SampleAlertData is the fixed payload sent by the email test endpoint.
func SampleAlertData(timestamp string) *alerting.NotificationData {
	return &alerting.NotificationData{
		Location:       "Test Location, Gujarat",
		SensorName:     "Test_Wind_Sensor_01",
		AlertType:      "storm_surge",
		Severity:       "high",
		Message:        "This is a test alert notification from CoastCare",
		Timestamp:      timestamp,
		ThresholdValue: 25,
		ActualValue:    30,
		Unit:           "mph",
	}
}
