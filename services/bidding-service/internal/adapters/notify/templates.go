package notify

import "html/template"

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<h2 style="color: #1a73e8;">RentRover</h2>
{{template "content" .}}
<table style="width: 100%; border-collapse: collapse; margin-top: 16px;">
<tr><td><strong>Vehicle</strong></td><td>{{.VehicleName}}{{if .Category}} ({{.Category}}){{end}}</td></tr>
<tr><td><strong>Dates</strong></td><td>{{.StartDate}} to {{.EndDate}}</td></tr>
<tr><td><strong>Bid amount</strong></td><td>{{.Amount}}</td></tr>
{{if .City}}<tr><td><strong>City</strong></td><td>{{.City}}</td></tr>{{end}}
<tr><td><strong>Owner</strong></td><td>{{.OwnerName}} &lt;{{.OwnerEmail}}&gt;</td></tr>
</table>
{{if .ImageURL}}<img src="{{.ImageURL}}" alt="{{.VehicleName}}" style="max-width: 100%; margin-top: 16px;">{{end}}
<p style="font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 12px;">This is an automated message, please do not reply.</p>
</div>
</body>
</html>{{end}}`

const bidSubmittedContent = `{{define "content"}}<p>Hi {{.RenterName}},</p>
<p>We received your bid. The owner will review it shortly.</p>{{end}}`

const bidAcceptedContent = `{{define "content"}}<p>Hi {{.RenterName}},</p>
<p>Good news: your bid was accepted and your booking is confirmed.</p>
{{if .BookingID}}<p>Booking reference: <strong>{{.BookingID}}</strong></p>{{end}}{{end}}`

const bidRejectedContent = `{{define "content"}}<p>Hi {{.RenterName}},</p>
<p>Unfortunately your bid was not accepted. The vehicle may still be available on other dates.</p>{{end}}`

type emailKind string

const (
	kindBidSubmitted emailKind = "bid_submitted"
	kindBidAccepted  emailKind = "bid_accepted"
	kindBidRejected  emailKind = "bid_rejected"
)

var subjects = map[emailKind]string{
	kindBidSubmitted: "Your bid has been received",
	kindBidAccepted:  "Your bid has been accepted",
	kindBidRejected:  "Your bid was not accepted",
}

func parseTemplates() map[emailKind]*template.Template {
	contents := map[emailKind]string{
		kindBidSubmitted: bidSubmittedContent,
		kindBidAccepted:  bidAcceptedContent,
		kindBidRejected:  bidRejectedContent,
	}
	out := make(map[emailKind]*template.Template, len(contents))
	for kind, content := range contents {
		t := template.Must(template.New(string(kind)).Parse(layout))
		out[kind] = template.Must(t.Parse(content))
	}
	return out
}
