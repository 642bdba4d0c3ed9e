package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"tjanster-backend/internal/booking"
	"tjanster-backend/internal/catalog"
)

const bookingReceivedTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hej {{.Name}},</p>
  <p>Tack för din förfrågan! Vi har tagit emot din bokning och återkommer så snart den har granskats.</p>
  <ul>
    <li>Tjänst: {{.ServiceLabel}}</li>
    <li>Datum: {{.Date}}</li>
    <li>Tid: {{.Time}}</li>
    <li>Område: {{.Area}}</li>
    {{if .Message}}<li>Meddelande: {{.Message}}</li>{{end}}
  </ul>
  <p>Bokningsnummer: {{.BookingID}}</p>
  <p>Vänliga hälsningar</p>
</body>
</html>`

const bookingConfirmationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hej {{.Name}},</p>
  <p>Din bokning är nu bekräftad. Vi ses!</p>
  <ul>
    <li>Tjänst: {{.ServiceLabel}}</li>
    <li>Datum: {{.Date}}</li>
    <li>Tid: {{.Time}}</li>
    <li>Område: {{.Area}}</li>
  </ul>
  <p>Bokningsnummer: {{.BookingID}}</p>
  <p>Vänliga hälsningar</p>
</body>
</html>`

const bookingDeclinedTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hej {{.Name}},</p>
  <p>Tyvärr kan vi inte ta emot din bokning den {{.Date}} kl {{.Time}}.</p>
  {{if .DeclineReason}}<p>Anledning: {{.DeclineReason}}</p>{{end}}
  <p>Du är varmt välkommen att boka en annan tid.</p>
  <p>Vänliga hälsningar</p>
</body>
</html>`

const bookingChangedTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hej {{.Name}},</p>
  <p>Din bokning har fått en ny tid:</p>
  <ul>
    <li>Tjänst: {{.ServiceLabel}}</li>
    <li>Datum: {{.Date}}</li>
    <li>Tid: {{.Time}}</li>
  </ul>
  <p>Hör av dig om den nya tiden inte passar.</p>
  <p>Vänliga hälsningar</p>
</body>
</html>`

var (
	bookingReceivedTmpl     = template.Must(template.New("booking_received").Parse(bookingReceivedTemplate))
	bookingConfirmationTmpl = template.Must(template.New("booking_confirmation").Parse(bookingConfirmationTemplate))
	bookingDeclinedTmpl     = template.Must(template.New("booking_declined").Parse(bookingDeclinedTemplate))
	bookingChangedTmpl      = template.Must(template.New("booking_changed").Parse(bookingChangedTemplate))
)

type bookingEmailData struct {
	Name          string
	ServiceLabel  string
	Date          string
	Time          string
	Area          string
	Message       string
	DeclineReason string
	BookingID     string
}

// BookingMailer sends the customer-facing booking emails through Brevo.
// It satisfies booking.Notifier.
type BookingMailer struct {
	client *BrevoClient
}

func NewBookingMailer(client *BrevoClient) *BookingMailer {
	if client == nil {
		return nil
	}
	return &BookingMailer{client: client}
}

func (m *BookingMailer) SendBookingReceived(ctx context.Context, b booking.Booking) (string, error) {
	subject := fmt.Sprintf("Vi har tagit emot din bokning - %s", b.Date)
	return m.send(ctx, b, subject, bookingReceivedTmpl)
}

func (m *BookingMailer) SendBookingConfirmation(ctx context.Context, b booking.Booking) (string, error) {
	subject := fmt.Sprintf("Din bokning är bekräftad - %s kl %s", b.Date, b.Time)
	return m.send(ctx, b, subject, bookingConfirmationTmpl)
}

func (m *BookingMailer) SendBookingDeclined(ctx context.Context, b booking.Booking) (string, error) {
	subject := "Angående din bokningsförfrågan"
	return m.send(ctx, b, subject, bookingDeclinedTmpl)
}

func (m *BookingMailer) SendBookingChanged(ctx context.Context, b booking.Booking) (string, error) {
	subject := fmt.Sprintf("Din bokning har fått en ny tid - %s kl %s", b.Date, b.Time)
	return m.send(ctx, b, subject, bookingChangedTmpl)
}

func (m *BookingMailer) send(ctx context.Context, b booking.Booking, subject string, tmpl *template.Template) (string, error) {
	body, err := buildBookingHTML(tmpl, b)
	if err != nil {
		return "", err
	}
	return m.client.sendHTML(ctx, b.Email, b.Name, subject, body)
}

func buildBookingHTML(tmpl *template.Template, b booking.Booking) (string, error) {
	data := bookingEmailData{
		Name:          b.Name,
		ServiceLabel:  serviceLabel(b.ServiceType),
		Date:          b.Date,
		Time:          b.Time,
		Area:          b.Area,
		Message:       b.Message,
		DeclineReason: b.DeclineReason,
		BookingID:     b.ID,
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func serviceLabel(value string) string {
	switch value {
	case catalog.ServiceDog:
		return "Hundpassning"
	case catalog.ServiceKids:
		return "Barnpassning"
	case catalog.ServiceErrands:
		return "Hjälp med ärenden"
	default:
		return value
	}
}
