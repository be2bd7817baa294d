package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"festival-ticketing/logger"
	"festival-ticketing/models"
	"festival-ticketing/utils"
)

// MailQueue accepts emails for asynchronous delivery. Enqueue must not block;
// it reports false when the message was dropped.
type MailQueue interface {
	Enqueue(e Email) bool
}

// Notifier turns registration events into emails.
type Notifier struct {
	Queue       MailQueue
	AdminEmail  string
	DisplayName string
	Links       TicketLinks
	log         *slog.Logger
}

func NewNotifier(queue MailQueue, adminEmail, displayName string, links TicketLinks) *Notifier {
	return &Notifier{
		Queue:       queue,
		AdminEmail:  strings.TrimSpace(adminEmail),
		DisplayName: displayName,
		Links:       links,
		log:         logger.WithComponent("notifier"),
	}
}

type itemLine struct {
	Unit     string
	Category string
	Quantity int
	Price    string
}

type registrationMail struct {
	Code     string
	Name     string
	Email    string
	Phone    string
	Items    []itemLine
	Total    string
	Proof    string
	Festival string
}

type ticketBlock struct {
	Code       string
	QRImageURL string
	CheckInURL string
}

type ticketMail struct {
	Name     string
	Code     string
	Unit     string
	Category string
	Tickets  []ticketBlock
	Festival string
}

var (
	confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html><body>
<h2>Pendaftaran diterima</h2>
<p>Halo {{.Name}},</p>
<p>Terima kasih telah mendaftar di {{.Festival}}. Kode pendaftaran kamu:</p>
<p style="font-size:20px;font-weight:bold;letter-spacing:2px">{{.Code}}</p>
<table cellpadding="4">
{{range .Items}}<tr><td>{{.Unit}}</td><td>{{.Category}}</td><td>x{{.Quantity}}</td><td>{{.Price}}</td></tr>
{{end}}</table>
<p>Total: <b>{{.Total}}</b></p>
<p>Pembayaran kamu akan diverifikasi oleh panitia. Tiket dikirim ke email ini setelah verifikasi.</p>
</body></html>`))

	adminSummaryTmpl = template.Must(template.New("admin").Parse(`<html><body>
<h2>Pendaftaran baru {{.Code}}</h2>
<p>{{.Name}} &lt;{{.Email}}&gt; {{.Phone}}</p>
<table cellpadding="4">
{{range .Items}}<tr><td>{{.Unit}}</td><td>{{.Category}}</td><td>x{{.Quantity}}</td><td>{{.Price}}</td></tr>
{{end}}</table>
<p>Total: <b>{{.Total}}</b></p>
{{if .Proof}}<p><a href="{{.Proof}}">Bukti pembayaran</a></p>{{end}}
</body></html>`))

	ticketTmpl = template.Must(template.New("ticket").Parse(`<html><body>
<h2>E-Tiket {{.Festival}}</h2>
<p>Halo {{.Name}}, pendaftaran <b>{{.Code}}</b> untuk {{.Unit}} ({{.Category}}) sudah diverifikasi.</p>
<p>Tunjukkan QR code berikut di pintu masuk. Satu QR untuk satu orang.</p>
{{range .Tickets}}<div style="border:1px solid #ccc;padding:12px;margin:12px 0;text-align:center">
<img src="{{.QRImageURL}}" width="250" height="250" alt="{{.Code}}"/>
<p style="font-size:18px;font-weight:bold">{{.Code}}</p>
<p><a href="{{.CheckInURL}}">{{.CheckInURL}}</a></p>
</div>
{{end}}</body></html>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *Notifier) buildRegistrationMail(code string, regs []models.Registration) registrationMail {
	data := registrationMail{Code: code, Festival: n.DisplayName}
	var total int64
	for _, r := range regs {
		if data.Name == "" || data.Name == models.UnspecifiedName {
			data.Name = r.FullName
		}
		if data.Email == "" {
			data.Email = r.Email
		}
		if data.Phone == "" {
			data.Phone = r.Phone
		}
		if data.Proof == "" {
			data.Proof = r.PaymentProof
		}
		total += r.TotalPrice
		data.Items = append(data.Items, itemLine{
			Unit:     strings.ToUpper(r.UnitKey),
			Category: r.CategoryLabel,
			Quantity: r.Quantity,
			Price:    utils.FormatRupiah(r.TotalPrice),
		})
	}
	data.Total = utils.FormatRupiah(total)
	return data
}

func plainItems(items []itemLine) string {
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, "- %s / %s x%d: %s\n", it.Unit, it.Category, it.Quantity, it.Price)
	}
	return sb.String()
}

// RegistrationSubmitted queues the applicant confirmation and the admin summary.
// The applicant copy is skipped when it would go to the admin address.
func (n *Notifier) RegistrationSubmitted(code string, regs []models.Registration) {
	if len(regs) == 0 {
		return
	}
	data := n.buildRegistrationMail(code, regs)
	log := n.log.With("registration_code", code)
	items := plainItems(data.Items)

	if data.Email != "" && !strings.EqualFold(data.Email, n.AdminEmail) {
		html, err := render(confirmationTmpl, data)
		if err != nil {
			log.Error("failed to render confirmation email", "error", err)
		} else {
			n.enqueue(log, Email{
				Recipient:   data.Email,
				Subject:     fmt.Sprintf("Pendaftaran %s diterima", code),
				DisplayName: n.DisplayName,
				Title:       "Pendaftaran diterima",
				PlainMessage: fmt.Sprintf("Halo %s,\n\nKode pendaftaran: %s\n\n%s\nTotal: %s\n\nTiket dikirim setelah pembayaran diverifikasi.\n",
					data.Name, code, items, data.Total),
				HTMLBody: html,
			})
		}
	}

	if n.AdminEmail != "" {
		html, err := render(adminSummaryTmpl, data)
		if err != nil {
			log.Error("failed to render admin summary", "error", err)
			return
		}
		n.enqueue(log, Email{
			Recipient:   n.AdminEmail,
			Subject:     fmt.Sprintf("[Pendaftaran Baru] %s - %s", code, data.Name),
			DisplayName: n.DisplayName,
			Title:       "Pendaftaran baru",
			PlainMessage: fmt.Sprintf("%s <%s> %s\n\n%s\nTotal: %s\nBukti: %s\n",
				data.Name, data.Email, data.Phone, items, data.Total, data.Proof),
			HTMLBody: html,
		})
	}
}

// TicketsIssued queues the e-ticket email with one QR block per ticket.
func (n *Notifier) TicketsIssued(reg models.Registration, tickets []models.Ticket) {
	log := n.log.With("registration_id", reg.ID, "registration_code", reg.RegistrationCode)
	if reg.Email == "" {
		log.Warn("registration has no email, ticket email not sent")
		return
	}

	data := ticketMail{
		Name:     reg.FullName,
		Code:     reg.RegistrationCode,
		Unit:     strings.ToUpper(reg.UnitKey),
		Category: reg.CategoryLabel,
		Festival: n.DisplayName,
	}
	var plain strings.Builder
	for _, t := range tickets {
		data.Tickets = append(data.Tickets, ticketBlock{
			Code:       t.Code,
			QRImageURL: n.Links.QRImageURL(t.Code),
			CheckInURL: n.Links.CheckInURL(t.Code),
		})
		fmt.Fprintf(&plain, "- %s  %s\n", t.Code, n.Links.CheckInURL(t.Code))
	}

	html, err := render(ticketTmpl, data)
	if err != nil {
		log.Error("failed to render ticket email", "error", err)
		return
	}
	n.enqueue(log, Email{
		Recipient:   reg.Email,
		Subject:     fmt.Sprintf("E-Tiket %s (%d tiket)", reg.RegistrationCode, len(tickets)),
		DisplayName: n.DisplayName,
		Title:       "E-Tiket",
		PlainMessage: fmt.Sprintf("Halo %s,\n\nPendaftaran %s sudah diverifikasi. Tiket kamu:\n\n%s\nTunjukkan QR code di pintu masuk.\n",
			reg.FullName, reg.RegistrationCode, plain.String()),
		HTMLBody: html,
	})
}

func (n *Notifier) enqueue(log *slog.Logger, e Email) {
	if n.Queue == nil {
		return
	}
	if !n.Queue.Enqueue(e) {
		log.Warn("mail queue full, email dropped", "recipient", e.Recipient, "subject", e.Subject)
	}
}
