package services

import (
	"testing"

	"festival-ticketing/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationSubmittedEmails(t *testing.T) {
	queue := &fakeQueue{}
	n := NewNotifier(queue, "admin@festival.id", "Festival Seni Pelajar", testLinks)

	n.RegistrationSubmitted("ABCD-EFGH-JKLM", []models.Registration{
		{UnitKey: "fg", CategoryLabel: "Lomba foto", Quantity: 1, FullName: "Sari <b>Dewi</b>", Email: "sari@example.com", TotalPrice: 50000},
		{UnitKey: "psm", CategoryLabel: "Paduan suara", Quantity: 2, FullName: "Sari <b>Dewi</b>", Email: "sari@example.com", TotalPrice: 100000},
	})

	require.Len(t, queue.emails, 2)
	confirmation, admin := queue.emails[0], queue.emails[1]

	assert.Equal(t, "sari@example.com", confirmation.Recipient)
	assert.Equal(t, "Pendaftaran ABCD-EFGH-JKLM diterima", confirmation.Subject)
	assert.Contains(t, confirmation.HTMLBody, "Rp 150.000")
	assert.Contains(t, confirmation.HTMLBody, "Sari &lt;b&gt;Dewi&lt;/b&gt;")
	assert.Contains(t, confirmation.PlainMessage, "PSM / Paduan suara x2")

	assert.Equal(t, "admin@festival.id", admin.Recipient)
	assert.Equal(t, "[Pendaftaran Baru] ABCD-EFGH-JKLM - Sari <b>Dewi</b>", admin.Subject)
}

func TestTicketsIssuedEmail(t *testing.T) {
	queue := &fakeQueue{}
	n := NewNotifier(queue, "admin@festival.id", "Festival Seni Pelajar", testLinks)
	reg := models.Registration{ID: "r1", RegistrationCode: "ABCD-EFGH-JKLM", UnitKey: "konser", FullName: "Sari", Email: "sari@example.com"}

	n.TicketsIssued(reg, []models.Ticket{{Code: "TKT-AAAAA-BBBBB"}, {Code: "TKT-CCCCC-DDDDD"}})

	require.Len(t, queue.emails, 1)
	e := queue.emails[0]
	assert.Equal(t, "E-Tiket ABCD-EFGH-JKLM (2 tiket)", e.Subject)
	assert.Contains(t, e.HTMLBody, "https://festival.id/check-in/TKT-AAAAA-BBBBB")
	assert.Contains(t, e.HTMLBody, "TKT-CCCCC-DDDDD")
	assert.Contains(t, e.PlainMessage, "https://festival.id/check-in/TKT-CCCCC-DDDDD")

	reg.Email = ""
	n.TicketsIssued(reg, []models.Ticket{{Code: "TKT-AAAAA-BBBBB"}})
	assert.Len(t, queue.emails, 1)
}
