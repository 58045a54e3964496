package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/spmb/core"
	"github.com/trezcool/spmb/tests"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf, testutil.NewLogger(conf))

	tests := []struct {
		name     string
		msg      *core.EmailMessage
		wantSent bool
	}{
		{
			name: "templated",
			msg: &core.EmailMessage{
				To:           []mail.Address{{Name: "Siti", Address: "siti@example.com"}},
				Subject:      "Pendaftaran SPMB-2025-0042 diterima",
				TemplateName: "submission_received",
				TemplateData: map[string]interface{}{
					"Name":               "Siti",
					"RegistrationNumber": "SPMB-2025-0042",
					"Track":              "zonasi",
					"Status":             "pending",
					"Notes":              "",
					"StatusURL":          "http://localhost:3000/status/SPMB-2025-0042",
				},
			},
			wantSent: true,
		},
		{
			name:     "plain body",
			msg:      &core.EmailMessage{To: []mail.Address{{Address: "budi@example.com"}}, Subject: "Tes", BodyStr: "halo"},
			wantSent: true,
		},
		{
			name: "no recipient",
			msg:  &core.EmailMessage{Subject: "Tes", BodyStr: "halo"},
		},
		{
			name: "unknown template",
			msg:  &core.EmailMessage{To: []mail.Address{{Address: "budi@example.com"}}, TemplateName: "nope"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetSentMessages()
			svc.SendMessages(tt.msg)

			sent := GetSentMessages()
			if !tt.wantSent {
				assert.Empty(t, sent)
				return
			}
			if assert.Len(t, sent, 1) {
				assert.NotEmpty(t, sent[0].TextContent)
			}
		})
	}
}

func TestConsoleServiceMock_templateContent(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf, testutil.NewLogger(conf))
	ResetSentMessages()

	svc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: "siti@example.com"}},
		Subject:      "Status pendaftaran SPMB-2025-0042",
		TemplateName: "submission_reviewed",
		TemplateData: map[string]interface{}{
			"Name":               "Siti",
			"RegistrationNumber": "SPMB-2025-0042",
			"Track":              "zonasi",
			"Status":             "approved",
			"Notes":              "Selamat!",
			"StatusURL":          "http://localhost:3000/status/SPMB-2025-0042",
		},
	})

	sent := GetSentMessages()
	if assert.Len(t, sent, 1) {
		assert.Contains(t, sent[0].TextContent, "SPMB-2025-0042")
		assert.Contains(t, sent[0].HTMLContent, "Selamat!")
	}
}
