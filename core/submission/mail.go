package submission

import (
	"net/mail"
	"net/url"

	"github.com/trezcool/spmb/core"
)

type notificationData struct {
	Name               string
	RegistrationNumber string
	Track              string
	Status             string
	Notes              string
	StatusURL          string
}

func (svc *service) statusURL(regNum string) string {
	return svc.conf.FrontendBaseURL + "/status/" + url.PathEscape(regNum)
}

func (svc *service) receivedMessage(sub Submission) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: sub.FullName, Address: sub.Email}},
		Subject:      "Pendaftaran " + sub.RegistrationNumber + " diterima",
		TemplateName: "submission_received",
		TemplateData: notificationData{
			Name:               sub.FullName,
			RegistrationNumber: sub.RegistrationNumber,
			Track:              sub.Track,
			Status:             sub.Status,
			StatusURL:          svc.statusURL(sub.RegistrationNumber),
		},
	}
}

func (svc *service) reviewedMessage(sub Submission) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: sub.FullName, Address: sub.Email}},
		Subject:      "Status pendaftaran " + sub.RegistrationNumber,
		TemplateName: "submission_reviewed",
		TemplateData: notificationData{
			Name:               sub.FullName,
			RegistrationNumber: sub.RegistrationNumber,
			Track:              sub.Track,
			Status:             sub.Status,
			Notes:              sub.Notes,
			StatusURL:          svc.statusURL(sub.RegistrationNumber),
		},
	}
}

func (svc *service) sendReceivedMail(sub Submission) {
	if sub.Email != "" {
		svc.mailSvc.SendMessages(svc.receivedMessage(sub))
	}
}

// sendReviewedMail notifies the applicant of a final decision.
func (svc *service) sendReviewedMail(sub Submission) {
	if sub.Email != "" && sub.IsTerminal() {
		svc.mailSvc.SendMessages(svc.reviewedMessage(sub))
	}
}
