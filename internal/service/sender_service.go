package service

import (
	"fmt"
	"log"
	"os"

	"parkhub/internal/entities"
	"parkhub/internal/repository"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const timeLayout = "02 Jan 2006 15:04 MST"

// SenderService renders and sends the outbound notification mail. It is a
// read-only consumer of closed reservations and never touches core state.
type SenderService struct{}

func NewSenderService() *SenderService {
	return &SenderService{}
}

// SendReservationReceipt mails the priced receipt for a closed reservation.
// The username doubles as the login email, as in the registration flow.
func (s *SenderService) SendReservationReceipt(detail repository.ReservationDetail) error {
	r := detail.Reservation
	if r.EndTime == nil || r.Cost == nil {
		return fmt.Errorf("reservation %d is not closed", r.ID)
	}

	data := entities.ReservationEmailData{
		UserName:           detail.UserName,
		ReservationID:      r.ID,
		LotName:            detail.LotName,
		SpotID:             r.SpotID,
		VehicleTag:         r.VehicleTag,
		StartTimeFormatted: r.StartTime.Format(timeLayout),
		EndTimeFormatted:   r.EndTime.Format(timeLayout),
		Cost:               *r.Cost,
		Status:             r.Status,
	}

	subject := fmt.Sprintf("Your parking receipt - reservation #%d", data.ReservationID)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour reservation #%d at %s is now closed.\n\n"+
			"Spot: %d\n"+
			"Vehicle: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n"+
			"Total cost: %d\n\n"+
			"Thank you for parking with us.",
		data.UserName, data.ReservationID, data.LotName, data.SpotID, data.VehicleTag,
		data.StartTimeFormatted, data.EndTimeFormatted, data.Cost,
	)
	return SendEmailWithSendGrid(detail.Username, detail.UserName, subject, body)
}

// SendDailyReminder nudges a user about reservations still open at the end
// of the day.
func (s *SenderService) SendDailyReminder(toEmail, toName string, openReservations int) error {
	subject := "Parking reminder: you have open reservations"
	body := fmt.Sprintf(
		"Hello %s,\n\nYou currently have %d open parking reservation(s). "+
			"Remember to check out when you leave so billing stops.\n\n"+
			"Thank you for parking with us.",
		toName, openReservations,
	)
	return SendEmailWithSendGrid(toEmail, toName, subject, body)
}

// SendExportReady tells a user their CSV export has been generated.
func (s *SenderService) SendExportReady(toEmail, toName, filename string) error {
	subject := "Your parking history export is ready"
	body := fmt.Sprintf(
		"Hello %s,\n\nYour reservation history export has been generated as %s. "+
			"You can download it from your dashboard.\n\n"+
			"Thank you for parking with us.",
		toName, filename,
	)
	return SendEmailWithSendGrid(toEmail, toName, subject, body)
}

// SendMonthlyReport mails a user their activity summary for the past month.
func (s *SenderService) SendMonthlyReport(toEmail, toName, month string, reservations int, totalCost int64) error {
	subject := fmt.Sprintf("Your parking activity for %s", month)
	body := fmt.Sprintf(
		"Hello %s,\n\nHere is your parking summary for %s:\n\n"+
			"Completed reservations: %d\n"+
			"Total spent: %d\n\n"+
			"Thank you for parking with us.",
		toName, month, reservations, totalCost,
	)
	return SendEmailWithSendGrid(toEmail, toName, subject, body)
}

func SendEmailWithSendGrid(toEmailAddress, toName, subject, plainTextContent string) error {
	sendgridAPIKey := os.Getenv("SENDGRID_API_KEY")
	if sendgridAPIKey == "" {
		log.Println("WARNING: SENDGRID_API_KEY not set, mail will not be sent")
		return fmt.Errorf("SENDGRID_API_KEY not set")
	}

	fromEmail := os.Getenv("SENDGRID_FROM_EMAIL")
	if fromEmail == "" {
		log.Println("WARNING: SENDGRID_FROM_EMAIL not set, mail will not be sent")
		return fmt.Errorf("SENDGRID_FROM_EMAIL not set")
	}

	fromName := os.Getenv("SENDGRID_FROM_NAME")
	if fromName == "" {
		fromName = "ParkHub"
	}

	from := mail.NewEmail(fromName, fromEmail)
	to := mail.NewEmail(toName, toEmailAddress)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, "")

	client := sendgrid.NewSendClient(sendgridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		log.Printf("Error sending mail via SendGrid to %s: %v", toEmailAddress, err)
		return fmt.Errorf("send mail via SendGrid: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid returned status %d", response.StatusCode)
	}
	log.Printf("Mail sent to %s (subject: %s)", toEmailAddress, subject)
	return nil
}
