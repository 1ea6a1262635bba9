package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"parkhub/internal/repository"
)

// JobStore is the reservation read surface the periodic jobs need.
// Implemented by repository.ReservationRepository.
type JobStore interface {
	ListActive(ctx context.Context) ([]repository.ReservationDetail, error)
	ListClosedBetween(ctx context.Context, from, to time.Time) ([]repository.ReservationDetail, error)
}

// ReminderSender is the outbound-mail surface the jobs need. Implemented by
// SenderService.
type ReminderSender interface {
	SendDailyReminder(toEmail, toName string, openReservations int) error
	SendMonthlyReport(toEmail, toName, month string, reservations int, totalCost int64) error
}

// JobService runs the scheduled work: the evening reminder for users with
// open reservations and the monthly activity report. Both are read-only
// consumers of ledger data.
type JobService struct {
	Store  JobStore
	Sender ReminderSender
}

func NewJobService(store JobStore, sender ReminderSender) *JobService {
	return &JobService{Store: store, Sender: sender}
}

// SendDailyReminders mails every user who still has an active reservation.
func (s *JobService) SendDailyReminders(ctx context.Context) error {
	log.Println("Cron Job: checking for users with open reservations...")

	details, err := s.Store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("cron job: list active reservations: %w", err)
	}
	if len(details) == 0 {
		log.Println("Cron Job: no open reservations, nothing to remind")
		return nil
	}

	type recipient struct {
		email, name string
		open        int
	}
	byUser := make(map[int64]*recipient)
	for _, d := range details {
		rec, ok := byUser[d.Reservation.UserID]
		if !ok {
			rec = &recipient{email: d.Username, name: d.UserName}
			byUser[d.Reservation.UserID] = rec
		}
		rec.open++
	}

	for _, rec := range byUser {
		if err := s.Sender.SendDailyReminder(rec.email, rec.name, rec.open); err != nil {
			log.Printf("Cron Job: reminder to %s failed: %v", rec.email, err)
		}
	}
	log.Printf("Cron Job: reminders sent to %d users", len(byUser))
	return nil
}

// SendMonthlyReports mails every user who closed a reservation last month a
// summary of their activity.
func (s *JobService) SendMonthlyReports(ctx context.Context, now time.Time) error {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	from := firstOfMonth.AddDate(0, -1, 0)

	details, err := s.Store.ListClosedBetween(ctx, from, firstOfMonth)
	if err != nil {
		return fmt.Errorf("cron job: list closed reservations: %w", err)
	}
	if len(details) == 0 {
		log.Println("Cron Job: no closed reservations last month, no reports to send")
		return nil
	}

	type report struct {
		email, name  string
		reservations int
		totalCost    int64
	}
	byUser := make(map[int64]*report)
	for _, d := range details {
		rep, ok := byUser[d.Reservation.UserID]
		if !ok {
			rep = &report{email: d.Username, name: d.UserName}
			byUser[d.Reservation.UserID] = rep
		}
		rep.reservations++
		if d.Reservation.Cost != nil {
			rep.totalCost += *d.Reservation.Cost
		}
	}

	month := from.Format("January 2006")
	for _, rep := range byUser {
		if err := s.Sender.SendMonthlyReport(rep.email, rep.name, month, rep.reservations, rep.totalCost); err != nil {
			log.Printf("Cron Job: monthly report to %s failed: %v", rep.email, err)
		}
	}
	log.Printf("Cron Job: monthly reports sent to %d users", len(byUser))
	return nil
}
