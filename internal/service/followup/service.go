package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/email"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
)

const digestTTL = 48 * time.Hour

func digestKey(clinicID uuid.UUID, date model.Date) string {
	return fmt.Sprintf("opd:followup-digest:%s:%s", clinicID, date)
}

// Service mails each clinic's doctors the list of patients due for a
// follow-up on a given day, at most once per clinic and day.
type Service struct {
	visits  repository.VisitRepository
	users   repository.UserRepository
	clinics repository.ClinicRepository
	mailer  email.Service
	locker  Locker
	metrics *metrics.Metrics
}

func NewService(visits repository.VisitRepository, users repository.UserRepository, clinics repository.ClinicRepository,
	mailer email.Service, locker Locker, m *metrics.Metrics) *Service {
	return &Service{
		visits:  visits,
		users:   users,
		clinics: clinics,
		mailer:  mailer,
		locker:  locker,
		metrics: m,
	}
}

// SendDigests returns how many digests were delivered for date. A clinic
// whose delivery fails is released so the next run retries it.
func (s *Service) SendDigests(ctx context.Context, date model.Date) (int, error) {
	clinicIDs, err := s.visits.ClinicsWithFollowUps(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("failed to list clinics with follow-ups: %w", err)
	}

	sent := 0
	for _, clinicID := range clinicIDs {
		ok, err := s.sendClinic(ctx, clinicID, date)
		if err != nil {
			if s.metrics != nil {
				s.metrics.DigestsFailed.Inc()
			}
			log.Error().Err(err).Str("clinic_id", clinicID.String()).Str("date", date.String()).Msg("follow-up digest failed")
			continue
		}
		if ok {
			sent++
			if s.metrics != nil {
				s.metrics.DigestsSent.Inc()
			}
		}
	}
	return sent, nil
}

func (s *Service) sendClinic(ctx context.Context, clinicID uuid.UUID, date model.Date) (sent bool, err error) {
	key := digestKey(clinicID, date)
	claimed, err := s.locker.Acquire(ctx, key, digestTTL)
	if err != nil {
		return false, fmt.Errorf("failed to claim digest: %w", err)
	}
	if !claimed {
		log.Debug().Str("clinic_id", clinicID.String()).Msg("follow-up digest already sent")
		return false, nil
	}
	defer func() {
		if err != nil {
			if releaseErr := s.locker.Release(ctx, key); releaseErr != nil {
				log.Warn().Err(releaseErr).Str("key", key).Msg("failed to release digest claim")
			}
		}
	}()

	due, err := s.visits.FollowUpsDue(ctx, clinicID, date)
	if err != nil {
		return false, fmt.Errorf("failed to load follow-ups: %w", err)
	}
	if len(due) == 0 {
		return false, nil
	}

	doctors, err := s.users.ListByRole(ctx, clinicID, model.RoleDoctor)
	if err != nil {
		return false, fmt.Errorf("failed to load doctors: %w", err)
	}
	to := make([]string, 0, len(doctors))
	for _, d := range doctors {
		to = append(to, d.Email)
	}
	if len(to) == 0 {
		log.Warn().Str("clinic_id", clinicID.String()).Msg("no active doctor to receive follow-up digest")
		return false, nil
	}

	clinicName := ""
	if clinic, err := s.clinics.Get(ctx, clinicID); err == nil {
		clinicName = clinic.Name
	}

	subject := fmt.Sprintf("%d follow-up(s) due on %s", len(due), date)
	if clinicName != "" {
		subject = clinicName + ": " + subject
	}
	if err := s.mailer.Send(ctx, to, subject, Body(date, due)); err != nil {
		return false, err
	}

	log.Info().
		Str("clinic_id", clinicID.String()).
		Str("date", date.String()).
		Int("patients", len(due)).
		Int("recipients", len(to)).
		Msg("follow-up digest sent")
	return true, nil
}

// Body renders the plain-text digest.
func Body(date model.Date, due []*model.FollowUp) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patients due for follow-up on %s\n\n", date)
	for i, f := range due {
		fmt.Fprintf(&b, "%d. %s (%s)", i+1, f.Patient.FullName, f.Patient.PatientCode)
		if f.Patient.Phone != "" {
			fmt.Fprintf(&b, ", %s", f.Patient.Phone)
		}
		fmt.Fprintf(&b, "\n   Visit #%d on %s", f.VisitNumber, f.VisitDate)
		if len(f.Diagnosis) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(f.Diagnosis, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
