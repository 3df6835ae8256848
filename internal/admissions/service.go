package admissions

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/hospitalzapata/wardsync/internal/events"
	"github.com/hospitalzapata/wardsync/internal/models"
	"github.com/hospitalzapata/wardsync/internal/netmon"
	"github.com/hospitalzapata/wardsync/internal/transport"
)

// API routes.
const (
	admitPath       = "/admissions"
	bindPath        = "/admissions/bind"
	changeBedPath   = "/admissions/change-bed"
	dischargePath   = "/admissions/discharge"
	infoPath        = "/admissions/info"
	assignmentsPath = "/nurses/assignments"
	myBedsPath      = "/nurses/my-assignments"
)

// Service performs admission workflows. Every operation here moves a
// patient through a state the server owns, so none of them queue:
// offline they fail fast instead of risking a stale replay.
type Service struct {
	gateway transport.Gateway
	monitor *netmon.Monitor
	logger  *events.Logger
}

// NewService creates an admissions service.
func NewService(gateway transport.Gateway, monitor *netmon.Monitor, logger *events.Logger) *Service {
	return &Service{
		gateway: gateway,
		monitor: monitor,
		logger:  logger.WithField("component", "admissions"),
	}
}

// AdmitRequest admits a patient to a bed.
type AdmitRequest struct {
	PatientID string `json:"patientId"`
	BedID     string `json:"bedId"`
}

// Admit creates an admission.
func (s *Service) Admit(ctx context.Context, req AdmitRequest) (models.Result, error) {
	return s.post(ctx, admitPath, req)
}

// BindRequest links an admission to a QR-coded bed.
type BindRequest struct {
	AdmissionID string `json:"admissionId"`
	QRCode      string `json:"qrCode"`
}

// Bind links an admission to a bed by QR code.
func (s *Service) Bind(ctx context.Context, req BindRequest) (models.Result, error) {
	return s.post(ctx, bindPath, req)
}

// ChangeBedRequest moves an admission to another bed.
type ChangeBedRequest struct {
	AdmissionID string `json:"admissionId"`
	BedID       string `json:"bedId"`
}

// ChangeBed moves an active admission to another bed.
func (s *Service) ChangeBed(ctx context.Context, req ChangeBedRequest) (models.Result, error) {
	return s.post(ctx, changeBedPath, req)
}

// Discharge closes an admission.
func (s *Service) Discharge(ctx context.Context, admissionID string) (models.Result, error) {
	if !s.monitor.Online() {
		return models.Result{}, models.ErrRequiresConnectivity
	}

	env, err := s.gateway.Patch(ctx, dischargePath+"/"+admissionID, nil)
	return s.finish(env, err)
}

// Assignment maps a nurse to an island.
type Assignment struct {
	NurseID  string `json:"nurseId"`
	IslandID string `json:"islandId"`
}

// AssignNurses replaces the nurse to island assignments.
func (s *Service) AssignNurses(ctx context.Context, assignments []Assignment) (models.Result, error) {
	if !s.monitor.Online() {
		return models.Result{}, models.ErrRequiresConnectivity
	}

	env, err := s.gateway.Put(ctx, assignmentsPath, map[string]interface{}{
		"assignments": assignments,
	})
	return s.finish(env, err)
}

// Info looks up the admission behind a bed's QR code.
func (s *Service) Info(ctx context.Context, qrCode string) (models.Result, error) {
	if !s.monitor.Online() {
		return models.Result{}, models.ErrRequiresConnectivity
	}

	env, err := s.gateway.Get(ctx, infoPath+"/"+url.PathEscape(qrCode))
	return s.finish(env, err)
}

// MyAssignments lists the beds assigned to the authenticated nurse.
func (s *Service) MyAssignments(ctx context.Context) (models.Result, error) {
	if !s.monitor.Online() {
		return models.Result{}, models.ErrRequiresConnectivity
	}

	env, err := s.gateway.Get(ctx, myBedsPath)
	return s.finish(env, err)
}

func (s *Service) post(ctx context.Context, path string, payload interface{}) (models.Result, error) {
	if !s.monitor.Online() {
		return models.Result{}, models.ErrRequiresConnectivity
	}

	env, err := s.gateway.Post(ctx, path, payload)
	return s.finish(env, err)
}

func (s *Service) finish(env *models.Envelope, err error) (models.Result, error) {
	if err != nil {
		if models.IsTransient(err) {
			s.monitor.SetOnline(false)
			return models.Result{}, fmt.Errorf("%w: %v", models.ErrRequiresConnectivity, err)
		}
		return models.Rejected(apiMessage(err)), nil
	}

	s.monitor.SetOnline(true)
	return models.OnlineOK(env.Data), nil
}

func apiMessage(err error) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
