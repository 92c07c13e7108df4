package service

import (
	"context"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// RequestService is the requester-facing entry point for participation
// requests. Anything that moves capacity is delegated to the
// AdmissionController.
type RequestService struct {
	store     repository.Store
	admission *AdmissionController
}

// NewRequestService constructs a RequestService.
func NewRequestService(store repository.Store, admission *AdmissionController) *RequestService {
	return &RequestService{store: store, admission: admission}
}

// Create files a participation request.
func (s *RequestService) Create(ctx context.Context, requesterID, eventID string) (*model.ParticipationRequest, error) {
	return s.admission.CreateRequest(ctx, requesterID, eventID)
}

// Cancel withdraws one of the requester's own requests.
func (s *RequestService) Cancel(ctx context.Context, requesterID, requestID string) (*model.ParticipationRequest, error) {
	return s.admission.CancelRequest(ctx, requesterID, requestID)
}

// ListOwn returns every request filed by requesterID.
func (s *RequestService) ListOwn(ctx context.Context, requesterID string) ([]model.ParticipationRequest, error) {
	if _, err := s.store.Users().GetByID(ctx, requesterID); err != nil {
		return nil, storeError(err, "user %s not found", requesterID)
	}
	reqs, err := s.store.Requests().FindAllByRequester(ctx, requesterID)
	if err != nil {
		return nil, Internal(err, "list requests")
	}
	return reqs, nil
}

// Resolve confirms or rejects a batch of pending requests for the
// initiator of eventID. status must be CONFIRMED or REJECTED.
func (s *RequestService) Resolve(ctx context.Context, initiatorID, eventID string, req model.StatusUpdateRequest) (*model.StatusUpdateResult, error) {
	target := model.RequestStatus(req.Status)
	if target != model.StatusConfirmed && target != model.StatusRejected {
		return nil, BadRequest("status must be CONFIRMED or REJECTED, got %q", req.Status)
	}
	ids := make([]string, len(req.RequestIDs))
	for i, raw := range req.RequestIDs {
		id, err := canonicalID("request_ids", raw)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return s.admission.UpdateRequestStatus(ctx, initiatorID, eventID, ids, target)
}
