package models

import "testing"

func TestRequestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    RequestStatus
		to      RequestStatus
		allowed bool
	}{
		{RequestStatusPending, RequestStatusPaymentAuthorized, true},
		{RequestStatusPending, RequestStatusAccepted, false},
		{RequestStatusPaymentAuthorized, RequestStatusAccepted, true},
		{RequestStatusAccepted, RequestStatusInProgress, true},
		{RequestStatusInProgress, RequestStatusReadyForReview, true},
		{RequestStatusReadyForReview, RequestStatusApproved, true},
		{RequestStatusReadyForReview, RequestStatusRejected, true},
		{RequestStatusReadyForReview, RequestStatusDisputed, true},
		{RequestStatusRejected, RequestStatusInProgress, true},
		{RequestStatusApproved, RequestStatusCompleted, true},
		{RequestStatusApproved, RequestStatusCancelled, false},
		{RequestStatusDisputed, RequestStatusCompleted, true},
		{RequestStatusDisputed, RequestStatusCancelled, false},
		{RequestStatusCompleted, RequestStatusCancelled, false},
		{RequestStatusCancelled, RequestStatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: ожидали %v, получили %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestRequestStatusCancellable(t *testing.T) {
	cancellable := []RequestStatus{
		RequestStatusPending,
		RequestStatusPaymentAuthorized,
		RequestStatusAccepted,
		RequestStatusInProgress,
		RequestStatusReadyForReview,
		RequestStatusRejected,
	}
	for _, s := range cancellable {
		if !s.CanTransitionTo(RequestStatusCancelled) {
			t.Errorf("из %s должна быть возможна отмена", s)
		}
	}
	// После захвата средств отмена закрыта.
	for _, s := range []RequestStatus{RequestStatusApproved, RequestStatusDisputed, RequestStatusCompleted, RequestStatusCancelled} {
		if s.CanTransitionTo(RequestStatusCancelled) {
			t.Errorf("из %s отмена недопустима", s)
		}
	}
}

func TestRequestStatusIsTerminal(t *testing.T) {
	for s := range ValidRequestStatuses {
		want := s == RequestStatusCompleted || s == RequestStatusCancelled
		if s.IsTerminal() != want {
			t.Errorf("IsTerminal(%s): ожидали %v", s, want)
		}
	}
}
