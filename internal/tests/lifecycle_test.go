package tests

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// RIDE REQUEST
// ──────────────────────────────────────────────

func validRequest() service.RequestRideInput {
	return service.RequestRideInput{
		PassengerID:     "passenger-1",
		PickupText:      "CBD, Moi Avenue",
		PickupLat:       -1.2833,
		PickupLng:       36.8167,
		DestinationText: "JKIA Terminal 1",
		DestinationLat:  -1.3192,
		DestinationLng:  36.9275,
		DistanceKm:      18,
		Fare:            150,
	}
}

func activeDriver(id string) *domain.DriverAvailability {
	return &domain.DriverAvailability{
		DriverID:     id,
		Online:       true,
		Subscription: domain.SubscriptionActive,
	}
}

func TestRequestRide_CreatesPendingRide(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	publisher := NewMockPublisher()
	svc := service.NewRideService(rideRepo, availRepo, publisher)

	ride, err := svc.RequestRide(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.ID == "" {
		t.Error("expected generated ride ID")
	}
	if ride.Status != domain.RideStatusPending {
		t.Errorf("expected pending status, got %s", ride.Status)
	}
	if ride.DriverID != "" {
		t.Error("new ride must not have a driver")
	}
	if ride.Fare != 150 {
		t.Errorf("fare must be fixed at creation, got %v", ride.Fare)
	}
	if len(publisher.Events()) != 1 {
		t.Errorf("expected 1 published event, got %d", len(publisher.Events()))
	}
}

func TestRequestRide_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*service.RequestRideInput)
		wantErr error
	}{
		{
			name:    "missing passenger",
			mutate:  func(in *service.RequestRideInput) { in.PassengerID = "" },
			wantErr: service.ErrInvalidPassengerID,
		},
		{
			name:    "empty pickup text",
			mutate:  func(in *service.RequestRideInput) { in.PickupText = "" },
			wantErr: service.ErrInvalidPickup,
		},
		{
			name:    "pickup latitude out of range",
			mutate:  func(in *service.RequestRideInput) { in.PickupLat = 95 },
			wantErr: service.ErrInvalidPickup,
		},
		{
			name:    "destination longitude out of range",
			mutate:  func(in *service.RequestRideInput) { in.DestinationLng = -190 },
			wantErr: service.ErrInvalidDestination,
		},
		{
			name:    "negative fare",
			mutate:  func(in *service.RequestRideInput) { in.Fare = -10 },
			wantErr: service.ErrInvalidFare,
		},
		{
			name:    "negative distance",
			mutate:  func(in *service.RequestRideInput) { in.DistanceKm = -1 },
			wantErr: service.ErrInvalidFare,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := service.NewRideService(NewMockRideRepository(), NewMockAvailabilityRepository(), nil)
			in := validRequest()
			tt.mutate(&in)

			_, err := svc.RequestRide(context.Background(), in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRequestRide_OneActiveRidePerPassenger(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	svc := service.NewRideService(rideRepo, NewMockAvailabilityRepository(), nil)

	if _, err := svc.RequestRide(context.Background(), validRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.RequestRide(context.Background(), validRequest())
	if !errors.Is(err, service.ErrPassengerHasActiveRide) {
		t.Errorf("expected ErrPassengerHasActiveRide, got %v", err)
	}
	if rideRepo.CountRides() != 1 {
		t.Errorf("expected 1 ride, got %d", rideRepo.CountRides())
	}
}

// Concurrent requests from one passenger can all pass the advisory
// active-ride read; the storage constraint written with the insert is
// what guarantees a single ride lands.
func TestRequestRide_ConcurrentRequestsSamePassenger(t *testing.T) {
	t.Parallel()

	const attempts = 10

	rideRepo := NewMockRideRepository()
	svc := service.NewRideService(rideRepo, NewMockAvailabilityRepository(), nil)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.RequestRide(context.Background(), validRequest())
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for i, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, service.ErrPassengerHasActiveRide):
			// Expected for every loser.
		default:
			t.Errorf("request %d: unexpected error %v", i, err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 created ride, got %d", successes)
	}
	if rideRepo.CountRides() != 1 {
		t.Errorf("expected 1 stored ride, got %d", rideRepo.CountRides())
	}
}

func TestRequestRide_AllowedAfterPreviousRideEnds(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	svc := service.NewRideService(rideRepo, NewMockAvailabilityRepository(), nil)

	first, err := svc.RequestRide(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.CancelRide(context.Background(), "passenger-1", domain.RolePassenger, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.RequestRide(context.Background(), validRequest()); err != nil {
		t.Errorf("expected new request after cancellation, got %v", err)
	}
}

// ──────────────────────────────────────────────
// ACCEPTANCE
// ──────────────────────────────────────────────

func TestAcceptRide_AssignsDriver(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	svc := service.NewRideService(rideRepo, availRepo, nil)

	ride, err := svc.RequestRide(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	accepted, err := svc.AcceptRide(context.Background(), "driver-1", ride.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted.Status != domain.RideStatusAccepted {
		t.Errorf("expected accepted status, got %s", accepted.Status)
	}
	if accepted.DriverID != "driver-1" {
		t.Errorf("expected driver-1, got %s", accepted.DriverID)
	}
	if accepted.AcceptedAt.IsZero() {
		t.Error("expected AcceptedAt to be set")
	}
}

func TestAcceptRide_RequiresActiveSubscription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		subscription domain.SubscriptionStatus
	}{
		{"pending subscription", domain.SubscriptionPending},
		{"expired subscription", domain.SubscriptionExpired},
		{"paused subscription", domain.SubscriptionPaused},
		{"no subscription", domain.SubscriptionNone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rideRepo := NewMockRideRepository()
			availRepo := NewMockAvailabilityRepository()
			availRepo.AddRecord(&domain.DriverAvailability{
				DriverID:     "driver-1",
				Online:       true,
				Subscription: tt.subscription,
			})
			svc := service.NewRideService(rideRepo, availRepo, nil)

			ride, err := svc.RequestRide(context.Background(), validRequest())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, err = svc.AcceptRide(context.Background(), "driver-1", ride.ID)
			if !errors.Is(err, service.ErrDriverNotEligible) {
				t.Errorf("expected ErrDriverNotEligible, got %v", err)
			}
		})
	}
}

func TestAcceptRide_UnknownDriver(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	svc := service.NewRideService(rideRepo, NewMockAvailabilityRepository(), nil)

	ride, err := svc.RequestRide(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.AcceptRide(context.Background(), "ghost-driver", ride.ID)
	if !errors.Is(err, service.ErrDriverNotEligible) {
		t.Errorf("expected ErrDriverNotEligible, got %v", err)
	}
}

func TestAcceptRide_DriverWithActiveRide(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	svc := service.NewRideService(rideRepo, availRepo, nil)

	first, err := svc.RequestRide(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AcceptRide(context.Background(), "driver-1", first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := validRequest()
	second.PassengerID = "passenger-2"
	other, err := svc.RequestRide(context.Background(), second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.AcceptRide(context.Background(), "driver-1", other.ID)
	if !errors.Is(err, service.ErrDriverHasActiveRide) {
		t.Errorf("expected ErrDriverHasActiveRide, got %v", err)
	}
}

// Racing drivers on one pending ride: exactly one wins, everyone else
// gets ErrRideAlreadyAccepted, and the stored ride names a single driver.
func TestAcceptRide_ConcurrentAcceptance(t *testing.T) {
	t.Parallel()

	const drivers = 20

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	for i := 0; i < drivers; i++ {
		availRepo.AddRecord(activeDriver(driverID(i)))
	}
	svc := service.NewRideService(rideRepo, availRepo, nil)

	ride, err := svc.RequestRide(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, drivers)
	start := make(chan struct{})

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.AcceptRide(context.Background(), driverID(i), ride.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, service.ErrRideAlreadyAccepted):
			// Expected for every loser.
		default:
			t.Errorf("driver %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}

	stored := rideRepo.GetRide(ride.ID)
	if stored.Status != domain.RideStatusAccepted {
		t.Errorf("expected accepted status, got %s", stored.Status)
	}
	if stored.DriverID == "" {
		t.Error("expected exactly one assigned driver")
	}
}

func driverID(i int) string {
	return "driver-" + strconv.Itoa(i)
}

// ──────────────────────────────────────────────
// STATUS TRANSITIONS
// ──────────────────────────────────────────────

func acceptedRideFixture(t *testing.T) (*service.RideService, *MockRideRepository, *domain.Ride) {
	t.Helper()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	svc := service.NewRideService(rideRepo, availRepo, nil)

	ride, err := svc.RequestRide(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ride, err = svc.AcceptRide(context.Background(), "driver-1", ride.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc, rideRepo, ride
}

func TestAdvanceStatus_FullForwardChain(t *testing.T) {
	t.Parallel()

	svc, _, ride := acceptedRideFixture(t)
	ctx := context.Background()

	steps := []domain.RideStatus{
		domain.RideStatusArrived,
		domain.RideStatusInProgress,
		domain.RideStatusCompleted,
	}
	for _, next := range steps {
		updated, err := svc.AdvanceStatus(ctx, "driver-1", ride.ID, next)
		if err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
		if updated.Status != next {
			t.Fatalf("expected %s, got %s", next, updated.Status)
		}
	}
}

func TestAdvanceStatus_TransitionTimestamps(t *testing.T) {
	t.Parallel()

	svc, repo, ride := acceptedRideFixture(t)
	ctx := context.Background()

	for _, next := range []domain.RideStatus{domain.RideStatusArrived, domain.RideStatusInProgress, domain.RideStatusCompleted} {
		if _, err := svc.AdvanceStatus(ctx, "driver-1", ride.ID, next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}

	stored := repo.GetRide(ride.ID)
	if stored.ArrivedAt.IsZero() || stored.StartedAt.IsZero() || stored.CompletedAt.IsZero() {
		t.Error("expected every transition timestamp to be recorded")
	}
}

func TestAdvanceStatus_RejectsSkippedSteps(t *testing.T) {
	t.Parallel()

	svc, _, ride := acceptedRideFixture(t)

	// accepted → completed skips two states.
	_, err := svc.AdvanceStatus(context.Background(), "driver-1", ride.ID, domain.RideStatusCompleted)
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAdvanceStatus_RejectsNonForwardTargets(t *testing.T) {
	t.Parallel()

	svc, _, ride := acceptedRideFixture(t)
	ctx := context.Background()

	for _, target := range []domain.RideStatus{domain.RideStatusPending, domain.RideStatusAccepted, domain.RideStatusCancelled} {
		_, err := svc.AdvanceStatus(ctx, "driver-1", ride.ID, target)
		if !errors.Is(err, service.ErrInvalidTransition) {
			t.Errorf("target %s: expected ErrInvalidTransition, got %v", target, err)
		}
	}
}

func TestAdvanceStatus_OnlyAssignedDriver(t *testing.T) {
	t.Parallel()

	svc, _, ride := acceptedRideFixture(t)

	_, err := svc.AdvanceStatus(context.Background(), "driver-2", ride.ID, domain.RideStatusArrived)
	if !errors.Is(err, service.ErrDriverNotAssigned) {
		t.Errorf("expected ErrDriverNotAssigned, got %v", err)
	}
}

func TestAdvanceStatus_TerminalRideRejected(t *testing.T) {
	t.Parallel()

	svc, _, ride := acceptedRideFixture(t)
	ctx := context.Background()

	if _, err := svc.CancelRide(ctx, "passenger-1", domain.RolePassenger, ride.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.AdvanceStatus(ctx, "driver-1", ride.ID, domain.RideStatusArrived)
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

// ──────────────────────────────────────────────
// CANCELLATION
// ──────────────────────────────────────────────

func TestCancelRide_PassengerCancelsPending(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	svc := service.NewRideService(rideRepo, NewMockAvailabilityRepository(), nil)

	ride, err := svc.RequestRide(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := svc.CancelRide(context.Background(), "passenger-1", domain.RolePassenger, ride.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.RideStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelledBy != "passenger-1" {
		t.Errorf("expected cancelling actor recorded, got %q", cancelled.CancelledBy)
	}
}

func TestCancelRide_DriverCancelsMidRide(t *testing.T) {
	t.Parallel()

	svc, _, ride := acceptedRideFixture(t)
	ctx := context.Background()

	if _, err := svc.AdvanceStatus(ctx, "driver-1", ride.ID, domain.RideStatusArrived); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := svc.CancelRide(ctx, "driver-1", domain.RoleDriver, ride.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.RideStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestCancelRide_StrangerRejected(t *testing.T) {
	t.Parallel()

	svc, _, ride := acceptedRideFixture(t)

	tests := []struct {
		name  string
		actor string
		role  domain.Role
	}{
		{"other passenger", "passenger-2", domain.RolePassenger},
		{"other driver", "driver-2", domain.RoleDriver},
		{"unknown role", "passenger-1", domain.Role("admin")},
	}

	for _, tt := range tests {
		_, err := svc.CancelRide(context.Background(), tt.actor, tt.role, ride.ID)
		if !errors.Is(err, service.ErrNotRideParticipant) {
			t.Errorf("%s: expected ErrNotRideParticipant, got %v", tt.name, err)
		}
	}
}

func TestCancelRide_TerminalRideRejected(t *testing.T) {
	t.Parallel()

	svc, _, ride := acceptedRideFixture(t)
	ctx := context.Background()

	for _, next := range []domain.RideStatus{domain.RideStatusArrived, domain.RideStatusInProgress, domain.RideStatusCompleted} {
		if _, err := svc.AdvanceStatus(ctx, "driver-1", ride.ID, next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}

	_, err := svc.CancelRide(ctx, "passenger-1", domain.RolePassenger, ride.ID)
	if !errors.Is(err, service.ErrRideNotActive) {
		t.Errorf("expected ErrRideNotActive, got %v", err)
	}
}

// A completion racing a cancellation: whichever write lands first wins,
// and the loser gets a clean conflict error. The ride never ends up in
// both terminal states.
func TestCancelRide_RacesCompletion(t *testing.T) {
	t.Parallel()

	svc, repo, ride := acceptedRideFixture(t)
	ctx := context.Background()

	if _, err := svc.AdvanceStatus(ctx, "driver-1", ride.ID, domain.RideStatusArrived); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AdvanceStatus(ctx, "driver-1", ride.ID, domain.RideStatusInProgress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	var completeErr, cancelErr error
	start := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, completeErr = svc.AdvanceStatus(ctx, "driver-1", ride.ID, domain.RideStatusCompleted)
	}()
	go func() {
		defer wg.Done()
		<-start
		_, cancelErr = svc.CancelRide(ctx, "passenger-1", domain.RolePassenger, ride.ID)
	}()
	close(start)
	wg.Wait()

	if (completeErr == nil) == (cancelErr == nil) {
		t.Fatalf("expected exactly one winner: complete=%v cancel=%v", completeErr, cancelErr)
	}

	stored := repo.GetRide(ride.ID)
	if !stored.Status.Terminal() {
		t.Errorf("expected terminal status, got %s", stored.Status)
	}
}

// ──────────────────────────────────────────────
// EVENT PUBLISHING
// ──────────────────────────────────────────────

func TestLifecycle_PublishesEveryTransition(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	publisher := NewMockPublisher()
	svc := service.NewRideService(rideRepo, availRepo, publisher)
	ctx := context.Background()

	ride, err := svc.RequestRide(ctx, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AcceptRide(ctx, "driver-1", ride.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, next := range []domain.RideStatus{domain.RideStatusArrived, domain.RideStatusInProgress, domain.RideStatusCompleted} {
		if _, err := svc.AdvanceStatus(ctx, "driver-1", ride.ID, next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}

	got := publisher.Events()
	want := []string{"pending", "accepted", "arrived", "in_progress", "completed"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, status := range want {
		if got[i].Status != status {
			t.Errorf("event %d: expected %s, got %s", i, status, got[i].Status)
		}
	}
}

func TestLifecycle_PublishFailureDoesNotFailTransition(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	publisher := NewMockPublisher()
	publisher.PublishError = ErrMockTimeout
	svc := service.NewRideService(rideRepo, NewMockAvailabilityRepository(), publisher)

	ride, err := svc.RequestRide(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
	if ride.Status != domain.RideStatusPending {
		t.Errorf("expected pending, got %s", ride.Status)
	}
}
