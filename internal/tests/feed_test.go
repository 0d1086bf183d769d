package tests

import (
	"context"
	"errors"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// DISPATCH FEED
// ──────────────────────────────────────────────

func TestOpenRequests_ReturnsPendingRidesInOrder(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	rideSvc := service.NewRideService(rideRepo, availRepo, nil)
	feedSvc := service.NewFeedService(rideRepo, availRepo)
	ctx := context.Background()

	var created []string
	for _, passenger := range []string{"passenger-1", "passenger-2", "passenger-3"} {
		in := validRequest()
		in.PassengerID = passenger
		ride, err := rideSvc.RequestRide(ctx, in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		created = append(created, ride.ID)
	}

	open, err := feedSvc.OpenRequests(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(open) != 3 {
		t.Fatalf("expected 3 open rides, got %d", len(open))
	}
	for i, ride := range open {
		if ride.ID != created[i] {
			t.Errorf("position %d: expected %s, got %s", i, created[i], ride.ID)
		}
	}
}

func TestOpenRequests_ExcludesAcceptedRides(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	availRepo.AddRecord(activeDriver("driver-2"))
	rideSvc := service.NewRideService(rideRepo, availRepo, nil)
	feedSvc := service.NewFeedService(rideRepo, availRepo)
	ctx := context.Background()

	first, err := rideSvc.RequestRide(ctx, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := validRequest()
	second.PassengerID = "passenger-2"
	if _, err := rideSvc.RequestRide(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := rideSvc.AcceptRide(ctx, "driver-1", first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	open, err := feedSvc.OpenRequests(ctx, "driver-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open ride, got %d", len(open))
	}
	if open[0].ID == first.ID {
		t.Error("accepted ride must not appear in the feed")
	}
}

func TestOpenRequests_GatesOnSubscription(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(&domain.DriverAvailability{
		DriverID:     "driver-1",
		Online:       true,
		Subscription: domain.SubscriptionExpired,
	})
	feedSvc := service.NewFeedService(rideRepo, availRepo)

	_, err := feedSvc.OpenRequests(context.Background(), "driver-1")
	if !errors.Is(err, service.ErrDriverNotEligible) {
		t.Errorf("expected ErrDriverNotEligible, got %v", err)
	}
}

// Eligibility is re-read on every poll: suspending the subscription
// between two queries shuts the feed off immediately.
func TestOpenRequests_SuspensionTakesEffectNextPoll(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	rec := activeDriver("driver-1")
	availRepo.AddRecord(rec)
	feedSvc := service.NewFeedService(rideRepo, availRepo)
	ctx := context.Background()

	if _, err := feedSvc.OpenRequests(ctx, "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec.Subscription = domain.SubscriptionPaused

	_, err := feedSvc.OpenRequests(ctx, "driver-1")
	if !errors.Is(err, service.ErrDriverNotEligible) {
		t.Errorf("expected ErrDriverNotEligible after suspension, got %v", err)
	}
}

func TestOpenRequests_UnknownDriver(t *testing.T) {
	t.Parallel()

	feedSvc := service.NewFeedService(NewMockRideRepository(), NewMockAvailabilityRepository())

	_, err := feedSvc.OpenRequests(context.Background(), "ghost")
	if !errors.Is(err, service.ErrDriverNotEligible) {
		t.Errorf("expected ErrDriverNotEligible, got %v", err)
	}
}

// ──────────────────────────────────────────────
// ACTIVE RIDE LOOKUP
// ──────────────────────────────────────────────

func TestActiveRideFor_ResumesAfterRestart(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	rideSvc := service.NewRideService(rideRepo, availRepo, nil)
	feedSvc := service.NewFeedService(rideRepo, availRepo)
	ctx := context.Background()

	ride, err := rideSvc.RequestRide(ctx, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := rideSvc.AcceptRide(ctx, "driver-1", ride.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Passenger side.
	active, err := feedSvc.ActiveRideFor(ctx, "passenger-1", domain.RolePassenger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active == nil || active.ID != ride.ID {
		t.Fatal("expected passenger's active ride")
	}

	// Driver side.
	active, err = feedSvc.ActiveRideFor(ctx, "driver-1", domain.RoleDriver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active == nil || active.ID != ride.ID {
		t.Fatal("expected driver's active ride")
	}
}

func TestActiveRideFor_NilWhenNoActiveRide(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideSvc := service.NewRideService(rideRepo, NewMockAvailabilityRepository(), nil)
	feedSvc := service.NewFeedService(rideRepo, NewMockAvailabilityRepository())
	ctx := context.Background()

	ride, err := rideSvc.RequestRide(ctx, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := rideSvc.CancelRide(ctx, "passenger-1", domain.RolePassenger, ride.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, err := feedSvc.ActiveRideFor(ctx, "passenger-1", domain.RolePassenger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active ride, got %s", active.ID)
	}
}

func TestActiveRideFor_UnknownRole(t *testing.T) {
	t.Parallel()

	feedSvc := service.NewFeedService(NewMockRideRepository(), NewMockAvailabilityRepository())

	_, err := feedSvc.ActiveRideFor(context.Background(), "user-1", domain.Role("admin"))
	if !errors.Is(err, service.ErrNotRideParticipant) {
		t.Errorf("expected ErrNotRideParticipant, got %v", err)
	}
}

// ──────────────────────────────────────────────
// DRIVER HEARTBEATS
// ──────────────────────────────────────────────

func TestHeartbeat_RecordsPositionAndGeoIndex(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	locations := NewMockLocationStore()
	svc := service.NewDriverService(availRepo, rideRepo, locations)

	if err := svc.Heartbeat(context.Background(), "driver-1", -1.29, 36.82, 180); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := availRepo.GetRecord("driver-1")
	if rec.Lat != -1.29 || rec.Lng != 36.82 || rec.Heading != 180 {
		t.Errorf("unexpected stored position: %+v", rec)
	}
	if !rec.Online {
		t.Error("heartbeat must mark the driver online")
	}
	if !locations.HasLocation("driver-1") {
		t.Error("expected driver in the geo index")
	}
}

func TestHeartbeat_DenormalizesOntoActiveRide(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	rideSvc := service.NewRideService(rideRepo, availRepo, nil)
	driverSvc := service.NewDriverService(availRepo, rideRepo, nil)
	ctx := context.Background()

	ride, err := rideSvc.RequestRide(ctx, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := rideSvc.AcceptRide(ctx, "driver-1", ride.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := driverSvc.Heartbeat(ctx, "driver-1", -1.30, 36.85, 90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := rideRepo.GetRide(ride.ID)
	if stored.DriverLat != -1.30 || stored.DriverLng != 36.85 || stored.DriverHeading != 90 {
		t.Errorf("expected position on ride record, got %+v", stored)
	}
}

func TestHeartbeat_RejectsInvalidCoordinates(t *testing.T) {
	t.Parallel()

	svc := service.NewDriverService(NewMockAvailabilityRepository(), NewMockRideRepository(), nil)

	err := svc.Heartbeat(context.Background(), "driver-1", 120, 36.82, 0)
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestNearbyDrivers_ReturnsIndexedDrivers(t *testing.T) {
	t.Parallel()

	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	availRepo.AddRecord(activeDriver("driver-2"))
	locations := NewMockLocationStore()
	svc := service.NewDriverService(availRepo, NewMockRideRepository(), locations)
	ctx := context.Background()

	if err := svc.Heartbeat(ctx, "driver-1", -1.29, 36.82, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Heartbeat(ctx, "driver-2", -1.30, 36.83, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nearby, err := svc.NearbyDrivers(ctx, -1.29, 36.82, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nearby) != 2 {
		t.Fatalf("expected 2 drivers, got %d", len(nearby))
	}
}

func TestNearbyDrivers_RejectsInvalidCoordinates(t *testing.T) {
	t.Parallel()

	svc := service.NewDriverService(NewMockAvailabilityRepository(), NewMockRideRepository(), NewMockLocationStore())

	_, err := svc.NearbyDrivers(context.Background(), -95, 36.82, 1)
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestNearbyDrivers_EmptyWithoutGeoIndex(t *testing.T) {
	t.Parallel()

	svc := service.NewDriverService(NewMockAvailabilityRepository(), NewMockRideRepository(), nil)

	nearby, err := svc.NearbyDrivers(context.Background(), -1.29, 36.82, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nearby) != 0 {
		t.Errorf("expected no drivers, got %d", len(nearby))
	}
}

func TestSetOnline_OfflineRemovesFromGeoIndex(t *testing.T) {
	t.Parallel()

	availRepo := NewMockAvailabilityRepository()
	availRepo.AddRecord(activeDriver("driver-1"))
	locations := NewMockLocationStore()
	svc := service.NewDriverService(availRepo, NewMockRideRepository(), locations)
	ctx := context.Background()

	if err := svc.Heartbeat(ctx, "driver-1", -1.29, 36.82, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetOnline(ctx, "driver-1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if availRepo.GetRecord("driver-1").Online {
		t.Error("expected driver offline")
	}
	if locations.HasLocation("driver-1") {
		t.Error("expected driver removed from geo index")
	}
}
