package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/timetabler/core/factory"
	"github.com/kilianp07/timetabler/core/model"
)

func TestMemoryRoutesAndServices(t *testing.T) {
	m := NewMemory()
	m.SetRoute("1", model.Outbound, "a", "b", "c")
	m.SetRoute("2", model.Outbound, "b", "c")
	ctx := context.Background()

	stops, err := m.Stops(ctx, "1", model.Outbound)
	if err != nil {
		t.Fatalf("stops: %v", err)
	}
	if got := model.StopIDs(stops); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected order %v", got)
	}
	if _, err := m.Stops(ctx, "1", model.Inbound); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData got %v", err)
	}
	svcs, err := m.ServicesAt(ctx, "b")
	if err != nil || len(svcs) != 2 || svcs[0] != "1" || svcs[1] != "2" {
		t.Fatalf("unexpected services %v err %v", svcs, err)
	}
}

func TestSolidHistory(t *testing.T) {
	m := NewMemory()
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	arr := day.Add(8 * time.Hour)
	dep := arr.Add(time.Minute)
	m.AddHistoric("1", day,
		model.HistoricVisit{ScheduledVisit: model.ScheduledVisit{ServiceID: "1", StopID: "a"}, ActualArrival: &arr, ActualDeparture: &dep},
		model.HistoricVisit{ScheduledVisit: model.ScheduledVisit{ServiceID: "1", StopID: "b"}, ActualArrival: &arr},
	)
	ctx := context.Background()
	solid, err := SolidHistory(ctx, m, "1", day)
	if err != nil || len(solid) != 1 {
		t.Fatalf("expected one solid visit got %d err %v", len(solid), err)
	}
	if _, err := SolidHistory(ctx, m, "1", day.AddDate(0, 0, 1)); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected data gap got %v", err)
	}
	atStop, err := m.HistoricTimetableAtStop(ctx, "b", day)
	if err != nil || len(atStop) != 1 {
		t.Fatalf("expected one visit at stop b got %d err %v", len(atStop), err)
	}
}

func TestRegistryMemory(t *testing.T) {
	p, err := New(factory.ModuleConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := p.(*Memory); !ok {
		t.Fatalf("expected *Memory got %T", p)
	}
}
