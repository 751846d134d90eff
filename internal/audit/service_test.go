package audit

import (
	"context"
	"testing"
	"time"
)

type stubTimelineRepo struct {
	rows       []TimelineRow
	lastLimit  int
	lastOffset int
	lastAll    TimelineFilters
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	if len(s.rows) > limit {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func (s *stubTimelineRepo) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	s.lastAll = filters
	return s.rows, nil
}

func mkRow(ts, actor, accion string) TimelineRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{At: at, Actor: actor, Accion: accion, Recurso: "usuarios", Resultado: ResultSuccess}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{
		mkRow("2026-03-10T10:00:00Z", "admin@clinica.cl", "ACTUALIZAR_USUARIO"),
		mkRow("2026-03-09T09:00:00Z", "admin@clinica.cl", "CREAR_USUARIO"),
		mkRow("2026-03-08T08:00:00Z", "admin@clinica.cl", "CREAR_USUARIO"),
	}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastOffset)
	}
}

func TestServiceTimelineSecondPage(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{mkRow("2026-03-08T08:00:00Z", "a", "X")}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastOffset != 2 {
		t.Fatalf("expected offset 2, got %d", repo.lastOffset)
	}
	if result.Paging.PrevPage != 1 {
		t.Fatalf("expected prev page 1, got %d", result.Paging.PrevPage)
	}
	if result.Paging.HasNext {
		t.Fatalf("expected hasNext false")
	}
}

func TestServiceTimelineCapsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)
	if _, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastLimit != 51 {
		t.Fatalf("expected capped limit 51, got %d", repo.lastLimit)
	}
}

func TestServiceExportPassesFilters(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{mkRow("2026-03-08T08:00:00Z", "a", "X")}}
	svc := NewService(repo)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows, err := svc.Export(context.Background(), TimelineFilters{From: from, Actor: "a"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !repo.lastAll.From.Equal(from) || repo.lastAll.Actor != "a" {
		t.Fatalf("filters not forwarded: %+v", repo.lastAll)
	}
}
