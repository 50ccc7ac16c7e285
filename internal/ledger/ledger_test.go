package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func sessionRecord(roll int) Record {
	return Record{
		RollNumber:  roll,
		StudentName: "Krishna",
		Subject:     "Machine Learning",
		Time:        "10:00AM - 11:00 AM",
		Room:        "AB-I 405",
		Confidence:  0.82,
	}
}

func TestService_MarkPresentDefaults(t *testing.T) {
	svc := NewService(NewMemoryStore())

	rec, err := svc.MarkPresent(context.Background(), sessionRecord(101))
	if err != nil {
		t.Fatalf("mark present failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("id not assigned")
	}
	if rec.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
	if rec.Method != MethodFaceRecognition || rec.Status != StatusPresent {
		t.Errorf("defaults not applied: method=%s status=%s", rec.Method, rec.Status)
	}
}

func TestService_MarkPresentDuplicateSameDay(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.MarkPresent(ctx, sessionRecord(101)); err != nil {
		t.Fatalf("first mark failed: %v", err)
	}
	if _, err := svc.MarkPresent(ctx, sessionRecord(101)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second mark err = %v, want ErrDuplicate", err)
	}

	// Same student, different session: allowed.
	other := sessionRecord(101)
	other.Room = "AB-I 201"
	if _, err := svc.MarkPresent(ctx, other); err != nil {
		t.Fatalf("different session rejected: %v", err)
	}
}

func TestService_MarkPresentNextDayAllowed(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	yesterday := sessionRecord(101)
	yesterday.Timestamp = time.Now().UTC().AddDate(0, 0, -1)
	if _, err := svc.MarkPresent(ctx, yesterday); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if _, err := svc.MarkPresent(ctx, sessionRecord(101)); err != nil {
		t.Fatalf("today's mark rejected: %v", err)
	}
}

func TestService_ConcurrentDoubleSubmission(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.MarkPresent(ctx, sessionRecord(101))
		}(i)
	}
	wg.Wait()

	stored := 0
	for _, err := range errs {
		switch {
		case err == nil:
			stored++
		case errors.Is(err, ErrDuplicate):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if stored != 1 {
		t.Fatalf("%d records stored, want exactly 1", stored)
	}
}

func TestService_ListForSessionNewestFirst(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	base := time.Now().UTC()
	for i, roll := range []int{101, 102, 103} {
		rec := sessionRecord(roll)
		rec.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if _, err := svc.MarkPresent(ctx, rec); err != nil {
			t.Fatalf("mark %d failed: %v", roll, err)
		}
	}

	recs, err := svc.ListForSession(ctx, "Machine Learning", "10:00AM - 11:00 AM", "AB-I 405", base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[0].RollNumber != 103 || recs[2].RollNumber != 101 {
		t.Errorf("order = %d,%d,%d, want newest first", recs[0].RollNumber, recs[1].RollNumber, recs[2].RollNumber)
	}

	n, err := svc.HeadcountToday(ctx, "Machine Learning", "10:00AM - 11:00 AM", "AB-I 405")
	if err != nil {
		t.Fatalf("headcount failed: %v", err)
	}
	if n != 3 {
		t.Errorf("headcount = %d, want 3", n)
	}
}

func TestService_RecentForStudentLimit(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := sessionRecord(101)
		rec.Timestamp = time.Now().UTC().AddDate(0, 0, -i)
		if _, err := svc.MarkPresent(ctx, rec); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
	}

	recs, err := svc.RecentForStudent(ctx, 101, 3)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if !recs[0].Timestamp.After(recs[1].Timestamp) {
		t.Error("records not newest first")
	}
}

func TestService_Validation(t *testing.T) {
	svc := NewService(NewMemoryStore())
	rec := sessionRecord(0)
	if _, err := svc.MarkPresent(context.Background(), rec); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	rec = sessionRecord(101)
	rec.Method = Method("telepathy")
	if _, err := svc.MarkPresent(context.Background(), rec); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown method: err = %v, want ErrValidation", err)
	}

	rec = sessionRecord(101)
	rec.Status = Status("maybe")
	if _, err := svc.MarkPresent(context.Background(), rec); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown status: err = %v, want ErrValidation", err)
	}
}
